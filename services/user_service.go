package services

import (
	"bizcard/models"
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrUnknownPlan тариф не из списка поддерживаемых
var ErrUnknownPlan = errors.New("unknown subscription plan")

type UserService struct {
	db *gorm.DB
}

type CreateUserRequest struct {
	FirstName string `json:"firstName" validate:"required,min=2,max=50"`
	LastName  string `json:"lastName" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

type UserResponse struct {
	ID               uint   `json:"id"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	SubscriptionPlan string `json:"subscriptionPlan"`
	Role             string `json:"role"`
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// ToUserResponse убирает из пользователя хеш пароля
func ToUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:               user.ID,
		FirstName:        user.FirstName,
		LastName:         user.LastName,
		Email:            user.Email,
		SubscriptionPlan: user.SubscriptionPlan,
		Role:             user.Role,
	}
}

// CreateUser создает нового пользователя на бесплатном тарифе
func (h *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	email := strings.TrimSpace(req.Email)

	// Проверяем, существует ли пользователь с таким email
	var existingUser models.User
	if err := h.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&existingUser).Error; err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Хешируем пароль
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName:        strings.TrimSpace(req.FirstName),
		LastName:         strings.TrimSpace(req.LastName),
		Email:            email,
		Password:         string(hashedPassword),
		SubscriptionPlan: models.PlanFree,
		Role:             models.RoleUser,
	}

	if err := h.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

// CheckPassword сверяет пароль с сохраненным хешем
func (h *UserService) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

// FindByID ищет пользователя по ID
func (h *UserService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := h.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmail ищет пользователя по email (игнорируя регистр и пробелы)
func (h *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := h.db.WithContext(ctx).Where("LOWER(TRIM(email)) = LOWER(TRIM(?))", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ResolveIdentity строит Identity по актуальным данным пользователя.
// Тариф и роль читаются из базы на каждый запрос, а не из токена, чтобы смена тарифа действовала сразу.
func (h *UserService) ResolveIdentity(ctx context.Context, userID uint) (Identity, error) {
	user, err := h.FindByID(ctx, userID)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		UserID:           user.ID,
		SubscriptionPlan: user.SubscriptionPlan,
		IsAdmin:          user.IsAdmin(),
	}, nil
}

// SetPlan записывает тариф, выбранный внешним биллингом
func (h *UserService) SetPlan(ctx context.Context, userID uint, plan string) (*models.User, error) {
	plan = strings.ToLower(strings.TrimSpace(plan))
	if _, ok := planCardLimits[plan]; !ok {
		return nil, ErrUnknownPlan
	}

	user, err := h.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := h.db.WithContext(ctx).Model(user).Update("subscription_plan", plan).Error; err != nil {
		return nil, err
	}
	user.SubscriptionPlan = plan
	return user, nil
}
