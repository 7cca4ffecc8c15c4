package controllers

import (
	"bizcard/middleware"
	"bizcard/services"
	"bizcard/utils"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var (
	hasNumber  = regexp.MustCompile(`[0-9]`)
	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasLower   = regexp.MustCompile(`[a-z]`)
	hasSpecial = regexp.MustCompile(`[!@#$%^&*]`)
)

type AuthController struct {
	users    *services.UserService
	email    *services.EmailService
	validate *validator.Validate
	secret   []byte
	ttl      time.Duration
	log      *utils.Logger
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type SignInResponse struct {
	Token string `json:"token"`
}

type SignUpRequest struct {
	FirstName string `json:"firstName" validate:"required,min=2,max=50,alpha"`
	LastName  string `json:"lastName" validate:"required,min=2,max=50,alpha"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,password"`
}

type Token struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	UserID    uint      `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type AuthResponse struct {
	Token Token                 `json:"token"`
	User  services.UserResponse `json:"user"`
}

func NewAuthController(users *services.UserService, email *services.EmailService, secret []byte, ttl time.Duration, log *utils.Logger) *AuthController {
	validate := validator.New()

	// Пароль: хотя бы одна цифра, заглавная, строчная буква и спецсимвол
	validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		password := fl.Field().String()
		return hasNumber.MatchString(password) &&
			hasUpper.MatchString(password) &&
			hasLower.MatchString(password) &&
			hasSpecial.MatchString(password)
	})

	return &AuthController{
		users:    users,
		email:    email,
		validate: validate,
		secret:   secret,
		ttl:      ttl,
		log:      log.With("controller", "auth"),
	}
}

// SignIn обрабатывает вход пользователя
func (ac *AuthController) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// Валидация запроса
	if err := ac.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Ищем пользователя по email и проверяем пароль
	user, err := ac.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, services.ErrUserNotFound) {
			ac.log.Error("sign in lookup failed", "error", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if !ac.users.CheckPassword(user, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	tokenString, _, err := middleware.IssueToken(ac.secret, ac.ttl, user.ID, user.Email)
	if err != nil {
		ac.log.Error("token signing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, SignInResponse{Token: tokenString})
}

// SignUp регистрирует пользователя на бесплатном тарифе и сразу выдает токен
func (ac *AuthController) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// Валидация запроса
	if err := ac.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ac.users.CreateUser(c.Request.Context(), services.CreateUserRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		ac.log.Error("sign up failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	tokenString, expiresAt, err := middleware.IssueToken(ac.secret, ac.ttl, user.ID, user.Email)
	if err != nil {
		ac.log.Error("token signing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	ac.email.SendWelcomeAsync(user.Email, user.FirstName)

	c.JSON(http.StatusCreated, AuthResponse{
		Token: Token{
			Token:     tokenString,
			Email:     user.Email,
			UserID:    user.ID,
			ExpiresAt: expiresAt,
		},
		User: services.ToUserResponse(user),
	})
}
