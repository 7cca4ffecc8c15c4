package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Тарифные планы подписки. Сам биллинг живет вне сервиса, сюда приходит только его результат.
const (
	PlanFree         = "free"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// Роли пользователей
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"`
	FirstName        string    `gorm:"column:first_name;not null;size:50"`
	LastName         string    `gorm:"column:last_name;not null;size:50"`
	Email            string    `gorm:"column:email;unique;not null;size:100;index"`
	Password         string    `gorm:"column:password;not null;size:100"`
	SubscriptionPlan string    `gorm:"column:subscription_plan;not null;size:20;default:free"`
	Role             string    `gorm:"column:role;not null;size:20;default:user"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin сообщает, есть ли у пользователя административные права
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BeforeCreate хук для валидации перед созданием
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if len(u.FirstName) < 2 || len(u.FirstName) > 50 {
		return errors.New("first name must be between 2 and 50 characters")
	}
	if len(u.LastName) < 2 || len(u.LastName) > 50 {
		return errors.New("last name must be between 2 and 50 characters")
	}
	if len(u.Email) < 3 || len(u.Email) > 100 {
		return errors.New("email must be between 3 and 100 characters")
	}
	if u.SubscriptionPlan == "" {
		u.SubscriptionPlan = PlanFree
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
