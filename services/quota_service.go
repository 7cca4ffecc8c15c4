package services

import (
	"bizcard/models"
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Лимит визиток по тарифам. 999 у enterprise - фактически без ограничений.
var planCardLimits = map[string]int64{
	models.PlanFree:         1,
	models.PlanProfessional: 3,
	models.PlanEnterprise:   999,
}

// NormalizePlan приводит неизвестный или пустой тариф к бесплатному
func NormalizePlan(plan string) string {
	if _, ok := planCardLimits[plan]; ok {
		return plan
	}
	return models.PlanFree
}

// MaxCardsForPlan возвращает максимальное число визиток для тарифа
func MaxCardsForPlan(plan string) int64 {
	return planCardLimits[NormalizePlan(plan)]
}

// QuotaDecision результат проверки лимита
type QuotaDecision struct {
	Allowed          bool
	CurrentCards     int64
	MaxCards         int64
	SubscriptionPlan string
}

// Evaluate решает, можно ли создать еще одну визитку при текущем количестве
func Evaluate(plan string, currentCards int64) QuotaDecision {
	normalized := NormalizePlan(plan)
	maxCards := planCardLimits[normalized]
	return QuotaDecision{
		Allowed:          currentCards < maxCards,
		CurrentCards:     currentCards,
		MaxCards:         maxCards,
		SubscriptionPlan: normalized,
	}
}

// QuotaService проверяет лимит создания визиток по тарифу пользователя
type QuotaService struct {
	db *gorm.DB
}

// NewQuotaService создает новый экземпляр QuotaService
func NewQuotaService(db *gorm.DB) *QuotaService {
	return &QuotaService{db: db}
}

// Check считает визитки пользователя и отклоняет создание сверх лимита.
// Внутри транзакции создания сначала блокируется строка пользователя, поэтому два параллельных
// создания одного пользователя выполняются по очереди и не могут оба пройти проверку.
func (s *QuotaService) Check(ctx context.Context, tx *gorm.DB, identity Identity) error {
	if tx == nil {
		tx = s.db
	}

	var owner models.User
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&owner, identity.UserID).Error; err != nil {
		return fmt.Errorf("lock card owner: %w", err)
	}

	count, err := s.CountCards(ctx, tx, identity.UserID)
	if err != nil {
		return err
	}

	decision := Evaluate(identity.SubscriptionPlan, count)
	if !decision.Allowed {
		return &QuotaExceededError{
			CurrentCards:     decision.CurrentCards,
			MaxCards:         decision.MaxCards,
			SubscriptionPlan: decision.SubscriptionPlan,
		}
	}
	return nil
}

// CountCards возвращает количество визиток пользователя
func (s *QuotaService) CountCards(ctx context.Context, tx *gorm.DB, userID uint) (int64, error) {
	if tx == nil {
		tx = s.db
	}
	var count int64
	if err := tx.WithContext(ctx).
		Model(&models.Card{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return count, nil
}
