package services

import (
	"bizcard/config"
	"bizcard/models"
	"bizcard/utils"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultCardsPerPage = 15
	maxCardsPerPage     = 100
)

// CardService предоставляет методы для работы с визитками: запись агрегата, чтение и списки
type CardService struct {
	db             *gorm.DB
	validator      *CardValidator
	quota          *QuotaService
	log            *utils.Logger
	metrics        *utils.Metrics
	defaultPerPage int
	maxPerPage     int
}

// NewCardService создает новый экземпляр CardService
func NewCardService(db *gorm.DB, cfg *config.Config, log *utils.Logger, metrics *utils.Metrics) *CardService {
	s := &CardService{
		db:             db,
		validator:      NewCardValidator(),
		quota:          NewQuotaService(db),
		log:            log,
		metrics:        metrics,
		defaultPerPage: defaultCardsPerPage,
		maxPerPage:     maxCardsPerPage,
	}
	if cfg != nil && cfg.Cards.DefaultPerPage > 0 {
		s.defaultPerPage = cfg.Cards.DefaultPerPage
	}
	if cfg != nil && cfg.Cards.MaxPerPage >= s.defaultPerPage {
		s.maxPerPage = cfg.Cards.MaxPerPage
	}
	return s
}

// Create проверяет payload и лимит тарифа, затем записывает визитку со всеми дочерними коллекциями
// в одной транзакции. Возвращает проекцию владельца.
func (s *CardService) Create(ctx context.Context, identity Identity, payload CardPayload) (*CardResponse, error) {
	if err := s.validator.Validate(&payload); err != nil {
		s.metrics.RecordValidationError()
		return nil, err
	}

	card := &models.Card{
		UserID:   identity.UserID,
		Template: models.DefaultTemplate,
		IsPublic: true,
	}
	applyRoot(card, &payload)

	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.quota.Check(ctx, tx, identity); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(card).Error; err != nil {
			return fmt.Errorf("insert card: %w", err)
		}
		return insertChildren(tx, card.ID, &payload)
	})
	if err != nil {
		var quotaErr *QuotaExceededError
		if errors.As(err, &quotaErr) {
			s.metrics.RecordQuotaRejection()
			s.log.Info("card quota exceeded",
				"user_id", identity.UserID,
				"plan", quotaErr.SubscriptionPlan,
				"current", quotaErr.CurrentCards,
				"max", quotaErr.MaxCards,
			)
			return nil, err
		}
		return nil, s.txFailure(utils.CardOpCreate, start, err)
	}
	s.log.LogOperation("card.create", start, nil)
	s.metrics.RecordCardOperation(utils.CardOpCreate, nil)

	created, err := s.loadCard(ctx, s.db, card.ID)
	if err != nil {
		return nil, err
	}
	return ProjectOwner(created), nil
}

// Replace заменяет визитку: переданные корневые поля и все дочерние коллекции.
// Непереданное корневое поле остается прежним, отсутствующая коллекция означает пустую.
// Старые дочерние записи удаляются, новые вставляются, никакого сопоставления со старыми не делается.
func (s *CardService) Replace(ctx context.Context, identity Identity, cardID uint, payload CardPayload) (*CardResponse, error) {
	if _, err := s.authorize(ctx, s.db, identity, cardID); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(&payload); err != nil {
		s.metrics.RecordValidationError()
		return nil, err
	}

	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// владельца проверяем повторно под блокировкой: визитку могли удалить между проверками
		card, err := s.authorize(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), identity, cardID)
		if err != nil {
			return err
		}
		applyRoot(card, &payload)

		if err := deleteChildren(tx, card.ID); err != nil {
			return err
		}
		if err := tx.Model(&models.Card{ID: card.ID}).Updates(rootColumns(card)).Error; err != nil {
			return fmt.Errorf("update card: %w", err)
		}
		return insertChildren(tx, card.ID, &payload)
	})
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			return nil, err
		}
		return nil, s.txFailure(utils.CardOpReplace, start, err)
	}
	s.log.LogOperation("card.replace", start, nil)
	s.metrics.RecordCardOperation(utils.CardOpReplace, nil)

	updated, err := s.loadCard(ctx, s.db, cardID)
	if err != nil {
		return nil, err
	}
	return ProjectOwner(updated), nil
}

// Delete удаляет визитку вместе со всеми дочерними записями
func (s *CardService) Delete(ctx context.Context, identity Identity, cardID uint) error {
	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		card, err := s.authorize(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), identity, cardID)
		if err != nil {
			return err
		}
		if err := deleteChildren(tx, card.ID); err != nil {
			return err
		}
		if err := tx.Delete(&models.Card{}, card.ID).Error; err != nil {
			return fmt.Errorf("delete card: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCardNotFound) {
			return err
		}
		return s.txFailure(utils.CardOpDelete, start, err)
	}
	s.log.LogOperation("card.delete", start, nil)
	s.metrics.RecordCardOperation(utils.CardOpDelete, nil)
	return nil
}

// GetOwned читает собственную визитку владельца. Счетчик просмотров не меняется.
func (s *CardService) GetOwned(ctx context.Context, identity Identity, cardID uint) (*CardResponse, error) {
	if _, err := s.authorize(ctx, s.db, identity, cardID); err != nil {
		return nil, err
	}
	card, err := s.loadCard(ctx, s.db, cardID)
	if err != nil {
		return nil, err
	}
	return ProjectOwner(card), nil
}

// GetPublic читает визитку по публичному пути. viewer равен nil для анонимного запроса.
// Чтение публичной визитки увеличивает счетчик на единицу. Приватная визитка отдается любому
// зрителю без увеличения счетчика; viewCount в ответе видит только владелец.
func (s *CardService) GetPublic(ctx context.Context, viewer *Identity, cardID uint) (*CardResponse, error) {
	var card models.Card
	if err := s.db.WithContext(ctx).
		Select("id", "user_id", "is_public").
		First(&card, cardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("find card: %w", err)
	}

	if card.IsPublic {
		if err := s.db.WithContext(ctx).
			Model(&models.Card{}).
			Where("id = ?", card.ID).
			UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error; err != nil {
			s.metrics.RecordCardOperation(utils.CardOpView, err)
			return nil, fmt.Errorf("increment view count: %w", err)
		}
		s.metrics.RecordCardOperation(utils.CardOpView, nil)
	}

	full, err := s.loadCard(ctx, s.db, cardID)
	if err != nil {
		return nil, err
	}
	return project(full, viewerID(viewer)), nil
}

// authorize загружает корень визитки и проверяет владельца.
// "Не найдено" и "чужая" возвращаются одной ошибкой.
func (s *CardService) authorize(ctx context.Context, db *gorm.DB, identity Identity, cardID uint) (*models.Card, error) {
	var card models.Card
	if err := db.WithContext(ctx).Where("id = ?", cardID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("find card: %w", err)
	}
	if !identity.Owns(card.UserID) {
		return nil, ErrCardNotFound
	}
	return &card, nil
}

// loadCard загружает агрегат со всеми дочерними коллекциями и владельцем
func (s *CardService) loadCard(ctx context.Context, db *gorm.DB, cardID uint) (*models.Card, error) {
	var card models.Card
	if err := db.WithContext(ctx).Scopes(preloadAggregate).First(&card, cardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("load card: %w", err)
	}
	return &card, nil
}

// txFailure логирует подробности сбоя и возвращает непрозрачную ошибку транзакции
func (s *CardService) txFailure(op string, start time.Time, err error) error {
	s.log.LogOperation("card."+op, start, err)
	s.metrics.RecordCriticalError(err)
	return &TransactionError{Op: op, Err: err}
}

// applyRoot переносит корневые поля из payload. name заменяется всегда, остальные поля
// меняются только если переданы: при замене отсутствующее поле сохраняет прежнее значение.
func applyRoot(card *models.Card, payload *CardPayload) {
	card.Name = payload.Name
	assign(&card.Company, payload.Company)
	assign(&card.Position, payload.Position)
	assign(&card.Phone, payload.Phone)
	assign(&card.OfficePhone, payload.OfficePhone)
	assign(&card.Email, payload.Email)
	assign(&card.Address, payload.Address)
	assign(&card.Website, payload.Website)
	assign(&card.Bio, payload.Bio)
	assign(&card.Avatar, payload.Avatar)
	assign(&card.CoverPhoto, payload.CoverPhoto)
	assign(&card.Logo, payload.Logo)
	assign(&card.Location, payload.Location)
	assign(&card.Template, payload.Template)
	if payload.IsPublic != nil {
		card.IsPublic = *payload.IsPublic
	}
}

func assign(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// rootColumns изменяемые колонки визитки. user_id и view_count сюда не входят никогда.
func rootColumns(card *models.Card) map[string]interface{} {
	return map[string]interface{}{
		"name":         card.Name,
		"company":      card.Company,
		"position":     card.Position,
		"phone":        card.Phone,
		"office_phone": card.OfficePhone,
		"email":        card.Email,
		"address":      card.Address,
		"website":      card.Website,
		"bio":          card.Bio,
		"avatar":       card.Avatar,
		"cover_photo":  card.CoverPhoto,
		"logo":         card.Logo,
		"location":     card.Location,
		"template":     card.Template,
		"is_public":    card.IsPublic,
		"updated_at":   time.Now(),
	}
}

// deleteChildren удаляет всех потомков визитки: сначала фото и ссылки товаров, затем товары,
// соцсети и теги. Каскад в схеме остается страховкой, но на него не полагаемся.
func deleteChildren(tx *gorm.DB, cardID uint) error {
	productIDs := tx.Model(&models.Product{}).Select("id").Where("card_id = ?", cardID)

	if err := tx.Where("product_id IN (?)", productIDs).Delete(&models.ProductPhoto{}).Error; err != nil {
		return fmt.Errorf("delete product photos: %w", err)
	}
	if err := tx.Where("product_id IN (?)", productIDs).Delete(&models.ProductLink{}).Error; err != nil {
		return fmt.Errorf("delete product links: %w", err)
	}
	if err := tx.Where("card_id = ?", cardID).Delete(&models.Product{}).Error; err != nil {
		return fmt.Errorf("delete products: %w", err)
	}
	if err := tx.Where("card_id = ?", cardID).Delete(&models.SocialLink{}).Error; err != nil {
		return fmt.Errorf("delete social links: %w", err)
	}
	if err := tx.Where("card_id = ?", cardID).Delete(&models.IndustryTag{}).Error; err != nil {
		return fmt.Errorf("delete industry tags: %w", err)
	}
	return nil
}

// insertChildren вставляет дочерние коллекции в порядке payload
func insertChildren(tx *gorm.DB, cardID uint, payload *CardPayload) error {
	if len(payload.SocialLinks) > 0 {
		links := make([]models.SocialLink, 0, len(payload.SocialLinks))
		for _, l := range payload.SocialLinks {
			links = append(links, models.SocialLink{
				CardID:   cardID,
				Platform: l.Platform,
				URL:      l.URL,
				Username: l.Username,
			})
		}
		if err := tx.Create(&links).Error; err != nil {
			return fmt.Errorf("insert social links: %w", err)
		}
	}

	for _, p := range payload.Products {
		product := models.Product{
			CardID:      cardID,
			Name:        p.Name,
			Description: p.Description,
			Image:       p.Image,
		}
		if err := tx.Omit(clause.Associations).Create(&product).Error; err != nil {
			return fmt.Errorf("insert product: %w", err)
		}

		if len(p.Photos) > 0 {
			photos := make([]models.ProductPhoto, 0, len(p.Photos))
			for _, url := range p.Photos {
				photos = append(photos, models.ProductPhoto{ProductID: product.ID, URL: url})
			}
			if err := tx.Create(&photos).Error; err != nil {
				return fmt.Errorf("insert product photos: %w", err)
			}
		}

		if len(p.Links) > 0 {
			links := make([]models.ProductLink, 0, len(p.Links))
			for _, l := range p.Links {
				links = append(links, models.ProductLink{ProductID: product.ID, Title: l.Title, URL: l.URL})
			}
			if err := tx.Create(&links).Error; err != nil {
				return fmt.Errorf("insert product links: %w", err)
			}
		}
	}

	if len(payload.IndustryTags) > 0 {
		tags := make([]models.IndustryTag, 0, len(payload.IndustryTags))
		for _, tag := range payload.IndustryTags {
			tags = append(tags, models.IndustryTag{CardID: cardID, Tag: tag})
		}
		if err := tx.Create(&tags).Error; err != nil {
			return fmt.Errorf("insert industry tags: %w", err)
		}
	}

	return nil
}
