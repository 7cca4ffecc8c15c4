package services

import (
	"bizcard/models"
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Колонки, по которым разрешена сортировка. Все остальное заменяется на сортировку по умолчанию.
var sortableColumns = map[string]bool{
	"id":           true,
	"name":         true,
	"company":      true,
	"position":     true,
	"phone":        true,
	"office_phone": true,
	"email":        true,
	"address":      true,
	"website":      true,
	"bio":          true,
	"avatar":       true,
	"cover_photo":  true,
	"logo":         true,
	"location":     true,
	"template":     true,
	"is_public":    true,
	"view_count":   true,
	"created_at":   true,
	"updated_at":   true,
}

// CardListParams параметры списка визиток владельца
type CardListParams struct {
	Search    string
	Template  string
	IsPublic  *bool
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

// PublicCardListParams параметры публичного каталога
type PublicCardListParams struct {
	Search    string
	Industry  string
	Location  string
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

// CardPage страница результатов. Формат полей совпадает с тем, что ждет фронтенд.
type CardPage struct {
	Data        []*CardResponse `json:"data"`
	CurrentPage int             `json:"current_page"`
	PerPage     int             `json:"per_page"`
	Total       int64           `json:"total"`
	LastPage    int             `json:"last_page"`
}

// ListOwned возвращает визитки вызывающего пользователя. Администратор видит визитки всех пользователей,
// но чужие получает в публичной проекции.
func (s *CardService) ListOwned(ctx context.Context, identity Identity, params CardListParams) (*CardPage, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if !identity.IsAdmin {
			db = db.Where("business_cards.user_id = ?", identity.UserID)
		}
		if params.Search != "" {
			db = db.Where(searchCondition(params.Search, "name", "company", "position", "email"))
		}
		if params.Template != "" {
			db = db.Where("business_cards.template = ?", params.Template)
		}
		if params.IsPublic != nil {
			db = db.Where("business_cards.is_public = ?", *params.IsPublic)
		}
		return db
	}

	return s.paginate(ctx, filter, listOrder(params.SortBy, params.SortOrder, "created_at"),
		params.Page, params.PerPage, identity.UserID)
}

// ListPublic возвращает только публичные визитки, по умолчанию самые просматриваемые первыми
func (s *CardService) ListPublic(ctx context.Context, params PublicCardListParams) (*CardPage, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		db = db.Where("business_cards.is_public = ?", true)
		if params.Search != "" {
			db = db.Where(searchCondition(params.Search, "name", "company", "position"))
		}
		if params.Industry != "" {
			// EXISTS, а не JOIN: повторяющиеся теги не должны дублировать визитку в выдаче
			db = db.Where("EXISTS (SELECT 1 FROM industry_tags WHERE industry_tags.card_id = business_cards.id AND industry_tags.tag = ?)", params.Industry)
		}
		if params.Location != "" {
			db = db.Where("LOWER(business_cards.location) LIKE ? ESCAPE '\\'", likePattern(params.Location))
		}
		return db
	}

	return s.paginate(ctx, filter, listOrder(params.SortBy, params.SortOrder, "view_count"),
		params.Page, params.PerPage, 0)
}

func (s *CardService) paginate(ctx context.Context, filter func(*gorm.DB) *gorm.DB, order []clause.OrderByColumn, page, perPage int, viewer uint) (*CardPage, error) {
	page, perPage = s.normalizePage(page, perPage)

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&models.Card{}).
		Scopes(filter).
		Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count cards: %w", err)
	}

	var cards []models.Card
	if err := s.db.WithContext(ctx).
		Scopes(filter, preloadAggregate).
		Order(clause.OrderBy{Columns: order}).
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}

	result := &CardPage{
		Data:        make([]*CardResponse, 0, len(cards)),
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    lastPage(total, perPage),
	}
	for i := range cards {
		result.Data = append(result.Data, project(&cards[i], viewer))
	}
	return result, nil
}

func (s *CardService) normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = s.defaultPerPage
	}
	if perPage > s.maxPerPage {
		perPage = s.maxPerPage
	}
	return page, perPage
}

func lastPage(total int64, perPage int) int {
	if total == 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// listOrder строит сортировку из параметров запроса. id добавляется последним,
// чтобы порядок страниц был стабильным при равных значениях.
func listOrder(sortBy, sortOrder, defaultColumn string) []clause.OrderByColumn {
	column := strings.ToLower(strings.TrimSpace(sortBy))
	if !sortableColumns[column] {
		column = defaultColumn
	}
	desc := !strings.EqualFold(strings.TrimSpace(sortOrder), "asc")

	order := []clause.OrderByColumn{
		{Column: clause.Column{Table: models.Card{}.TableName(), Name: column}, Desc: desc},
	}
	if column != "id" {
		order = append(order, clause.OrderByColumn{
			Column: clause.Column{Table: models.Card{}.TableName(), Name: "id"},
			Desc:   desc,
		})
	}
	return order
}

// searchCondition регистронезависимый поиск подстроки по нескольким колонкам
func searchCondition(search string, columns ...string) clause.Expr {
	pattern := likePattern(search)
	parts := make([]string, 0, len(columns))
	vars := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		parts = append(parts, "LOWER(business_cards."+column+") LIKE ? ESCAPE '\\'")
		vars = append(vars, pattern)
	}
	return clause.Expr{SQL: "(" + strings.Join(parts, " OR ") + ")", Vars: vars}
}

func likePattern(value string) string {
	return "%" + escapeLike(strings.ToLower(strings.TrimSpace(value))) + "%"
}

// escapeLike экранирует служебные символы LIKE, чтобы они искались буквально
func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}

// preloadAggregate подгружает визитку целиком. Дочерние записи идут в порядке вставки.
func preloadAggregate(db *gorm.DB) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}
	return db.
		Preload("User").
		Preload("SocialLinks", byID).
		Preload("Products", byID).
		Preload("Products.Photos", byID).
		Preload("Products.Links", byID).
		Preload("IndustryTags", byID)
}
