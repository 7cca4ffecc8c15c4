package controllers

import (
	"bizcard/middleware"
	"bizcard/services"
	"bizcard/utils"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CardController HTTP обработчики визиток: кабинет владельца и публичный каталог
type CardController struct {
	cards         *services.CardService
	sitemap       *services.SitemapService
	defaultLocale string
	log           *utils.Logger
	metrics       *utils.Metrics
}

func NewCardController(cards *services.CardService, sitemap *services.SitemapService, defaultLocale string, log *utils.Logger, metrics *utils.Metrics) *CardController {
	return &CardController{
		cards:         cards,
		sitemap:       sitemap,
		defaultLocale: defaultLocale,
		log:           log.With("controller", "cards"),
		metrics:       metrics,
	}
}

// List GET /api/cards
func (cc *CardController) List(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	params := services.CardListParams{
		Search:    c.Query("search"),
		Template:  c.Query("template"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      queryInt(c, "page"),
		PerPage:   queryInt(c, "per_page"),
	}
	if raw, present := c.GetQuery("is_public"); present {
		isPublic := parseBool(raw)
		params.IsPublic = &isPublic
	}

	page, err := cc.cards.ListOwned(c.Request.Context(), identity, params)
	if err != nil {
		cc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cards": page})
}

// Create POST /api/cards
func (cc *CardController) Create(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var payload services.CardPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	card, err := cc.cards.Create(c.Request.Context(), identity, payload)
	if err != nil {
		cc.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Business card created successfully",
		"card":    card,
	})
}

// Get GET /api/cards/:id - чтение владельцем, без учета просмотра
func (cc *CardController) Get(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	cardID, ok := cardIDParam(c)
	if !ok {
		cc.respondError(c, services.ErrCardNotFound)
		return
	}

	card, err := cc.cards.GetOwned(c.Request.Context(), identity, cardID)
	if err != nil {
		cc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"card": card})
}

// Update PUT /api/cards/:id - полная замена визитки
func (cc *CardController) Update(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	cardID, ok := cardIDParam(c)
	if !ok {
		cc.respondError(c, services.ErrCardNotFound)
		return
	}

	var payload services.CardPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	card, err := cc.cards.Replace(c.Request.Context(), identity, cardID, payload)
	if err != nil {
		cc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Business card updated successfully",
		"card":    card,
	})
}

// Delete DELETE /api/cards/:id
func (cc *CardController) Delete(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	cardID, ok := cardIDParam(c)
	if !ok {
		cc.respondError(c, services.ErrCardNotFound)
		return
	}

	if err := cc.cards.Delete(c.Request.Context(), identity, cardID); err != nil {
		cc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Business card deleted successfully"})
}

// ListPublic GET /api/public/cards
func (cc *CardController) ListPublic(c *gin.Context) {
	params := services.PublicCardListParams{
		Search:    c.Query("search"),
		Industry:  c.Query("industry"),
		Location:  c.Query("location"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      queryInt(c, "page"),
		PerPage:   queryInt(c, "per_page"),
	}

	page, err := cc.cards.ListPublic(c.Request.Context(), params)
	if err != nil {
		cc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetPublic GET /api/public/cards/:id - каждое чтение публичной визитки учитывается как просмотр
func (cc *CardController) GetPublic(c *gin.Context) {
	cardID, ok := cardIDParam(c)
	if !ok {
		cc.respondError(c, services.ErrCardNotFound)
		return
	}

	var viewer *services.Identity
	if identity, ok := middleware.GetIdentity(c); ok {
		viewer = &identity
	}

	card, err := cc.cards.GetPublic(c.Request.Context(), viewer, cardID)
	if err != nil {
		cc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"card": card})
}

// Sitemap GET /sitemap.xml
func (cc *CardController) Sitemap(c *gin.Context) {
	body, err := cc.sitemap.Build(c.Request.Context())
	if err != nil {
		cc.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", body)
}

// respondError переводит ошибки сервиса в HTTP ответы. Подробности внутренних сбоев остаются в логе.
func (cc *CardController) respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var quotaErr *services.QuotaExceededError
	var txErr *services.TransactionError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": validationErr.Fields})
	case errors.As(err, &quotaErr):
		locale := services.MatchLocale(c.GetHeader("Accept-Language"), cc.defaultLocale)
		c.JSON(http.StatusForbidden, gin.H{
			"error":            "Card limit reached",
			"message":          quotaErr.Message(locale),
			"currentCards":     quotaErr.CurrentCards,
			"maxCards":         quotaErr.MaxCards,
			"subscriptionPlan": quotaErr.SubscriptionPlan,
		})
	case errors.Is(err, services.ErrCardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Card not found or unauthorized"})
	default:
		// сбой транзакции уже учтен сервисом как критическая ошибка
		if !errors.As(err, &txErr) {
			cc.metrics.RecordError(err)
		}
		cc.log.Error("card request failed",
			"request_id", c.GetString("request_id"),
			"path", c.Request.URL.Path,
			"error", err,
		)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func cardIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// queryInt возвращает 0 для отсутствующего или нечислового параметра, дальше сработают значения по умолчанию
func queryInt(c *gin.Context, key string) int {
	value, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return value
}

// parseBool понимает те же значения, что и HTML формы: 1/true/on/yes
func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}
