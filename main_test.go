package main

import (
	"bizcard/config"
	"bizcard/database"
	"bizcard/middleware"
	"bizcard/models"
	"bizcard/services"
	"bizcard/utils"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testApp struct {
	router *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret"
	cfg.JWT.ExpiresIn = 24
	cfg.App.PublicBaseURL = "https://bizcard.test"
	cfg.App.DefaultLocale = "en"
	cfg.Cards.DefaultPerPage = 15
	cfg.Cards.MaxPerPage = 100

	log := utils.NewNopLogger()
	router := setupRouter(dependencies{
		db:      db,
		cfg:     cfg,
		log:     log,
		metrics: utils.NewMetrics(),
		limiter: utils.NewRateLimiter(1000, time.Minute),
		email:   services.NewEmailService(cfg, log),
	})
	return &testApp{router: router, db: db, cfg: cfg}
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// signUp регистрирует пользователя через API и возвращает токен
func (a *testApp) signUp(t *testing.T, email string) (string, uint) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/signUp", "", map[string]string{
		"firstName": "Jane",
		"lastName":  "Doe",
		"email":     email,
		"password":  "Secret#123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sign up: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token struct {
			Token  string `json:"token"`
			UserID uint   `json:"userId"`
		} `json:"token"`
	}
	decode(t, rec, &resp)
	return resp.Token.Token, resp.Token.UserID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

type cardEnvelope struct {
	Message string                 `json:"message"`
	Card    map[string]interface{} `json:"card"`
}

func TestSignUpAndSignIn(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "jane@example.com")

	rec := app.do(t, http.MethodPost, "/api/auth/signUp", "", map[string]string{
		"firstName": "Jane",
		"lastName":  "Doe",
		"email":     "JANE@example.com",
		"password":  "Secret#123",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate sign up: got=%d want=%d", rec.Code, http.StatusConflict)
	}

	rec = app.do(t, http.MethodPost, "/api/auth/signIn", "", map[string]string{"email": "jane@example.com", "password": "Secret#123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("sign in: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	decode(t, rec, &resp)
	if resp["token"] == "" {
		t.Fatalf("missing token: %s", rec.Body.String())
	}

	rec = app.do(t, http.MethodPost, "/api/auth/signIn", "", map[string]string{"email": "jane@example.com", "password": "Wrong#1234"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}

	rec = app.do(t, http.MethodPost, "/api/auth/signUp", "", map[string]string{
		"firstName": "Jane",
		"lastName":  "Doe",
		"email":     "weak@example.com",
		"password":  "weakpassword",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("weak password: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
}

func TestCardsRequireAuthentication(t *testing.T) {
	app := newTestApp(t)

	if rec := app.do(t, http.MethodGet, "/api/cards", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list: got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}
	if rec := app.do(t, http.MethodPost, "/api/cards", "garbage", map[string]string{"name": "x"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token create: got=%d want=%d", rec.Code, http.StatusUnauthorized)
	}
}

func TestFreePlanQuota(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signUp(t, "jane@example.com")

	rec := app.do(t, http.MethodPost, "/api/cards", token, map[string]interface{}{"name": "Jane Doe"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("first card: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var created cardEnvelope
	decode(t, rec, &created)
	if created.Message != "Business card created successfully" {
		t.Fatalf("unexpected message: %q", created.Message)
	}
	if created.Card["viewCount"] != float64(0) || created.Card["template"] != models.DefaultTemplate {
		t.Fatalf("unexpected card: %v", created.Card)
	}

	rec = app.do(t, http.MethodPost, "/api/cards", token, map[string]interface{}{"name": "Second"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("second card: got=%d want=%d", rec.Code, http.StatusForbidden)
	}
	var quota map[string]interface{}
	decode(t, rec, &quota)
	if quota["error"] != "Card limit reached" ||
		quota["currentCards"] != float64(1) ||
		quota["maxCards"] != float64(1) ||
		quota["subscriptionPlan"] != models.PlanFree {
		t.Fatalf("unexpected quota body: %v", quota)
	}
	if msg, _ := quota["message"].(string); !strings.Contains(msg, "free plan") {
		t.Fatalf("unexpected english message: %q", msg)
	}

	rec = app.do(t, http.MethodPost, "/api/cards", token, map[string]interface{}{"name": "Second"}, "Accept-Language", "zh-CN,zh;q=0.9")
	decode(t, rec, &quota)
	if msg, _ := quota["message"].(string); !strings.Contains(msg, "免费") {
		t.Fatalf("unexpected chinese message: %q", msg)
	}
}

func TestAdminUpgradeLiftsQuota(t *testing.T) {
	app := newTestApp(t)
	token, userID := app.signUp(t, "jane@example.com")
	_, adminID := app.signUp(t, "admin@example.com")
	if err := app.db.Model(&models.User{}).Where("id = ?", adminID).Update("role", models.RoleAdmin).Error; err != nil {
		t.Fatalf("promote admin: %v", err)
	}
	adminToken, _, err := middleware.IssueToken([]byte(app.cfg.JWT.SecretKey), time.Hour, adminID, "admin@example.com")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	app.do(t, http.MethodPost, "/api/cards", token, map[string]interface{}{"name": "One"})

	path := fmt.Sprintf("/api/admin/users/%d/plan", userID)
	if rec := app.do(t, http.MethodPut, path, token, map[string]string{"plan": "professional"}); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin plan change: got=%d want=%d", rec.Code, http.StatusForbidden)
	}
	if rec := app.do(t, http.MethodPut, path, adminToken, map[string]string{"plan": "platinum"}); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown plan: got=%d want=%d", rec.Code, http.StatusUnprocessableEntity)
	}
	rec := app.do(t, http.MethodPut, path, adminToken, map[string]string{"plan": "professional"})
	if rec.Code != http.StatusOK {
		t.Fatalf("plan change: got=%d body=%s", rec.Code, rec.Body.String())
	}

	// тариф читается из базы на каждый запрос, старый токен сразу видит новый лимит
	for _, name := range []string{"Two", "Three"} {
		if rec := app.do(t, http.MethodPost, "/api/cards", token, map[string]interface{}{"name": name}); rec.Code != http.StatusCreated {
			t.Fatalf("card %s after upgrade: got=%d body=%s", name, rec.Code, rec.Body.String())
		}
	}
	rec = app.do(t, http.MethodPost, "/api/cards", token, map[string]interface{}{"name": "Four"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("fourth card on professional: got=%d want=%d", rec.Code, http.StatusForbidden)
	}
}

func TestCardValidationErrors(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signUp(t, "jane@example.com")

	rec := app.do(t, http.MethodPost, "/api/cards", token, map[string]interface{}{
		"name":         "Jane",
		"social_links": []map[string]string{{"platform": "x", "url": "not-a-url"}},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid card: got=%d want=%d body=%s", rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
	}
	var resp struct {
		Errors map[string][]string `json:"errors"`
	}
	decode(t, rec, &resp)
	if len(resp.Errors["social_links[0].url"]) == 0 {
		t.Fatalf("missing field error: %v", resp.Errors)
	}

	if rec := app.do(t, http.MethodPost, "/api/cards", token, `{"name": `); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed json: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}

	var count int64
	app.db.Model(&models.Card{}).Count(&count)
	if count != 0 {
		t.Fatalf("invalid requests stored cards: %d", count)
	}
}

func TestCardLifecycle(t *testing.T) {
	app := newTestApp(t)
	token, userID := app.signUp(t, "jane@example.com")
	strangerToken, _ := app.signUp(t, "bob@example.com")

	rec := app.do(t, http.MethodPost, "/api/cards", token, map[string]interface{}{
		"name":          "Jane Doe",
		"company":       "Acme",
		"location":      "Shanghai",
		"social_links":  []map[string]string{{"platform": "linkedin", "url": "https://linkedin.com/in/jane"}},
		"products":      []map[string]interface{}{{"name": "Consulting", "photos": []string{"https://cdn.test/p.png"}}},
		"industry_tags": []string{"finance"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var created cardEnvelope
	decode(t, rec, &created)
	cardPath := fmt.Sprintf("/api/cards/%v", created.Card["id"])
	publicPath := fmt.Sprintf("/api/public/cards/%v", created.Card["id"])

	// публичное чтение: без viewCount, счетчик растет
	for i := 0; i < 2; i++ {
		rec = app.do(t, http.MethodGet, publicPath, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("public read: got=%d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "viewCount") {
			t.Fatalf("anonymous read leaked viewCount: %s", rec.Body.String())
		}
	}

	rec = app.do(t, http.MethodGet, cardPath, token, nil)
	var owned cardEnvelope
	decode(t, rec, &owned)
	if owned.Card["viewCount"] != float64(2) {
		t.Fatalf("owner must see 2 views: %v", owned.Card["viewCount"])
	}
	if owned.Card["user"].(map[string]interface{})["id"] != float64(userID) {
		t.Fatalf("unexpected owner summary: %v", owned.Card["user"])
	}

	if rec := app.do(t, http.MethodGet, cardPath, strangerToken, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("stranger private read: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
	if rec := app.do(t, http.MethodPut, cardPath, strangerToken, map[string]interface{}{"name": "Hijack"}); rec.Code != http.StatusNotFound {
		t.Fatalf("stranger update: got=%d want=%d", rec.Code, http.StatusNotFound)
	}

	rec = app.do(t, http.MethodPut, cardPath, token, map[string]interface{}{
		"name":      "Jane Doe",
		"is_public": false,
		"products":  []interface{}{},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var updated cardEnvelope
	decode(t, rec, &updated)
	if updated.Card["isPublic"] != false || len(updated.Card["products"].([]interface{})) != 0 || len(updated.Card["socialLinks"].([]interface{})) != 0 {
		t.Fatalf("update not applied: %v", updated.Card)
	}
	if updated.Card["viewCount"] != float64(2) {
		t.Fatalf("replace must not touch the view counter: %v", updated.Card["viewCount"])
	}
	if updated.Card["company"] != "Acme" || updated.Card["location"] != "Shanghai" {
		t.Fatalf("fields absent from the update must keep stored values: %v", updated.Card)
	}

	// приватная визитка по публичному пути: отдается без viewCount и не считается
	rec = app.do(t, http.MethodGet, publicPath, "", nil)
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), "viewCount") {
		t.Fatalf("private card on public path: got=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = app.do(t, http.MethodGet, publicPath, token, nil)
	var ownPublic cardEnvelope
	decode(t, rec, &ownPublic)
	if rec.Code != http.StatusOK || ownPublic.Card["viewCount"] != float64(2) {
		t.Fatalf("owner on public path: got=%d viewCount=%v", rec.Code, ownPublic.Card["viewCount"])
	}

	rec = app.do(t, http.MethodGet, "/api/cards?is_public=0", token, nil)
	var listed struct {
		Cards services.CardPage `json:"cards"`
	}
	decode(t, rec, &listed)
	if listed.Cards.Total != 1 || listed.Cards.PerPage != 15 {
		t.Fatalf("unexpected owner listing: %+v", listed.Cards)
	}

	if rec := app.do(t, http.MethodDelete, cardPath, strangerToken, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("stranger delete: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
	if rec := app.do(t, http.MethodDelete, cardPath, token, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: got=%d", rec.Code)
	}
	if rec := app.do(t, http.MethodGet, cardPath, token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("read after delete: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
	if rec := app.do(t, http.MethodGet, "/api/cards/abc", token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("non-numeric id: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
}

func TestPublicCatalogAndSitemap(t *testing.T) {
	app := newTestApp(t)
	alice, _ := app.signUp(t, "alice@example.com")
	bob, _ := app.signUp(t, "bob@example.com")

	app.do(t, http.MethodPost, "/api/cards", alice, map[string]interface{}{"name": "Alice", "industry_tags": []string{"finance"}})
	app.do(t, http.MethodPost, "/api/cards", bob, map[string]interface{}{"name": "Bob", "is_public": false, "industry_tags": []string{"finance"}})

	rec := app.do(t, http.MethodGet, "/api/public/cards?industry=finance", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("public list: got=%d", rec.Code)
	}
	var page services.CardPage
	decode(t, rec, &page)
	if page.Total != 1 || page.Data[0].Name != "Alice" || page.Data[0].ViewCount != nil {
		t.Fatalf("unexpected public page: %+v", page)
	}

	rec = app.do(t, http.MethodGet, "/sitemap.xml", "", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/xml") {
		t.Fatalf("sitemap: got=%d type=%q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "https://bizcard.test/cards/") || strings.Count(rec.Body.String(), "<url>") != 1 {
		t.Fatalf("unexpected sitemap: %s", rec.Body.String())
	}
}
