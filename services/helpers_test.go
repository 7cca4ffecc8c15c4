package services

import (
	"bizcard/config"
	"bizcard/database"
	"bizcard/models"
	"bizcard/utils"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB открывает отдельную in-memory SQLite базу на тест
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// одно соединение: in-memory база живет, пока открыто хотя бы одно соединение
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestCardService(t *testing.T, db *gorm.DB) *CardService {
	t.Helper()
	cfg := &config.Config{}
	cfg.Cards.DefaultPerPage = 15
	cfg.Cards.MaxPerPage = 100
	return NewCardService(db, cfg, utils.NewNopLogger(), utils.NewMetrics())
}

func createUser(t *testing.T, db *gorm.DB, plan string) Identity {
	t.Helper()
	user := &models.User{
		FirstName:        "Test",
		LastName:         "User",
		Email:            uuid.NewString() + "@example.com",
		Password:         "hash",
		SubscriptionPlan: plan,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return Identity{UserID: user.ID, SubscriptionPlan: plan}
}

func mustCreate(t *testing.T, svc *CardService, identity Identity, payload CardPayload) *CardResponse {
	t.Helper()
	card, err := svc.Create(context.Background(), identity, payload)
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	return card
}

// failInsertsInto заставляет любую вставку в таблицу завершаться ошибкой
func failInsertsInto(t *testing.T, db *gorm.DB, table string) {
	t.Helper()
	name := "test:fail_insert_" + table
	err := db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == table {
			_ = tx.AddError(errors.New("injected insert failure"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	t.Cleanup(func() { _ = db.Callback().Create().Remove(name) })
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

// fullPayload визитка со всеми коллекциями
func fullPayload(name string) CardPayload {
	return CardPayload{
		Name:     name,
		Company:  strPtr("Acme"),
		Position: strPtr("Engineer"),
		Email:    strPtr("jane@acme.test"),
		Location: strPtr("Shanghai"),
		SocialLinks: []SocialLinkPayload{
			{Platform: "linkedin", URL: "https://linkedin.com/in/jane", Username: "jane"},
			{Platform: "github", URL: "https://github.com/jane"},
		},
		Products: []ProductPayload{
			{
				Name:   "Consulting",
				Photos: []string{"https://cdn.test/a.png", "https://cdn.test/b.png"},
				Links:  []ProductLinkPayload{{Title: "Book", URL: "https://acme.test/book"}},
			},
		},
		IndustryTags: []string{"finance", "tech"},
	}
}
