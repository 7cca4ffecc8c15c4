package services

import (
	"bizcard/models"
	"context"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"gorm.io/gorm"
)

// Протокол sitemaps.org допускает не более 50000 адресов в одном файле
const sitemapMaxURLs = 50000

// SitemapService строит sitemap.xml по публичным визиткам
type SitemapService struct {
	db      *gorm.DB
	baseURL string
}

func NewSitemapService(db *gorm.DB, baseURL string) *SitemapService {
	return &SitemapService{db: db, baseURL: strings.TrimRight(baseURL, "/")}
}

// Build возвращает XML документ. Приватные визитки в него не попадают.
func (s *SitemapService) Build(ctx context.Context) ([]byte, error) {
	var cards []models.Card
	if err := s.db.WithContext(ctx).
		Select("id", "updated_at").
		Where("is_public = ?", true).
		Order("id ASC").
		Limit(sitemapMaxURLs).
		Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("list public cards: %w", err)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	urlset := doc.CreateElement("urlset")
	urlset.CreateAttr("xmlns", "http://www.sitemaps.org/schemas/sitemap/0.9")

	for _, card := range cards {
		url := urlset.CreateElement("url")
		url.CreateElement("loc").SetText(fmt.Sprintf("%s/cards/%d", s.baseURL, card.ID))
		url.CreateElement("lastmod").SetText(card.UpdatedAt.UTC().Format("2006-01-02"))
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("render sitemap: %w", err)
	}
	return out, nil
}
