package models

import (
	"time"
)

// Product товар или услуга на визитке
type Product struct {
	ID          uint           `gorm:"primaryKey;autoIncrement"`
	CardID      uint           `gorm:"column:card_id;not null;index"`
	Name        string         `gorm:"column:name;not null;size:255"`
	Description string         `gorm:"column:description;size:1000"`
	Image       string         `gorm:"column:image;size:255"`
	Photos      []ProductPhoto `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Links       []ProductLink  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// ProductPhoto фото из галереи товара. URL хранится как есть, файл нам не принадлежит.
type ProductPhoto struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	ProductID uint      `gorm:"column:product_id;not null;index"`
	URL       string    `gorm:"column:url;not null;size:255"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ProductPhoto) TableName() string {
	return "product_photos"
}

type ProductLink struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	ProductID uint      `gorm:"column:product_id;not null;index"`
	Title     string    `gorm:"column:title;not null;size:255"`
	URL       string    `gorm:"column:url;not null;size:255"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ProductLink) TableName() string {
	return "product_links"
}
