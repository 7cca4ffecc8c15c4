package models

import (
	"time"
)

// Шаблоны оформления визитки
const (
	TemplateModernBlue       = "modern-blue"
	TemplateClassicBlack     = "classic-black"
	TemplateMinimalWhite     = "minimal-white"
	TemplateCreativeGradient = "creative-gradient"
	TemplateWealthManagement = "wealth-management"
	TemplateRealEstate       = "real-estate"

	DefaultTemplate = TemplateModernBlue
)

// Card представляет визитку - корень агрегата.
// Дочерние коллекции принадлежат только ей и заменяются целиком при обновлении.
type Card struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	UserID      uint   `gorm:"column:user_id;not null;index"`
	User        User   `gorm:"foreignKey:UserID"`
	Name        string `gorm:"column:name;not null;size:255"`
	Company     string `gorm:"column:company;size:255"`
	Position    string `gorm:"column:position;size:255"`
	Phone       string `gorm:"column:phone;size:255"`
	OfficePhone string `gorm:"column:office_phone;size:255"`
	Email       string `gorm:"column:email;size:255"`
	Address     string `gorm:"column:address;size:500"`
	Website     string `gorm:"column:website;size:255"`
	Bio         string `gorm:"column:bio;size:1000"`
	Avatar      string `gorm:"column:avatar;size:255"`
	CoverPhoto  string `gorm:"column:cover_photo;size:255"`
	Logo        string `gorm:"column:logo;size:255"`
	Location    string `gorm:"column:location;size:255"`
	Template    string `gorm:"column:template;not null;size:50"`
	// без default-тега: иначе gorm подставит true вместо явного false
	IsPublic  bool      `gorm:"column:is_public;not null;index"`
	ViewCount int64     `gorm:"column:view_count;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	SocialLinks  []SocialLink  `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE"`
	Products     []Product     `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE"`
	IndustryTags []IndustryTag `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE"`
}

// TableName возвращает имя таблицы для модели Card
func (Card) TableName() string {
	return "business_cards"
}

// SocialLink ссылка на профиль в соцсети. Платформа может повторяться.
type SocialLink struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	CardID    uint      `gorm:"column:card_id;not null;index"`
	Platform  string    `gorm:"column:platform;not null;size:50"`
	URL       string    `gorm:"column:url;not null;size:255"`
	Username  string    `gorm:"column:username;size:255"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (SocialLink) TableName() string {
	return "social_links"
}

// IndustryTag отраслевой тег визитки
type IndustryTag struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	CardID    uint      `gorm:"column:card_id;not null;index"`
	Tag       string    `gorm:"column:tag;not null;size:50;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (IndustryTag) TableName() string {
	return "industry_tags"
}
