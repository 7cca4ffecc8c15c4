package services

import (
	"bizcard/models"
	"time"
)

// CardResponse представление визитки для клиента.
// ViewCount заполняется только в проекции владельца; для остальных ключ отсутствует в JSON.
type CardResponse struct {
	ID           uint            `json:"id"`
	UserID       uint            `json:"userId"`
	Name         string          `json:"name"`
	Company      string          `json:"company"`
	Position     string          `json:"position"`
	Phone        string          `json:"phone"`
	OfficePhone  string          `json:"officePhone"`
	Email        string          `json:"email"`
	Address      string          `json:"address"`
	Website      string          `json:"website"`
	Bio          string          `json:"bio"`
	Avatar       string          `json:"avatar"`
	CoverPhoto   string          `json:"coverPhoto"`
	Logo         string          `json:"logo"`
	Location     string          `json:"location"`
	Template     string          `json:"template"`
	IsPublic     bool            `json:"isPublic"`
	ViewCount    *int64          `json:"viewCount,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	User         OwnerDTO        `json:"user"`
	SocialLinks  []SocialLinkDTO `json:"socialLinks"`
	Products     []ProductDTO    `json:"products"`
	IndustryTags []string        `json:"industryTags"`
}

// OwnerDTO краткие сведения о владельце визитки, без email и тарифа
type OwnerDTO struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type SocialLinkDTO struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Username string `json:"username"`
}

type ProductDTO struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Image       string           `json:"image"`
	Photos      []string         `json:"photos"`
	Links       []ProductLinkDTO `json:"links"`
}

type ProductLinkDTO struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ProjectOwner проекция для владельца: все поля, включая счетчик просмотров
func ProjectOwner(card *models.Card) *CardResponse {
	resp := projectBase(card)
	viewCount := card.ViewCount
	resp.ViewCount = &viewCount
	return resp
}

// ProjectPublic проекция для всех остальных: счетчик просмотров не раскрывается
func ProjectPublic(card *models.Card) *CardResponse {
	return projectBase(card)
}

// project выбирает проекцию по зрителю. viewerID == 0 означает анонимный запрос.
func project(card *models.Card, viewerID uint) *CardResponse {
	if viewerID != 0 && viewerID == card.UserID {
		return ProjectOwner(card)
	}
	return ProjectPublic(card)
}

func projectBase(card *models.Card) *CardResponse {
	resp := &CardResponse{
		ID:          card.ID,
		UserID:      card.UserID,
		Name:        card.Name,
		Company:     card.Company,
		Position:    card.Position,
		Phone:       card.Phone,
		OfficePhone: card.OfficePhone,
		Email:       card.Email,
		Address:     card.Address,
		Website:     card.Website,
		Bio:         card.Bio,
		Avatar:      card.Avatar,
		CoverPhoto:  card.CoverPhoto,
		Logo:        card.Logo,
		Location:    card.Location,
		Template:    card.Template,
		IsPublic:    card.IsPublic,
		CreatedAt:   card.CreatedAt,
		UpdatedAt:   card.UpdatedAt,
		User: OwnerDTO{
			ID:        card.User.ID,
			FirstName: card.User.FirstName,
			LastName:  card.User.LastName,
		},
		SocialLinks:  make([]SocialLinkDTO, 0, len(card.SocialLinks)),
		Products:     make([]ProductDTO, 0, len(card.Products)),
		IndustryTags: make([]string, 0, len(card.IndustryTags)),
	}

	for _, link := range card.SocialLinks {
		resp.SocialLinks = append(resp.SocialLinks, SocialLinkDTO{
			Platform: link.Platform,
			URL:      link.URL,
			Username: link.Username,
		})
	}

	for _, product := range card.Products {
		dto := ProductDTO{
			Name:        product.Name,
			Description: product.Description,
			Image:       product.Image,
			Photos:      make([]string, 0, len(product.Photos)),
			Links:       make([]ProductLinkDTO, 0, len(product.Links)),
		}
		for _, photo := range product.Photos {
			dto.Photos = append(dto.Photos, photo.URL)
		}
		for _, link := range product.Links {
			dto.Links = append(dto.Links, ProductLinkDTO{Title: link.Title, URL: link.URL})
		}
		resp.Products = append(resp.Products, dto)
	}

	for _, tag := range card.IndustryTags {
		resp.IndustryTags = append(resp.IndustryTags, tag.Tag)
	}

	return resp
}
