package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CardPayload полное желаемое состояние визитки: корневые поля и три упорядоченные коллекции.
// Необязательные корневые поля заданы указателями: nil значит "поле не передано",
// и при замене такая колонка сохраняет сохраненное значение. Пустая строка очищает поле.
type CardPayload struct {
	Name         string              `json:"name" validate:"required,max=255"`
	Company      *string             `json:"company" validate:"omitempty,max=255"`
	Position     *string             `json:"position" validate:"omitempty,max=255"`
	Phone        *string             `json:"phone" validate:"omitempty,max=255"`
	OfficePhone  *string             `json:"office_phone" validate:"omitempty,max=255"`
	Email        *string             `json:"email" validate:"omitempty,max=255"`
	Address      *string             `json:"address" validate:"omitempty,max=500"`
	Website      *string             `json:"website" validate:"omitempty,max=255"`
	Bio          *string             `json:"bio" validate:"omitempty,max=1000"`
	Avatar       *string             `json:"avatar" validate:"omitempty,max=255"`
	CoverPhoto   *string             `json:"cover_photo" validate:"omitempty,max=255"`
	Logo         *string             `json:"logo" validate:"omitempty,max=255"`
	Location     *string             `json:"location" validate:"omitempty,max=255"`
	Template     *string             `json:"template" validate:"omitempty,max=50"`
	IsPublic     *bool               `json:"is_public"`
	SocialLinks  []SocialLinkPayload `json:"social_links" validate:"omitempty,dive"`
	Products     []ProductPayload    `json:"products" validate:"omitempty,dive"`
	IndustryTags []string            `json:"industry_tags" validate:"omitempty,dive,required,max=50"`
}

type SocialLinkPayload struct {
	Platform string `json:"platform" validate:"required,max=50"`
	URL      string `json:"url" validate:"required,url,max=255"`
	Username string `json:"username" validate:"max=255"`
}

type ProductPayload struct {
	Name        string               `json:"name" validate:"required,max=255"`
	Description string               `json:"description" validate:"max=1000"`
	Image       string               `json:"image" validate:"max=255"`
	Photos      []string             `json:"photos" validate:"omitempty,dive,required,max=255"`
	Links       []ProductLinkPayload `json:"links" validate:"omitempty,dive"`
}

type ProductLinkPayload struct {
	Title string `json:"title" validate:"required,max=255"`
	URL   string `json:"url" validate:"required,url,max=255"`
}

// CardValidator проверяет и нормализует входящий агрегат до любых обращений к базе
type CardValidator struct {
	validate *validator.Validate
}

// NewCardValidator создает валидатор, который называет поля так же, как они приходят в JSON
func NewCardValidator() *CardValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CardValidator{validate: validate}
}

// Validate нормализует payload на месте и проверяет его целиком.
// Любое нарушение отклоняет весь запрос: частично валидный агрегат не записывается.
func (v *CardValidator) Validate(payload *CardPayload) error {
	payload.normalize()

	result := &ValidationError{}
	if err := v.validate.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		for _, e := range validationErrors {
			result.add(fieldPath(e.Namespace()), fieldMessage(e))
		}
	}

	// формат проверяется только у непустого значения: пустая строка очищает поле
	v.checkFormat(result, "email", payload.Email, "email")
	v.checkFormat(result, "website", payload.Website, "url")

	if len(result.Fields) > 0 {
		return result
	}
	return nil
}

func (v *CardValidator) checkFormat(result *ValidationError, field string, value *string, tag string) {
	if value == nil || *value == "" {
		return
	}
	if err := v.validate.Var(*value, tag); err == nil {
		return
	}
	switch tag {
	case "email":
		result.add(field, "The "+field+" field must be a valid email address.")
	case "url":
		result.add(field, "The "+field+" field must be a valid URL.")
	}
}

// fieldPath убирает имя корневой структуры: CardPayload.social_links[0].url -> social_links[0].url
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func fieldMessage(e validator.FieldError) string {
	field := fieldPath(e.Namespace())
	switch e.Tag() {
	case "required":
		return "The " + field + " field is required."
	case "max":
		return "The " + field + " field must not be greater than " + e.Param() + " characters."
	case "email":
		return "The " + field + " field must be a valid email address."
	case "url":
		return "The " + field + " field must be a valid URL."
	default:
		return "The " + field + " field is invalid."
	}
}

func (p *CardPayload) normalize() {
	p.Name = strings.TrimSpace(p.Name)
	for _, field := range []*string{
		p.Company, p.Position, p.Phone, p.OfficePhone, p.Email, p.Address,
		p.Website, p.Bio, p.Avatar, p.CoverPhoto, p.Logo, p.Location,
	} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
	if p.Template != nil {
		template := strings.TrimSpace(*p.Template)
		if template == "" {
			p.Template = nil
		} else {
			p.Template = &template
		}
	}

	for i := range p.SocialLinks {
		link := &p.SocialLinks[i]
		link.Platform = strings.TrimSpace(link.Platform)
		link.URL = strings.TrimSpace(link.URL)
		link.Username = strings.TrimSpace(link.Username)
	}

	for i := range p.Products {
		product := &p.Products[i]
		product.Name = strings.TrimSpace(product.Name)
		product.Description = strings.TrimSpace(product.Description)
		product.Image = strings.TrimSpace(product.Image)
		for j := range product.Photos {
			product.Photos[j] = strings.TrimSpace(product.Photos[j])
		}
		for j := range product.Links {
			product.Links[j].Title = strings.TrimSpace(product.Links[j].Title)
			product.Links[j].URL = strings.TrimSpace(product.Links[j].URL)
		}
	}

	for i := range p.IndustryTags {
		p.IndustryTags[i] = strings.TrimSpace(p.IndustryTags[i])
	}
}
