package services

import (
	"bizcard/models"
	"fmt"

	"golang.org/x/text/language"
)

var supportedLocales = []language.Tag{
	language.English,
	language.Chinese,
}

var localeMatcher = language.NewMatcher(supportedLocales)

var planTitles = map[language.Tag]map[string]string{
	language.English: {
		models.PlanFree:         "free",
		models.PlanProfessional: "professional",
		models.PlanEnterprise:   "enterprise",
	},
	language.Chinese: {
		models.PlanFree:         "免费",
		models.PlanProfessional: "专业",
		models.PlanEnterprise:   "企业",
	},
}

// MatchLocale выбирает поддерживаемый язык по заголовку Accept-Language.
// Если заголовок пустой или не распознан, используется fallback.
func MatchLocale(acceptLanguage, fallback string) language.Tag {
	if acceptLanguage != "" {
		if prefs, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil && len(prefs) > 0 {
			_, idx, confidence := localeMatcher.Match(prefs...)
			if confidence != language.No {
				return supportedLocales[idx]
			}
		}
	}
	if fallback != "" {
		if tag, err := language.Parse(fallback); err == nil {
			_, idx, confidence := localeMatcher.Match(tag)
			if confidence != language.No {
				return supportedLocales[idx]
			}
		}
	}
	return language.English
}

// Message возвращает текст отказа для показа пользователю вместе с предложением сменить тариф
func (e *QuotaExceededError) Message(locale language.Tag) string {
	titles, ok := planTitles[locale]
	if !ok {
		locale = language.English
		titles = planTitles[locale]
	}
	title := titles[NormalizePlan(e.SubscriptionPlan)]

	if locale == language.Chinese {
		return fmt.Sprintf("您的%s套餐最多只能创建%d张名片。请升级套餐以创建更多名片。", title, e.MaxCards)
	}
	return fmt.Sprintf("Your %s plan allows up to %d business card(s). Upgrade your plan to create more cards.", title, e.MaxCards)
}
