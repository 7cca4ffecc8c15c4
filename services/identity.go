package services

// Identity вызывающий пользователь. Передается в каждую операцию явно, а не читается из окружения.
type Identity struct {
	UserID           uint
	SubscriptionPlan string
	IsAdmin          bool
}

// Owns сообщает, принадлежит ли визитка с указанным владельцем этому пользователю
func (i Identity) Owns(ownerID uint) bool {
	return i.UserID != 0 && i.UserID == ownerID
}

// viewerID возвращает ID зрителя или 0 для анонимного запроса
func viewerID(viewer *Identity) uint {
	if viewer == nil {
		return 0
	}
	return viewer.UserID
}
