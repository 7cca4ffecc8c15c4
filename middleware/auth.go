package middleware

import (
	"bizcard/services"
	"bizcard/utils"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const identityKey = "identity"

// Claims содержимое JWT токена. Тариф и роль в токен не кладем, они читаются из базы.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// IdentityResolver достает актуальные тариф и роль пользователя
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, userID uint) (services.Identity, error)
}

// IssueToken создает подписанный HS256 токен
func IssueToken(secret []byte, ttl time.Duration, userID uint, email string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken проверяет подпись и срок действия токена
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Auth проверяет JWT токен и кладет Identity вызывающего в контекст gin
type Auth struct {
	secret   []byte
	resolver IdentityResolver
	log      *utils.Logger
}

func NewAuth(secret []byte, resolver IdentityResolver, log *utils.Logger) *Auth {
	return &Auth{secret: secret, resolver: resolver, log: log.With("middleware", "auth")}
}

// Required отклоняет запрос без действующего токена
func (a *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		identity, err := a.identify(c.Request.Context(), tokenString)
		if err != nil {
			a.log.Debug("token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// Optional пропускает анонимные запросы. Неверный токен тоже считается анонимным запросом.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := bearerToken(c); tokenString != "" {
			if identity, err := a.identify(c.Request.Context(), tokenString); err == nil {
				c.Set(identityKey, identity)
			}
		}
		c.Next()
	}
}

// RequireAdmin пропускает только администраторов. Ставится после Required.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok || !identity.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// GetIdentity возвращает Identity вызывающего, если запрос аутентифицирован
func GetIdentity(c *gin.Context) (services.Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return services.Identity{}, false
	}
	identity, ok := value.(services.Identity)
	return identity, ok
}

func (a *Auth) identify(ctx context.Context, tokenString string) (services.Identity, error) {
	claims, err := ParseToken(a.secret, tokenString)
	if err != nil {
		return services.Identity{}, err
	}
	return a.resolver.ResolveIdentity(ctx, claims.UserID)
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
