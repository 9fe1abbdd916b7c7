package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/tender-portal/internal/interface/http/response"
	"github.com/ignatzorin/tender-portal/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// AuthMiddleware пропускает только запросы с действующим access токеном администратора.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "требуется авторизация")
			return
		}

		userID, err := tokens.ParseAdmin(strings.TrimPrefix(auth, "Bearer "))
		if errors.Is(err, service.ErrForbiddenRole) {
			response.Forbidden(c, "доступ только для администраторов")
			return
		}
		if err != nil {
			response.Unauthorized(c, "токен невалиден")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, service.RoleAdmin)
		c.Next()
	}
}
