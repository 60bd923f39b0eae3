package handler

import (
	"net/http"
	"time"

	"semelfinder/internal/app/semla/entity"

	"github.com/gin-gonic/gin"
)

const identityContextKey = "identity"

// IdentityMiddleware выводит ключ рейт-лимита из запроса и кладёт его в
// контекст Gin. Адрес берётся через c.ClientIP(): заголовок X-Forwarded-For
// учитывается только если прямой пир - доверенный прокси
// (router.SetTrustedProxies). Если адрес определить нельзя, запрос
// отклоняется до любой записи: иначе все такие клиенты делили бы один
// безлимитный счётчик.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{
				Error:   http.StatusText(http.StatusBadRequest),
				Message: "Could not determine client identity",
			})
			c.Abort()
			return
		}

		identity := entity.NewIdentityKey(ip, c.Request.UserAgent(), time.Now())
		c.Set(identityContextKey, identity)

		c.Next()
	}
}

// identityFromContext достаёт ключ идентичности, положенный middleware
func identityFromContext(c *gin.Context) (entity.IdentityKey, bool) {
	value, exists := c.Get(identityContextKey)
	if !exists {
		return entity.IdentityKey{}, false
	}
	identity, ok := value.(entity.IdentityKey)
	return identity, ok
}
