package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	UserHeader = "X-User-ID"
	userKey    = "x-user-id"
)

// RequireUser 从请求头取出调用方身份。
// 鉴权由上游网关完成，这里只信任已认证的 X-User-ID
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(UserHeader), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + UserHeader})
			return
		}
		c.Set(userKey, id)
		c.Next()
	}
}

func CurrentUser(c *gin.Context) int64 {
	return c.GetInt64(userKey)
}
