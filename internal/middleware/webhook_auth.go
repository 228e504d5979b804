// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"rfp-launchpad-go/pkg/log"
)

// WebhookAuth 创建一个共享密钥认证中间件。
// 调用方在 X-Webhook-Secret 头里携带密钥，比较使用恒定时间算法。
// secret 配置为空时中间件直接放行（本地开发场景）。
func WebhookAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		provided := c.GetHeader("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			log.Warnf("[WebhookAuth] 密钥校验失败, clientIP: %s, path: %s", c.ClientIP(), c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的访问密钥"})
			return
		}

		c.Next()
	}
}
