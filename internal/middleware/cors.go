package middleware

import "github.com/gin-gonic/gin"

// PublicAssets lets uploaded images be embedded from any origin.
func PublicAssets() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Next()
	}
}
