package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Recovery converts panics into a structured 500 so one bad request can
// never take the process down.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Str("request_id", c.GetString("request_id")).
					Interface("error", err).
					Msg("Panic recovered")

				c.JSON(http.StatusInternalServerError, gin.H{
					"errors": []gin.H{{
						"message":    "internal server error",
						"extensions": gin.H{"code": "INTERNAL_SERVER_ERROR"},
					}},
				})
				c.Abort()
			}
		}()

		c.Next()
	}
}
