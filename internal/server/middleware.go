package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			abortError(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := s.auth.Validate(strings.TrimSpace(token))
		if err != nil {
			s.log.Debug().Err(err).Msg("Rejected token")
			abortError(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(userIDKey, userID.String())
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		evt := s.log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			evt = s.log.Error()
		}
		evt.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request")
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}
