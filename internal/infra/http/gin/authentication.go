package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"monteur/internal/app/middleware"
)

const operatorContextKey = "monteur.operator"

// CredentialVerifier checks an operator login and returns the operator name.
type CredentialVerifier interface {
	Verify(user, password string) (string, error)
}

// OperatorAuth guards the admin group with HTTP basic auth.
type OperatorAuth struct {
	Credentials CredentialVerifier
	Logger      *slog.Logger
}

func (m OperatorAuth) Handle(c *gin.Context) {
	user, password, ok := c.Request.BasicAuth()
	if !ok || m.Credentials == nil {
		c.Header("WWW-Authenticate", `Basic realm="monteur"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return
	}
	operator, err := m.Credentials.Verify(user, password)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("operator login rejected", "user", user, "client_ip", c.ClientIP())
		}
		c.Header("WWW-Authenticate", `Basic realm="monteur"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	c.Set(operatorContextKey, operator)
	c.Request = c.Request.WithContext(middleware.ContextWithOperator(c.Request.Context(), operator))
	c.Next()
}

func currentOperator(c *gin.Context) string {
	return c.GetString(operatorContextKey)
}
