package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	gin "github.com/gin-gonic/gin"

	"monteur/internal/infra/notify"
)

// PushRegistry is the part of the push notifier the HTTP layer needs.
type PushRegistry interface {
	PublicKey() string
	Subscriptions() notify.Subscriptions
}

// PushHandler lets operator devices subscribe to booking notifications.
type PushHandler struct {
	Registry PushRegistry
	Logger   *slog.Logger
}

func (h PushHandler) VAPIDKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"public_key": h.Registry.PublicKey()})
}

func (h PushHandler) Subscribe(c *gin.Context) {
	var sub webpush.Subscription
	if err := c.ShouldBindJSON(&sub); err != nil {
		handleError(c, h.Logger, fmt.Errorf("%w: %v", errMalformedRequest, err))
		return
	}
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		handleError(c, h.Logger, fmt.Errorf("%w: endpoint and keys are required", errMalformedRequest))
		return
	}
	if err := h.Registry.Subscriptions().Add(c.Request.Context(), sub); err != nil {
		handleError(c, h.Logger, err)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("push subscription added", "operator", currentOperator(c))
	}
	c.Status(http.StatusCreated)
}

var _ PushHTTP = PushHandler{}
