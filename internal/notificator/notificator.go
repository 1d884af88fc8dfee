package notificator

import (
	"runtime/debug"

	"github.com/rampline/rampline/internal/models"
	"github.com/rampline/rampline/pkg/logger"
)

// Notificator fans order lifecycle events out to the configured
// channels. Delivery is best-effort: failures are logged and never
// reach the orchestrator.
type Notificator struct {
	logger *logger.Logger

	TelegramNotificator *TelegramNotificator
	chatID              string
}

var _ models.NotificationService = (*Notificator)(nil)

func NewNotificator(logger *logger.Logger, telNotif *TelegramNotificator, chatID string) *Notificator {
	return &Notificator{logger: logger, TelegramNotificator: telNotif, chatID: chatID}
}

// safeCall runs a function with panic recovery (synchronous, no goroutine spawning)
func (n *Notificator) safeCall(fn func(), context string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Function panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (n *Notificator) NotifyOrderEvent(event *models.OrderEvent) {
	if n.TelegramNotificator == nil || n.chatID == "" {
		return
	}

	message := event.String()
	n.safeCall(func() { n.TelegramNotificator.SendNotification(n.chatID, message) }, "telegramNotification")
}
