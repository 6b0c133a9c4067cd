package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tvremote/internal/domain"
)

type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}

type StatusSource interface {
	OnStatusChange(fn func(domain.ConnectionStatus)) *Subscription
}

// WatchFailures sends a notification each time the session parks in the
// error state. Notifications are sent off the publishing goroutine.
func WatchFailures(source StatusSource, notifier Notifier, logger *slog.Logger) *Subscription {
	return source.OnStatusChange(func(status domain.ConnectionStatus) {
		if status.State != domain.StateError {
			return
		}

		message := fmt.Sprintf("TV remote connection error: %s", status.Message)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := notifier.Notify(ctx, message); err != nil {
				logger.Error("notifying connection failure", "error", err)
			}
		}()
	})
}
