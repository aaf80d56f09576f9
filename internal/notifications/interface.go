package notifications

import "context"

// Notifier delivers a newly confirmed code to the configured channels.
type Notifier interface {
	NotifyCode(ctx context.Context, code string) error
}
