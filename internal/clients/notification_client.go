package clients

import (
	"context"

	"chargehub/internal/notify"
)

// NotificationClient delivers lifecycle events to the notification service.
type NotificationClient struct {
	base *BaseClient
}

// NewNotificationClient returns client instance.
func NewNotificationClient(baseURL string, httpClient HTTPDoer) *NotificationClient {
	return &NotificationClient{base: NewBaseClient(baseURL, httpClient)}
}

// SendEvent implements notify.Sender.
func (c *NotificationClient) SendEvent(ctx context.Context, ev notify.Event) error {
	return c.base.PostJSON(ctx, "/internal/events", ev)
}
