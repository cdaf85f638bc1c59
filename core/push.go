package core

import "context"

// Push notification categories, used by devices to filter subscriptions.
const (
	PushCategoryNews     = "news"
	PushCategoryLists    = "lists"
	PushCategoryAbsences = "absences"
	PushCategoryFood     = "food"
)

type (
	// PushMessage is the payload of the push notification function.
	// Nil GroupIDs and UserIDs address every subscribed device.
	PushMessage struct {
		Title    string            `json:"title"`
		Body     string            `json:"body"`
		Category string            `json:"category"`
		GroupIDs []string          `json:"groupIds"`
		UserIDs  []string          `json:"userIds"`
		Data     map[string]string `json:"data"`
	}

	// PushService is any service that can dispatch push notifications.
	PushService interface {
		// Send returns the number of devices the message was delivered to.
		Send(ctx context.Context, msg PushMessage) (int, error)
	}
)

// NotifyPush sends msg and only logs failures, a push error never fails the originating operation.
func NotifyPush(ctx context.Context, svc PushService, logger Logger, msg PushMessage) {
	if svc == nil {
		return
	}
	if _, err := svc.Send(ctx, msg); err != nil && logger != nil {
		logger.Error("sending push notification ("+msg.Category+")", err)
	}
}
