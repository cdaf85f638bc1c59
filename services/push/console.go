package pushsvc

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/trezcool/kita/core"
)

var (
	SentMessages = make([]core.PushMessage, 0)
	mu           sync.Mutex
)

type consoleService struct {
	disableOutput bool
}

var _ core.PushService = (*consoleService)(nil)

// NewConsoleService prints push messages instead of sending them.
func NewConsoleService() core.PushService {
	return &consoleService{}
}

// NewConsoleServiceMock captures push messages in SentMessages without printing them.
func NewConsoleServiceMock() core.PushService {
	return &consoleService{disableOutput: true}
}

func (svc *consoleService) Send(_ context.Context, msg core.PushMessage) (int, error) {
	mu.Lock()
	SentMessages = append(SentMessages, msg)
	mu.Unlock()

	if !svc.disableOutput {
		target := "everyone"
		if len(msg.GroupIDs) > 0 {
			target = "groups " + strings.Join(msg.GroupIDs, ", ")
		}
		log.Printf("Push [%s] to %s: %s - %s\n", msg.Category, target, msg.Title, msg.Body)
	}
	return 1, nil
}

// ResetSentMessages empties SentMessages.
func ResetSentMessages() {
	mu.Lock()
	SentMessages = make([]core.PushMessage, 0)
	mu.Unlock()
}

// LastMessage returns the last captured message.
func LastMessage() (core.PushMessage, bool) {
	mu.Lock()
	defer mu.Unlock()
	if len(SentMessages) == 0 {
		return core.PushMessage{}, false
	}
	return SentMessages[len(SentMessages)-1], true
}
