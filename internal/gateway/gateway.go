package gateway

import (
	"context"

	"trivia-gamemaster/internal/domain"
)

// Gateway abstracts the messaging channel the game runs over. Sends are
// best-effort broadcasts; inbound messages arrive asynchronously on the
// registered handler, on the gateway's own goroutine.
type Gateway interface {
	// SendText broadcasts text to the target chat. The receipt's timestamp
	// may be zero when the channel did not report one.
	SendText(ctx context.Context, to, text string) (domain.SendReceipt, error)
	// Reply sends text quoting a previous message.
	Reply(ctx context.Context, to, text, quotedID string) error
	// OnMessage registers the inbound handler. Must be called before the
	// gateway starts delivering.
	OnMessage(handler func(domain.Message))
}
