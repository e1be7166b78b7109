package channels

import (
	"context"

	"github.com/polyglot-bot/polyglot/internal/dispatch"
)

// MessageHandler takes every non-prefix chat message. *dispatch.Controller
// implements it and ignores anything that is not a translation command.
type MessageHandler interface {
	Handle(ctx context.Context, msg dispatch.Inbound) dispatch.State
}
