package transport

import (
	"context"

	"github.com/agent-fabric/fabric/core/protocol"
)

// Handler processes one dispatched envelope. A non-nil returned message
// is routed back through the transport, so a handler can answer a
// request without holding a transport reference.
type Handler func(ctx context.Context, msg *protocol.Message) (*protocol.Message, error)
