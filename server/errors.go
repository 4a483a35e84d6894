package server

import "errors"

// ErrNotOwned reports an attempt to manage a tool this dispatcher did
// not register.
var ErrNotOwned = errors.New("tool not owned by this agent")
