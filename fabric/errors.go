package fabric

import "errors"

// ErrAgentExists reports a second server being created under an agent
// name that already serves on this fabric.
var ErrAgentExists = errors.New("agent already registered")
