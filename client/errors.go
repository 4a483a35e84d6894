package client

import "errors"

// ErrToolNotFound reports a call or capability lookup that no known tool
// satisfies, after discovery had its chance.
var ErrToolNotFound = errors.New("tool not found")
