// Package client is the calling side of an agent on the fabric.
//
// A Client wraps a transport with a caller identity, a descriptor cache
// and by-name or by-capability invocation. The cache is merge-only:
// discovery responses update or add entries but never remove them, so a
// tool that disappears from the fabric stays callable-looking until the
// call itself fails. Callers that need freshness re-run discovery with
// RefreshTools.
package client
