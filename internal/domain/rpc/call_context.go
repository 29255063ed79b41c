package rpc

// CallContext carries the per-request values a tool handler needs to call the
// cashcat API on the caller's behalf. It is built once per inbound HTTP request
// and passed by value.
type CallContext struct {
	// AuthHeader is the inbound Authorization header, forwarded unchanged.
	AuthHeader string
	// BaseOrigin is the scheme://host the cashcat API is reached at.
	BaseOrigin string
}
