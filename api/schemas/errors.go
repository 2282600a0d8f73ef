package schemas

// ErrorKind classifies a failure once, at the adapter or orchestrator
// boundary. Call sites branch on the kind instead of re-inspecting error
// message substrings.
type ErrorKind string

const (
	// ErrKindTimeout covers navigation and engine deadline expiry.
	ErrKindTimeout ErrorKind = "timeout"
	// ErrKindNavigationRedirect covers an execution context destroyed by a
	// mid-analysis redirect.
	ErrKindNavigationRedirect ErrorKind = "navigation_redirect"
	// ErrKindConnectionClosed covers a browser target or transport that went
	// away underneath the analysis.
	ErrKindConnectionClosed ErrorKind = "connection_closed"
	// ErrKindEngineFailure is every other engine-internal failure.
	ErrKindEngineFailure ErrorKind = "engine_failure"
)
