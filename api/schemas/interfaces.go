package schemas

import "context"

// -- Authentication Contract --

// Cookie is one restored session cookie, matching the storage-state JSON
// shape produced by browser session capture tools.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// StorageState is a captured browser session: cookies plus per-origin
// localStorage entries.
type StorageState struct {
	Cookies []Cookie        `json:"cookies"`
	Origins []OriginStorage `json:"origins,omitempty"`
}

// OriginStorage holds localStorage key/value pairs for one origin.
type OriginStorage struct {
	Origin       string         `json:"origin"`
	LocalStorage []StorageEntry `json:"localStorage"`
}

// StorageEntry is a single localStorage item.
type StorageEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HTTPCredentials carries basic-auth credentials for protected targets.
type HTTPCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	Success bool
	Error   string
}

// AuthManager supplies authentication material to the page orchestrator. The
// orchestrator only consumes this contract; session capture and encrypted
// storage live behind it.
type AuthManager interface {
	// RequiresAuth reports whether the audit target needs authentication.
	RequiresAuth() bool
	// Authenticate establishes or refreshes the session.
	Authenticate(ctx context.Context) AuthResult
	// StorageState returns the captured session to restore, or nil.
	StorageState() *StorageState
	// HTTPCredentials returns basic-auth credentials, or nil.
	HTTPCredentials() *HTTPCredentials
	// Headers returns extra headers to attach to every request.
	Headers() map[string]string
}
