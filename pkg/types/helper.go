package types

// These are shared between the helper and its clients.
const (
	// HelperLabel is the launchd label the privileged helper is registered
	// under.
	HelperLabel = "com.poweron.helper"

	// DefaultHelperSocket is where the helper listens.
	DefaultHelperSocket = "/var/run/poweron-helper.sock"

	// DefaultConfigPath is the config file read by both helper and CLI.
	DefaultConfigPath = "/etc/poweron.json"

	// RequestIDHeader carries a per-call id from client to helper logs.
	RequestIDHeader = "X-Request-ID"

	// NoScheduledEvents is returned by the helper when pmset prints nothing.
	NoScheduledEvents = "No scheduled events."
)

// Reply is the helper's answer to a set or cancel call.
type Reply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
