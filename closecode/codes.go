package closecode

type Type uint32

// websocket close codes written by the client
const (
	// Normal the session was stopped
	Normal Type = 1000
	// ClientReconnecting the client drops the connection to establish a new one
	ClientReconnecting Type = 1001
)

// custom codes
const (
	// HeartbeatTimeout no PONG arrived within the heartbeat deadline
	HeartbeatTimeout Type = 3000 + iota
	// HandshakeTimeout no HELLO arrived after the connection was opened
	HandshakeTimeout
	// ConsecutiveFailures too many frames in a row could not be processed
	ConsecutiveFailures
	// GatewayRequested the gateway sent a RECONNECT signal or rejected the HELLO
	GatewayRequested
)
