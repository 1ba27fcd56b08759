package closecode

// CanResumeAfter reports whether the client keeps its session when it closed the
// connection with the given code. A RECONNECT or a rejected HELLO already dropped the
// session where required, so GatewayRequested keeps whatever is left.
func CanResumeAfter(code Type) bool {
	_, resumable := map[Type]bool{
		ClientReconnecting:  true,
		HeartbeatTimeout:    true,
		HandshakeTimeout:    true,
		ConsecutiveFailures: true,
		GatewayRequested:    true,
	}[code]

	return resumable
}
