package gateway

// ConnState is the lifecycle state of a gateway connection.
type ConnState int32

const (
	Disconnected ConnState = iota
	Connecting
	AwaitingHello
	Active
	// Degraded is entered when the heartbeat went unanswered, the connection is about to be
	// torn down.
	Degraded
	Reconnecting
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case AwaitingHello:
		return "awaiting-hello"
	case Active:
		return "active"
	case Degraded:
		return "degraded"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
