package statuscode

type Type uint32

const OK Type = 0

// hello failures
const (
	// MissingParameters The handshake request lacked required parameters
	MissingParameters Type = 40100 + iota
	// InvalidToken The bot token is not valid
	InvalidToken
	// TokenVerificationFailed The bot token could not be verified
	TokenVerificationFailed
	// TokenExpired The bot token has expired, request a new gateway url
	TokenExpired
)

// reconnect reasons
const (
	// ResumeMissingParameters Resuming failed because sn or session_id was missing
	ResumeMissingParameters Type = 40106 + iota
	// SessionExpired The session is gone and can not be resumed
	SessionExpired
	// InvalidSequence The sn sent while resuming was unknown to the gateway
	InvalidSequence
)

func (t Type) String() string {
	switch t {
	case OK:
		return "ok"
	case MissingParameters:
		return "missing parameters"
	case InvalidToken:
		return "invalid token"
	case TokenVerificationFailed:
		return "token verification failed"
	case TokenExpired:
		return "token expired"
	case ResumeMissingParameters:
		return "resume missing parameters"
	case SessionExpired:
		return "session expired"
	case InvalidSequence:
		return "invalid sequence number"
	default:
		return "unknown status"
	}
}
