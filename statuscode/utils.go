package statuscode

// CanResume reports whether the session id and sequence number may be reused for the next
// connection after the gateway reported the given code.
func CanResume(code Type) bool {
	_, invalidated := map[Type]bool{
		ResumeMissingParameters: true,
		SessionExpired:          true,
		InvalidSequence:         true,
		InvalidToken:            true,
		TokenVerificationFailed: true,
		TokenExpired:            true,
	}[code]

	return !invalidated
}
