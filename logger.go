package gateway

// Logger for logging different situations
type Logger interface {
	// Debug protocol chatter: signals, dropped duplicates, state transitions.
	Debug(format string, args ...interface{})

	// Info handshakes, resumes and ignored broadcasts.
	Info(format string, args ...interface{})

	// Warn recoverable failures that are retried, such as a lost connection.
	Warn(format string, args ...interface{})

	// Error failures that drop an event or force a reconnect.
	Error(format string, args ...interface{})

	// Panic identifies system crashing/breaking issues that forces the application to shut down or completely stop
	Panic(format string, args ...interface{})
}

type nopLogger struct{}

func (n *nopLogger) Debug(_ string, _ ...interface{}) {}
func (n *nopLogger) Info(_ string, _ ...interface{})  {}
func (n *nopLogger) Warn(_ string, _ ...interface{})  {}
func (n *nopLogger) Error(_ string, _ ...interface{}) {}
func (n *nopLogger) Panic(_ string, _ ...interface{}) {}

// NopLogger discards everything.
func NopLogger() Logger {
	return &nopLogger{}
}
