package signal

import (
	"fmt"
	"strconv"
)

// Type is the low level protocol signal found in the "s" field of every gateway frame.
type Type int

const (
	Data      Type = 0
	Hello     Type = 1
	Ping      Type = 2
	Pong      Type = 3
	Resume    Type = 4
	Reconnect Type = 5
	ResumeACK Type = 6
)

var names = map[Type]string{
	Data:      "DATA",
	Hello:     "HELLO",
	Ping:      "PING",
	Pong:      "PONG",
	Resume:    "RESUME",
	Reconnect: "RECONNECT",
	ResumeACK: "RESUME_ACK",
}

func (t Type) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return "UNKNOWN(" + strconv.Itoa(int(t)) + ")"
}

// Valid reports whether the signal is part of the protocol.
func (t Type) Valid() bool {
	_, ok := names[t]
	return ok
}

// Send reports whether a client is allowed to write this signal.
func (t Type) Send() bool {
	return t == Ping || t == Resume
}

// Receive reports whether the gateway may send this signal to a client.
func (t Type) Receive() bool {
	return t.Valid() && t != Ping && t != Resume
}

// UnmarshalJSON accepts both numeric and string-encoded signals, `0` and `"0"` are equal.
func (t *Type) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("signal is not a small integer: %s", string(data))
	}
	*t = Type(v)
	return nil
}
