package gatewayutil

import (
	"errors"
	"net/url"
	"strconv"
)

var ErrURLScheme = errors.New("url scheme was not websocket (ws nor wss)")
var ErrIncompleteDialURL = errors.New("incomplete url is missing one or many of: 'scheme', 'host'")
var ErrCompressionMismatch = errors.New("url compression does not match the client")

// ValidateDialURL checks the gateway url returned by the http api and makes the compress
// parameter explicit:
//
//	"https://ws.example.com/gateway"             => invalid
//	"wss://ws.example.com/gateway?compress=0"    => invalid for a compressed client
//	"wss://ws.example.com/gateway?token=abc"     => "wss://ws.example.com/gateway?compress=1&token=abc"
func ValidateDialURL(URLString string, compressed bool) (string, error) {
	u, urlErr := url.Parse(URLString)
	if urlErr != nil {
		return "", urlErr
	}

	if u.Scheme == "" || u.Host == "" {
		return "", ErrIncompleteDialURL
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", ErrURLScheme
	}

	want := "0"
	if compressed {
		want = "1"
	}

	query := u.Query()
	if compress := query.Get("compress"); compress != "" && compress != want {
		return "", ErrCompressionMismatch
	}
	query.Set("compress", want)
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// ResumeURL adds the parameters that resume a session to a validated dial url.
func ResumeURL(URLString string, sessionID string, sequence int64) (string, error) {
	u, err := url.Parse(URLString)
	if err != nil {
		return "", err
	}

	query := u.Query()
	query.Set("resume", "1")
	query.Set("sn", strconv.FormatInt(sequence, 10))
	query.Set("session_id", sessionID)
	u.RawQuery = query.Encode()

	return u.String(), nil
}
