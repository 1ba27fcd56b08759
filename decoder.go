package gateway

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/khlpkg/gateway/encoding"
	"github.com/khlpkg/gateway/signal"
)

// MaxFrameSize caps the inflated size of a single frame.
const MaxFrameSize = 4 << 20

// DecodeFrame inflates a zlib compressed frame, when compressed is set, and parses the
// envelope. Every failure is reported as a *MalformedFrameError.
func DecodeFrame(data []byte, compressed bool) (*Envelope, error) {
	if len(data) == 0 {
		return nil, &MalformedFrameError{Err: io.ErrUnexpectedEOF}
	}

	payload := data
	if compressed {
		var err error
		if payload, err = inflate(data); err != nil {
			return nil, &MalformedFrameError{Size: len(data), Err: err}
		}
	}

	var raw struct {
		Signal   *signal.Type `json:"s"`
		Data     RawMessage   `json:"d"`
		Sequence *int64       `json:"sn"`
	}
	if err := encoding.Unmarshal(payload, &raw); err != nil {
		return nil, &MalformedFrameError{Size: len(data), Err: fmt.Errorf("unable to unmarshal envelope. %w", err)}
	}
	if raw.Signal == nil {
		return nil, &MalformedFrameError{Size: len(data), Err: errors.New("envelope is missing the signal")}
	}

	return &Envelope{
		Signal:   *raw.Signal,
		Data:     raw.Data,
		Sequence: raw.Sequence,
	}, nil
}

func inflate(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to open zlib stream. %w", err)
	}
	defer reader.Close()

	payload, err := io.ReadAll(io.LimitReader(reader, MaxFrameSize+1))
	if err != nil {
		return nil, fmt.Errorf("unable to inflate frame. %w", err)
	}
	if len(payload) > MaxFrameSize {
		return nil, fmt.Errorf("inflated frame exceeds %d bytes", MaxFrameSize)
	}
	return payload, nil
}
