package gateway

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/khlpkg/gateway/event"
	"github.com/khlpkg/gateway/signal"
	"github.com/khlpkg/gateway/statuscode"
)

func newTestClient(t *testing.T, options ...Option) (*Client, *dispatcherMock) {
	t.Helper()
	dispatcher := &dispatcherMock{handled: true}
	options = append([]Option{
		WithBotToken("token"),
		WithIdentity(Identity{ID: "123", Username: "Bot"}),
		WithTriggerPrefixes("."),
		WithDispatcher(dispatcher),
	}, options...)

	client, err := NewClient(options...)
	if err != nil {
		t.Fatal(err)
	}
	return client, dispatcher
}

func textMessage(seq int) string {
	return `{"s":0,"sn":` + strconv.Itoa(seq) + `,"d":{"channel_type":"PERSON","type":1,"target_id":"123","author_id":"42",
		"content":"hi","extra":{"type":1,"author":{"id":"42"}}}}`
}

func TestNewClient(t *testing.T) {
	t.Run("missing-token", func(t *testing.T) {
		if _, err := NewClient(); !errors.Is(err, ErrMissingCredential) {
			t.Errorf("expected missing credential, got %v", err)
		}
	})
	t.Run("defaults", func(t *testing.T) {
		client, err := NewClient(WithBotToken("token"))
		if err != nil {
			t.Fatal(err)
		}
		if !client.Active() || !client.Compressed() {
			t.Error("client should be active and compressed by default")
		}
		if client.State() != Disconnected {
			t.Errorf("expected disconnected, got %s", client.State())
		}
	})
	t.Run("duplicate-triggers", func(t *testing.T) {
		if _, err := NewClient(WithBotToken("token"), WithTriggerPrefixes(".", ".")); err == nil {
			t.Error("duplicated trigger prefixes should be rejected")
		}
	})
}

func TestClient_Sequence(t *testing.T) {
	client, dispatcher := newTestClient(t)
	ctx := context.Background()

	for _, seq := range []int{1, 2, 2, 5, 3, 6} {
		if err := client.Process(ctx, envelope(t, textMessage(seq))); err != nil {
			t.Fatalf("sequence %d: %s", seq, err)
		}
	}

	if client.SequenceNumber() != 6 {
		t.Errorf("expected last sequence 6, got %d", client.SequenceNumber())
	}
	received := dispatcher.received()
	if len(received) != 4 {
		t.Fatalf("expected 4 dispatched events, got %d", len(received))
	}
	var previous int64
	for _, evt := range received {
		if evt.Base().Sequence <= previous {
			t.Errorf("sequence went backwards: %d after %d", evt.Base().Sequence, previous)
		}
		previous = evt.Base().Sequence
	}
}

func TestClient_SequenceAdvancesOnDrop(t *testing.T) {
	client, dispatcher := newTestClient(t)
	unknown := `{"s":0,"sn":4,"d":{"channel_type":"GROUP","type":255,"target_id":"g1","extra":{"type":"renamed_universe"}}}`

	err := client.Process(context.Background(), envelope(t, unknown))
	if !errors.Is(err, ErrUnrecognizedDiscriminator) {
		t.Errorf("expected unrecognized discriminator, got %v", err)
	}
	if client.SequenceNumber() != 4 {
		t.Errorf("dropped events still advance the sequence, got %d", client.SequenceNumber())
	}
	if len(dispatcher.received()) != 0 {
		t.Error("unrecognized events should not be dispatched")
	}
}

func TestClient_ControlSignals(t *testing.T) {
	controls := []string{
		`{"s":1,"d":{"code":0,"session_id":"abc"}}`,
		`{"s":3}`,
		`{"s":6,"d":{"session_id":"abc"}}`,
		`{"s":2,"sn":1}`,
	}

	client, dispatcher := newTestClient(t)
	for _, data := range controls {
		if err := client.Process(context.Background(), envelope(t, data)); err != nil {
			t.Errorf("%s: %s", data, err)
		}
	}
	if len(dispatcher.received()) != 0 {
		t.Error("control signals must never reach the dispatcher")
	}
	if client.SessionID() != "abc" {
		t.Errorf("expected session abc, got %q", client.SessionID())
	}
	if client.State() != Active {
		t.Errorf("expected active after hello, got %s", client.State())
	}

	t.Run("unknown-signal", func(t *testing.T) {
		err := client.Process(context.Background(), envelope(t, `{"s":42}`))
		if !errors.Is(err, ErrUnrecognizedDiscriminator) {
			t.Errorf("expected unrecognized discriminator, got %v", err)
		}
	})
}

func TestClient_Hello(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		client, _ := newTestClient(t, WithSessionID("abc"), WithSequenceNumber(10))
		_, err := client.Observe(envelope(t, `{"s":1,"d":{"code":40103}}`))

		var gatewayErr *GatewayError
		if !errors.As(err, &gatewayErr) {
			t.Fatalf("expected gateway error, got %v", err)
		}
		if gatewayErr.Code != statuscode.TokenExpired || gatewayErr.CanResume() {
			t.Errorf("unexpected gateway error %+v", gatewayErr)
		}
		if _, _, ok := client.ResumeDetails(); ok {
			t.Error("an expired token invalidates the session")
		}
	})
	t.Run("missing-parameters", func(t *testing.T) {
		client, _ := newTestClient(t, WithSessionID("abc"), WithSequenceNumber(10))
		_, err := client.Observe(envelope(t, `{"s":1,"d":{"code":40100}}`))
		if err == nil {
			t.Fatal("expected an error")
		}
		if _, _, ok := client.ResumeDetails(); !ok {
			t.Error("session should survive")
		}
	})
}

func TestClient_Reconnect(t *testing.T) {
	client, _ := newTestClient(t, WithSessionID("abc"), WithSequenceNumber(10))

	_, err := client.Observe(envelope(t, `{"s":5,"d":{"code":40108,"err":"invalid sn"}}`))
	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) || gatewayErr.Signal != signal.Reconnect {
		t.Fatalf("expected reconnect error, got %v", err)
	}
	if gatewayErr.Reason != "invalid sn" {
		t.Errorf("unexpected reason %q", gatewayErr.Reason)
	}
	if client.SessionID() != "" || client.SequenceNumber() != 0 {
		t.Error("a reconnect signal starts a new sequence space")
	}
	if IsFailure(err) {
		t.Error("a reconnect request is not a frame failure")
	}

	// the next session starts counting at 1 again
	dispatchable, err := client.Observe(envelope(t, textMessage(1)))
	if err != nil || !dispatchable {
		t.Errorf("first event of the new session should pass, got %v", err)
	}
}

func TestClient_HandlerFault(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		client, dispatcher := newTestClient(t)
		dispatcher.err = errors.New("handler failed")

		err := client.Process(context.Background(), envelope(t, textMessage(1)))
		var fault *HandlerFaultError
		if !errors.As(err, &fault) || fault.Kind != event.PrivateText {
			t.Fatalf("expected handler fault, got %v", err)
		}
		if !IsFailure(err) {
			t.Error("handler faults count as failures")
		}
	})
	t.Run("panic", func(t *testing.T) {
		client, dispatcher := newTestClient(t)
		dispatcher.panics = true

		err := client.Process(context.Background(), envelope(t, textMessage(1)))
		var fault *HandlerFaultError
		if !errors.As(err, &fault) {
			t.Fatalf("expected recovered panic, got %v", err)
		}
	})
}

func TestClient_RoleMutationBeforeDispatch(t *testing.T) {
	var order []string
	roles := &roleProviderMock{}
	dispatcher := &dispatcherOrderMock{order: &order}
	roles.refreshed = func(guildID string) { order = append(order, "refresh:"+guildID) }

	client, err := NewClient(WithBotToken("token"), WithRoleProvider(roles), WithDispatcher(dispatcher))
	if err != nil {
		t.Fatal(err)
	}

	data := `{"s":0,"sn":1,"d":{"channel_type":"GROUP","type":255,"target_id":"g1",
		"extra":{"type":"deleted_role","body":{"role_id":7,"name":"mod"}}}}`
	if err := client.Process(context.Background(), envelope(t, data)); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "refresh:g1" || order[1] != "dispatch:"+event.RoleDeleted.String() {
		t.Errorf("roles must be refreshed before dispatch, got %v", order)
	}
}

type dispatcherOrderMock struct {
	order *[]string
}

func (d *dispatcherOrderMock) Dispatch(_ context.Context, evt event.Event) (bool, error) {
	*d.order = append(*d.order, "dispatch:"+evt.Kind().String())
	return true, nil
}

func TestClient_Heartbeat(t *testing.T) {
	client, _ := newTestClient(t, WithSequenceNumber(12))

	var buf bytes.Buffer
	if err := client.Heartbeat(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != `{"s":2,"sn":12}` {
		t.Errorf("unexpected heartbeat %s", buf.String())
	}

	if err := client.write(&buf, signal.Pong, nil); err == nil {
		t.Error("clients can not send pong")
	}
}

func TestIsFailure(t *testing.T) {
	cases := map[string]struct {
		err     error
		failure bool
	}{
		"nil":           {nil, false},
		"filtered":      {ErrFiltered, false},
		"unrecognized":  {&UnrecognizedDiscriminatorError{Field: "type"}, false},
		"gateway":       {&GatewayError{}, false},
		"malformed":     {&MalformedFrameError{Err: errors.New("x")}, true},
		"handler-fault": {&HandlerFaultError{Err: errors.New("x")}, true},
		"enrichment":    {errors.New("unable to resolve roles"), true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if IsFailure(tc.err) != tc.failure {
				t.Errorf("expected failure=%t", tc.failure)
			}
		})
	}
}
