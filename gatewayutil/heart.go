package gatewayutil

import (
	"context"
	"fmt"
	"time"

	"github.com/khlpkg/gateway"
)

type heart struct {
	interval time.Duration
	timeout  time.Duration
	client   *gateway.Client
	conn     Conn
	logger   gateway.Logger

	// receives a signal for every PONG
	pong chan struct{}
	// called once when the connection must be dropped
	onFailure func(err error)
}

func newHeart(s *Session, conn Conn, onFailure func(err error)) *heart {
	return &heart{
		interval:  s.heartbeatInterval,
		timeout:   s.heartbeatTimeout,
		client:    s.client,
		conn:      conn,
		logger:    s.logger,
		pong:      make(chan struct{}, 1),
		onFailure: onFailure,
	}
}

func (h *heart) ack() {
	select {
	case h.pong <- struct{}{}:
	default:
	}
}

// pulse sends a PING every interval and arms a watchdog for the PONG. It returns when the
// context is done or the watchdog fired.
func (h *heart) pulse(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.logger.Debug("created heartbeat ticker with interval %s", h.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// a late pong belongs to an earlier ping
		select {
		case <-h.pong:
		default:
		}

		sent := time.Now()
		if err := h.client.Heartbeat(h.conn); err != nil {
			h.onFailure(fmt.Errorf("failed to send heartbeat. %w", err))
			return
		}
		h.logger.Debug("sent heartbeat with sequence number %d", h.client.SequenceNumber())

		watchdog := time.NewTimer(h.timeout)
		select {
		case <-ctx.Done():
			watchdog.Stop()
			return
		case <-h.pong:
			watchdog.Stop()
			h.logger.Debug("heartbeat round trip took %s", time.Since(sent))
		case <-watchdog.C:
			h.client.SetState(gateway.Degraded)
			h.logger.Warn("no pong within %s, dropping the connection", h.timeout)
			h.onFailure(gateway.ErrHeartbeatTimeout)
			return
		}
	}
}
