package gatewayutil

import (
	"context"
	"sync"

	"github.com/khlpkg/gateway"
)

type task struct {
	envelope *gateway.Envelope
	done     func(err error)
}

// pool handles DATA envelopes on a fixed set of ordered queues. Envelopes with the same
// routing key share a queue, so events of one guild are handled in receive order.
type pool struct {
	ctx    context.Context
	queues []chan task
	handle func(ctx context.Context, envelope *gateway.Envelope) error
	wg     sync.WaitGroup
}

func newPool(ctx context.Context, workers, queueSize int, handle func(ctx context.Context, envelope *gateway.Envelope) error) *pool {
	p := &pool{
		ctx:    ctx,
		queues: make([]chan task, workers),
		handle: handle,
	}
	for i := range p.queues {
		p.queues[i] = make(chan task, queueSize)
		p.wg.Add(1)
		go p.work(p.queues[i])
	}
	return p
}

func (p *pool) work(queue <-chan task) {
	defer p.wg.Done()
	for t := range queue {
		t.done(p.handle(p.ctx, t.envelope))
	}
}

// submit blocks while the queue of the envelope is full.
func (p *pool) submit(ctx context.Context, t task) error {
	queue := p.queues[gateway.DeriveQueue(gateway.RoutingKey(t.envelope), len(p.queues))]
	select {
	case queue <- t:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// stop waits for queued envelopes to be handled. submit must not be called afterwards.
func (p *pool) stop() {
	for _, queue := range p.queues {
		close(queue)
	}
	p.wg.Wait()
}
