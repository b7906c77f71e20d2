// Package bus provides the in-process typed event fabric between the monitor
// and its consumers. It mirrors the broadcast discipline of the push layer:
// each subscriber owns a buffered queue drained by its own goroutine, so a
// slow consumer delays only itself and per-subscriber delivery order matches
// publish order.
package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

// queueSize is the per-subscriber event buffer. Publishing to a full queue
// drops the event rather than stalling the monitor cycle.
const queueSize = 256

type eventKind int

const (
	kindTrade eventKind = iota
	kindBalance
	kindPnl
)

type envelope struct {
	kind    eventKind
	trade   domain.TradeEvent
	balance domain.BalanceEvent
	pnl     domain.PnlEvent
}

type subscriber struct {
	handler domain.EventHandler
	queue   chan envelope
}

// Bus implements domain.EventBus.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscriber
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Bus. Close must be called to stop subscriber goroutines.
func New(logger *slog.Logger) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		logger: logger.With(slog.String("component", "bus")),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Subscribe registers a handler. Each subscriber is drained by a dedicated
// goroutine; handlers receive events in publish order.
func (b *Bus) Subscribe(h domain.EventHandler) {
	sub := &subscriber{
		handler: h,
		queue:   make(chan envelope, queueSize),
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	b.wg.Add(1)
	go b.drain(sub)
}

func (b *Bus) drain(sub *subscriber) {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case ev := <-sub.queue:
			switch ev.kind {
			case kindTrade:
				sub.handler.OnTrade(b.ctx, ev.trade)
			case kindBalance:
				sub.handler.OnBalance(b.ctx, ev.balance)
			case kindPnl:
				sub.handler.OnPnl(b.ctx, ev.pnl)
			}
		}
	}
}

func (b *Bus) publish(ev envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		select {
		case sub.queue <- ev:
		default:
			b.logger.Warn("dropping event for slow subscriber")
		}
	}
}

// PublishTrade delivers a trade event to every subscriber.
func (b *Bus) PublishTrade(_ context.Context, ev domain.TradeEvent) {
	b.publish(envelope{kind: kindTrade, trade: ev})
}

// PublishBalance delivers a balance event to every subscriber.
func (b *Bus) PublishBalance(_ context.Context, ev domain.BalanceEvent) {
	b.publish(envelope{kind: kindBalance, balance: ev})
}

// PublishPnl delivers a PnL event to every subscriber.
func (b *Bus) PublishPnl(_ context.Context, ev domain.PnlEvent) {
	b.publish(envelope{kind: kindPnl, pnl: ev})
}

// Close stops all subscriber goroutines. Queued but undelivered events are
// discarded.
func (b *Bus) Close() {
	b.cancel()
	b.wg.Wait()
}
