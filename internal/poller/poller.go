// Package poller implements the client side of the incremental message
// delivery contract: a fixed-interval "since" loop that merges batches
// into the rendered view keyed by message id.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/you/campus-resource-hub/internal/domain"
)

const DefaultInterval = 6 * time.Second

// Fetcher asks the message store for everything strictly after the cutoff.
type Fetcher interface {
	MessagesSince(ctx context.Context, threadID string, cutoff time.Time) ([]domain.Message, error)
}

type Config struct {
	ThreadID  string
	Interval  time.Duration // defaults to DefaultInterval
	OnMessage func(domain.Message)
}

type Poller struct {
	cfg     Config
	fetcher Fetcher
	log     *zap.Logger

	mu     sync.Mutex
	seen   map[string]struct{}
	view   []domain.Message
	cutoff time.Time
}

// New seeds the poller from the messages already present in the initial
// view; the cutoff starts at the last of them, not at the current time.
func New(cfg Config, f Fetcher, log *zap.Logger, initial []domain.Message) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	p := &Poller{cfg: cfg, fetcher: f, log: log, seen: make(map[string]struct{})}
	p.merge(initial)
	return p
}

// Run ticks until the context is cancelled. Polls are synchronous, so at
// most one fetch is ever in flight; ticks that fire during a slow fetch
// are dropped by the ticker, never queued.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PollOnce(ctx); err != nil {
				// transient by contract: swallow and retry on the next tick
				p.log.Debug("poll failed", zap.String("thread_id", p.cfg.ThreadID), zap.Error(err))
			}
		}
	}
}

// PollOnce issues a single since-query and merges the batch. Returns how
// many messages were newly rendered.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	batch, err := p.fetcher.MessagesSince(ctx, p.cfg.ThreadID, p.Cutoff())
	if err != nil {
		return 0, err
	}
	return p.merge(batch), nil
}

// merge folds a batch into the view. A duplicate id is silently dropped
// rather than re-rendered, which makes re-delivery idempotent.
func (p *Poller) merge(batch []domain.Message) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	added := 0
	for _, m := range batch {
		if m.Timestamp.After(p.cutoff) {
			p.cutoff = m.Timestamp
		}
		if _, dup := p.seen[m.ID]; dup {
			continue
		}
		p.seen[m.ID] = struct{}{}
		p.view = append(p.view, m)
		if p.cfg.OnMessage != nil {
			p.cfg.OnMessage(m)
		}
		added++
	}
	return added
}

// Cutoff is the exclusive lower bound the next poll will send: the
// timestamp of the last message rendered, never the poll time.
func (p *Poller) Cutoff() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cutoff
}

// View returns a copy of the rendered messages in delivery order.
func (p *Poller) View() []domain.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Message, len(p.view))
	copy(out, p.view)
	return out
}
