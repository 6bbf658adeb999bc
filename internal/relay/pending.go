package relay

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

type pendingOffer struct {
	fromUserID string
	offer      json.RawMessage
	queuedAt   time.Time
}

// PendingOffers buffers call-setup offers addressed to a callee that has not
// yet signaled readiness. The buffer is bounded two ways: a per-target cap
// (the oldest entry is evicted when a new offer arrives at the cap) and a
// per-entry TTL (expired offers are dropped instead of delivered late).
type PendingOffers struct {
	mu       sync.Mutex
	byTarget map[string][]pendingOffer

	maxPerTarget int
	ttl          time.Duration
	now          func() time.Time

	logger *slog.Logger
}

func NewPendingOffers(logger *slog.Logger, maxPerTarget int, ttl time.Duration) *PendingOffers {
	if maxPerTarget <= 0 {
		maxPerTarget = 16
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &PendingOffers{
		byTarget:     make(map[string][]pendingOffer),
		maxPerTarget: maxPerTarget,
		ttl:          ttl,
		now:          time.Now,
		logger:       logger.With(slog.String("component", "pending_offers")),
	}
}

// Add buffers an offer for targetUserID, preserving arrival order.
func (p *PendingOffers) Add(targetUserID, fromUserID string, offer json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	queue := p.pruneLocked(targetUserID)
	if len(queue) >= p.maxPerTarget {
		evicted := queue[0]
		queue = queue[1:]
		p.logger.Warn("Pending offer cap reached, evicting oldest",
			slog.String("targetUserID", targetUserID),
			slog.String("evictedFrom", evicted.fromUserID),
		)
	}
	queue = append(queue, pendingOffer{fromUserID: fromUserID, offer: offer, queuedAt: p.now()})
	p.byTarget[targetUserID] = queue
}

// Drain removes and returns every live buffered offer for targetUserID in
// original arrival order. Expired entries are silently discarded.
func (p *PendingOffers) Drain(targetUserID string) []pendingOffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	queue := p.pruneLocked(targetUserID)
	delete(p.byTarget, targetUserID)
	return queue
}

// Len reports the number of live buffered offers for targetUserID.
func (p *PendingOffers) Len(targetUserID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	queue := p.pruneLocked(targetUserID)
	if len(queue) == 0 {
		delete(p.byTarget, targetUserID)
	} else {
		p.byTarget[targetUserID] = queue
	}
	return len(queue)
}

// pruneLocked drops expired entries for a target and returns the survivors.
// Entries age in arrival order, so one scan for the first live entry suffices.
func (p *PendingOffers) pruneLocked(targetUserID string) []pendingOffer {
	queue := p.byTarget[targetUserID]
	if len(queue) == 0 {
		return queue
	}
	cutoff := p.now().Add(-p.ttl)
	i := 0
	for i < len(queue) && queue[i].queuedAt.Before(cutoff) {
		i++
	}
	if i > 0 {
		p.logger.Debug("Dropped expired pending offers",
			slog.String("targetUserID", targetUserID),
			slog.Int("dropped", i),
		)
		queue = queue[i:]
	}
	p.byTarget[targetUserID] = queue
	return queue
}
