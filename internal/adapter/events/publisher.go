package events

import (
	"sync"

	"codesearch/internal/domain"
)

// Publisher fans domain events out to in-process subscribers,
// fire-and-forget.
type Publisher struct {
	mu          sync.RWMutex
	subscribers []func(domain.SearchExecuted)
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Subscribe(fn func(domain.SearchExecuted)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

func (p *Publisher) Publish(event domain.SearchExecuted) {
	p.mu.RLock()
	subs := p.subscribers
	p.mu.RUnlock()

	for _, fn := range subs {
		fn(event)
	}
}
