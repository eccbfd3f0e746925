package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

const (
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second

	maxBreakerCooldown = 5 * time.Minute
)

// Breaker guards a Getter with one circuit breaker per gateway host.
// Missing content does not count as a failure.
type Breaker struct {
	next      Getter
	threshold int64
	cooldown  time.Duration

	mu    sync.RWMutex
	hosts map[string]*circuit.Breaker
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithThreshold sets how many consecutive failures open a host's breaker.
func WithThreshold(n int64) BreakerOption {
	return func(b *Breaker) {
		b.threshold = n
	}
}

// WithCooldown sets how long an open breaker waits before the first
// half-open attempt. The wait doubles on every further failure.
func WithCooldown(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		b.cooldown = d
	}
}

// NewBreaker wraps next.
func NewBreaker(next Getter, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		next:      next,
		threshold: DefaultBreakerThreshold,
		cooldown:  DefaultBreakerCooldown,
		hosts:     make(map[string]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Get fetches url unless its host's breaker is open.
func (b *Breaker) Get(ctx context.Context, rawURL string) (*Response, error) {
	return b.guard(rawURL, func() (*Response, error) {
		return b.next.Get(ctx, rawURL)
	})
}

// Head probes url unless its host's breaker is open.
func (b *Breaker) Head(ctx context.Context, rawURL string) (*Response, error) {
	return b.guard(rawURL, func() (*Response, error) {
		return b.next.Head(ctx, rawURL)
	})
}

func (b *Breaker) guard(rawURL string, call func() (*Response, error)) (*Response, error) {
	host := hostOf(rawURL)
	cb := b.breaker(host)

	if !cb.Ready() {
		return nil, fmt.Errorf("circuit breaker open for gateway %s: %w", host, ErrUpstreamDown)
	}

	var resp *Response
	var callErr error
	err := cb.Call(func() error {
		resp, callErr = call()
		if errors.Is(callErr, ErrNotFound) {
			return nil
		}
		return callErr
	}, 0)
	if err != nil {
		return nil, err
	}
	return resp, callErr
}

func (b *Breaker) breaker(host string) *circuit.Breaker {
	b.mu.RLock()
	cb, ok := b.hosts[host]
	b.mu.RUnlock()
	if ok {
		return cb
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.hosts[host]; ok {
		return cb
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.cooldown
	bo.MaxInterval = maxBreakerCooldown
	bo.Multiplier = 2
	bo.Reset()

	cb = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    bo,
		ShouldTrip: circuit.ThresholdTripFunc(b.threshold),
	})
	b.hosts[host] = cb
	return cb
}

// hostOf groups URLs by gateway host. Unparseable input is its own group.
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}

// HostState is the breaker state of one gateway host.
type HostState struct {
	Host string
	Open bool
}

// States lists every gateway host seen so far, sorted by host.
func (b *Breaker) States() []HostState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	states := make([]HostState, 0, len(b.hosts))
	for host, cb := range b.hosts {
		states = append(states, HostState{Host: host, Open: cb.Tripped()})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Host < states[j].Host })
	return states
}
