package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danielpatrickdp/selftest-engine/internal/advisory"
	"github.com/danielpatrickdp/selftest-engine/internal/results"
)

// #region advice

// AdviceState is the lifecycle of the advisory request.
type AdviceState int

const (
	AdviceIdle        AdviceState = iota // session not complete yet
	AdvicePending                        // request in flight
	AdviceReady                          // text available
	AdviceUnavailable                    // failed, timed out or cancelled; terminal
)

func (s AdviceState) String() string {
	switch s {
	case AdviceIdle:
		return "idle"
	case AdvicePending:
		return "pending"
	case AdviceReady:
		return "ready"
	case AdviceUnavailable:
		return "unavailable"
	}
	return fmt.Sprintf("AdviceState(%d)", int(s))
}

// Advice is a snapshot of the advisory output.
type Advice struct {
	State AdviceState
	Text  string
	Err   error
}

// #endregion advice

// #region aggregator

// Aggregator reads a session's records and owns its advisory request. The
// request is issued at most once, the first time Evaluate sees a complete
// session, and is never retried.
type Aggregator struct {
	store   results.Store
	client  advisory.Client
	timeout time.Duration
	log     *logrus.Entry

	base   context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
	closed sync.Once

	mu     sync.Mutex
	advice Advice
}

// NewAggregator creates an aggregator over store. client may be nil, in which
// case the advice resolves to unavailable. timeout <= 0 means no deadline
// beyond Close.
func NewAggregator(store results.Store, client advisory.Client, timeout time.Duration) *Aggregator {
	base, cancel := context.WithCancel(context.Background())
	return &Aggregator{
		store:   store,
		client:  client,
		timeout: timeout,
		log:     logrus.WithField("component", "risk"),
		base:    base,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Evaluate reads the current records and returns the verdict. A read failure
// is returned as an error; advisory failures never are.
func (a *Aggregator) Evaluate(ctx context.Context) (Verdict, results.Snapshot, error) {
	snap, err := results.LoadSnapshot(ctx, a.store)
	if err != nil {
		return Verdict{}, results.Snapshot{}, fmt.Errorf("load results: %w", err)
	}
	v := Tally(snap)
	if v.Complete {
		a.once.Do(func() { a.request(RequestFor(snap)) })
	}
	return v, snap, nil
}

func (a *Aggregator) request(req advisory.Request) {
	if a.client == nil {
		a.resolve(Advice{State: AdviceUnavailable, Err: advisory.ErrUnavailable})
		return
	}
	a.set(Advice{State: AdvicePending})
	a.log.WithFields(logrus.Fields{
		"score":      req.Score,
		"errors":     req.Errors,
		"similarity": req.Similarity,
	}).Info("advisory requested")

	go func() {
		ctx := a.base
		if a.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}
		text, err := a.client.Advise(ctx, req)
		if err != nil {
			a.log.WithError(err).Warn("advisory unavailable")
			a.resolve(Advice{State: AdviceUnavailable, Err: err})
			return
		}
		a.resolve(Advice{State: AdviceReady, Text: text})
	}()
}

func (a *Aggregator) set(adv Advice) {
	a.mu.Lock()
	a.advice = adv
	a.mu.Unlock()
}

// resolve records the terminal state. Only the first call takes effect.
func (a *Aggregator) resolve(adv Advice) {
	a.closed.Do(func() {
		a.set(adv)
		close(a.done)
	})
}

// Advice returns the current advisory state.
func (a *Aggregator) Advice() Advice {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.advice
}

// Wait blocks until the advice resolves or ctx is done, then returns the
// current state. It returns immediately while the session is incomplete.
func (a *Aggregator) Wait(ctx context.Context) Advice {
	if a.Advice().State == AdviceIdle {
		return a.Advice()
	}
	select {
	case <-a.done:
	case <-ctx.Done():
	}
	return a.Advice()
}

// Close cancels any request in flight. Its advice resolves to unavailable.
func (a *Aggregator) Close() {
	a.cancel()
	if a.Advice().State == AdvicePending {
		a.resolve(Advice{State: AdviceUnavailable, Err: context.Canceled})
	}
}

// #endregion aggregator
