// Package stream receives landmark messages from the external tracker over
// a websocket and delivers them in arrival order.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// #region status

// Status is the connection state of a Feed.
type Status int32

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusDisconnected
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "not connected"
	case StatusClosed:
		return "closed"
	}
	return "unknown"
}

// #endregion status

// #region feed

// Options tunes a Feed.
type Options struct {
	ReconnectDelay time.Duration // wait between connection attempts
	Buffer         int           // channel capacity, 0 for unbuffered
	ReadLimit      int64         // max message size, 0 for the library default
}

// Feed is a self-reconnecting subscription to one tracker endpoint. Loss of
// connection is never fatal: the feed reports StatusDisconnected and keeps
// retrying until closed.
type Feed[T any] struct {
	url  string
	opts Options
	log  *logrus.Entry

	msgs   chan T
	status atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	received atomic.Int64
	skipped  atomic.Int64
}

// Dial starts a feed for url. It returns immediately; the connection is
// established in the background and the feed stops when ctx is done or
// Close is called.
func Dial[T any](ctx context.Context, url string, opts Options) *Feed[T] {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	f := &Feed[T]{
		url:    url,
		opts:   opts,
		log:    logrus.WithFields(logrus.Fields{"component": "stream", "url": url}),
		msgs:   make(chan T, opts.Buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go f.loop(ctx)
	return f
}

// Messages returns the ordered message channel. It is closed when the feed
// stops.
func (f *Feed[T]) Messages() <-chan T { return f.msgs }

// Status returns the current connection state.
func (f *Feed[T]) Status() Status { return Status(f.status.Load()) }

// Stats returns the number of delivered and skipped (undecodable) messages.
func (f *Feed[T]) Stats() (received, skipped int64) {
	return f.received.Load(), f.skipped.Load()
}

// Close stops the feed and waits for its goroutine to exit.
func (f *Feed[T]) Close() {
	f.once.Do(f.cancel)
	<-f.done
}

// #endregion feed

// #region loop

func (f *Feed[T]) loop(ctx context.Context) {
	defer func() {
		f.setStatus(StatusClosed)
		close(f.msgs)
		close(f.done)
	}()

	for {
		err := f.session(ctx)
		if ctx.Err() != nil {
			return
		}
		f.setStatus(StatusDisconnected)
		f.log.WithError(err).Warn("tracker stream unavailable, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.opts.ReconnectDelay):
		}
	}
}

// session runs one connection until it fails.
func (f *Feed[T]) session(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.CloseNow()
	if f.opts.ReadLimit > 0 {
		conn.SetReadLimit(f.opts.ReadLimit)
	}

	f.setStatus(StatusConnected)
	f.log.Info("tracker stream connected")
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return errors.New("closed by tracker")
			}
			return err
		}
		if typ != websocket.MessageText {
			f.skipped.Add(1)
			continue
		}
		var msg T
		if err := json.Unmarshal(data, &msg); err != nil {
			f.skipped.Add(1)
			f.log.WithError(err).Debug("skipping undecodable message")
			continue
		}
		select {
		case f.msgs <- msg:
			f.received.Add(1)
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return ctx.Err()
		}
	}
}

func (f *Feed[T]) setStatus(s Status) {
	if Status(f.status.Swap(int32(s))) != s {
		f.log.WithField("status", s.String()).Debug("stream status changed")
	}
}

// #endregion loop
