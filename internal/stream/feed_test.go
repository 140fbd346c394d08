package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/danielpatrickdp/selftest-engine/internal/landmark"
)

// #region helpers
type reading struct {
	N int `json:"n"`
}

// trackerServer sends each connection its batch of raw frames, then closes.
func trackerServer(t *testing.T, batches ...[]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		i := int(conns.Add(1)) - 1
		if i >= len(batches) {
			_, _, _ = c.Read(r.Context())
			return
		}
		for _, frame := range batches[i] {
			if err := c.Write(r.Context(), websocket.MessageText, []byte(frame)); err != nil {
				return
			}
		}
		c.Close(websocket.StatusNormalClosure, "")
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func next[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("feed closed early")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	var zero T
	return zero
}

// #endregion helpers

// #region feed-tests
func TestFeedDeliversInOrderAndSkipsGarbage(t *testing.T) {
	srv, _ := trackerServer(t, []string{`{"n":1}`, `not json`, `{"n":2}`, `{"n":3}`})

	f := Dial[reading](context.Background(), wsURL(srv), Options{ReconnectDelay: time.Hour})
	defer f.Close()

	for want := 1; want <= 3; want++ {
		if got := next(t, f.Messages()); got.N != want {
			t.Fatalf("got message %d, want %d", got.N, want)
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for f.Status() != StatusDisconnected && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if f.Status() != StatusDisconnected {
		t.Errorf("status = %s, want not connected", f.Status())
	}
	if recv, skipped := f.Stats(); recv != 3 || skipped != 1 {
		t.Errorf("stats = %d/%d, want 3/1", recv, skipped)
	}
}

func TestFeedReconnects(t *testing.T) {
	srv, conns := trackerServer(t, []string{`{"n":1}`}, []string{`{"n":2}`})

	f := Dial[reading](context.Background(), wsURL(srv), Options{ReconnectDelay: 10 * time.Millisecond})
	defer f.Close()

	if got := next(t, f.Messages()); got.N != 1 {
		t.Fatalf("first = %d", got.N)
	}
	if got := next(t, f.Messages()); got.N != 2 {
		t.Fatalf("after reconnect = %d", got.N)
	}
	if conns.Load() < 2 {
		t.Errorf("expected a second connection, got %d", conns.Load())
	}
}

func TestFeedUnreachableIsNotFatal(t *testing.T) {
	f := Dial[reading](context.Background(), "ws://127.0.0.1:1/none", Options{ReconnectDelay: 5 * time.Millisecond})

	deadline := time.Now().Add(2 * time.Second)
	for f.Status() != StatusDisconnected && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if f.Status() != StatusDisconnected {
		t.Fatalf("status = %s, want not connected", f.Status())
	}
	f.Close()
	if _, ok := <-f.Messages(); ok {
		t.Error("messages channel should be closed after Close")
	}
	if f.Status() != StatusClosed {
		t.Errorf("status after close = %s", f.Status())
	}
}

func TestFeedDecodesPoseMessages(t *testing.T) {
	srv, _ := trackerServer(t, []string{
		`{"status":"Tracking","leftHeel":{"x":0.4,"y":0.9},"rightToe":{"x":0.5,"y":0.9}}`,
	})
	f := Dial[landmark.PoseMessage](context.Background(), wsURL(srv), Options{ReconnectDelay: time.Hour})
	defer f.Close()

	msg := next(t, f.Messages())
	if p, ok := msg.Frame.Get(landmark.LeftHeel); !ok || p.X != 0.4 {
		t.Errorf("left heel = %+v %v", p, ok)
	}
}

// #endregion feed-tests
