package transport_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/ajayjoseph-creator/vibex-relay/pkg/transport"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

// newTestConnection dials a throwaway websocket server and wraps the client
// side in a running Connection.
func newTestConnection(t *testing.T, onClose transport.OnCloseHandler) *transport.Connection {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		// Hold the server side open, discarding whatever the client writes.
		for {
			if _, _, err := c.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	wsConn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("failed to dial test server: %v", err)
	}

	var wg sync.WaitGroup
	noopMessage := func(context.Context, uuid.UUID, []byte) {}
	conn := transport.NewConnection(ctx, &wg, wsConn, transport.ConnectionConfig{ReadTimeout: time.Minute}, noopMessage, onClose, newTestLogger())
	conn.Run()
	return conn
}

// A burst of Sends racing Close must never panic: the outbound channel stays
// open for the connection's whole lifetime, and closed connections drop
// messages silently.
func TestSendRacingCloseDoesNotPanic(t *testing.T) {
	conn := newTestConnection(t, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		conn.Close(nil)
	}()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				conn.Send([]byte(`{"event":"noop","payload":{}}`))
			}
		}()
	}
	wg.Wait()

	select {
	case <-conn.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not terminate after Close")
	}

	// The connection is fully closed; further sends are still safe no-ops.
	conn.Send([]byte(`{"event":"noop","payload":{}}`))
}

func TestCloseFiresOnCloseExactlyOnce(t *testing.T) {
	var closes atomic.Int32
	conn := newTestConnection(t, func(connID uuid.UUID, err error) {
		closes.Add(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn.Close(nil)
		}()
	}
	wg.Wait()
	<-conn.Done()

	if got := closes.Load(); got != 1 {
		t.Fatalf("expected onClose to fire once, fired %d times", got)
	}
}
