package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-hail-client/internal/adapter/codec"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	ws "github.com/Temutjin2k/ride-hail-client/pkg/wsHub"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type recordingRouter struct {
	mu     sync.Mutex
	events []models.PollEvents
}

func (r *recordingRouter) Route(_ context.Context, events models.PollEvents) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events)
	return nil
}

func (r *recordingRouter) received() []models.PollEvents {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.PollEvents(nil), r.events...)
}

// pushServer sends frames to every connection it accepts and records the
// Authorization headers it saw.
func pushServer(t *testing.T, frames ...string) (*httptest.Server, *[]string, *sync.Mutex) {
	t.Helper()

	var (
		mu      sync.Mutex
		headers []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = append(headers, r.Header.Get("Authorization"))
		mu.Unlock()

		conn, err := ws.Upgrade(w, r)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// hold the connection until the client leaves
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return srv, &headers, &mu
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestListenerRoutesFrames(t *testing.T) {
	msg, err := codec.EncodeMessages(models.PollEvents{CallAccepted: &models.CallAccepted{From: "0109999", Number: 3}})
	require.NoError(t, err)

	srv, headers, mu := pushServer(t,
		`{"status":0,"message":`+string(msg)+`}`,
		`not json`,
		`{"status":0,"message":"nothing"}`,
	)

	router := &recordingRouter{}
	l := NewListener(wsURL(srv), func() string { return "tok" }, router, 10*time.Millisecond, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Listen(ctx) }()

	require.Eventually(t, func() bool { return len(router.received()) >= 2 }, 2*time.Second, 10*time.Millisecond)

	got := router.received()
	require.Equal(t, &models.CallAccepted{From: "0109999", Number: 3}, got[0].CallAccepted)
	require.True(t, got[1].Empty())

	mu.Lock()
	require.Equal(t, "Bearer tok", (*headers)[0])
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListenerReconnects(t *testing.T) {
	var (
		mu    sync.Mutex
		dials int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		dials++
		mu.Unlock()

		conn, err := ws.Upgrade(w, r)
		if err != nil {
			return
		}
		// drop the connection right away
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	l := NewListener(wsURL(srv), nil, &recordingRouter{}, 5*time.Millisecond, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Listen(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dials >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestListenerStopsWhileServerUnreachable(t *testing.T) {
	l := NewListener("ws://127.0.0.1:1/events", nil, &recordingRouter{}, time.Hour, logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, l.Listen(ctx), context.DeadlineExceeded)
}
