package overlay

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/errpage/pkg/errinfo"
	"github.com/vango-dev/errpage/pkg/ssr"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastsErrors(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.Handler()(
		&errinfo.Structured{Message: "layout exploded", Stack: "Error: layout exploded\n..."},
		&ssr.Request{Method: "GET", URL: &url.URL{Path: "/boom"}},
	)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid message %q: %v", data, err)
	}
	if msg.Type != MessageError || msg.Message != "layout exploded" || msg.Path != "/boom" || msg.Method != "GET" {
		t.Errorf("message = %+v", msg)
	}
	if msg.ID == "" {
		t.Error("message has no id")
	}

	hub.Clear()
	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !strings.Contains(string(data), `"type":"clear"`) {
		t.Errorf("clear message = %s", data)
	}
}

func TestHub_ConcurrentNotify(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)
	defer conn.Close()
	waitForClients(t, hub, 1)

	const workers, perWorker = 32, 20
	stack := "Error: failed\n" + strings.Repeat("    at frame\n", 4096)
	handle := hub.Handler()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				handle(
					&errinfo.Structured{Message: "failed", Stack: stack},
					&ssr.Request{Method: "GET", URL: &url.URL{Path: "/boom"}},
				)
			}
		}()
	}

	for n := 0; n < workers*perWorker; n++ {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage after %d messages: %v", n, err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("message %d is not valid JSON: %v", n, err)
		}
		if msg.Stack != stack {
			t.Fatalf("message %d has a corrupted stack", n)
		}
	}
	wg.Wait()

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
}

func TestHub_RemovesDisconnectedClients(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_NonWebSocketRequest(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest("GET", DefaultPath, nil))
	if rec.Code < 400 {
		t.Errorf("status = %d, want an error status for plain HTTP", rec.Code)
	}
	if hub.ClientCount() != 0 {
		t.Error("plain HTTP request registered a client")
	}
}

func TestScript(t *testing.T) {
	if s := Script(""); !strings.Contains(s, DefaultPath) {
		t.Error("Script(\"\") should use DefaultPath")
	}
	if s := Script("/dev/ws"); !strings.Contains(s, "'/dev/ws'") {
		t.Errorf("Script did not embed custom path")
	}
}
