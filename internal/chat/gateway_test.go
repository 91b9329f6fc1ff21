package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// gatewayServer serves one websocket connection and writes the given
// frames before holding the connection open.
func gatewayServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// Keep connection open
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestGateway_DeliversMessageCreate(t *testing.T) {
	server := gatewayServer(t,
		`{"t":"READY","d":{}}`,
		`{"t":"MESSAGE_CREATE","d":{"id":"500","channel_id":"chan-1","content":"buying $AAPL",
		   "timestamp":"2026-08-10T12:00:00Z","author":{"id":"u1","username":"alice"}}}`,
	)
	defer server.Close()

	rest := NewRESTClient("http://unused", "token", WithGuild("g"))
	gw, err := NewGateway(context.Background(), wsURL(server), rest, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	defer gw.Close()

	select {
	case msg := <-gw.Messages():
		if msg.ID != "500" || msg.ChannelID != "chan-1" {
			t.Errorf("msg = %+v", msg)
		}
		if msg.AuthorName != "alice" {
			t.Errorf("AuthorName = %s", msg.AuthorName)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
}

func TestGateway_IgnoresOtherEvents(t *testing.T) {
	server := gatewayServer(t,
		`{"t":"TYPING_START","d":{}}`,
		`{"t":"PRESENCE_UPDATE","d":{}}`,
		`not even json`,
		`{"t":"MESSAGE_CREATE","d":{"id":"7","channel_id":"c","content":"hi",
		   "timestamp":"2026-08-10T12:00:00Z","author":{"id":"u1","username":"bob"}}}`,
	)
	defer server.Close()

	rest := NewRESTClient("http://unused", "token")
	gw, err := NewGateway(context.Background(), wsURL(server), rest, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	defer gw.Close()

	select {
	case msg := <-gw.Messages():
		if msg.ID != "7" {
			t.Errorf("msg.ID = %s, want 7 (only message events surface)", msg.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
}

func TestGateway_CloseIsIdempotent(t *testing.T) {
	server := gatewayServer(t)
	defer server.Close()

	gw, err := NewGateway(context.Background(), wsURL(server), NewRESTClient("http://unused", ""), nil, nil)
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}

	if err := gw.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	// Channel closes after shutdown.
	if _, ok := <-gw.Messages(); ok {
		t.Error("message channel should be closed")
	}
}

func TestGateway_DialFailure(t *testing.T) {
	if _, err := NewGateway(context.Background(), "ws://127.0.0.1:1", NewRESTClient("", ""), nil, nil); err == nil {
		t.Fatal("expected dial error")
	}
}
