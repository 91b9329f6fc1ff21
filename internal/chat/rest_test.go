package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRESTClient_FetchAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels/chan-1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("after"); got != "100" {
			t.Errorf("after = %s, want 100", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bot token-abc" {
			t.Errorf("Authorization = %s", got)
		}
		// Newest-first, the way the platform pages.
		w.Write([]byte(`[
			{"id":"300","channel_id":"chan-1","content":"later","timestamp":"2026-08-10T12:01:00Z",
			 "author":{"id":"u1","username":"alice","global_name":"Alice"}},
			{"id":"200","channel_id":"chan-1","content":"earlier","timestamp":"2026-08-10T12:00:00Z",
			 "author":{"id":"u2","username":"bob"}}
		]`))
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, "token-abc", WithGuild("guild-1"))
	msgs, err := client.FetchAfter(context.Background(), "chan-1", "100", 100)
	if err != nil {
		t.Fatalf("FetchAfter failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}

	// Oldest first, despite the newest-first wire order.
	if msgs[0].ID != "200" || msgs[1].ID != "300" {
		t.Errorf("order = %s, %s; want 200, 300", msgs[0].ID, msgs[1].ID)
	}
	if msgs[0].AuthorName != "bob" {
		t.Errorf("AuthorName = %s, want bob (username fallback)", msgs[0].AuthorName)
	}
	if msgs[1].AuthorName != "Alice" {
		t.Errorf("AuthorName = %s, want Alice (global name preferred)", msgs[1].AuthorName)
	}
	if want := "https://discord.com/channels/guild-1/chan-1/200"; msgs[0].Permalink != want {
		t.Errorf("Permalink = %s, want %s", msgs[0].Permalink, want)
	}
}

func TestRESTClient_FetchAfterUnknownChannel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, "token")
	msgs, err := client.FetchAfter(context.Background(), "gone", "", 100)
	if err != nil {
		t.Fatalf("FetchAfter on 404 should not error, got %v", err)
	}
	if msgs != nil {
		t.Errorf("expected empty page, got %d messages", len(msgs))
	}
}

func TestRESTClient_AgentFlags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"1","channel_id":"c","content":"hello","timestamp":"2026-08-10T12:00:00Z",
			 "author":{"id":"bot-1","username":"ponybot","bot":true}},
			{"id":"2","channel_id":"c","content":"hey @ponybot check this","timestamp":"2026-08-10T12:00:01Z",
			 "author":{"id":"u1","username":"alice"}},
			{"id":"3","channel_id":"c","content":"ping","timestamp":"2026-08-10T12:00:02Z",
			 "author":{"id":"u2","username":"bob"},"mentions":[{"id":"bot-1"}]}
		]`))
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, "token", WithAgent("bot-1", "@ponybot"))
	msgs, err := client.FetchAfter(context.Background(), "c", "", 100)
	if err != nil {
		t.Fatalf("FetchAfter failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len(msgs) = %d, want 3", len(msgs))
	}

	if !msgs[0].AuthorIsAgent {
		t.Error("bot-authored message should be flagged AuthorIsAgent")
	}
	if !msgs[1].AddressesAgent {
		t.Error("handle mention in text should set AddressesAgent")
	}
	if !msgs[2].AddressesAgent {
		t.Error("ID mention should set AddressesAgent")
	}
	if msgs[1].AuthorIsAgent || msgs[2].AuthorIsAgent {
		t.Error("human-authored messages must not be flagged AuthorIsAgent")
	}
}

func TestRESTClient_Post(t *testing.T) {
	var posted atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		posted.Store(payload["content"])
		w.Write([]byte(`{"id":"999"}`))
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, "token")
	if err := client.Post(context.Background(), "chan-1", "logged ticker: AAPL from user: alice"); err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if got := posted.Load(); got != "logged ticker: AAPL from user: alice" {
		t.Errorf("posted content = %v", got)
	}
}

func TestRESTClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, "token", WithMaxRetries(3), WithRetryDelay(time.Millisecond))
	if _, err := client.FetchAfter(context.Background(), "c", "", 100); err != nil {
		t.Fatalf("FetchAfter should succeed after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRESTClient_GivesUpAfterMaxRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewRESTClient(server.URL, "token", WithMaxRetries(1), WithRetryDelay(time.Millisecond))
	if _, err := client.FetchAfter(context.Background(), "c", "", 100); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}
