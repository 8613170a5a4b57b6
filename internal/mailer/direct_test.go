package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDirectStrategyPostsEmailAPIShape(t *testing.T) {
	var got emailAPIPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewDirectStrategy(server.URL, 0)
	err := s.Send(context.Background(), &Message{
		From:    "noreply@example.test",
		To:      "dev@example.test",
		Subject: "hello",
		HTML:    "<p>hi</p>",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got.Remetente != "noreply@example.test" {
		t.Errorf("remetente = %q", got.Remetente)
	}
	if got.Destinatario != "dev@example.test" {
		t.Errorf("destinatario = %q", got.Destinatario)
	}
	if got.Subject != "hello" || got.Message != "<p>hi</p>" {
		t.Errorf("payload = %+v", got)
	}
}

func TestDirectStrategyRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s := NewDirectStrategy(server.URL, 0)
	if err := s.Send(context.Background(), &Message{To: "dev@example.test"}); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestProxyStrategyFallsThroughRelays(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// Both relay prefixes point at the same test server; the first answer is
	// a refusal, the second succeeds.
	s := NewProxyStrategy("", []string{server.URL + "/a/", server.URL + "/b/"}, 0)
	if err := s.Send(context.Background(), &Message{To: "dev@example.test"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if hits != 2 {
		t.Errorf("hits = %d, want 2", hits)
	}
}

func TestProxyWrapEscapesQueryTargets(t *testing.T) {
	s := NewProxyStrategy("https://api.example.test/send?x=1", nil, 0)
	wrapped := s.wrap("https://relay.example.test/raw?url=")
	if wrapped != "https://relay.example.test/raw?url=https%3A%2F%2Fapi.example.test%2Fsend%3Fx%3D1" {
		t.Errorf("wrapped = %q", wrapped)
	}
	plain := s.wrap("https://relay.example.test/fetch/")
	if plain != "https://relay.example.test/fetch/https://api.example.test/send?x=1" {
		t.Errorf("plain = %q", plain)
	}
}
