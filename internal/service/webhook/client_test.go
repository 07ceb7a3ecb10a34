package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zhouzirui/chat-widget/backend/internal/model/chat"
)

func TestSendMessagePostsPayload(t *testing.T) {
	var got chat.SendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode err: %v", err)
		}
		w.Write([]byte(`{"output":"Hi!"}`))
	}))
	defer srv.Close()

	reply, err := NewClient(srv.URL, srv.Client()).SendMessage(context.Background(), chat.SendRequest{
		SessionID: "s1",
		MessageID: "m1",
		ChatInput: "Hello",
	})
	if err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}
	if reply != "Hi!" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if got.Action != chat.ActionSendMessage || got.SessionID != "s1" || got.MessageID != "m1" || got.ChatInput != "Hello" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestExtractReplyPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{"output first", map[string]any{"output": "o", "text": "t", "message": "m"}, "o"},
		{"text second", map[string]any{"text": "t", "message": "m"}, "t"},
		{"message third", map[string]any{"message": "m"}, "m"},
		{"empty output skipped", map[string]any{"output": "", "text": "t"}, "t"},
		{"non-string ignored", map[string]any{"output": 42, "message": "m"}, "m"},
		{"none present", map[string]any{"reply": "r"}, FallbackReply},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractReply(tc.payload); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestSendMessageErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(error) bool
	}{
		{"non-2xx", http.StatusBadGateway, `{"output":"x"}`, func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.StatusCode == http.StatusBadGateway
		}},
		{"malformed body", http.StatusOK, `<html>oops</html>`, func(err error) bool {
			return errors.Is(err, ErrMalformedReply)
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, srv.Client()).SendMessage(context.Background(), chat.SendRequest{ChatInput: "x"})
			if !tc.wantErr(err) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestSendMessageTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL, srv.Client()).SendMessage(ctx, chat.SendRequest{ChatInput: "x"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestSendFeedbackPayload(t *testing.T) {
	var got chat.FeedbackRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, srv.Client()).SendFeedback(context.Background(), chat.FeedbackRequest{
		SessionID:     "s1",
		MessageID:     "a1",
		UserMessageID: "u1",
		FeedbackType:  chat.VoteDown,
	})
	if err != nil {
		t.Fatalf("SendFeedback err: %v", err)
	}
	if got.Action != chat.ActionFeedback || got.UserMessageID != "u1" || got.FeedbackType != chat.VoteDown {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestNoEndpoint(t *testing.T) {
	_, err := NewClient("", nil).SendMessage(context.Background(), chat.SendRequest{})
	if !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestSendMessageNonObjectJSONFallsBack(t *testing.T) {
	for _, body := range []string{`[1]`, `"hi"`, `null`, `42`, `{}`} {
		t.Run(body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			reply, err := NewClient(srv.URL, srv.Client()).SendMessage(context.Background(), chat.SendRequest{ChatInput: "x"})
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if reply != FallbackReply {
				t.Fatalf("expected fallback reply, got %q", reply)
			}
		})
	}
}
