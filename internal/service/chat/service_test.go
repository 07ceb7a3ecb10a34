package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/zhouzirui/chat-widget/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/chat-widget/backend/internal/service/chat"
	"github.com/zhouzirui/chat-widget/backend/internal/service/session"
	"github.com/zhouzirui/chat-widget/backend/internal/storage"
)

func newService(t *testing.T) (*chatservice.Service, *storage.MemoryScope) {
	t.Helper()
	scope := storage.NewMemoryScope()
	svc := chatservice.NewService(scope, session.NewManager(scope))
	svc.Load(context.Background())
	return svc, scope
}

func msg(id string, sender chat.Sender) chat.Message {
	return chat.Message{ID: id, Content: id, Sender: sender, Timestamp: time.Now().UTC()}
}

func ids(transcript chat.Transcript) []string {
	out := make([]string, 0, len(transcript))
	for _, m := range transcript {
		out = append(out, m.ID)
	}
	return out
}

func TestAppendPersistsAndReloads(t *testing.T) {
	svc, scope := newService(t)
	ctx := context.Background()

	if err := svc.Append(ctx, msg("u1", chat.SenderUser)); err != nil {
		t.Fatalf("Append err: %v", err)
	}
	reply := msg("a1", chat.SenderAI)
	reply.ReplyTo = "u1"
	if err := svc.Append(ctx, reply); err != nil {
		t.Fatalf("Append err: %v", err)
	}

	reloaded := chatservice.NewService(scope, nil)
	reloaded.Load(ctx)
	got := reloaded.Transcript()
	if len(got) != 2 || got[0].ID != "u1" || got[1].ReplyTo != "u1" {
		t.Fatalf("unexpected reloaded transcript: %+v", got)
	}
}

func TestAppendRejectsDuplicateAndDanglingReply(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_ = svc.Append(ctx, msg("u1", chat.SenderUser))
	if err := svc.Append(ctx, msg("u1", chat.SenderUser)); err != chatservice.ErrDuplicateMessage {
		t.Fatalf("expected ErrDuplicateMessage, got %v", err)
	}

	dangling := msg("a1", chat.SenderAI)
	dangling.ReplyTo = "nope"
	if err := svc.Append(ctx, dangling); err != chatservice.ErrUnknownReply {
		t.Fatalf("expected ErrUnknownReply, got %v", err)
	}
}

func TestRemoveRetryPair(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_ = svc.Append(ctx, msg("u1", chat.SenderUser))
	_ = svc.Append(ctx, msg("err1", chat.SenderAI))

	removed, err := svc.RemoveRetryPair(ctx, "err1")
	if err != nil {
		t.Fatalf("RemoveRetryPair err: %v", err)
	}
	if !removed {
		t.Fatal("expected pair to be removed")
	}
	if got := svc.Transcript(); len(got) != 0 {
		t.Fatalf("expected empty transcript, got %v", ids(got))
	}
}

func TestRemoveRetryPairKeepsSurroundingMessages(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for _, id := range []string{"u1", "a1", "u2", "err2", "u3"} {
		_ = svc.Append(ctx, msg(id, chat.SenderUser))
	}

	if removed, _ := svc.RemoveRetryPair(ctx, "err2"); !removed {
		t.Fatal("expected removal")
	}
	got := ids(svc.Transcript())
	want := []string{"u1", "a1", "u3"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestRemoveRetryPairFirstOrMissingIsNoop(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_ = svc.Append(ctx, msg("err0", chat.SenderAI))
	_ = svc.Append(ctx, msg("u1", chat.SenderUser))

	for _, id := range []string{"err0", "missing"} {
		removed, err := svc.RemoveRetryPair(ctx, id)
		if err != nil || removed {
			t.Fatalf("expected no-op for %s, got removed=%v err=%v", id, removed, err)
		}
	}
	if got := svc.Transcript(); len(got) != 2 {
		t.Fatalf("transcript changed: %v", ids(got))
	}
}

func TestSetFeedbackLastWriteWins(t *testing.T) {
	svc, scope := newService(t)
	ctx := context.Background()

	_ = svc.SetFeedback(ctx, "a1", chat.VoteUp)
	_ = svc.SetFeedback(ctx, "a1", chat.VoteDown)

	if got := svc.Feedback()["a1"]; got != chat.VoteDown {
		t.Fatalf("expected down, got %s", got)
	}

	reloaded := chatservice.NewService(scope, nil)
	reloaded.Load(ctx)
	if got := reloaded.Feedback(); len(got) != 1 || got["a1"] != chat.VoteDown {
		t.Fatalf("unexpected persisted feedback: %v", got)
	}
}

func TestClearAllErasesStateAndResetsSession(t *testing.T) {
	scope := storage.NewMemoryScope()
	sessions := session.NewManager(scope)
	svc := chatservice.NewService(scope, sessions)
	ctx := context.Background()

	before, _ := sessions.ID(ctx)
	_ = svc.Append(ctx, msg("u1", chat.SenderUser))
	_ = svc.SetFeedback(ctx, "a1", chat.VoteUp)

	newID, err := svc.ClearAll(ctx)
	if err != nil {
		t.Fatalf("ClearAll err: %v", err)
	}
	if newID == "" || newID == before {
		t.Fatalf("expected a fresh session id, got %q (before %q)", newID, before)
	}
	if len(svc.Transcript()) != 0 || len(svc.Feedback()) != 0 {
		t.Fatal("expected collections to be empty")
	}
	for _, key := range []string{chatservice.MessagesKey, chatservice.FeedbackKey} {
		if _, ok, _ := scope.Get(ctx, key); ok {
			t.Fatalf("expected %s to be erased", key)
		}
	}
}

func TestLoadToleratesCorruptStorage(t *testing.T) {
	scope := storage.NewMemoryScope()
	ctx := context.Background()
	_ = scope.Set(ctx, chatservice.MessagesKey, []byte("{not json"))
	_ = scope.Set(ctx, chatservice.FeedbackKey, []byte("null"))

	svc := chatservice.NewService(scope, nil)
	svc.Load(ctx)
	if len(svc.Transcript()) != 0 || len(svc.Feedback()) != 0 {
		t.Fatal("expected empty collections for corrupt storage")
	}
	if err := svc.SetFeedback(ctx, "a1", chat.VoteUp); err != nil {
		t.Fatalf("SetFeedback after corrupt load err: %v", err)
	}
}
