package assistant

import (
	"context"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/chat-widget/backend/internal/storage"
)

type fakeChatModel struct {
	mu     sync.Mutex
	reply  string
	inputs [][]*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(f.reply, nil)}), nil
}

func (f *fakeChatModel) BindTools(_ []*schema.ToolInfo) error { return nil }

func TestReplyEchoWithoutModel(t *testing.T) {
	svc, err := NewService(context.Background(), nil, nil, "")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if !svc.Echo() {
		t.Fatal("expected echo mode")
	}

	reply, err := svc.Reply(context.Background(), "s1", "ping")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply != "You said: ping" {
		t.Fatalf("unexpected echo %q", reply)
	}
}

func TestReplyReplaysHistory(t *testing.T) {
	ctx := context.Background()
	fake := &fakeChatModel{reply: "hello back"}
	scope := storage.NewMemoryScope()

	svc, err := NewService(ctx, fake, scope, "be terse")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := svc.Reply(ctx, "s1", "first"); err != nil {
		t.Fatalf("first Reply: %v", err)
	}
	reply, err := svc.Reply(ctx, "s1", "second")
	if err != nil {
		t.Fatalf("second Reply: %v", err)
	}
	if reply != "hello back" {
		t.Fatalf("unexpected reply %q", reply)
	}

	if len(fake.inputs) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(fake.inputs))
	}
	// system + user/assistant history + query
	second := fake.inputs[1]
	if len(second) != 4 {
		t.Fatalf("expected 4 prompt messages, got %d", len(second))
	}
	if second[0].Role != schema.System || second[0].Content != "be terse" {
		t.Fatalf("unexpected system message %+v", second[0])
	}
	if second[1].Content != "first" || second[3].Content != "second" {
		t.Fatalf("unexpected prompt %+v", second)
	}

	turns, err := svc.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("expected 4 stored turns, got %d", len(turns))
	}
}

func TestHistoryIsCapped(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(ctx, &fakeChatModel{reply: "ok"}, storage.NewMemoryScope(), "")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	for i := 0; i < HistoryLimit; i++ {
		if _, err := svc.Reply(ctx, "s1", "msg"); err != nil {
			t.Fatalf("Reply: %v", err)
		}
	}

	turns, _ := svc.History(ctx, "s1")
	if len(turns) != HistoryLimit {
		t.Fatalf("expected history capped at %d, got %d", HistoryLimit, len(turns))
	}
}
