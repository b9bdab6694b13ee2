package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/protocol"
)

func TestInMemorySessionService_AddAndGet(t *testing.T) {
	svc := NewInMemorySessionService()
	ctx := context.Background()

	if err := svc.AddMessage(ctx, "thread-1", protocol.NewUserMessage("first")); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddMessage(ctx, "thread-1", protocol.NewAssistantMessage("second", nil)); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddMessage(ctx, "thread-2", protocol.NewUserMessage("other thread")); err != nil {
		t.Fatal(err)
	}

	msgs, err := svc.GetMessages(ctx, "thread-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[1].Content != "second" {
		t.Errorf("message order wrong: %q, %q", msgs[0].Content, msgs[1].Content)
	}

	other, err := svc.GetMessages(ctx, "thread-2")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 1 {
		t.Errorf("thread-2 has %d messages, want 1", len(other))
	}
}

func TestInMemorySessionService_EmptyThreadID(t *testing.T) {
	svc := NewInMemorySessionService()
	if err := svc.AddMessage(context.Background(), "", protocol.NewUserMessage("x")); err == nil {
		t.Error("expected error for empty thread ID")
	}
}

func TestInMemorySessionService_GetReturnsCopy(t *testing.T) {
	svc := NewInMemorySessionService()
	ctx := context.Background()

	if err := svc.AddMessage(ctx, "t", protocol.NewUserMessage("original")); err != nil {
		t.Fatal(err)
	}

	msgs, _ := svc.GetMessages(ctx, "t")
	msgs[0] = protocol.NewUserMessage("mutated")

	again, _ := svc.GetMessages(ctx, "t")
	if again[0].Content != "original" {
		t.Error("stored history was mutated through the returned slice")
	}
}

func TestInMemorySessionService_ClearThread(t *testing.T) {
	svc := NewInMemorySessionService()
	ctx := context.Background()

	_ = svc.AddMessage(ctx, "t", protocol.NewUserMessage("hello"))
	if err := svc.ClearThread(ctx, "t"); err != nil {
		t.Fatal(err)
	}

	msgs, err := svc.GetMessages(ctx, "t")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages after clear, want 0", len(msgs))
	}
}

func TestInMemorySessionService_ConcurrentWrites(t *testing.T) {
	svc := NewInMemorySessionService()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = svc.AddMessage(ctx, "shared", protocol.NewUserMessage(fmt.Sprintf("msg %d", n)))
		}(i)
	}
	wg.Wait()

	msgs, err := svc.GetMessages(ctx, "shared")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 20 {
		t.Errorf("got %d messages, want 20", len(msgs))
	}
}

func TestNewSessionService(t *testing.T) {
	svc, err := NewSessionService(&config.MemoryConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, ok := svc.(*InMemorySessionService); !ok {
		t.Errorf("got %T, want *InMemorySessionService", svc)
	}

	if _, err := NewSessionService(&config.MemoryConfig{Backend: "cassandra"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
