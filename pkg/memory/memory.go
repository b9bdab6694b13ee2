// Package memory stores per-thread conversation history so repeated
// research calls with the same thread ID build on earlier findings.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/biomedmcp/biomed/pkg/config"
	"github.com/biomedmcp/biomed/pkg/protocol"
)

// SessionService persists message history keyed by thread ID.
type SessionService interface {
	AddMessage(ctx context.Context, threadID string, msg *protocol.Message) error

	GetMessages(ctx context.Context, threadID string) ([]*protocol.Message, error)

	ClearThread(ctx context.Context, threadID string) error

	Close() error
}

// NewSessionService builds the backend named by the config.
func NewSessionService(cfg *config.MemoryConfig) (SessionService, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewInMemorySessionService(), nil
	case "redis":
		return NewRedisSessionService(cfg)
	default:
		return nil, fmt.Errorf("unknown memory backend: %s", cfg.Backend)
	}
}

// InMemorySessionService keeps history in process memory. Suitable for
// stdio serving where the process lifetime bounds the session.
type InMemorySessionService struct {
	mu      sync.RWMutex
	threads map[string][]*protocol.Message
}

func NewInMemorySessionService() *InMemorySessionService {
	return &InMemorySessionService{
		threads: make(map[string][]*protocol.Message),
	}
}

func (s *InMemorySessionService) AddMessage(_ context.Context, threadID string, msg *protocol.Message) error {
	if threadID == "" {
		return fmt.Errorf("thread ID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[threadID] = append(s.threads[threadID], msg)
	return nil
}

func (s *InMemorySessionService) GetMessages(_ context.Context, threadID string) ([]*protocol.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.threads[threadID]
	out := make([]*protocol.Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *InMemorySessionService) ClearThread(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}

func (s *InMemorySessionService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads = make(map[string][]*protocol.Message)
	return nil
}
