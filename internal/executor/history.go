package executor

import (
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/workflowd/internal/llm"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// HistoryKey identifies one conversation: an agent working one issue.
type HistoryKey struct {
	Agent workflow.Agent
	Issue int
}

func (k HistoryKey) String() string {
	return fmt.Sprintf("%s/%d", k.Agent, k.Issue)
}

// HistoryStore holds conversation history per key. Implementations must
// support concurrent access for different keys; concurrent appends for the
// same key are the caller's responsibility to serialize.
type HistoryStore interface {
	// Get returns a copy of the stored messages for key.
	Get(key HistoryKey) []llm.Message

	// Append adds messages to the history for key.
	Append(key HistoryKey, messages ...llm.Message)

	// Clear removes the history for key.
	Clear(key HistoryKey)
}

// MemoryHistoryStore is the default in-process HistoryStore.
type MemoryHistoryStore struct {
	mu       sync.RWMutex
	messages map[HistoryKey][]llm.Message
}

// NewMemoryHistoryStore creates an empty store.
func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{messages: make(map[HistoryKey][]llm.Message)}
}

// Get implements HistoryStore.
func (s *MemoryHistoryStore) Get(key HistoryKey) []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.messages[key]
	out := make([]llm.Message, len(stored))
	copy(out, stored)
	return out
}

// Append implements HistoryStore.
func (s *MemoryHistoryStore) Append(key HistoryKey, messages ...llm.Message) {
	s.mu.Lock()
	s.messages[key] = append(s.messages[key], messages...)
	s.mu.Unlock()
}

// Clear implements HistoryStore.
func (s *MemoryHistoryStore) Clear(key HistoryKey) {
	s.mu.Lock()
	delete(s.messages, key)
	s.mu.Unlock()
}

// maxVerbatimMessages is the history length above which CompactMessages
// starts eliding the middle of the conversation.
const maxVerbatimMessages = 4

// CompactMessages bounds a message list: when it holds more than four
// entries, the first entry and the last two stay verbatim and everything in
// between collapses into one synthetic summary noting how many exchanges
// were elided. Shorter lists are returned unchanged, so compaction is
// idempotent on an already-short history.
func CompactMessages(messages []llm.Message) []llm.Message {
	if len(messages) <= maxVerbatimMessages {
		return messages
	}
	elided := len(messages) - 3
	out := make([]llm.Message, 0, maxVerbatimMessages)
	out = append(out, messages[0])
	out = append(out, llm.Message{
		Role:    llm.RoleAssistant,
		Content: fmt.Sprintf("[%d earlier exchanges elided to stay within the context budget]", elided),
	})
	out = append(out, messages[len(messages)-2:]...)
	return out
}
