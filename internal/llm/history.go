// File: internal/llm/history.go
package llm

import "sync"

// Roles used in the chat transcript. The backend wire format calls the
// assistant role "model".
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one role-tagged turn in the conversation transcript.
type Message struct {
	Role    string
	Content string
}

// History is the bounded rolling conversation transcript owned by the request
// layer. It keeps at most maxExchanges user/model pairs; when the bound is
// exceeded the oldest entries are evicted first. It is never persisted.
type History struct {
	mu           sync.Mutex
	maxExchanges int
	entries      []Message
}

// NewHistory creates a history bounded to the given number of exchanges.
func NewHistory(maxExchanges int) *History {
	if maxExchanges <= 0 {
		maxExchanges = 10
	}
	return &History{maxExchanges: maxExchanges}
}

// Append records one completed exchange. Callers pass the textual form of the
// user turn; image payloads must already be reduced to a marker so large
// blobs never accumulate here.
func (h *History) Append(userTurn, modelTurn string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries,
		Message{Role: RoleUser, Content: userTurn},
		Message{Role: RoleModel, Content: modelTurn},
	)

	if max := h.maxExchanges * 2; len(h.entries) > max {
		h.entries = append([]Message(nil), h.entries[len(h.entries)-max:]...)
	}
}

// Entries returns a copy of the current transcript, oldest first.
func (h *History) Entries() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.entries...)
}

// Len returns the number of stored messages (two per exchange).
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear drops the whole transcript.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}
