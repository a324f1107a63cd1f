package domain

import (
	"context"
	"strings"
	"time"
)

// DefaultConversationTitle is used until the first user message arrives.
const DefaultConversationTitle = "New conversation"

// MaxConversations is how many conversations are kept by default; older ones are pruned.
const MaxConversations = 50

// Entry roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationEntry is one turn: the user's text, or the assistant's messages.
type ConversationEntry struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation holds an ordered sequence of entries.
type Conversation struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Entries   []ConversationEntry `json:"entries,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// ConversationStore persists conversations. Implementations must be safe for
// concurrent use.
type ConversationStore interface {
	Create(ctx context.Context) (*Conversation, error)
	Get(ctx context.Context, id string) (*Conversation, error)
	// List returns conversations without entries, most recently updated first.
	List(ctx context.Context) ([]Conversation, error)
	// Append adds entries and retitles the conversation on its first user entry.
	Append(ctx context.Context, id string, entries ...ConversationEntry) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	// Prune deletes all but the keep most recently updated conversations.
	Prune(ctx context.Context, keep int) (int, error)
}

// ConversationTitle derives a title from the first user message: its first six
// space-separated words, with "..." appended when more follow.
func ConversationTitle(first string) string {
	words := strings.Split(first, " ")
	if len(words) <= 6 {
		return first
	}
	return strings.Join(words[:6], " ") + "..."
}
