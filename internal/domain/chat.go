package domain

import (
	"github.com/oklog/ulid/v2"
)

// ChatMessage is one exchange stored by the backend: a human utterance and
// the AI response to it.
type ChatMessage struct {
	Human string `json:"human"`
	AI    string `json:"ai"`
}

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
	RoleError Role = "error"
)

// EntryStatus tracks an entry through an optimistic send.
type EntryStatus string

const (
	StatusPending   EntryStatus = "pending"
	StatusConfirmed EntryStatus = "confirmed"
	StatusFailed    EntryStatus = "failed"
)

// TranscriptEntry is one displayed line of a node's chat.
type TranscriptEntry struct {
	ID     string      `json:"id"`
	Role   Role        `json:"role"`
	Text   string      `json:"text"`
	Status EntryStatus `json:"status"`
}

// NewTranscriptEntry creates an entry with a fresh, time-ordered id.
func NewTranscriptEntry(role Role, text string, status EntryStatus) TranscriptEntry {
	return TranscriptEntry{
		ID:     ulid.Make().String(),
		Role:   role,
		Text:   text,
		Status: status,
	}
}

// TranscriptFromHistory flattens backend history into display entries,
// keeping backend order. Empty halves are skipped.
func TranscriptFromHistory(history []ChatMessage) []TranscriptEntry {
	entries := make([]TranscriptEntry, 0, len(history)*2)
	for _, msg := range history {
		if msg.Human != "" {
			entries = append(entries, NewTranscriptEntry(RoleHuman, msg.Human, StatusConfirmed))
		}
		if msg.AI != "" {
			entries = append(entries, NewTranscriptEntry(RoleAI, msg.AI, StatusConfirmed))
		}
	}
	return entries
}
