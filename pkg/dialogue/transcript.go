package dialogue

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"dtplanner/pkg/domain"
)

// Message is one utterance in an interview.
type Message struct {
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

// Transcript records one consultant/expert interview. The expert is fixed at
// construction, messages are append-only, and references only grow.
// Safe for concurrent use.
type Transcript struct {
	mu         sync.RWMutex
	expert     domain.ExpertPersona
	messages   []Message
	references map[string]string
}

// NewTranscript starts an empty transcript for expert.
func NewTranscript(expert domain.ExpertPersona) *Transcript {
	return &Transcript{
		expert:     expert,
		messages:   make([]Message, 0),
		references: make(map[string]string),
	}
}

// Expert returns the interviewed persona.
func (t *Transcript) Expert() domain.ExpertPersona {
	return t.expert
}

// Append adds a message at the end of the transcript.
func (t *Transcript) Append(speaker, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, Message{Speaker: speaker, Content: content})
}

// MergeReferences folds refs (url -> excerpt) into the transcript.
// An existing URL is overwritten by the newer excerpt.
func (t *Transcript) MergeReferences(refs map[string]string) {
	if len(refs) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	maps.Copy(t.references, refs)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Count returns how many messages speaker has contributed.
func (t *Transcript) Count(speaker string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for i := range t.messages {
		if t.messages[i].Speaker == speaker {
			n++
		}
	}
	return n
}

// Last returns the most recent message from speaker.
func (t *Transcript) Last(speaker string) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Speaker == speaker {
			return t.messages[i], true
		}
	}
	return Message{}, false
}

// Messages returns a copy of the message list.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// References returns a copy of the reference map.
func (t *Transcript) References() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.references)
}

// Snapshot returns an independent deep copy.
func (t *Transcript) Snapshot() *Transcript {
	t.mu.RLock()
	defer t.mu.RUnlock()
	msgs := make([]Message, len(t.messages))
	copy(msgs, t.messages)
	return &Transcript{
		expert:     t.expert,
		messages:   msgs,
		references: maps.Clone(t.references),
	}
}

// serializedTranscript is the persisted form of a Transcript.
type serializedTranscript struct {
	Expert     domain.ExpertPersona `json:"expert"`
	Messages   []Message            `json:"messages"`
	References map[string]string    `json:"references,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (t *Transcript) MarshalJSON() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	data, err := json.Marshal(serializedTranscript{
		Expert:     t.expert,
		Messages:   t.messages,
		References: t.references,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcript: %w", err)
	}
	return data, nil
}

// UnmarshalJSON implements json.Unmarshaler. It is only meant for restoring a
// freshly allocated transcript from storage.
func (t *Transcript) UnmarshalJSON(data []byte) error {
	var st serializedTranscript
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expert = st.Expert
	t.messages = st.Messages
	if t.messages == nil {
		t.messages = make([]Message, 0)
	}
	t.references = st.References
	if t.references == nil {
		t.references = make(map[string]string)
	}
	return nil
}
