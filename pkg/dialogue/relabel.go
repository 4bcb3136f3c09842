package dialogue

import "dtplanner/pkg/agent/llm"

// Relabel projects the transcript into chat roles from speaker's point of view:
// speaker's own messages become assistant turns and everything else becomes user
// turns. Count and order are preserved; the transcript is not modified.
func Relabel(t *Transcript, speaker string) []llm.CompletionMessage {
	msgs := t.Messages()
	out := make([]llm.CompletionMessage, len(msgs))
	for i := range msgs {
		if msgs[i].Speaker == speaker {
			out[i] = llm.NewAssistantMessage(msgs[i].Content)
		} else {
			out[i] = llm.NewUserMessage(msgs[i].Content)
		}
	}
	return out
}
