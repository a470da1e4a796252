package retrieval

import (
	"fmt"
	"strings"
)

// systemPrompt fixes the assistant persona: grounded in the provided
// context, honest about gaps, concise, and careful with personal data.
const systemPrompt = "You are a concise, factual assistant that answers questions about " +
	"the candidate's resume and portfolio. " +
	"Use only the provided CONTEXT to form your answers; do not rely on external knowledge except for " +
	"very brief clarifications. If the information is not present in the CONTEXT, respond with " +
	"\"I don't know\" or a brief honest statement (e.g. \"I don't have that information in the provided context\"). " +
	"Be concise and clear: prefer short paragraphs or bullet points and avoid speculation. " +
	"Do not include raw source text longer than 200 characters; summarize and cite the source instead. " +
	"If the user requests actionable changes (for example, resume edits), give step-by-step, prioritized suggestions. " +
	"If the user's question is ambiguous, ask one clear clarifying question. " +
	"Respect privacy: do not invent contact details, personal identifiers, or confidential data."

// contextSeparator joins source blocks in the assembled context.
const contextSeparator = "\n\n---\n\n"

// BuildContext renders ranked sources into the context block handed to the
// chat provider. Each source becomes
//
//	SOURCE <rank> (score:<score to 4 decimal places>):
//	<text>
//
// with ranks starting at 1, joined by contextSeparator. Retrieved text is
// passed through untouched: no re-ranking, deduplication, or truncation.
func BuildContext(sources []Source) string {
	blocks := make([]string, len(sources))
	for i, s := range sources {
		blocks[i] = fmt.Sprintf("SOURCE %d (score:%.4f):\n%s", i+1, s.Score, s.Text)
	}
	return strings.Join(blocks, contextSeparator)
}

// buildMessages assembles the chat sequence: persona, assembled context,
// then the user's query verbatim.
func buildMessages(contextText, query string) []Message {
	return []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleSystem, Content: "CONTEXT:\n" + contextText},
		{Role: RoleUser, Content: query},
	}
}
