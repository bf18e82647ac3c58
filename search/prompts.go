package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/inquirit/core"
)

// notNeeded is what the rephraser answers, when allowed to, for a message
// that needs no web search, such as a greeting.
const notNeeded = "not_needed"

const rephraseRules = `You turn a user's message into a standalone web search query.
Use the conversation so far to resolve pronouns and follow-up references.
Reply with the query only, no quotes and no explanation.`

const rephraseExamples = `

Examples:
Message: What is the capital of France
Query: capital of France

Message: And how many people live there?
(previous turn discussed Paris)
Query: population of Paris`

const rephraseInstructions = rephraseRules + rephraseExamples

// rephraseSkipInstructions lets the model opt out of searching. Only used
// when the Searcher is built WithSkipDecision.
const rephraseSkipInstructions = rephraseRules + `
If the message is small talk or needs no outside information, reply with exactly "not_needed".` +
	rephraseExamples + `

Message: Hi, how are you?
Query: not_needed`

const responseTemplate = `You are a research assistant that answers questions using web search results.

Write an informative, well organized answer to the user's question using only the numbered sources in the context below.
Cite every sentence that uses a source with its number in square brackets, for example [1] or [2][3].
Place citations at the end of the sentence they support. Do not cite numbers that are not in the context.
If the context does not contain the answer, say you could not find relevant information and suggest searching again.
Do not mention the context block itself.

<context>
%s
</context>

Current date and time (UTC): %s`

// responseInstructions builds the synthesis system instruction.
func responseInstructions(context string, now time.Time) string {
	return fmt.Sprintf(responseTemplate, context, now.UTC().Format(time.RFC3339))
}

// buildContext renders documents as 1-indexed citable blocks in reranker order.
func buildContext(docs []core.ChunkDocument) string {
	blocks := make([]string, len(docs))
	for i, doc := range docs {
		blocks[i] = "[" + strconv.Itoa(i+1) + "] " + doc.Metadata.Title + "\n" + doc.Content
	}
	return strings.Join(blocks, "\n\n")
}

// cleanRephrase normalizes the rephraser's reply. Models often echo the
// "Query:" label or wrap the query in quotes.
func cleanRephrase(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	for _, prefix := range []string{"Query:", "query:"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}
	return strings.TrimSpace(strings.Trim(s, "\"'`"))
}
