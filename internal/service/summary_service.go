package service

import (
	"strings"

	"github.com/philonet/rooms/api"
)

// SummaryService is a deterministic stand-in for the summarizer backend.
// It answers from the prompt text itself so clients can be exercised
// end to end without an upstream model.
type SummaryService struct{}

// NewSummaryService creates a new summary service
func NewSummaryService() *SummaryService {
	return &SummaryService{}
}

const miniSummaryLimit = 280

// Summarize produces a summary pair for the given prompt. A prompt with a
// trailing "Question:" line is answered against the leading context.
func (s *SummaryService) Summarize(params api.AIQueryParams) *api.AIQueryResponse {
	text := strings.TrimSpace(params.Text)
	if text == "" {
		return &api.AIQueryResponse{}
	}

	context := text
	question := ""
	if idx := strings.LastIndex(text, "Question:"); idx >= 0 {
		context = strings.TrimSpace(text[:idx])
		question = strings.TrimSpace(text[idx+len("Question:"):])
	}

	summary := firstSentences(context, 3)
	mini := firstSentences(context, 1)
	if question != "" {
		summary = "Regarding \"" + question + "\": " + summary
		mini = "Regarding \"" + question + "\": " + mini
	}
	if len(mini) > miniSummaryLimit {
		mini = mini[:miniSummaryLimit]
	}

	return &api.AIQueryResponse{Summary: summary, SummaryMini: mini}
}

// firstSentences returns up to n sentences from the text
func firstSentences(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	count := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			count++
			if count == n {
				return text[:i+1]
			}
		}
	}
	return text
}
