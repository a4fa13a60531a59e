package llm

import (
	"fmt"
	"strings"
	"time"
)

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type replyMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

type chatReply struct {
	Choices []struct {
		Message replyMessage `json:"message"`
		// Some providers answer with the streaming schema even for
		// stream=false requests.
		Delta        replyMessage `json:"delta"`
		Text         string       `json:"text"`
		FinishReason string       `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`

	raw []byte
}

// text returns the first non-blank choice, or an *emptyContentError
// describing why there was none.
func (r chatReply) text(op string) (string, error) {
	empty := &emptyContentError{Op: op, Snippet: snippet(string(r.raw))}
	if len(r.Choices) == 0 {
		empty.FinishReason = "no choices"
		return "", empty
	}
	for _, choice := range r.Choices {
		for _, candidate := range []string{choice.Message.Content, choice.Delta.Content, choice.Text} {
			if text := strings.TrimSpace(candidate); text != "" {
				return text, nil
			}
		}
		if empty.FinishReason == "" {
			empty.FinishReason = strings.TrimSpace(choice.FinishReason)
		}
		if empty.Refusal == "" {
			empty.Refusal = strings.TrimSpace(choice.Message.Refusal + choice.Delta.Refusal)
		}
	}
	return "", empty
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, snippet(e.Body))
}

type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("llm %s: empty reply (finish_reason=%q refusal=%q body=%s)", e.Op, e.FinishReason, e.Refusal, e.Snippet)
}

// StripCodeFence removes a surrounding Markdown code fence (```srt ... ```)
// from a reply. Text without a leading fence is returned trimmed.
func StripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	// Drop the info string ("srt", "json", ...) on the opening line.
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		if info := strings.TrimSpace(body[:newline]); !strings.ContainsAny(info, " \t") {
			body = body[newline+1:]
		}
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// snippet collapses whitespace and truncates content for error messages.
func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
