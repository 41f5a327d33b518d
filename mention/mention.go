package mention

import (
	"regexp"
	"strings"
)

// Token is the @-mention currently under the cursor. Mention includes the
// leading @; the token occupies [StartPos, EndPos) in the source text.
type Token struct {
	Mention  string
	StartPos int
	EndPos   int
}

// Current extracts the mention token at the cursor. It scans backward from
// the cursor for the nearest @ not separated by whitespace, then forward to
// the token's end. Returns false when the cursor is not inside a mention.
func Current(text string, cursor int) (Token, bool) {
	if cursor < 0 || cursor > len(text) {
		return Token{}, false
	}

	start := -1
	for i := cursor - 1; i >= 0; i-- {
		if text[i] == '@' {
			start = i
			break
		}
		if text[i] == ' ' || text[i] == '\n' {
			break
		}
	}
	if start == -1 {
		return Token{}, false
	}

	end := cursor
	for i := cursor; i < len(text); i++ {
		if text[i] == ' ' || text[i] == '\n' {
			break
		}
		end = i + 1
	}

	return Token{Mention: text[start:end], StartPos: start, EndPos: end}, true
}

// Apply replaces the token span with the chosen mention plus a trailing
// space and returns the new text and cursor position.
func Apply(text string, tok Token, mention string) (string, int) {
	inserted := mention + " "
	out := text[:tok.StartPos] + inserted + text[tok.EndPos:]
	return out, tok.StartPos + len(inserted)
}

// Collapse removes the token span entirely and returns the new text plus
// the trimmed remainder after the span. Used when the AI sentinel is chosen:
// the remainder becomes the question routed to the assistant.
func Collapse(text string, tok Token) (string, string) {
	out := strings.TrimSpace(text[:tok.StartPos] + text[tok.EndPos:])
	question := strings.TrimSpace(text[tok.EndPos:])
	return out, question
}

var mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9_]+)`)

// ParseAll returns every @username token in the text, without the @
func ParseAll(text string) []string {
	var out []string
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// ReplaceAll rewrites @username tokens through the replacement table;
// unknown usernames are left as typed
func ReplaceAll(text string, replacements map[string]string) string {
	return mentionPattern.ReplaceAllStringFunc(text, func(match string) string {
		if repl, ok := replacements[match[1:]]; ok {
			return repl
		}
		return match
	})
}
