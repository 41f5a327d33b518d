package mention

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentFindsTokenUnderCursor(t *testing.T) {
	tok, ok := Current("hello @ma", 9)
	require.True(t, ok)
	assert.Equal(t, "@ma", tok.Mention)
	assert.Equal(t, 6, tok.StartPos)
	assert.Equal(t, 9, tok.EndPos)
}

func TestCurrentExtendsToTokenEnd(t *testing.T) {
	// Cursor in the middle of a token still captures the whole token
	tok, ok := Current("ping @maria now", 8)
	require.True(t, ok)
	assert.Equal(t, "@maria", tok.Mention)
	assert.Equal(t, 5, tok.StartPos)
	assert.Equal(t, 11, tok.EndPos)
}

func TestCurrentStopsAtWhitespace(t *testing.T) {
	_, ok := Current("hello @maria now", 16)
	assert.False(t, ok)

	_, ok = Current("no mention here", 7)
	assert.False(t, ok)

	_, ok = Current("line one @x\nline", 14)
	assert.False(t, ok)
}

func TestCurrentOutOfRangeCursor(t *testing.T) {
	_, ok := Current("@x", -1)
	assert.False(t, ok)
	_, ok = Current("@x", 5)
	assert.False(t, ok)
}

func TestApplyReplacesSpanAndMovesCursor(t *testing.T) {
	text := "hello @ma friend"
	tok, ok := Current(text, 9)
	require.True(t, ok)

	out, cursor := Apply(text, tok, "@maria")
	assert.Equal(t, "hello @maria  friend", out)
	assert.Equal(t, len("hello @maria "), cursor)
}

func TestCollapseRemovesSpanAndExtractsQuestion(t *testing.T) {
	text := "@philo what is this"
	tok, ok := Current(text, 6)
	require.True(t, ok)

	out, question := Collapse(text, tok)
	assert.Equal(t, "what is this", out)
	assert.Equal(t, "what is this", question)
}

func TestParseAll(t *testing.T) {
	assert.Equal(t, []string{"maria", "sam_42"}, ParseAll("cc @maria and @sam_42 please"))
	assert.Empty(t, ParseAll("no mentions"))
}

func TestReplaceAll(t *testing.T) {
	out := ReplaceAll("cc @maria and @sam", map[string]string{"maria": "Maria Lopez"})
	assert.Equal(t, "cc Maria Lopez and @sam", out)
}
