package ai

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSplitter_ShortTextIsOneChunk(t *testing.T) {
	s := NewSplitter(500, 50)
	chunks, err := s.Split("Apple\nA food item.")
	require.NoError(t, err)
	require.Equal(t, []string{"Apple\nA food item."}, chunks)
}

func TestSplitter_EmptyText(t *testing.T) {
	s := NewSplitter(500, 50)
	chunks, err := s.Split("   \n ")
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestSplitter_LongTextOverlaps(t *testing.T) {
	words := make([]string, 0, 300)
	for i := 0; i < 300; i++ {
		words = append(words, fmt.Sprintf("w%03d", i))
	}
	s := NewSplitter(100, 20)
	chunks, err := s.Split(strings.Join(words, " "))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, utf8.RuneCountInString(c), 100)
	}
	for i := 1; i < len(chunks); i++ {
		first := strings.Fields(chunks[i])[0]
		require.Contains(t, chunks[i-1], first, "chunk %d should start inside chunk %d", i, i-1)
	}
}

func TestMarkdownToText(t *testing.T) {
	md := "# Stock policy\n\nWe keep **apples** in the cold room.\n\n- pears\n- plums\n\n```\nqty=4\n```\n"
	out := MarkdownToText(md)
	require.Contains(t, out, "Stock policy")
	require.Contains(t, out, "We keep apples in the cold room.")
	require.Contains(t, out, "pears")
	require.Contains(t, out, "qty=4")
	require.NotContains(t, out, "**")
	require.NotContains(t, out, "```")
}
