package ai

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Splitter cuts text into overlapping chunks measured in runes.
type Splitter struct {
	splitter textsplitter.RecursiveCharacter
}

func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
		),
	}
}

func (s *Splitter) Split(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	parts, err := s.splitter.SplitText(content)
	if err != nil {
		return nil, err
	}
	chunks := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chunks = append(chunks, part)
	}
	return chunks, nil
}

// MarkdownToText flattens markdown into plain paragraphs so formatting
// syntax does not end up in embeddings.
func MarkdownToText(markdown string) string {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		var txt string
		switch n := node.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			txt = codeText(n, source)
		default:
			txt = extractText(n, source)
		}
		if txt != "" {
			blocks = append(blocks, txt)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func codeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		sb.Write(line.Value(source))
	}
	return strings.TrimSpace(sb.String())
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if node.Type() == ast.TypeBlock && node != n && sb.Len() > 0 {
				sb.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		if t, ok := node.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteString(" ")
			}
		}
		return ast.WalkContinue, nil
	})
	lines := strings.Split(sb.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
