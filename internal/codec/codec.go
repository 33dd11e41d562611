// Package codec converts between Markdown text and the docx block tree.
// Both directions are pure; BlocksToMarkdown is deterministic and
// MarkdownToBlocks(BlocksToMarkdown(x)) preserves semantics for any
// document the engine itself wrote.
package codec

import (
	"strings"

	"github.com/feishu-sync/feishu-sync/internal/feishu"
)

// ParsedDocument is the result of MarkdownToBlocks: the extracted title and
// the body block list, page block excluded.
type ParsedDocument struct {
	Title  string
	Blocks []*feishu.Block
}

// codeLanguages maps fence info strings to the server's code language enum.
// Unknown languages fall back to plaintext.
var codeLanguages = map[string]int{
	"plaintext":  1,
	"bash":       4,
	"c":          9,
	"cpp":        11,
	"csharp":     12,
	"css":        15,
	"go":         23,
	"html":       29,
	"java":       32,
	"javascript": 33,
	"json":       35,
	"kotlin":     36,
	"markdown":   41,
	"php":        47,
	"python":     49,
	"ruby":       52,
	"rust":       53,
	"shell":      56,
	"sql":        58,
	"swift":      60,
	"typescript": 63,
	"xml":        65,
	"yaml":       66,
}

var codeLanguageNames = func() map[int]string {
	names := make(map[int]string, len(codeLanguages))
	for name, code := range codeLanguages {
		names[code] = name
	}
	return names
}()

func languageCode(name string) int {
	if code, ok := codeLanguages[strings.ToLower(name)]; ok {
		return code
	}
	return codeLanguages["plaintext"]
}

func languageName(code int) string {
	if name, ok := codeLanguageNames[code]; ok && name != "plaintext" {
		return name
	}
	return ""
}

// plainText flattens rich text elements to their raw content.
func plainText(payload *feishu.TextPayload) string {
	if payload == nil {
		return ""
	}
	var sb strings.Builder
	for _, el := range payload.Elements {
		if el.TextRun != nil {
			sb.WriteString(el.TextRun.Content)
		}
	}
	return sb.String()
}

func textElement(content string, style *feishu.TextElementStyle) *feishu.TextElement {
	return &feishu.TextElement{
		TextRun: &feishu.TextRun{
			Content: content,
			Style:   style,
		},
	}
}

// textBlock builds a text-like block of the given type.
func textBlock(blockType int, elements []*feishu.TextElement, style *feishu.TextStyle) *feishu.Block {
	payload := &feishu.TextPayload{Elements: elements, Style: style}
	b := &feishu.Block{BlockType: blockType}
	switch blockType {
	case feishu.BlockText:
		b.Text = payload
	case feishu.BlockHeading1:
		b.Heading1 = payload
	case feishu.BlockHeading2:
		b.Heading2 = payload
	case feishu.BlockHeading3:
		b.Heading3 = payload
	case feishu.BlockHeading4:
		b.Heading4 = payload
	case feishu.BlockHeading5:
		b.Heading5 = payload
	case feishu.BlockHeading6:
		b.Heading6 = payload
	case feishu.BlockBullet:
		b.Bullet = payload
	case feishu.BlockOrdered:
		b.Ordered = payload
	case feishu.BlockCode:
		b.Code = payload
	case feishu.BlockQuote:
		b.Quote = payload
	case feishu.BlockTodo:
		b.Todo = payload
	}
	return b
}
