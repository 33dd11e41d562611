package codec

import (
	"fmt"
	"strings"

	"github.com/feishu-sync/feishu-sync/internal/feishu"
)

// BlocksToMarkdown renders a fetched block list as Markdown. Output is
// deterministic: the same input always yields byte-identical text. A leading
// `# <title>` is emitted unless the first body block already is a matching
// level-1 heading.
func BlocksToMarkdown(doc *feishu.Document, blocks []*feishu.Block) string {
	index := make(map[string]*feishu.Block, len(blocks))
	var page *feishu.Block
	for _, b := range blocks {
		index[b.BlockID] = b
		if b.BlockType == feishu.BlockPage && page == nil {
			page = b
		}
	}

	var body []*feishu.Block
	if page != nil {
		for _, childID := range page.Children {
			if child, ok := index[childID]; ok {
				body = append(body, child)
			}
		}
	} else {
		// no page block: take top-level blocks in arrival order
		for _, b := range blocks {
			if b.BlockType != feishu.BlockPage && (b.ParentID == "" || index[b.ParentID] == nil) {
				body = append(body, b)
			}
		}
	}

	var parts []string
	if doc != nil && doc.Title != "" && !startsWithTitleHeading(body, doc.Title) {
		parts = append(parts, "# "+doc.Title)
	}

	for i := 0; i < len(body); i++ {
		b := body[i]
		switch b.BlockType {
		case feishu.BlockBullet, feishu.BlockOrdered, feishu.BlockTodo:
			// consecutive list items join with single newlines
			var items []string
			ordinal := 1
			for ; i < len(body) && isListBlock(body[i]); i++ {
				items = append(items, renderListItem(body[i], &ordinal))
			}
			i--
			parts = append(parts, strings.Join(items, "\n"))
		default:
			if rendered := renderBlock(b, index); rendered != "" {
				parts = append(parts, rendered)
			}
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func startsWithTitleHeading(body []*feishu.Block, title string) bool {
	if len(body) == 0 {
		return false
	}
	first := body[0]
	return first.BlockType == feishu.BlockHeading1 && plainText(first.Heading1) == title
}

func isListBlock(b *feishu.Block) bool {
	switch b.BlockType {
	case feishu.BlockBullet, feishu.BlockOrdered, feishu.BlockTodo:
		return true
	}
	return false
}

func renderListItem(b *feishu.Block, ordinal *int) string {
	switch b.BlockType {
	case feishu.BlockOrdered:
		item := fmt.Sprintf("%d. %s", *ordinal, renderInline(b.Ordered))
		*ordinal++
		return item
	case feishu.BlockTodo:
		mark := " "
		if b.Todo != nil && b.Todo.Style != nil && b.Todo.Style.Done {
			mark = "x"
		}
		*ordinal = 1
		return fmt.Sprintf("- [%s] %s", mark, renderInline(b.Todo))
	default:
		*ordinal = 1
		return "- " + renderInline(b.Bullet)
	}
}

func renderBlock(b *feishu.Block, index map[string]*feishu.Block) string {
	switch b.BlockType {
	case feishu.BlockText:
		return renderInline(b.Text)
	case feishu.BlockHeading1, feishu.BlockHeading2, feishu.BlockHeading3,
		feishu.BlockHeading4, feishu.BlockHeading5, feishu.BlockHeading6,
		feishu.BlockHeading7, feishu.BlockHeading8, feishu.BlockHeading9:
		level := b.HeadingLevel()
		if level > 6 {
			// markdown stops at six
			level = 6
		}
		return strings.Repeat("#", level) + " " + renderInline(b.PayloadFor())
	case feishu.BlockCode:
		lang := ""
		if b.Code != nil && b.Code.Style != nil {
			lang = languageName(b.Code.Style.Language)
		}
		content := strings.TrimRight(plainText(b.Code), "\n")
		return "```" + lang + "\n" + content + "\n```"
	case feishu.BlockQuote:
		return "> " + renderInline(b.Quote)
	case feishu.BlockDivider:
		return "---"
	case feishu.BlockTable:
		return renderTable(b, index)
	default:
		// unsupported block kinds degrade to their plain text, if any
		return renderInline(b.PayloadFor())
	}
}

// renderInline converts rich text elements to inline markdown. Injective on
// the supported subset: bold, italic, inline code, links.
func renderInline(payload *feishu.TextPayload) string {
	if payload == nil {
		return ""
	}
	var sb strings.Builder
	for _, el := range payload.Elements {
		run := el.TextRun
		if run == nil {
			continue
		}
		text := run.Content
		if s := run.Style; s != nil {
			if s.InlineCode {
				text = "`" + text + "`"
			} else {
				if s.Bold && s.Italic {
					text = "***" + text + "***"
				} else if s.Bold {
					text = "**" + text + "**"
				} else if s.Italic {
					text = "*" + text + "*"
				}
			}
			if s.Link != nil && s.Link.URL != "" {
				text = "[" + text + "](" + s.Link.URL + ")"
			}
		}
		sb.WriteString(text)
	}
	return sb.String()
}

func renderTable(b *feishu.Block, index map[string]*feishu.Block) string {
	if b.Table == nil || b.Table.Property == nil {
		return ""
	}
	rows, cols := b.Table.Property.RowSize, b.Table.Property.ColumnSize
	if rows == 0 || cols == 0 {
		return ""
	}

	cellText := func(cellID string) string {
		cell, ok := index[cellID]
		if !ok {
			return ""
		}
		var texts []string
		for _, childID := range cell.Children {
			if child, ok := index[childID]; ok {
				if t := renderInline(child.PayloadFor()); t != "" {
					texts = append(texts, t)
				}
			}
		}
		return strings.Join(texts, " ")
	}

	var lines []string
	for r := 0; r < rows; r++ {
		cells := make([]string, cols)
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if i < len(b.Children) {
				cells[c] = cellText(b.Children[i])
			}
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")

		if r == 0 {
			seps := make([]string, cols)
			for c := range seps {
				seps[c] = "---"
			}
			lines = append(lines, "| "+strings.Join(seps, " | ")+" |")
		}
	}
	return strings.Join(lines, "\n")
}
