package codec

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/feishu-sync/feishu-sync/internal/feishu"
)

var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// MarkdownToBlocks parses Markdown into a docx block list. The first
// top-level `#` heading becomes the document title and is omitted from the
// body; without one the title is empty.
func MarkdownToBlocks(markdown string) *ParsedDocument {
	source := []byte(markdown)
	root := markdownParser.Parser().Parse(text.NewReader(source))

	parsed := &ParsedDocument{}

	first := true
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if first {
			first = false
			if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
				parsed.Title = inlinePlainText(h, source)
				continue
			}
		}
		parsed.Blocks = append(parsed.Blocks, convertNode(n, source)...)
	}

	return parsed
}

func convertNode(n ast.Node, source []byte) []*feishu.Block {
	switch node := n.(type) {
	case *ast.Heading:
		level := node.Level
		if level > 6 {
			level = 6
		}
		return []*feishu.Block{textBlock(feishu.BlockHeading1+level-1, collectInlineChildren(node, source), nil)}

	case *ast.Paragraph:
		return []*feishu.Block{textBlock(feishu.BlockText, collectInlineChildren(node, source), nil)}

	case *ast.FencedCodeBlock:
		lang := string(node.Language(source))
		return []*feishu.Block{codeBlock(blockLines(node, source), lang)}

	case *ast.CodeBlock:
		return []*feishu.Block{codeBlock(blockLines(node, source), "")}

	case *ast.Blockquote:
		var blocks []*feishu.Block
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			blocks = append(blocks, textBlock(feishu.BlockQuote, collectInlineChildren(c, source), nil))
		}
		return blocks

	case *ast.List:
		return convertList(node, source)

	case *ast.ThematicBreak:
		return []*feishu.Block{{BlockType: feishu.BlockDivider, Divider: &feishu.EmptyPayload{}}}

	case *east.Table:
		return []*feishu.Block{convertTable(node, source)}

	default:
		// unsupported top-level constructs degrade to plain paragraphs
		if content := inlinePlainText(n, source); content != "" {
			return []*feishu.Block{textBlock(feishu.BlockText, []*feishu.TextElement{textElement(content, nil)}, nil)}
		}
		return nil
	}
}

func codeBlock(content, lang string) *feishu.Block {
	content = strings.TrimRight(content, "\n")
	return textBlock(feishu.BlockCode,
		[]*feishu.TextElement{textElement(content, nil)},
		&feishu.TextStyle{Language: languageCode(lang)})
}

func convertList(list *ast.List, source []byte) []*feishu.Block {
	var blocks []*feishu.Block

	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var itemBlock *feishu.Block
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch child := c.(type) {
			case *ast.List:
				// nested lists flatten to sibling items
				blocks = append(blocks, convertList(child, source)...)
			default:
				if itemBlock != nil {
					continue
				}
				elements, task := collectListInline(child, source)
				switch {
				case task != nil:
					itemBlock = textBlock(feishu.BlockTodo, elements, &feishu.TextStyle{Done: task.IsChecked})
				case list.IsOrdered():
					itemBlock = textBlock(feishu.BlockOrdered, elements, nil)
				default:
					itemBlock = textBlock(feishu.BlockBullet, elements, nil)
				}
				blocks = append(blocks, itemBlock)
			}
		}
	}
	return blocks
}

// collectListInline gathers a list item's inline elements and the task
// checkbox, when the GFM task list extension produced one.
func collectListInline(n ast.Node, source []byte) ([]*feishu.TextElement, *east.TaskCheckBox) {
	var task *east.TaskCheckBox
	if first := n.FirstChild(); first != nil {
		if cb, ok := first.(*east.TaskCheckBox); ok {
			task = cb
		}
	}

	var elements []*feishu.TextElement
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*east.TaskCheckBox); ok {
			continue
		}
		collectInline(c, source, feishu.TextElementStyle{}, &elements)
	}
	return trimLeadingSpace(elements), task
}

func convertTable(table *east.Table, source []byte) *feishu.Block {
	var rows [][]string
	cols := 0

	for r := table.FirstChild(); r != nil; r = r.NextSibling() {
		var row []string
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			row = append(row, inlinePlainText(c, source))
		}
		if len(row) > cols {
			cols = len(row)
		}
		rows = append(rows, row)
	}

	// pad short rows so the uploader can index row*cols+col
	for i, row := range rows {
		for len(row) < cols {
			row = append(row, "")
		}
		rows[i] = row
	}

	return &feishu.Block{
		BlockType: feishu.BlockTable,
		Table: &feishu.TablePayload{
			Property: &feishu.TableProperty{
				RowSize:    len(rows),
				ColumnSize: cols,
				HeaderRow:  true,
			},
		},
		TableRows: rows,
	}
}

func collectInlineChildren(n ast.Node, source []byte) []*feishu.TextElement {
	var elements []*feishu.TextElement
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		collectInline(c, source, feishu.TextElementStyle{}, &elements)
	}
	if len(elements) == 0 {
		elements = []*feishu.TextElement{textElement("", nil)}
	}
	return elements
}

// collectInline walks inline nodes carrying the accumulated style down into
// nested emphasis/links.
func collectInline(n ast.Node, source []byte, style feishu.TextElementStyle, out *[]*feishu.TextElement) {
	switch node := n.(type) {
	case *ast.Text:
		content := string(node.Segment.Value(source))
		if node.SoftLineBreak() || node.HardLineBreak() {
			content += " "
		}
		if content != "" {
			*out = append(*out, textElement(content, styleOrNil(style)))
		}

	case *ast.String:
		if len(node.Value) > 0 {
			*out = append(*out, textElement(string(node.Value), styleOrNil(style)))
		}

	case *ast.Emphasis:
		st := style
		if node.Level >= 2 {
			st.Bold = true
		} else {
			st.Italic = true
		}
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			collectInline(c, source, st, out)
		}

	case *ast.CodeSpan:
		st := style
		st.InlineCode = true
		var sb strings.Builder
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				sb.Write(t.Segment.Value(source))
			}
		}
		*out = append(*out, textElement(sb.String(), styleOrNil(st)))

	case *ast.Link:
		st := style
		st.Link = &feishu.Link{URL: string(node.Destination)}
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			collectInline(c, source, st, out)
		}

	case *ast.AutoLink:
		url := string(node.URL(source))
		st := style
		st.Link = &feishu.Link{URL: url}
		*out = append(*out, textElement(url, styleOrNil(st)))

	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			collectInline(c, source, style, out)
		}
	}
}

func styleOrNil(style feishu.TextElementStyle) *feishu.TextElementStyle {
	if !style.Bold && !style.Italic && !style.InlineCode && style.Link == nil {
		return nil
	}
	copied := style
	return &copied
}

func trimLeadingSpace(elements []*feishu.TextElement) []*feishu.TextElement {
	if len(elements) > 0 && elements[0].TextRun != nil {
		elements[0].TextRun.Content = strings.TrimLeft(elements[0].TextRun.Content, " ")
	}
	return elements
}

// inlinePlainText flattens a node's inline content to raw text.
func inlinePlainText(n ast.Node, source []byte) string {
	var sb strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(node.Value)
		default:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				walk(c)
			}
		}
	}
	walk(n)
	return sb.String()
}

func blockLines(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return sb.String()
}
