package feishu

// Block types used by the docx surface. Values are the server's block_type
// discriminants.
const (
	BlockPage      = 1
	BlockText      = 2
	BlockHeading1  = 3
	BlockHeading2  = 4
	BlockHeading3  = 5
	BlockHeading4  = 6
	BlockHeading5  = 7
	BlockHeading6  = 8
	BlockHeading7  = 9
	BlockHeading8  = 10
	BlockHeading9  = 11
	BlockBullet    = 12
	BlockOrdered   = 13
	BlockCode      = 14
	BlockQuote     = 15
	BlockTodo      = 17
	BlockDivider   = 22
	BlockTable     = 31
	BlockTableCell = 32
)

// Document is the metadata surface of a docx document.
type Document struct {
	DocumentID string `json:"document_id"`
	RevisionID int64  `json:"revision_id"`
	Title      string `json:"title"`
}

// Block is one node of a document's block tree. Exactly one payload field is
// set, matching BlockType.
type Block struct {
	BlockID   string   `json:"block_id,omitempty"`
	ParentID  string   `json:"parent_id,omitempty"`
	BlockType int      `json:"block_type"`
	Children  []string `json:"children,omitempty"`

	Page      *TextPayload   `json:"page,omitempty"`
	Text      *TextPayload   `json:"text,omitempty"`
	Heading1  *TextPayload   `json:"heading1,omitempty"`
	Heading2  *TextPayload   `json:"heading2,omitempty"`
	Heading3  *TextPayload   `json:"heading3,omitempty"`
	Heading4  *TextPayload   `json:"heading4,omitempty"`
	Heading5  *TextPayload   `json:"heading5,omitempty"`
	Heading6  *TextPayload   `json:"heading6,omitempty"`
	Heading7  *TextPayload   `json:"heading7,omitempty"`
	Heading8  *TextPayload   `json:"heading8,omitempty"`
	Heading9  *TextPayload   `json:"heading9,omitempty"`
	Bullet    *TextPayload   `json:"bullet,omitempty"`
	Ordered   *TextPayload   `json:"ordered,omitempty"`
	Code      *TextPayload   `json:"code,omitempty"`
	Quote     *TextPayload   `json:"quote,omitempty"`
	Todo      *TextPayload   `json:"todo,omitempty"`
	Divider   *EmptyPayload  `json:"divider,omitempty"`
	Table     *TablePayload  `json:"table,omitempty"`
	TableCell *EmptyPayload  `json:"table_cell,omitempty"`

	// TableRows carries the markdown cell text of a table block between the
	// codec and the uploader. Cell blocks get their ids only when the table
	// skeleton is created, so cell content cannot travel inside the tree.
	TableRows [][]string `json:"-"`
}

// TextPayload holds the rich text of text-like blocks.
type TextPayload struct {
	Elements []*TextElement `json:"elements"`
	Style    *TextStyle     `json:"style,omitempty"`
}

type TextStyle struct {
	Language int  `json:"language,omitempty"` // code blocks
	Done     bool `json:"done,omitempty"`     // todo blocks
}

type TextElement struct {
	TextRun *TextRun `json:"text_run,omitempty"`
}

type TextRun struct {
	Content string            `json:"content"`
	Style   *TextElementStyle `json:"text_element_style,omitempty"`
}

type TextElementStyle struct {
	Bold       bool  `json:"bold,omitempty"`
	Italic     bool  `json:"italic,omitempty"`
	InlineCode bool  `json:"inline_code,omitempty"`
	Link       *Link `json:"link,omitempty"`
}

type Link struct {
	URL string `json:"url"`
}

type EmptyPayload struct{}

type TablePayload struct {
	Property *TableProperty `json:"property,omitempty"`
}

type TableProperty struct {
	RowSize    int  `json:"row_size"`
	ColumnSize int  `json:"column_size"`
	HeaderRow  bool `json:"header_row,omitempty"`
}

// PayloadFor returns the text payload matching the block's type, or nil for
// non-text blocks.
func (b *Block) PayloadFor() *TextPayload {
	switch b.BlockType {
	case BlockPage:
		return b.Page
	case BlockText:
		return b.Text
	case BlockHeading1:
		return b.Heading1
	case BlockHeading2:
		return b.Heading2
	case BlockHeading3:
		return b.Heading3
	case BlockHeading4:
		return b.Heading4
	case BlockHeading5:
		return b.Heading5
	case BlockHeading6:
		return b.Heading6
	case BlockHeading7:
		return b.Heading7
	case BlockHeading8:
		return b.Heading8
	case BlockHeading9:
		return b.Heading9
	case BlockBullet:
		return b.Bullet
	case BlockOrdered:
		return b.Ordered
	case BlockCode:
		return b.Code
	case BlockQuote:
		return b.Quote
	case BlockTodo:
		return b.Todo
	default:
		return nil
	}
}

// HeadingLevel returns 1..9 for heading blocks, 0 otherwise.
func (b *Block) HeadingLevel() int {
	if b.BlockType >= BlockHeading1 && b.BlockType <= BlockHeading9 {
		return b.BlockType - BlockHeading1 + 1
	}
	return 0
}
