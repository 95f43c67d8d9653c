package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// blockPageSize is the Notion API maximum for one children request.
const blockPageSize = 100

// FetchAllBlocks fetches every top-level child block of a page, handling
// pagination. Rate limiting is enforced by the Client (3 req/s by default).
func FetchAllBlocks(ctx context.Context, c Client, pageID string) ([]notionapi.Block, error) {
	var all []notionapi.Block

	pagination := &notionapi.Pagination{PageSize: blockPageSize}
	for {
		resp, err := c.BlockChildren(ctx, pageID, pagination)
		if err != nil {
			return nil, eris.Wrap(err, "notion: fetch page blocks")
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		pagination = &notionapi.Pagination{
			PageSize:    blockPageSize,
			StartCursor: notionapi.Cursor(resp.NextCursor),
		}
	}
}

// PageText renders fetched blocks as plain text, one line per block. List
// items and to-dos get a dash prefix; unsupported block kinds are skipped.
func PageText(blocks []notionapi.Block) string {
	var lines []string
	for _, b := range blocks {
		line, ok := blockText(b)
		if !ok {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func blockText(b notionapi.Block) (string, bool) {
	var text string
	bullet := false

	switch t := b.(type) {
	case *notionapi.ParagraphBlock:
		text = PlainText(t.Paragraph.RichText)
	case *notionapi.Heading1Block:
		text = PlainText(t.Heading1.RichText)
	case *notionapi.Heading2Block:
		text = PlainText(t.Heading2.RichText)
	case *notionapi.Heading3Block:
		text = PlainText(t.Heading3.RichText)
	case *notionapi.BulletedListItemBlock:
		text = PlainText(t.BulletedListItem.RichText)
		bullet = true
	case *notionapi.NumberedListItemBlock:
		text = PlainText(t.NumberedListItem.RichText)
		bullet = true
	case *notionapi.ToDoBlock:
		text = PlainText(t.ToDo.RichText)
		bullet = true
	case *notionapi.QuoteBlock:
		text = PlainText(t.Quote.RichText)
	case *notionapi.CodeBlock:
		text = PlainText(t.Code.RichText)
	default:
		return "", false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	if bullet {
		text = "- " + text
	}
	return text, true
}

// PlainText concatenates the plain_text values from a slice of RichText.
func PlainText(rts []notionapi.RichText) string {
	var s string
	for _, rt := range rts {
		s += rt.PlainText
	}
	return s
}
