package profile

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/concierge/pkg/notion"
)

// NotionSource reads the profile from the block content of one Notion page.
type NotionSource struct {
	client notion.Client
	pageID string
}

// NewNotionSource returns a Source backed by the given Notion page.
func NewNotionSource(client notion.Client, pageID string) *NotionSource {
	return &NotionSource{client: client, pageID: pageID}
}

func (n *NotionSource) Load(ctx context.Context) (string, error) {
	blocks, err := notion.FetchAllBlocks(ctx, n.client, n.pageID)
	if err != nil {
		return "", eris.Wrap(err, "profile: notion page")
	}

	text := strings.TrimSpace(notion.PageText(blocks))
	if text == "" {
		return "", eris.New("profile: notion page has no text content")
	}
	return text, nil
}
