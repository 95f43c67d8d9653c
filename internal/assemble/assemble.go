// Package assemble turns scrape results or pasted text into the bounded
// plain-text content block fed to generation.
package assemble

import (
	"strings"

	"github.com/sells-group/concierge/internal/model"
	"github.com/sells-group/concierge/pkg/harvester"
)

const (
	defaultBudgetChars     = 100000
	defaultMinContentChars = 200
	defaultPastedThreshold = 500
)

// Options tune the assembler. Zero values fall back to defaults.
type Options struct {
	// BudgetChars caps the total assembled content size.
	BudgetChars int

	// MinContentChars is the floor below which content is flagged thin.
	MinContentChars int

	// PastedThreshold is the minimum trimmed length of a history message
	// eligible to replace thin content.
	PastedThreshold int
}

// Assembler bounds scraped or pasted content and flags thin results.
type Assembler struct {
	opts Options
}

// New creates an Assembler.
func New(opts Options) *Assembler {
	if opts.BudgetChars <= 0 {
		opts.BudgetChars = defaultBudgetChars
	}
	if opts.MinContentChars <= 0 {
		opts.MinContentChars = defaultMinContentChars
	}
	if opts.PastedThreshold <= 0 {
		opts.PastedThreshold = defaultPastedThreshold
	}
	return &Assembler{opts: opts}
}

// Assembled is the content block handed to prompt routing.
type Assembled struct {
	Text string

	// Thin marks content too short to ground a response, typically a page
	// behind a login wall or rendered only by client-side script.
	Thin bool
}

// Assemble builds the content block: pasted text when present, otherwise the
// converted and concatenated scrape results. Thin output is replaced by the
// most recent pasted-looking user message in history when one exists.
func (a *Assembler) Assemble(results []harvester.Result, pasted string, history []model.ConversationMessage) Assembled {
	var content Assembled
	if strings.TrimSpace(pasted) != "" {
		content = a.FromPasted(pasted)
	} else {
		content = a.FromResults(results)
	}
	if content.Thin {
		content = a.rescueFromHistory(content, history)
	}
	return content
}

// FromResults converts each result to plain text and concatenates them under
// the budget. The chunk that crosses the budget boundary is cut to exactly
// fill it; later chunks are dropped.
func (a *Assembler) FromResults(results []harvester.Result) Assembled {
	var sb strings.Builder
	for _, r := range results {
		remaining := a.opts.BudgetChars - sb.Len()
		if remaining <= 0 {
			break
		}
		text := ToText(r.Content)
		if len(text) > remaining {
			text = text[:remaining]
		}
		sb.WriteString(text)
	}
	return a.finish(sb.String())
}

// FromPasted uses message text the caller already supplied as content.
func (a *Assembler) FromPasted(pasted string) Assembled {
	text := strings.TrimSpace(pasted)
	if len(text) > a.opts.BudgetChars {
		text = text[:a.opts.BudgetChars]
	}
	return a.finish(text)
}

func (a *Assembler) finish(text string) Assembled {
	return Assembled{
		Text: text,
		Thin: len(strings.TrimSpace(text)) < a.opts.MinContentChars,
	}
}

// rescueFromHistory scans history newest-first for a user message long enough
// to be pasted source text and substitutes it, clearing the thin flag.
func (a *Assembler) rescueFromHistory(content Assembled, history []model.ConversationMessage) Assembled {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != model.RoleUser {
			continue
		}
		text := strings.TrimSpace(history[i].Content)
		if len(text) > a.opts.PastedThreshold {
			if len(text) > a.opts.BudgetChars {
				text = text[:a.opts.BudgetChars]
			}
			return Assembled{Text: text, Thin: false}
		}
	}
	return content
}
