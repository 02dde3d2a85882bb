// Package report renders campaign executions as JSON, Markdown or
// HTML and keeps an append-only execution history.
package report

import (
	"fmt"
	"io"

	"digital.vasic.campaigns/pkg/campaign"
)

// Output formats understood by New.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Reporter defines the interface for rendering campaign
// executions.
type Reporter interface {
	// GenerateReport renders a single campaign execution.
	GenerateReport(exec campaign.CampaignExecution) ([]byte, error)

	// GenerateHistoryReport renders several executions of a
	// campaign, most recent first.
	GenerateHistoryReport(
		execs []campaign.CampaignExecution,
	) ([]byte, error)

	// WriteReport writes the report of exec to w.
	WriteReport(w io.Writer, exec campaign.CampaignExecution) error
}

// New returns the reporter for format.
func New(format string) (Reporter, error) {
	switch format {
	case FormatJSON:
		return NewJSONReporter(true), nil
	case FormatMarkdown, "md":
		return NewMarkdownReporter(), nil
	case FormatHTML:
		return NewHTMLReporter(), nil
	default:
		return nil, fmt.Errorf("unknown report format: %q", format)
	}
}
