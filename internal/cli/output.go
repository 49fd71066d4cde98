// Package cli provides CLI output formatting for Osusume.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/pkg/utils"
)

// nameColumnWidth keeps the text table aligned; longer names are truncated.
const nameColumnWidth = 40

// OutputFormat is the format for recommendation output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteRecommendations writes a recommendation response to w in the given format.
func WriteRecommendations(w io.Writer, resp *models.RecommendResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	default:
		writeRecommendationsText(w, resp)
		return nil
	}
}

func writeRecommendationsText(w io.Writer, resp *models.RecommendResponse) {
	fmt.Fprintf(w, "\n%d recommendation(s) for %s in %dms", len(resp.Recommendations), resp.UserID, resp.QueryTime)
	if resp.AIUsed {
		fmt.Fprintf(w, " (AI reranked)")
	}
	fmt.Fprintln(w)
	for i, rec := range resp.Recommendations {
		fmt.Fprintf(w, "%2d. %-*s score: %.4f", i+1, nameColumnWidth, utils.Truncate(rec.Name, nameColumnWidth), rec.Score)
		if rec.Category != "" {
			fmt.Fprintf(w, "  [%s]", rec.Category)
		}
		fmt.Fprintf(w, "  (id: %s)\n", rec.ID)
	}
	if resp.Explanation != "" {
		fmt.Fprintf(w, "\n%s\n", resp.Explanation)
	}
}
