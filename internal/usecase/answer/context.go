package answer

import (
	"fmt"
	"strings"

	"github.com/scholarmesh/paperdex/internal/domain/search/result"
)

const maxListedNames = 3

// buildContext renders retrieval results into a deterministic context block.
// Papers come first, then faculty. Entry order follows result order.
func buildContext(papers, faculty []result.Result) string {
	var b strings.Builder

	if len(papers) > 0 {
		b.WriteString("## Relevant Research Papers:\n\n")
		for i := range papers {
			writePaperEntry(&b, i+1, &papers[i])
		}
	}

	if len(faculty) > 0 {
		b.WriteString("\n## Relevant Faculty Members:\n\n")
		for i := range faculty {
			writeFacultyEntry(&b, i+1, &faculty[i])
		}
	}

	return b.String()
}

func writePaperEntry(b *strings.Builder, n int, r *result.Result) {
	fmt.Fprintf(b, "%d. **%s**\n", n, r.Tags()["title"])

	if authors := r.Lists()["authors"]; len(authors) > 0 {
		fmt.Fprintf(b, "   Authors: %s", strings.Join(truncateList(authors), ", "))
		if len(authors) > maxListedNames {
			b.WriteString(" et al.")
		}
		b.WriteString("\n")
	}

	if year, ok := r.Numerics()["year"]; ok {
		fmt.Fprintf(b, "   Year: %d\n", int(year))
	}
	fmt.Fprintf(b, "   Abstract: %s\n", r.Content())
	fmt.Fprintf(b, "   Relevance: %.2f\n\n", r.Score())
}

func writeFacultyEntry(b *strings.Builder, n int, r *result.Result) {
	fmt.Fprintf(b, "%d. **%s**\n", n, r.Tags()["name"])

	title := r.Tags()["title"]
	department := r.Tags()["department"]
	if title != "" || department != "" {
		fmt.Fprintf(b, "   %s, %s\n", title, department)
	}

	if areas := r.Lists()["research_areas"]; len(areas) > 0 {
		fmt.Fprintf(b, "   Research Areas: %s\n", strings.Join(truncateList(areas), ", "))
	}

	fmt.Fprintf(b, "   Bio: %s\n", r.Content())
	fmt.Fprintf(b, "   Relevance: %.2f\n\n", r.Score())
}

func truncateList(vals []string) []string {
	if len(vals) > maxListedNames {
		return vals[:maxListedNames]
	}
	return vals
}
