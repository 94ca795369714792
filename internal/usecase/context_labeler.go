package usecase

import (
	"strings"

	"shorui-orchestrator/internal/domain"
)

// sourceSeparator delimits source blocks. Chosen to be unlikely to appear in
// snippet content so a source cannot masquerade as a block boundary.
const sourceSeparator = "\n\n---\n\n"

// ContextLabeler renders retrieved sources into a single text block where
// every snippet is tagged with its source id. Tagging is what lets the model
// cite and what keeps instruction-like text inside a snippet structurally
// distinct from real instructions. Snippet content is passed through verbatim;
// redaction and truncation are retrieval-layer concerns.
type ContextLabeler struct{}

// NewContextLabeler creates a labeler (stateless).
func NewContextLabeler() ContextLabeler {
	return ContextLabeler{}
}

// Label builds the labeled context block. Source order is preserved exactly.
func (ContextLabeler) Label(sources []domain.RetrievalSource) string {
	parts := make([]string, 0, len(sources))
	for _, source := range sources {
		var sb strings.Builder
		sb.WriteString("[SOURCE: ")
		sb.WriteString(source.SourceID)
		sb.WriteString("]")
		if filename := source.Metadata["filename"]; filename != "" {
			sb.WriteString(", file: ")
			sb.WriteString(filename)
		}
		if page := source.Metadata["page_num"]; page != "" {
			sb.WriteString(", page: ")
			sb.WriteString(page)
		}
		sb.WriteString("\n")
		sb.WriteString(source.ContentSnippet)
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, sourceSeparator)
}
