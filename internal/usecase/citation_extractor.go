package usecase

import (
	"regexp"
	"strings"

	"shorui-orchestrator/internal/domain"
)

var citationPattern = regexp.MustCompile(`\[SOURCE:\s*([^\]]+)\]`)

// CitationExtraction is the outcome of scanning one answer. Citations holds
// validated source ids, deduplicated in first-appearance order. UnknownRefs
// holds markers that referenced ids outside the supplied set; they are an
// observability signal only and never reach the user.
type CitationExtraction struct {
	Citations   []string
	UnknownRefs []string
}

// CitationExtractor parses [SOURCE: <id>] markers out of generated text and
// cross-checks them against the source set that was actually supplied.
type CitationExtractor struct{}

// NewCitationExtractor creates an extractor (stateless).
func NewCitationExtractor() CitationExtractor {
	return CitationExtractor{}
}

// Extract scans answerText for citation markers and validates each against
// the supplied sources. Zero matches yields empty (not nil) citations.
func (CitationExtractor) Extract(answerText string, sources []domain.RetrievalSource) CitationExtraction {
	valid := make(map[string]struct{}, len(sources))
	for _, source := range sources {
		valid[source.SourceID] = struct{}{}
	}

	result := CitationExtraction{Citations: []string{}}
	seen := make(map[string]struct{})

	for _, match := range citationPattern.FindAllStringSubmatch(answerText, -1) {
		sourceID := strings.TrimSpace(match[1])
		if _, ok := valid[sourceID]; !ok {
			result.UnknownRefs = append(result.UnknownRefs, sourceID)
			continue
		}
		if _, dup := seen[sourceID]; dup {
			continue
		}
		seen[sourceID] = struct{}{}
		result.Citations = append(result.Citations, sourceID)
	}

	return result
}
