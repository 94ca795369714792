package domain

// Refusal reason tokens shared across the platform. They travel in structured
// telemetry and API responses; end users only ever see RefusalText.
const (
	RefusalInsufficientSources = "insufficient_sources"
	RefusalCollectionNotFound  = "collection_not_found"
	RefusalNoRelevantContent   = "no_relevant_content"
	RefusalGenerationError     = "generation_error"
)

// RefusalText is the single user-visible sentence returned for every refusal,
// regardless of the machine-readable reason.
const RefusalText = "I don't have enough information from the indexed documents to answer this question."

// RetrievalSource is a single retrieved snippet with its stable identifier.
// Instances are value types and must not be modified after construction.
type RetrievalSource struct {
	SourceID       string
	ContentSnippet string
	Score          float64
	Metadata       map[string]string
}

// SourceDocument is a raw retrieval record as produced by a retriever, before
// it is promoted into a RetrievalSource. IsGraph marks graph-expansion
// results, a secondary source class that never counts toward sufficiency.
type SourceDocument struct {
	ID        string
	Content   string
	Score     float64
	Filename  string
	PageNum   string
	ProjectID string
	BlockID   string
	SectionID string
	IsGraph   bool
}

// RetrievalResult is an immutable snapshot of one retrieval: scored sources in
// the order the retriever ranked them, plus a sufficiency signal.
type RetrievalResult struct {
	Sources       []RetrievalSource
	QueryAnalysis map[string]any
	IsSufficient  bool
}

// RetrievalResultFromDocuments builds a RetrievalResult from raw retrieval
// records. Graph-expansion records are dropped before the sufficiency count is
// taken; source order is preserved as received.
func RetrievalResultFromDocuments(docs []SourceDocument, analysis map[string]any, minSources int) *RetrievalResult {
	sources := make([]RetrievalSource, 0, len(docs))
	for _, doc := range docs {
		if doc.IsGraph {
			continue
		}
		meta := map[string]string{}
		if doc.Filename != "" {
			meta["filename"] = doc.Filename
		}
		if doc.PageNum != "" {
			meta["page_num"] = doc.PageNum
		}
		if doc.ProjectID != "" {
			meta["project_id"] = doc.ProjectID
		}
		if doc.BlockID != "" {
			meta["block_id"] = doc.BlockID
		}
		if doc.SectionID != "" {
			meta["section_id"] = doc.SectionID
		}
		sources = append(sources, RetrievalSource{
			SourceID:       doc.ID,
			ContentSnippet: doc.Content,
			Score:          doc.Score,
			Metadata:       meta,
		})
	}
	if analysis == nil {
		analysis = map[string]any{}
	}
	return &RetrievalResult{
		Sources:       sources,
		QueryAnalysis: analysis,
		IsSufficient:  len(sources) >= minSources,
	}
}

// AnswerResult is an immutable snapshot of one generation attempt. A result is
// a refusal iff RefusalReason is non-empty; there is no separate flag.
type AnswerResult struct {
	AnswerText    string
	Citations     []string
	RefusalReason string
	Confidence    *float64
}

// NewAnswerResult constructs a successful (non-refusal) result.
func NewAnswerResult(answerText string, citations []string) *AnswerResult {
	if citations == nil {
		citations = []string{}
	}
	return &AnswerResult{
		AnswerText: answerText,
		Citations:  citations,
	}
}

// Refusal constructs a refusal result carrying the fixed user-visible sentence
// and an empty citation list.
func Refusal(reason string) *AnswerResult {
	return &AnswerResult{
		AnswerText:    RefusalText,
		Citations:     []string{},
		RefusalReason: reason,
	}
}

// IsRefusal reports whether this result refused to answer.
func (r *AnswerResult) IsRefusal() bool {
	return r.RefusalReason != ""
}
