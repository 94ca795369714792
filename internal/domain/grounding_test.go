package domain_test

import (
	"testing"

	"shorui-orchestrator/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestRetrievalResultFromDocuments_ExcludesGraphResults(t *testing.T) {
	docs := []domain.SourceDocument{
		{ID: "src-1", Content: "direct hit", Score: 0.9},
		{ID: "src-2", Content: "graph expansion", Score: 0.4, IsGraph: true},
	}

	result := domain.RetrievalResultFromDocuments(docs, nil, 1)

	assert.Len(t, result.Sources, 1)
	assert.Equal(t, "src-1", result.Sources[0].SourceID)
	assert.True(t, result.IsSufficient)
}

func TestRetrievalResultFromDocuments_SufficiencyCountedAfterExclusion(t *testing.T) {
	docs := []domain.SourceDocument{
		{ID: "src-1", Content: "direct", Score: 0.9},
		{ID: "src-2", Content: "graph", Score: 0.8, IsGraph: true},
		{ID: "src-3", Content: "graph", Score: 0.7, IsGraph: true},
	}

	// Three raw records, but only one survives the graph exclusion, so a
	// threshold of two is not met.
	result := domain.RetrievalResultFromDocuments(docs, nil, 2)

	assert.Len(t, result.Sources, 1)
	assert.False(t, result.IsSufficient)
}

func TestRetrievalResultFromDocuments_PreservesOrderAndMetadata(t *testing.T) {
	docs := []domain.SourceDocument{
		{ID: "src-b", Content: "second ranked first", Score: 0.5, Filename: "privacy.pdf", PageNum: "12"},
		{ID: "src-a", Content: "first ranked second", Score: 0.9},
	}

	result := domain.RetrievalResultFromDocuments(docs, map[string]any{"intent": "lookup"}, 1)

	assert.Equal(t, "src-b", result.Sources[0].SourceID)
	assert.Equal(t, "src-a", result.Sources[1].SourceID)
	assert.Equal(t, "privacy.pdf", result.Sources[0].Metadata["filename"])
	assert.Equal(t, "12", result.Sources[0].Metadata["page_num"])
	assert.Equal(t, "lookup", result.QueryAnalysis["intent"])
}

func TestRefusal_Invariant(t *testing.T) {
	for _, reason := range []string{
		domain.RefusalInsufficientSources,
		domain.RefusalGenerationError,
		domain.RefusalCollectionNotFound,
		domain.RefusalNoRelevantContent,
	} {
		result := domain.Refusal(reason)
		assert.True(t, result.IsRefusal())
		assert.Empty(t, result.Citations)
		assert.Equal(t, domain.RefusalText, result.AnswerText)
		assert.Equal(t, reason, result.RefusalReason)
	}
}

func TestNewAnswerResult_NotARefusal(t *testing.T) {
	result := domain.NewAnswerResult("grounded answer [SOURCE: src-1]", []string{"src-1"})

	assert.False(t, result.IsRefusal())
	assert.Equal(t, []string{"src-1"}, result.Citations)
}

func TestNewAnswerResult_NilCitationsBecomeEmpty(t *testing.T) {
	result := domain.NewAnswerResult("answer", nil)

	assert.NotNil(t, result.Citations)
	assert.Empty(t, result.Citations)
}
