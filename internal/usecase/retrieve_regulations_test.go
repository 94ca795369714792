package usecase_test

import (
	"context"
	"testing"

	"shorui-orchestrator/internal/domain"
	"shorui-orchestrator/internal/usecase"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChunkRepo struct {
	mock.Mock
}

func (m *mockChunkRepo) Search(ctx context.Context, embedding pgvector.Vector, projectID string, limit int) ([]domain.ChunkSearchResult, error) {
	args := m.Called(ctx, embedding, projectID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChunkSearchResult), args.Error(1)
}

func (m *mockChunkRepo) ExpandReferences(ctx context.Context, chunkIDs []uuid.UUID, limit int) ([]domain.ChunkSearchResult, error) {
	args := m.Called(ctx, chunkIDs, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChunkSearchResult), args.Error(1)
}

type mockEncoder struct {
	mock.Mock
}

func (m *mockEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *mockEncoder) Version() string { return "mock-embedder" }

func chunkHit(content string, score float64) domain.ChunkSearchResult {
	return domain.ChunkSearchResult{
		Chunk: domain.RegulationChunk{ID: uuid.New(), Content: content, Filename: "reg.pdf"},
		Score: score,
	}
}

func TestRetrieveRegulations_GraphExpandedHitsExcludedFromSufficiency(t *testing.T) {
	repo := new(mockChunkRepo)
	encoder := new(mockEncoder)

	encoder.On("Encode", mock.Anything, []string{"privacy rule"}).
		Return([][]float32{{0.1, 0.2}}, nil)

	primary := chunkHit("direct hit", 0.92)
	repo.On("Search", mock.Anything, mock.Anything, "hipaa", 5).
		Return([]domain.ChunkSearchResult{primary}, nil)
	repo.On("ExpandReferences", mock.Anything, mock.Anything, 5).
		Return([]domain.ChunkSearchResult{chunkHit("referenced section", 0.3)}, nil)

	uc := usecase.NewRetrieveRegulationsUsecase(repo, encoder, testLogger())

	result, err := uc.Execute(context.Background(), usecase.RetrieveRegulationsInput{
		Query:      "privacy rule",
		ProjectID:  "hipaa",
		MinSources: 1,
	})
	require.NoError(t, err)

	// Graph-expanded reference is dropped by the factory; only the vector
	// hit survives and sufficiency is computed on that count.
	assert.Len(t, result.Sources, 1)
	assert.Equal(t, primary.Chunk.ID.String(), result.Sources[0].SourceID)
	assert.True(t, result.IsSufficient)
	assert.Equal(t, 1, result.QueryAnalysis["vector_hits"])
	assert.Equal(t, 1, result.QueryAnalysis["graph_expanded"])
}

func TestRetrieveRegulations_ExpansionFailureIsNonFatal(t *testing.T) {
	repo := new(mockChunkRepo)
	encoder := new(mockEncoder)

	encoder.On("Encode", mock.Anything, mock.Anything).
		Return([][]float32{{0.5}}, nil)
	repo.On("Search", mock.Anything, mock.Anything, "", 5).
		Return([]domain.ChunkSearchResult{chunkHit("hit", 0.8)}, nil)
	repo.On("ExpandReferences", mock.Anything, mock.Anything, 5).
		Return(nil, assert.AnError)

	uc := usecase.NewRetrieveRegulationsUsecase(repo, encoder, testLogger())

	result, err := uc.Execute(context.Background(), usecase.RetrieveRegulationsInput{Query: "q"})
	require.NoError(t, err)
	assert.Len(t, result.Sources, 1)
}

func TestRetrieveRegulations_EmptyQueryRejected(t *testing.T) {
	uc := usecase.NewRetrieveRegulationsUsecase(new(mockChunkRepo), new(mockEncoder), testLogger())

	_, err := uc.Execute(context.Background(), usecase.RetrieveRegulationsInput{})
	assert.Error(t, err)
}

func TestRetrieveRegulations_EncoderErrorPropagates(t *testing.T) {
	repo := new(mockChunkRepo)
	encoder := new(mockEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	uc := usecase.NewRetrieveRegulationsUsecase(repo, encoder, testLogger())

	_, err := uc.Execute(context.Background(), usecase.RetrieveRegulationsInput{Query: "q"})
	assert.ErrorContains(t, err, "failed to encode query")
}
