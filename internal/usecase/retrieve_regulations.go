package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"shorui-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
)

// RetrieveRegulationsInput defines one retrieval request.
type RetrieveRegulationsInput struct {
	Query      string
	ProjectID  string
	Limit      int
	MinSources int
}

// RetrieveRegulationsUsecase produces the RetrievalResult the grounded
// generator consumes: vector hits in relevance order, graph-expanded
// references flagged as the less-trusted class so the sufficiency factory
// excludes them.
type RetrieveRegulationsUsecase interface {
	Execute(ctx context.Context, input RetrieveRegulationsInput) (*domain.RetrievalResult, error)
}

type retrieveRegulationsUsecase struct {
	chunkRepo domain.RegulationChunkRepository
	encoder   domain.VectorEncoder
	logger    *slog.Logger
}

// NewRetrieveRegulationsUsecase creates the retrieval producer.
func NewRetrieveRegulationsUsecase(
	chunkRepo domain.RegulationChunkRepository,
	encoder domain.VectorEncoder,
	logger *slog.Logger,
) RetrieveRegulationsUsecase {
	return &retrieveRegulationsUsecase{
		chunkRepo: chunkRepo,
		encoder:   encoder,
		logger:    logger,
	}
}

func (u *retrieveRegulationsUsecase) Execute(ctx context.Context, input RetrieveRegulationsInput) (*domain.RetrievalResult, error) {
	if input.Query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 5
	}
	minSources := input.MinSources
	if minSources <= 0 {
		minSources = 1
	}

	embeddings, err := u.encoder.Encode(ctx, []string{input.Query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(embeddings))
	}

	hits, err := u.chunkRepo.Search(ctx, pgvector.NewVector(embeddings[0]), input.ProjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	docs := make([]domain.SourceDocument, 0, len(hits)*2)
	for _, hit := range hits {
		docs = append(docs, toSourceDocument(hit, false))
	}

	// Graph expansion runs after the primary hits are known; failures are
	// non-fatal because expanded references never count toward sufficiency.
	expanded := u.expandReferences(ctx, hits, limit)
	docs = append(docs, expanded...)

	analysis := map[string]any{
		"vector_hits":    len(hits),
		"graph_expanded": len(expanded),
	}
	return domain.RetrievalResultFromDocuments(docs, analysis, minSources), nil
}

func (u *retrieveRegulationsUsecase) expandReferences(ctx context.Context, hits []domain.ChunkSearchResult, limit int) []domain.SourceDocument {
	if len(hits) == 0 {
		return nil
	}
	chunkIDs := make([]uuid.UUID, 0, len(hits))
	for _, hit := range hits {
		chunkIDs = append(chunkIDs, hit.Chunk.ID)
	}

	// Fan out one lookup per hit batch half to keep reference queries small.
	var mu sync.Mutex
	var expanded []domain.SourceDocument
	g, gctx := errgroup.WithContext(ctx)
	for _, batch := range splitBatches(chunkIDs, 2) {
		g.Go(func() error {
			refs, err := u.chunkRepo.ExpandReferences(gctx, batch, limit)
			if err != nil {
				u.logger.Warn("reference expansion failed", slog.String("error", err.Error()))
				return nil // non-fatal
			}
			mu.Lock()
			for _, ref := range refs {
				expanded = append(expanded, toSourceDocument(ref, true))
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return expanded
}

func splitBatches(ids []uuid.UUID, parts int) [][]uuid.UUID {
	if parts <= 1 || len(ids) <= 1 {
		return [][]uuid.UUID{ids}
	}
	size := (len(ids) + parts - 1) / parts
	var batches [][]uuid.UUID
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}

func toSourceDocument(hit domain.ChunkSearchResult, isGraph bool) domain.SourceDocument {
	return domain.SourceDocument{
		ID:        hit.Chunk.ID.String(),
		Content:   hit.Chunk.Content,
		Score:     hit.Score,
		Filename:  hit.Chunk.Filename,
		PageNum:   hit.Chunk.PageNum,
		ProjectID: hit.Chunk.ProjectID,
		BlockID:   hit.Chunk.BlockID,
		SectionID: hit.Chunk.SectionID,
		IsGraph:   isGraph,
	}
}
