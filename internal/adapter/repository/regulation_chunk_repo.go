package repository

import (
	"context"
	"fmt"

	"shorui-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type regulationChunkRepository struct {
	pool *pgxpool.Pool
}

// NewRegulationChunkRepository creates a pgvector-backed chunk repository.
func NewRegulationChunkRepository(pool *pgxpool.Pool) domain.RegulationChunkRepository {
	return &regulationChunkRepository{pool: pool}
}

// Search orders by cosine distance against the pgvector index and returns
// results in ascending-distance order, which callers treat as relevance order.
func (r *regulationChunkRepository) Search(ctx context.Context, embedding pgvector.Vector, projectID string, limit int) ([]domain.ChunkSearchResult, error) {
	query := `
		SELECT id, project_id, filename, page_num, block_id, section_id, content, created_at,
		       1 - (embedding <=> $1) AS score
		FROM regulation_chunks
		WHERE project_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, embedding, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

// ExpandReferences returns chunks linked from the given chunks through the
// regulation cross-reference table. Scores carry over from the referencing
// side so callers can still rank, but these rows are the secondary class.
func (r *regulationChunkRepository) ExpandReferences(ctx context.Context, chunkIDs []uuid.UUID, limit int) ([]domain.ChunkSearchResult, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT ON (c.id)
		       c.id, c.project_id, c.filename, c.page_num, c.block_id, c.section_id, c.content, c.created_at,
		       0.0 AS score
		FROM regulation_references ref
		JOIN regulation_chunks c ON c.id = ref.target_chunk_id
		WHERE ref.source_chunk_id = ANY($1)
		  AND c.id != ALL($1)
		ORDER BY c.id
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, chunkIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to expand references: %w", err)
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

func scanSearchResults(rows pgx.Rows) ([]domain.ChunkSearchResult, error) {
	var results []domain.ChunkSearchResult
	for rows.Next() {
		var r domain.ChunkSearchResult
		if err := rows.Scan(
			&r.Chunk.ID,
			&r.Chunk.ProjectID,
			&r.Chunk.Filename,
			&r.Chunk.PageNum,
			&r.Chunk.BlockID,
			&r.Chunk.SectionID,
			&r.Chunk.Content,
			&r.Chunk.CreatedAt,
			&r.Score,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}
