package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"shorui-orchestrator/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// GeneratorConfig carries the guard's behavior knobs. It is passed explicitly
// so behavior stays deterministic and testable without environment coupling.
type GeneratorConfig struct {
	// MinSources is the default sufficiency threshold. A call with fewer
	// sources than this refuses without invoking generation.
	MinSources int
	// RequireCitations enables the zero-citation policy check.
	RequireCitations bool
	// StrictCitations escalates the zero-citation signal from a logged
	// warning to a refusal. Off by default: availability over blocking.
	StrictCitations bool
}

// GroundedGenerator sits between retrieval and the generation backend. It
// enforces the sufficiency threshold, builds the defended prompt, converts
// every backend failure into a safe refusal, and returns only answers whose
// citations were validated against the supplied source set.
//
// The generator holds no mutable per-call state; concurrent calls are
// independent and cancellation cannot leave anything partial behind.
type GroundedGenerator struct {
	backend   domain.GenerativeModel
	labeler   ContextLabeler
	extractor CitationExtractor
	cfg       GeneratorConfig
	logger    *slog.Logger
	cache     *expirable.LRU[string, *domain.AnswerResult]
}

// GroundedGeneratorOption customizes optional generator behavior.
type GroundedGeneratorOption func(*GroundedGenerator)

// WithAnswerCache enables an expiring LRU over successful answers, keyed by
// query plus the exact source-id set. Refusals are never cached.
func WithAnswerCache(size int, ttl time.Duration) GroundedGeneratorOption {
	return func(g *GroundedGenerator) {
		if size > 0 {
			g.cache = expirable.NewLRU[string, *domain.AnswerResult](size, nil, ttl)
		}
	}
}

// NewGroundedGenerator wires the guard around a generation backend.
func NewGroundedGenerator(backend domain.GenerativeModel, cfg GeneratorConfig, logger *slog.Logger, opts ...GroundedGeneratorOption) *GroundedGenerator {
	if cfg.MinSources <= 0 {
		cfg.MinSources = 1
	}
	g := &GroundedGenerator{
		backend:   backend,
		labeler:   NewContextLabeler(),
		extractor: NewCitationExtractor(),
		cfg:       cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateGrounded produces a citation-validated answer for the query, or a
// refusal. It never returns an error: backend faults are logged in full and
// mapped to the generation_error refusal.
func (g *GroundedGenerator) GenerateGrounded(ctx context.Context, query string, retrieval *domain.RetrievalResult, minSourcesOverride *int) *domain.AnswerResult {
	threshold := g.cfg.MinSources
	if minSourcesOverride != nil {
		threshold = *minSourcesOverride
	}

	if len(retrieval.Sources) < threshold {
		g.logger.Info("refusing to answer",
			slog.String("reason", domain.RefusalInsufficientSources),
			slog.Int("sources", len(retrieval.Sources)),
			slog.Int("threshold", threshold))
		return domain.Refusal(domain.RefusalInsufficientSources)
	}

	cacheKey := g.cacheKey(query, retrieval.Sources)
	if g.cache != nil {
		if cached, ok := g.cache.Get(cacheKey); ok {
			g.logger.Debug("answer cache hit", slog.String("prompt_version", PromptVersion))
			return cached
		}
	}

	contextBlock := injectionDefense + citationInstruction + "\n\n" + g.labeler.Label(retrieval.Sources)

	resp, err := g.backend.Generate(ctx, query, contextBlock)
	if err != nil {
		g.logger.Error("generation failed",
			slog.String("reason", domain.RefusalGenerationError),
			slog.String("error", err.Error()),
			slog.String("backend", g.backend.Version()))
		return domain.Refusal(domain.RefusalGenerationError)
	}
	answerText := resp.Answer

	extraction := g.extractor.Extract(answerText, retrieval.Sources)
	for _, unknown := range extraction.UnknownRefs {
		g.logger.Warn("citation references unknown source",
			slog.String("source_id", unknown))
	}

	if g.cfg.RequireCitations && len(extraction.Citations) == 0 {
		g.logger.Warn("answer generated without valid citations",
			slog.String("prompt_version", PromptVersion),
			slog.Bool("strict", g.cfg.StrictCitations))
		if g.cfg.StrictCitations {
			return domain.Refusal(domain.RefusalNoRelevantContent)
		}
	}

	result := domain.NewAnswerResult(answerText, extraction.Citations)
	if g.cache != nil {
		g.cache.Add(cacheKey, result)
	}
	return result
}

// BackendVersion reports the wrapped model identifier for audit records.
func (g *GroundedGenerator) BackendVersion() string {
	return g.backend.Version()
}

func (g *GroundedGenerator) cacheKey(query string, sources []domain.RetrievalSource) string {
	h := sha256.New()
	h.Write([]byte(query))
	for _, source := range sources {
		h.Write([]byte{0})
		h.Write([]byte(source.SourceID))
	}
	return hex.EncodeToString(h.Sum(nil))
}
