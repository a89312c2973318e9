// Package embedding provides text embedding providers and the startup
// fallback ladder that selects one.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/soyamu/soyamu/internal/config"
)

// ErrModelUnavailable is returned when every rung of the fallback ladder
// fails. This is the only unrecoverable startup error: without an embedding
// provider the engine cannot operate.
var ErrModelUnavailable = errors.New("embedding: all providers in fallback ladder failed")

// Embedder produces fixed-dimension vector embeddings for text. Vectors are
// unit-normalized so that inner product equals cosine similarity. One
// provider is selected at startup and fixed for the process lifetime;
// vectors from different providers must never share an index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Name identifies the provider; snapshots record it so that stale
	// snapshots from another provider are detected and discarded.
	Name() string
	Close() error
}

// Rung is one candidate of the fallback ladder: a named provider constructor.
type Rung struct {
	Name  string
	Build func() (Embedder, error)
}

// Ladder returns the ranked provider constructors for cfg, most preferred
// first: the fine-tuned domain model, a general-purpose model, a remote
// OpenAI-compatible endpoint when configured, and finally the lexical
// provider that needs no model files.
func Ladder(cfg *config.EmbeddingConfig) []Rung {
	rungs := []Rung{
		{Name: "onnx-finetuned", Build: func() (Embedder, error) {
			return NewONNXEmbedder(cfg.FineTunedModelPath, cfg.Dimensions, cfg.MaxTokens, cfg.CacheSize)
		}},
		{Name: "onnx-base", Build: func() (Embedder, error) {
			return NewONNXEmbedder(cfg.BaseModelPath, cfg.Dimensions, cfg.MaxTokens, cfg.CacheSize)
		}},
	}
	if cfg.RemoteHost != "" {
		rungs = append(rungs, Rung{Name: "remote", Build: func() (Embedder, error) {
			return NewRemoteEmbedder(cfg.RemoteHost, cfg.RemoteModel, cfg.Dimensions, cfg.CacheSize)
		}})
	}
	if !cfg.DisableLexicalFallback {
		rungs = append(rungs, Rung{Name: "lexical", Build: func() (Embedder, error) {
			return NewLexicalEmbedder(cfg.Dimensions), nil
		}})
	}
	return rungs
}

// NewFromLadder tries each rung in order and returns the first provider that
// both constructs and answers a probe embed with a vector of its declared
// dimension. Construction failures are logged and skipped; exhausting the
// ladder returns ErrModelUnavailable.
func NewFromLadder(ctx context.Context, rungs []Rung, logger *zap.Logger) (Embedder, error) {
	for _, rung := range rungs {
		emb, err := rung.Build()
		if err != nil {
			logger.Warn("embedding provider unavailable",
				zap.String("provider", rung.Name), zap.Error(err))
			continue
		}
		probe, err := emb.Embed(ctx, "probe")
		if err != nil || len(probe) != emb.Dimensions() {
			if err == nil {
				err = fmt.Errorf("probe returned %d values, expected %d", len(probe), emb.Dimensions())
			}
			logger.Warn("embedding provider failed probe",
				zap.String("provider", rung.Name), zap.Error(err))
			_ = emb.Close()
			continue
		}
		logger.Info("embedding provider selected",
			zap.String("provider", rung.Name), zap.Int("dimensions", emb.Dimensions()))
		return emb, nil
	}
	return nil, ErrModelUnavailable
}
