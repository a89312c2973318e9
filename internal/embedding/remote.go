package embedding

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/soyamu/soyamu/pkg/utils"
)

// RemoteEmbedder calls an OpenAI-compatible embedding endpoint. It is the
// networked rung of the fallback ladder, used when no local ONNX model can
// be loaded but an embedding service is reachable.
type RemoteEmbedder struct {
	embedder   embeddings.Embedder
	name       string
	dimensions int
	cache      *Cache
}

// NewRemoteEmbedder builds a client for the endpoint at host serving model.
// OPENAI_API_KEY is used when set; otherwise a placeholder token is sent,
// which local OpenAI-compatible services accept.
func NewRemoteEmbedder(host, model string, dimensions, cacheSize int) (*RemoteEmbedder, error) {
	token := os.Getenv("OPENAI_API_KEY")
	if token == "" {
		token = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithToken(token),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("wrap embedder: %w", err)
	}
	return &RemoteEmbedder{
		embedder:   emb,
		name:       "remote:" + model,
		dimensions: dimensions,
		cache:      NewCache(cacheSize),
	}, nil
}

// Embed returns the unit-normalized embedding for text.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("remote embed: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("remote embed: got %d vectors for one text", len(vectors))
	}
	vector := vectors[0]
	if len(vector) != e.dimensions {
		return nil, fmt.Errorf("remote embed: dimension mismatch: got %d, expected %d", len(vector), e.dimensions)
	}
	utils.NormalizeL2(vector)
	e.cache.Set(text, vector)
	return vector, nil
}

// EmbedBatch embeds all texts in one request.
func (e *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("remote embed batch: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("remote embed batch: got %d vectors for %d texts", len(vectors), len(texts))
	}
	for i := range vectors {
		if len(vectors[i]) != e.dimensions {
			return nil, fmt.Errorf("remote embed batch: dimension mismatch at %d", i)
		}
		utils.NormalizeL2(vectors[i])
	}
	return vectors, nil
}

// Dimensions returns the embedding dimension.
func (e *RemoteEmbedder) Dimensions() int {
	return e.dimensions
}

// Name identifies the remote model.
func (e *RemoteEmbedder) Name() string {
	return e.name
}

// Close is a no-op; the HTTP client has no persistent resources.
func (e *RemoteEmbedder) Close() error {
	return nil
}
