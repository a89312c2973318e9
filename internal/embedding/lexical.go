package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/soyamu/soyamu/pkg/utils"
)

// LexicalEmbedder is the last rung of the fallback ladder: a pure-Go
// provider with no model files or network dependency. It feature-hashes
// unigrams and bigrams of the (already normalized) text into a
// fixed-dimension vector with log-scaled term frequencies, then
// unit-normalizes. Vectors capture lexical statistics only, not meaning, so
// ranking quality degrades but every engine contract still holds.
type LexicalEmbedder struct {
	dimensions int
}

// NewLexicalEmbedder returns a lexical provider of the given dimension.
func NewLexicalEmbedder(dimensions int) *LexicalEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &LexicalEmbedder{dimensions: dimensions}
}

// Embed returns the term-frequency vector for text. Empty text yields the
// zero vector.
func (e *LexicalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector := make([]float32, e.dimensions)
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		vector[e.bucket(tok)]++
		if i+1 < len(tokens) {
			vector[e.bucket(tok+" "+tokens[i+1])]++
		}
	}
	for i, v := range vector {
		if v > 0 {
			vector[i] = float32(1 + math.Log(float64(v)))
		}
	}
	utils.NormalizeL2(vector)
	return vector, nil
}

// EmbedBatch embeds each text in order.
func (e *LexicalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Dimensions returns the embedding dimension.
func (e *LexicalEmbedder) Dimensions() int {
	return e.dimensions
}

// Name identifies the provider.
func (e *LexicalEmbedder) Name() string {
	return "lexical"
}

// Close is a no-op.
func (e *LexicalEmbedder) Close() error {
	return nil
}

func (e *LexicalEmbedder) bucket(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(e.dimensions))
}
