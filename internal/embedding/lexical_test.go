package embedding

import (
	"context"
	"math"
	"testing"
)

func TestLexicalEmbedder_Deterministic(t *testing.T) {
	e := NewLexicalEmbedder(64)
	a, err := e.Embed(context.Background(), "black leather wallet")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, _ := e.Embed(context.Background(), "black leather wallet")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestLexicalEmbedder_UnitNorm(t *testing.T) {
	e := NewLexicalEmbedder(64)
	v, _ := e.Embed(context.Background(), "red umbrella left on the bus")
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("vector norm^2 = %f, want 1.0", sum)
	}
}

func TestLexicalEmbedder_SelfSimilarity(t *testing.T) {
	e := NewLexicalEmbedder(64)
	v, _ := e.Embed(context.Background(), "silver ring")
	var dot float64
	for _, x := range v {
		dot += float64(x) * float64(x)
	}
	if math.Abs(dot-1.0) > 1e-5 {
		t.Errorf("self similarity = %f, want 1.0", dot)
	}
}

func TestLexicalEmbedder_EmptyText(t *testing.T) {
	e := NewLexicalEmbedder(16)
	v, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(v) != 16 {
		t.Fatalf("len=%d, want 16", len(v))
	}
	for _, x := range v {
		if x != 0 {
			t.Fatal("empty text should produce the zero vector")
		}
	}
}

func TestLexicalEmbedder_SharedTokensScoreHigher(t *testing.T) {
	e := NewLexicalEmbedder(128)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "black leather wallet")
	b, _ := e.Embed(ctx, "black wallet made of leather")
	c, _ := e.Embed(ctx, "orange tabby cat")
	dot := func(x, y []float32) float64 {
		var s float64
		for i := range x {
			s += float64(x[i]) * float64(y[i])
		}
		return s
	}
	if dot(a, b) <= dot(a, c) {
		t.Errorf("overlapping text should score higher: %f <= %f", dot(a, b), dot(a, c))
	}
}
