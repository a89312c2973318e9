// Package relations resolves related item categories from a static
// adjacency graph, used to suggest alternative categories alongside search
// results.
package relations

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Graph maps a category to the categories commonly associated with it, for
// example a wallet to the cards and cash usually lost with it. Lookups are
// case-insensitive. A Graph is immutable after load.
type Graph struct {
	related map[string][]string
}

// Load reads the adjacency graph from a YAML file of the form:
//
//	wallet: [id card, cash, credit card]
//	phone: [phone case, charger]
//
// A missing or unreadable file yields an empty graph and a warning; category
// suggestions are an enrichment, never a startup failure.
func Load(path string, logger *zap.Logger) *Graph {
	g := &Graph{related: make(map[string][]string)}
	if path == "" {
		return g
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("relations graph unavailable", zap.String("path", path), zap.Error(err))
		return g
	}
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		logger.Warn("relations graph malformed", zap.String("path", path), zap.Error(err))
		return g
	}
	for category, neighbors := range raw {
		g.related[strings.ToLower(strings.TrimSpace(category))] = neighbors
	}
	logger.Info("relations graph loaded",
		zap.String("path", path), zap.Int("categories", len(g.related)))
	return g
}

// Related returns the categories associated with category, or nil when the
// category is unknown.
func (g *Graph) Related(category string) []string {
	return g.related[strings.ToLower(strings.TrimSpace(category))]
}

// Size returns the number of categories in the graph.
func (g *Graph) Size() int {
	return len(g.related)
}
