package relations

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeGraph(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relations.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeGraph(t, `
wallet: [id card, cash, credit card]
Phone: [phone case, charger]
`)
	g := Load(path, zap.NewNop())
	if g.Size() != 2 {
		t.Fatalf("Size=%d, want 2", g.Size())
	}
	got := g.Related("Wallet")
	if len(got) != 3 || got[0] != "id card" {
		t.Errorf("Related(Wallet) = %v", got)
	}
	// Keys are stored lowercased regardless of file casing.
	if len(g.Related("phone")) != 2 {
		t.Errorf("Related(phone) = %v", g.Related("phone"))
	}
	if g.Related("unknown") != nil {
		t.Error("unknown category should return nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	g := Load(filepath.Join(t.TempDir(), "nope.yaml"), zap.NewNop())
	if g.Size() != 0 {
		t.Errorf("Size=%d, want 0", g.Size())
	}
	if g.Related("wallet") != nil {
		t.Error("empty graph should return nil")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeGraph(t, "wallet: [unclosed")
	g := Load(path, zap.NewNop())
	if g.Size() != 0 {
		t.Errorf("Size=%d, want 0", g.Size())
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	g := Load("", zap.NewNop())
	if g.Size() != 0 {
		t.Errorf("Size=%d, want 0", g.Size())
	}
}
