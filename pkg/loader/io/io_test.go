package io

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/comicverse/unigraph/pkg/loader"
)

func TestIOGraphFileLoader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Q.txt"), []byte("[[Bruce Wayne]]"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewIOGraphFileLoader(dir)
	file := loader.NewArticleFile(loader.NewGraphFileParams{ID: "Q", FilePath: "Q.txt", Loader: l})

	got, err := file.GetText(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "[[Bruce Wayne]]" {
		t.Fatalf("unexpected content %q", got)
	}

	// served from cache after the file is gone
	if err := os.Remove(filepath.Join(dir, "Q.txt")); err != nil {
		t.Fatal(err)
	}
	if _, err := file.GetText(context.Background()); err != nil {
		t.Fatalf("expected cached content, got %v", err)
	}
}

func TestIOGraphFileLoader_NotFound(t *testing.T) {
	l := NewIOGraphFileLoader(t.TempDir())
	file := loader.NewArticleFile(loader.NewGraphFileParams{ID: "X", FilePath: "X.json", Loader: l})

	_, err := file.GetText(context.Background())
	if !errors.Is(err, loader.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIOGraphFileLoader_ResetRereads(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "Batman.txt")
	if err := os.WriteFile(p, []byte("first [[Robin]]"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewIOGraphFileLoader(dir)
	file := loader.NewArticleFile(loader.NewGraphFileParams{ID: "Batman", FilePath: "Batman.txt", Loader: l})
	if _, err := file.GetText(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.WriteFile(p, []byte("second [[Joker]]"), 0o644); err != nil {
		t.Fatal(err)
	}
	l.Reset()

	got, err := file.GetText(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "second [[Joker]]" {
		t.Fatalf("expected rewritten content, got %q", got)
	}
}

func TestIOGraphFileLoader_RejectsPathsOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "data")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	secret := filepath.Join(parent, "secret.txt")
	if err := os.WriteFile(secret, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewIOGraphFileLoader(root)
	for _, p := range []string{secret, "../secret.txt", "wiki/../../secret.txt"} {
		file := loader.NewArticleFile(loader.NewGraphFileParams{ID: "x", FilePath: p, Loader: l})
		if _, err := file.GetText(context.Background()); !errors.Is(err, loader.ErrOutsideRoot) {
			t.Fatalf("expected %q to be rejected, got %v", p, err)
		}
	}
}
