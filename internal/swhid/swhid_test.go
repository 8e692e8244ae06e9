package swhid_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"src2purl/internal/swhid"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFileMatchesGitBlobHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	writeFile(t, path, "hello\n")

	got, err := swhid.New().File(path)
	if err != nil {
		t.Fatalf("File returned error: %v", err)
	}
	// git hash-object of "hello\n"
	want := "swh:1:cnt:ce013625030ba8dba906f756967f9e9ca394464a"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEmptyDirectoryMatchesEmptyTree(t *testing.T) {
	got, err := swhid.New().Dir(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Dir returned error: %v", err)
	}
	want := "swh:1:dir:4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestDirIgnoresHiddenEntriesAndIsDeterministic(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	for _, root := range []string{a, b} {
		writeFile(t, filepath.Join(root, "main.c"), "int main(void){return 0;}\n")
		writeFile(t, filepath.Join(root, "src", "util.c"), "void util(void){}\n")
	}
	writeFile(t, filepath.Join(b, ".git", "HEAD"), "ref: refs/heads/main\n")
	writeFile(t, filepath.Join(b, ".hidden"), "ignored")

	idA, err := swhid.New().Dir(context.Background(), a)
	if err != nil {
		t.Fatalf("Dir(a): %v", err)
	}
	idB, err := swhid.New().Dir(context.Background(), b)
	if err != nil {
		t.Fatalf("Dir(b): %v", err)
	}
	if idA != idB {
		t.Fatalf("hidden entries changed the identifier: %s vs %s", idA, idB)
	}

	writeFile(t, filepath.Join(a, "extra.c"), "int x;\n")
	idA2, err := swhid.New().Dir(context.Background(), a)
	if err != nil {
		t.Fatalf("Dir(a) after change: %v", err)
	}
	if idA2 == idA {
		t.Fatal("expected identifier to change with content")
	}
}

func TestWrongKindAndMissingPathAreTyped(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	writeFile(t, file, "x")
	id := swhid.New()

	_, err := id.Dir(context.Background(), file)
	if !errors.Is(err, swhid.ErrWrongKind) {
		t.Fatalf("Dir(file): got %v want ErrWrongKind", err)
	}
	_, err = id.File(dir)
	if !errors.Is(err, swhid.ErrWrongKind) {
		t.Fatalf("File(dir): got %v want ErrWrongKind", err)
	}
	_, err = id.Identify(context.Background(), filepath.Join(dir, "missing"))
	if !errors.Is(err, swhid.ErrNotExist) {
		t.Fatalf("Identify(missing): got %v want ErrNotExist", err)
	}
	var pathErr *swhid.PathError
	if !errors.As(err, &pathErr) || !strings.HasSuffix(pathErr.Path, "missing") {
		t.Fatalf("expected PathError with path, got %#v", err)
	}
}

func TestHashExtractsDigest(t *testing.T) {
	digest := "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	if got := swhid.Hash(swhid.DirectoryPrefix + digest); got != digest {
		t.Fatalf("got %q want %q", got, digest)
	}
	if got := swhid.Hash("swh:1:rev:" + digest); got != "" {
		t.Fatalf("expected empty hash for unsupported prefix, got %q", got)
	}
}
