package swhid

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Identifier prefixes.
const (
	ContentPrefix   = "swh:1:cnt:"
	DirectoryPrefix = "swh:1:dir:"
)

var (
	// ErrNotExist reports a path that does not exist.
	ErrNotExist = errors.New("path does not exist")
	// ErrWrongKind reports a file passed where a directory was expected, or the reverse.
	ErrWrongKind = errors.New("wrong path kind")
)

// PathError describes a failed identification of a single path.
type PathError struct {
	Path string
	Want string
	Err  error
}

func (e *PathError) Error() string {
	if e.Want != "" {
		return fmt.Sprintf("swhid %s %s: %v", e.Want, e.Path, e.Err)
	}
	return fmt.Sprintf("swhid %s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// Hash extracts the hex digest from an identifier, or "" when it is malformed.
func Hash(id string) string {
	for _, prefix := range []string{ContentPrefix, DirectoryPrefix} {
		if rest, ok := strings.CutPrefix(id, prefix); ok && len(rest) == sha1.Size*2 {
			return rest
		}
	}
	return ""
}

// Identifier computes content identifiers and memoizes directory results by
// absolute path. It is safe for concurrent use; identical trees always yield
// identical identifiers.
type Identifier struct {
	mu   sync.Mutex
	dirs map[string][sha1.Size]byte
}

// New returns an empty Identifier.
func New() *Identifier {
	return &Identifier{dirs: make(map[string][sha1.Size]byte)}
}

// Identify dispatches on the path kind.
func (id *Identifier) Identify(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", statError(path, "", err)
	}
	if info.IsDir() {
		return id.Dir(ctx, path)
	}
	return id.File(path)
}

// File returns the swh:1:cnt identifier of a regular file.
func (id *Identifier) File(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", statError(path, "file", err)
	}
	if !info.Mode().IsRegular() {
		return "", &PathError{Path: path, Want: "file", Err: ErrWrongKind}
	}
	sum, err := hashFile(path, info.Size())
	if err != nil {
		return "", err
	}
	return ContentPrefix + hex.EncodeToString(sum[:]), nil
}

// Dir returns the swh:1:dir identifier of a directory. Entries whose names
// begin with a dot are ignored at every level.
func (id *Identifier) Dir(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("swhid: resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", statError(abs, "directory", err)
	}
	if !info.IsDir() {
		return "", &PathError{Path: abs, Want: "directory", Err: ErrWrongKind}
	}
	sum, err := id.hashDir(ctx, abs)
	if err != nil {
		return "", err
	}
	return DirectoryPrefix + hex.EncodeToString(sum[:]), nil
}

type treeEntry struct {
	name string
	mode string
	sum  [sha1.Size]byte
}

func (e treeEntry) sortKey() string {
	if e.mode == modeDir {
		return e.name + "/"
	}
	return e.name
}

const (
	modeFile    = "100644"
	modeExec    = "100755"
	modeSymlink = "120000"
	modeDir     = "40000"
)

func (id *Identifier) hashDir(ctx context.Context, abs string) ([sha1.Size]byte, error) {
	if err := ctx.Err(); err != nil {
		return [sha1.Size]byte{}, err
	}
	id.mu.Lock()
	if sum, ok := id.dirs[abs]; ok {
		id.mu.Unlock()
		return sum, nil
	}
	id.mu.Unlock()

	dirents, err := os.ReadDir(abs)
	if err != nil {
		return [sha1.Size]byte{}, fmt.Errorf("swhid: read dir %s: %w", abs, err)
	}
	entries := make([]treeEntry, 0, len(dirents))
	for _, de := range dirents {
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		full := filepath.Join(abs, name)
		entry := treeEntry{name: name}
		switch typ := de.Type(); {
		case typ&fs.ModeSymlink != 0:
			target, err := os.Readlink(full)
			if err != nil {
				return [sha1.Size]byte{}, fmt.Errorf("swhid: readlink %s: %w", full, err)
			}
			entry.mode = modeSymlink
			entry.sum = objectHash("blob", []byte(target))
		case typ.IsDir():
			sum, err := id.hashDir(ctx, full)
			if err != nil {
				return [sha1.Size]byte{}, err
			}
			entry.mode = modeDir
			entry.sum = sum
		case typ.IsRegular():
			info, err := de.Info()
			if err != nil {
				return [sha1.Size]byte{}, fmt.Errorf("swhid: stat %s: %w", full, err)
			}
			sum, err := hashFile(full, info.Size())
			if err != nil {
				return [sha1.Size]byte{}, err
			}
			entry.mode = modeFile
			if info.Mode().Perm()&0o111 != 0 {
				entry.mode = modeExec
			}
			entry.sum = sum
		default:
			// sockets, devices and pipes have no archived representation
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].sortKey() < entries[j].sortKey() })

	var body bytes.Buffer
	for _, e := range entries {
		body.WriteString(e.mode)
		body.WriteByte(' ')
		body.WriteString(e.name)
		body.WriteByte(0)
		body.Write(e.sum[:])
	}
	sum := objectHash("tree", body.Bytes())

	id.mu.Lock()
	id.dirs[abs] = sum
	id.mu.Unlock()
	return sum, nil
}

func hashFile(path string, size int64) ([sha1.Size]byte, error) {
	var out [sha1.Size]byte
	f, err := os.Open(path)
	if err != nil {
		return out, fmt.Errorf("swhid: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha1.New()
	h.Write([]byte("blob " + strconv.FormatInt(size, 10) + "\x00"))
	n, err := io.Copy(h, f)
	if err != nil {
		return out, fmt.Errorf("swhid: read %s: %w", path, err)
	}
	if n != size {
		return out, fmt.Errorf("swhid: %s changed while hashing", path)
	}
	copy(out[:], h.Sum(nil))
	return out, nil
}

func objectHash(kind string, data []byte) [sha1.Size]byte {
	h := sha1.New()
	h.Write([]byte(kind + " " + strconv.Itoa(len(data)) + "\x00"))
	h.Write(data)
	var out [sha1.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

func statError(path, want string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return &PathError{Path: path, Want: want, Err: ErrNotExist}
	}
	return fmt.Errorf("swhid: stat %s: %w", path, err)
}
