package content

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrTooLarge is returned by Put when the content exceeds the size limit.
var ErrTooLarge = errors.New("content exceeds size limit")

// ErrCorrupt is returned when stored content no longer matches its digest.
var ErrCorrupt = errors.New("content hash mismatch")

// Store is a content-addressed blob store. Blobs live under their SHA-256
// hex digest, are written once and never modified, so readers need no
// locking.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create content root: %w", err)
	}
	return &Store{root: dir}, nil
}

// blobPath shards blobs by the first digest byte to keep directories small.
func (s *Store) blobPath(hash string) string {
	return filepath.Join(s.root, hash[:2], hash)
}

// Put streams r into the store and returns the SHA-256 hex digest and size.
// limit > 0 bounds the accepted size; ErrTooLarge aborts the write. Content
// already present is reused without rewriting.
func (s *Store) Put(r io.Reader, limit int64) (string, int64, error) {
	tmp, err := os.CreateTemp(s.root, "put-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp blob: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), src)
	if err != nil {
		return "", 0, fmt.Errorf("write blob: %w", err)
	}
	if limit > 0 && size > limit {
		return "", 0, ErrTooLarge
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	dest := s.blobPath(hash)
	if _, err := os.Stat(dest); err == nil {
		return hash, size, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", 0, fmt.Errorf("create blob dir: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("close temp blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", 0, fmt.Errorf("commit blob: %w", err)
	}
	return hash, size, nil
}

// Open returns a reader over the blob. The error satisfies
// errors.Is(err, fs.ErrNotExist) when the blob is absent.
func (s *Store) Open(hash string) (io.ReadCloser, error) {
	return os.Open(s.blobPath(hash))
}

// ReadVerified reads the whole blob and re-checks its digest.
func (s *Store) ReadVerified(hash string) ([]byte, error) {
	data, err := os.ReadFile(s.blobPath(hash))
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != hash {
		return nil, ErrCorrupt
	}
	return data, nil
}

// Verify re-hashes the blob and returns ErrCorrupt on mismatch.
func (s *Store) Verify(hash string) error {
	f, err := os.Open(s.blobPath(hash))
	if err != nil {
		return err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return fmt.Errorf("read blob: %w", err)
	}
	if hex.EncodeToString(hasher.Sum(nil)) != hash {
		return ErrCorrupt
	}
	return nil
}

// ExportTo copies the blob to destPath, verifying the digest during the
// copy. The copy goes through a temp file in the destination directory and
// is renamed into place only after the digest checks out, so a corrupt blob
// never reaches destPath.
func (s *Store) ExportTo(hash, destPath string) error {
	src, err := s.Open(hash)
	if err != nil {
		return err
	}
	defer src.Close()

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return fmt.Errorf("create export temp: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), src); err != nil {
		return fmt.Errorf("copy blob: %w", err)
	}
	if hex.EncodeToString(hasher.Sum(nil)) != hash {
		return ErrCorrupt
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}
	return nil
}
