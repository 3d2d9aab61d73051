// Package gitsource fetches a single configuration file from a Git
// repository for import into the registry. It performs a shallow, single
// branch clone into a temp directory, reads the requested file into memory
// and records the HEAD commit SHA for provenance.
package gitsource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gogithttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Spec names a file inside a Git repository.
type Spec struct {
	// URL is the clone URL of the repository.
	URL string `json:"url"`
	// Ref is the branch to fetch. Defaults to "main".
	Ref string `json:"ref,omitempty"`
	// Path is the repo-relative path of the configuration file.
	Path string `json:"path"`
	// AuthToken optionally authenticates the clone.
	AuthToken string `json:"authToken,omitempty"`
	// ShallowClone controls Depth:1 cloning. Defaults to true; local
	// file-path remotes need a full clone.
	ShallowClone *bool `json:"shallowClone,omitempty"`
}

// Source is a fetched file together with its provenance. It satisfies the
// content source contract of the import pipeline.
type Source struct {
	FileName string
	Commit   string
	data     []byte
}

// Name returns the base name of the fetched file.
func (s *Source) Name() string { return s.FileName }

// Open returns a reader over the fetched content.
func (s *Source) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// Fetch clones spec.URL at spec.Ref and reads spec.Path. The clone is
// single-branch, shallow by default, and its temp directory is removed
// before Fetch returns; only the file bytes and the commit SHA survive.
func Fetch(ctx context.Context, spec Spec) (*Source, error) {
	if spec.URL == "" {
		return nil, fmt.Errorf("git url is required")
	}
	if spec.Path == "" {
		return nil, fmt.Errorf("git path is required")
	}
	relPath := filepath.ToSlash(filepath.Clean(spec.Path))
	if relPath == "." || strings.HasPrefix(relPath, "..") || filepath.IsAbs(spec.Path) {
		return nil, fmt.Errorf("git path %q must be repo-relative", spec.Path)
	}
	ref := spec.Ref
	if ref == "" {
		ref = "main"
	}

	dir, err := os.MkdirTemp("", "registry-git-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	cloneOpts := &gogit.CloneOptions{
		URL:           spec.URL,
		ReferenceName: plumbing.NewBranchReferenceName(ref),
		SingleBranch:  true,
	}
	if spec.ShallowClone == nil || *spec.ShallowClone {
		cloneOpts.Depth = 1
	}
	if spec.AuthToken != "" {
		cloneOpts.Auth = &gogithttp.BasicAuth{
			Username: "git", // Username is ignored for token auth.
			Password: spec.AuthToken,
		}
	}

	repo, err := gogit.PlainCloneContext(ctx, dir, false, cloneOpts)
	if err != nil {
		return nil, fmt.Errorf("git clone failed for %s: %w", spec.URL, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD of %s: %w", spec.URL, err)
	}

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, fmt.Errorf("read %s from %s@%s: %w", spec.Path, spec.URL, ref, err)
	}

	return &Source{
		FileName: filepath.Base(relPath),
		Commit:   head.Hash().String(),
		data:     data,
	}, nil
}
