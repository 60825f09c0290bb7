package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirectorySource serves manifests straight from a local directory. The
// revision marker is a content hash over all YAML files, so an unchanged
// tree always fetches to the same revision.
type DirectorySource struct {
	path string
}

// NewDirectorySource creates a source backed by a local directory.
func NewDirectorySource(path string) *DirectorySource {
	return &DirectorySource{path: path}
}

// Fetch resolves the directory and computes its content revision.
func (s *DirectorySource) Fetch(ctx context.Context) (Tree, error) {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return Tree{}, fmt.Errorf("resolving manifest directory %s: %w", s.path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Tree{}, fmt.Errorf("manifest directory %s: %w", abs, err)
	}
	if !info.IsDir() {
		return Tree{}, fmt.Errorf("manifest path %s is not a directory", abs)
	}

	revision, err := hashTree(ctx, abs)
	if err != nil {
		return Tree{}, err
	}

	return Tree{Dir: abs, Revision: revision}, nil
}

// hashTree computes a stable content hash over every YAML file in the tree.
// File paths participate in the hash so renames count as changes.
func hashTree(ctx context.Context, root string) (string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".yaml") || strings.HasSuffix(d.Name(), ".yml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(paths)

	hash := sha256.New()
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(hash, "%s\x00", rel)

		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", path, err)
		}
		_, err = io.Copy(hash, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", path, err)
		}
		hash.Write([]byte{0})
	}

	return hex.EncodeToString(hash.Sum(nil))[:12], nil
}
