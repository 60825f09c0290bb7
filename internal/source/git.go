package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"steward/internal/config"
	"steward/pkg/logging"
)

// GitSource fetches manifests from a git repository at a tracked revision.
//
// It shells out to the git binary: one persistent working copy per
// application lives under the cache directory and is re-fetched on every
// Fetch call. The returned revision is always the resolved commit SHA, so a
// moving branch produces a new revision while a pinned SHA stays stable.
type GitSource struct {
	application string
	spec        config.SourceSpec
	workDir     string
}

// NewGitSource creates a git-backed source for one application.
func NewGitSource(application string, spec config.SourceSpec, cacheDir string) *GitSource {
	return &GitSource{
		application: application,
		spec:        spec,
		workDir:     filepath.Join(cacheDir, application),
	}
}

// Fetch clones or updates the working copy and checks out the tracked
// revision. Network and checkout failures are transient from the caller's
// perspective; the next pass simply retries.
func (s *GitSource) Fetch(ctx context.Context) (Tree, error) {
	if err := s.ensureClone(ctx); err != nil {
		return Tree{}, err
	}

	if _, err := s.git(ctx, "fetch", "--force", "--tags", "origin"); err != nil {
		return Tree{}, fmt.Errorf("fetching %s: %w", s.spec.RepoURL, err)
	}

	sha, err := s.resolveRevision(ctx)
	if err != nil {
		return Tree{}, err
	}

	if _, err := s.git(ctx, "checkout", "--force", sha); err != nil {
		return Tree{}, fmt.Errorf("checking out %s: %w", sha, err)
	}

	dir := s.workDir
	if s.spec.Path != "" {
		dir = filepath.Join(s.workDir, s.spec.Path)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return Tree{}, fmt.Errorf("path %q does not exist in %s at %s", s.spec.Path, s.spec.RepoURL, sha)
	}

	logging.Debug("GitSource", "Fetched %s at %s for application %s", s.spec.RepoURL, sha, s.application)
	return Tree{Dir: dir, Revision: sha}, nil
}

// ensureClone creates the working copy on first use.
func (s *GitSource) ensureClone(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(s.workDir, ".git")); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.workDir), 0o755); err != nil {
		return fmt.Errorf("creating git cache directory: %w", err)
	}

	logging.Info("GitSource", "Cloning %s for application %s", s.spec.RepoURL, s.application)
	cmd := exec.CommandContext(ctx, "git", "clone", "--no-checkout", s.spec.RepoURL, s.workDir)
	cmd.Env = gitEnv()
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cloning %s: %w: %s", s.spec.RepoURL, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// resolveRevision turns the configured revision (branch, tag, SHA, or empty
// for the remote default branch) into a commit SHA.
func (s *GitSource) resolveRevision(ctx context.Context) (string, error) {
	revision := s.spec.Revision
	if revision == "" {
		out, err := s.git(ctx, "rev-parse", "FETCH_HEAD")
		if err != nil {
			return "", fmt.Errorf("resolving default branch of %s: %w", s.spec.RepoURL, err)
		}
		return out, nil
	}

	// Prefer the remote-tracking ref so moving branches resolve to the
	// freshly fetched tip, not a stale local ref.
	if out, err := s.git(ctx, "rev-parse", "--verify", "refs/remotes/origin/"+revision); err == nil {
		return out, nil
	}
	out, err := s.git(ctx, "rev-parse", "--verify", revision+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("revision %q not found in %s: %w", revision, s.spec.RepoURL, err)
	}
	return out, nil
}

// git runs one git command inside the working copy and returns trimmed
// stdout.
func (s *GitSource) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.workDir
	cmd.Env = gitEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// gitEnv is the sanitized environment for git invocations: never prompt for
// credentials, keep the parent HOME for configured credential helpers.
func gitEnv() []string {
	env := []string{"GIT_TERMINAL_PROMPT=0"}
	for _, key := range []string{"HOME", "PATH", "SSH_AUTH_SOCK"} {
		if value, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+value)
		}
	}
	return env
}
