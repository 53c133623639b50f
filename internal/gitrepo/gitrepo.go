// Package gitrepo provides shell-based wrappers around the git CLI.
// It uses os/exec instead of a reimplementation so the user's real git
// configuration (worktrees, submodules, GIT_DIR overrides) is honored.
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrGitNotInstalled is returned when the git binary is not in PATH.
var ErrGitNotInstalled = errors.New("git is not installed or not in PATH")

// DefaultTimeout bounds each git invocation.
const DefaultTimeout = 5 * time.Second

// Commander executes commands. It exists so tests can substitute a
// fake instead of shelling out.
type Commander interface {
	RunInDir(ctx context.Context, dir, name string, args ...string) (string, error)
}

// ShellCommander executes real shell commands.
type ShellCommander struct{}

// RunInDir executes a command in the specified directory.
func (c *ShellCommander) RunInDir(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg != "" {
			return "", fmt.Errorf("%w: %s", err, errMsg)
		}
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Client wraps the git operations the audit engine needs.
type Client struct {
	commander Commander
	timeout   time.Duration
}

// NewClient creates a git client backed by the real shell.
func NewClient(timeout time.Duration) *Client {
	return NewClientWithCommander(timeout, &ShellCommander{})
}

// NewClientWithCommander creates a client with a custom commander (for
// testing).
func NewClientWithCommander(timeout time.Duration, commander Commander) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{commander: commander, timeout: timeout}
}

// IsGitInstalled checks if the git binary is available in PATH.
func (c *Client) IsGitInstalled(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.commander.RunInDir(ctx, "", "git", "--version")
	return err == nil
}

// IsRepository checks if dir sits inside a git work tree.
func (c *Client) IsRepository(ctx context.Context, dir string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.commander.RunInDir(ctx, dir, "git", "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// RepoRoot returns the top-level directory of the repository containing
// dir. Any failure (no git, not a repository, timeout) degrades to an
// empty string rather than an error: callers treat "no repo root" as a
// fact about the directory, not a fault.
func (c *Client) RepoRoot(ctx context.Context, dir string) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	root, err := c.commander.RunInDir(ctx, dir, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return ""
	}
	return root
}
