package gitrepo

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeCommander struct {
	output string
	err    error
	calls  [][]string
}

func (f *fakeCommander) RunInDir(ctx context.Context, dir, name string, args ...string) (string, error) {
	call := append([]string{dir, name}, args...)
	f.calls = append(f.calls, call)
	return f.output, f.err
}

func TestIsGitInstalled(t *testing.T) {
	fake := &fakeCommander{output: "git version 2.44.0"}
	c := NewClientWithCommander(time.Second, fake)
	if !c.IsGitInstalled(context.Background()) {
		t.Error("expected installed")
	}

	fake = &fakeCommander{err: errors.New("executable file not found")}
	c = NewClientWithCommander(time.Second, fake)
	if c.IsGitInstalled(context.Background()) {
		t.Error("expected not installed")
	}
}

func TestIsRepository(t *testing.T) {
	fake := &fakeCommander{output: "true"}
	c := NewClientWithCommander(time.Second, fake)
	if !c.IsRepository(context.Background(), "/some/dir") {
		t.Error("expected repository")
	}
	if len(fake.calls) != 1 || fake.calls[0][0] != "/some/dir" {
		t.Errorf("command not run in target dir: %v", fake.calls)
	}

	fake = &fakeCommander{err: errors.New("fatal: not a git repository")}
	c = NewClientWithCommander(time.Second, fake)
	if c.IsRepository(context.Background(), "/some/dir") {
		t.Error("expected not a repository")
	}
}

func TestRepoRootDegradesToEmpty(t *testing.T) {
	fake := &fakeCommander{output: "/home/dev/project"}
	c := NewClientWithCommander(time.Second, fake)
	if root := c.RepoRoot(context.Background(), "/home/dev/project/sub"); root != "/home/dev/project" {
		t.Errorf("root = %q", root)
	}

	fake = &fakeCommander{err: errors.New("fatal: not a git repository")}
	c = NewClientWithCommander(time.Second, fake)
	if root := c.RepoRoot(context.Background(), "/tmp/nowhere"); root != "" {
		t.Errorf("failure should yield empty root, got %q", root)
	}
}

func TestNewClientDefaultsTimeout(t *testing.T) {
	c := NewClientWithCommander(0, &fakeCommander{})
	if c.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.timeout, DefaultTimeout)
	}
}
