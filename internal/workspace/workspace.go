/*
Package workspace derives stable identities for project workspaces.

Every operation in taskmesh is scoped to a workspace, identified by the
absolute path of the project directory. The path is hashed to a short
stable id that names the workspace's database file, so re-deriving the
id from the same path always locates the same store.
*/
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// IDLength is the number of hex characters kept from the path digest.
// Collisions at this length are accepted as negligible for the expected
// number of workspaces on one machine.
const IDLength = 8

// Hash returns the stable short id for an absolute workspace path.
// The same path always yields the same id.
func Hash(absPath string) string {
	sum := sha256.Sum256([]byte(absPath))
	return hex.EncodeToString(sum[:])[:IDLength]
}

// Resolve validates a caller-supplied workspace path and returns its
// cleaned absolute form. A blank path is rejected: there is no implicit
// "current directory" fallback, so a caller can never silently operate
// on the wrong workspace.
func Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("workspace_path is required and must not be blank")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve workspace path %q: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// StorePath returns the database file for a workspace id under the
// given base data directory.
func StorePath(baseDir, id string) string {
	return filepath.Join(baseDir, "workspaces", id+".db")
}

// RegistryPath returns the shared registry database file under the
// given base data directory.
func RegistryPath(baseDir string) string {
	return filepath.Join(baseDir, "registry.db")
}
