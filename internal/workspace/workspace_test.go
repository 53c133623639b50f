package workspace

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	a := Hash("/home/user/projects/alpha")
	b := Hash("/home/user/projects/alpha")
	if a != b {
		t.Fatalf("hash not deterministic: %s vs %s", a, b)
	}
	if len(a) != IDLength {
		t.Errorf("hash length = %d, want %d", len(a), IDLength)
	}
	for _, c := range a {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("hash contains non-hex rune %q", c)
		}
	}
}

func TestHashDistinguishesPaths(t *testing.T) {
	if Hash("/home/user/projects/alpha") == Hash("/home/user/projects/beta") {
		t.Error("different paths produced the same id")
	}
}

func TestResolveRejectsBlank(t *testing.T) {
	if _, err := Resolve(""); err == nil {
		t.Error("blank path accepted")
	}
	if _, err := Resolve("   "); err == nil {
		t.Error("whitespace path accepted")
	}
}

func TestResolveCleansPath(t *testing.T) {
	abs, err := Resolve("/home/user/projects/alpha/../alpha")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if abs != filepath.Clean("/home/user/projects/alpha") {
		t.Errorf("resolved = %s", abs)
	}
}

func TestStorePathLayout(t *testing.T) {
	id := Hash("/tmp/proj")
	got := StorePath("/data", id)
	want := filepath.Join("/data", "workspaces", id+".db")
	if got != want {
		t.Errorf("StorePath = %s, want %s", got, want)
	}
	if RegistryPath("/data") != filepath.Join("/data", "registry.db") {
		t.Errorf("RegistryPath = %s", RegistryPath("/data"))
	}
}
