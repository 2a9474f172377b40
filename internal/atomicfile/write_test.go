package atomicfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWrite(t *testing.T) {
	tests := []struct {
		name    string
		initial string // pre-existing content; empty means no file
		data    string
	}{
		{"new file", "", "version = 1\n"},
		{"replaces existing", "version = 0\n", "version = 1\n"},
		{"empty payload", "old", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.toml")
			if tt.initial != "" {
				if err := os.WriteFile(path, []byte(tt.initial), 0o644); err != nil {
					t.Fatalf("seed: %v", err)
				}
			}

			if err := Write(path, []byte(tt.data), 0o644); err != nil {
				t.Fatalf("Write: %v", err)
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if string(got) != tt.data {
				t.Errorf("content = %q, want %q", got, tt.data)
			}
			assertNoTempFiles(t, dir)
		})
	}
}

func TestWritePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")

	if err := Write(path, []byte("1:abc"), 0o600); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	// Windows only tracks the read-only bit.
	if info.Mode().Perm()&0o600 == 0 {
		t.Errorf("permissions = %o, expected owner rw", info.Mode().Perm())
	}
}

func TestWriteMissingDir(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "missing", "config.toml")

	if err := Write(path, []byte("x"), 0o644); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
	assertNoTempFiles(t, root)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if matched, _ := filepath.Match("*.tmp.*", e.Name()); matched {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
