package sink

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "simple file", path: "README.md"},
		{name: "nested", path: "src/groups/users.ts"},
		{name: "dot file", path: ".ocpgen-manifest"},
		{name: "empty", path: "", wantErr: "empty"},
		{name: "leading slash", path: "/etc/passwd", wantErr: "absolute paths not allowed"},
		{name: "drive letter", path: "C:/out.ts", wantErr: "absolute paths not allowed"},
		{name: "traversal", path: "src/../../x.ts", wantErr: "path traversal not allowed"},
		{name: "parent only", path: "..", wantErr: "path traversal not allowed"},
		{name: "current dir prefix", path: "./src/index.ts", wantErr: "not clean"},
		{name: "double slash", path: "src//index.ts", wantErr: "not clean"},
		{name: "trailing slash", path: "src/", wantErr: "not clean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidatePath(%q) = %v, want nil", tt.path, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidatePath(%q) = nil, want error containing %q", tt.path, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidatePath(%q) = %v, want error containing %q", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()

	t.Run("write and get", func(t *testing.T) {
		s := NewMemorySink()
		if err := s.WriteFile(ctx, "src/index.ts", []byte("export {};\n")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if got := string(s.Get("src/index.ts")); got != "export {};\n" {
			t.Errorf("Get() = %q, want %q", got, "export {};\n")
		}
		if got := s.Get("missing.ts"); got != nil {
			t.Errorf("Get(missing) = %q, want nil", got)
		}
	})

	t.Run("overwrite keeps first position", func(t *testing.T) {
		s := NewMemorySink()
		_ = s.WriteFile(ctx, "a.ts", []byte("1"))
		_ = s.WriteFile(ctx, "b.ts", []byte("2"))
		_ = s.WriteFile(ctx, "a.ts", []byte("3"))

		if diff := cmp.Diff([]string{"a.ts", "b.ts"}, s.Paths()); diff != "" {
			t.Errorf("Paths() mismatch (-want +got):\n%s", diff)
		}
		if got := string(s.Get("a.ts")); got != "3" {
			t.Errorf("Get(a.ts) = %q, want %q", got, "3")
		}
	})

	t.Run("stores copies", func(t *testing.T) {
		s := NewMemorySink()
		content := []byte("written")
		_ = s.WriteFile(ctx, "f.ts", content)
		content[0] = 'X'

		got := s.Get("f.ts")
		got[0] = 'Y'

		if got := string(s.Get("f.ts")); got != "written" {
			t.Errorf("Get() = %q, want %q", got, "written")
		}
	})

	t.Run("zero value", func(t *testing.T) {
		var s MemorySink
		if err := s.WriteFile(ctx, "f.ts", []byte("x")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if diff := cmp.Diff([]string{"f.ts"}, s.Paths()); diff != "" {
			t.Errorf("Paths() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("context canceled", func(t *testing.T) {
		s := NewMemorySink()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := s.WriteFile(cctx, "f.ts", nil); !errors.Is(err, context.Canceled) {
			t.Errorf("WriteFile() error = %v, want context.Canceled", err)
		}
	})

	t.Run("invalid path", func(t *testing.T) {
		s := NewMemorySink()
		if err := s.WriteFile(ctx, "../f.ts", nil); err == nil {
			t.Error("WriteFile() error = nil, want error")
		}
	})
}

func TestMemorySink_Concurrent(t *testing.T) {
	s := NewMemorySink()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := filepath.ToSlash(filepath.Join("src", "f"+string(rune('a'+i))+".ts"))
			if err := s.WriteFile(ctx, path, []byte{byte(i)}); err != nil {
				t.Errorf("WriteFile(%q) error = %v", path, err)
			}
		}(i)
	}
	wg.Wait()

	if n := len(s.Paths()); n != 20 {
		t.Errorf("len(Paths()) = %d, want 20", n)
	}
}

func TestFilesystemSink(t *testing.T) {
	ctx := context.Background()

	t.Run("creates root and parents", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "out", "sdk")
		s := NewFilesystemSink(root)

		if err := s.WriteFile(ctx, "src/groups/users.ts", []byte("x")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		got, err := os.ReadFile(filepath.Join(root, "src", "groups", "users.ts"))
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if string(got) != "x" {
			t.Errorf("content = %q, want %q", got, "x")
		}
	})

	t.Run("default mode when zero", func(t *testing.T) {
		root := t.TempDir()
		s := &FilesystemSink{Root: root}
		if err := s.WriteFile(ctx, "f.ts", []byte("x")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		info, err := os.Stat(filepath.Join(root, "f.ts"))
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0644 {
			t.Errorf("mode = %o, want 0644", info.Mode().Perm())
		}
	})

	t.Run("overwrite replaces content", func(t *testing.T) {
		root := t.TempDir()
		s := NewFilesystemSink(root)
		_ = s.WriteFile(ctx, "f.ts", []byte("first"))
		if err := s.WriteFile(ctx, "f.ts", []byte("second")); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		got, _ := s.ReadFile("f.ts")
		if string(got) != "second" {
			t.Errorf("content = %q, want %q", got, "second")
		}
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		root := t.TempDir()
		s := NewFilesystemSink(root)
		_ = s.WriteFile(ctx, "f.ts", []byte("x"))
		entries, err := os.ReadDir(root)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".ocpgen-") && strings.HasSuffix(e.Name(), ".tmp") {
				t.Errorf("temp file %q left behind", e.Name())
			}
		}
	})

	t.Run("rejects unsafe paths", func(t *testing.T) {
		root := t.TempDir()
		s := NewFilesystemSink(root)
		for _, p := range []string{"/abs.ts", "../escape.ts", "a/../../b.ts"} {
			if err := s.WriteFile(ctx, p, []byte("x")); err == nil {
				t.Errorf("WriteFile(%q) error = nil, want error", p)
			}
		}
	})

	t.Run("context canceled", func(t *testing.T) {
		s := NewFilesystemSink(t.TempDir())
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := s.WriteFile(cctx, "f.ts", nil); !errors.Is(err, context.Canceled) {
			t.Errorf("WriteFile() error = %v, want context.Canceled", err)
		}
	})

	t.Run("root is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, nil, 0644); err != nil {
			t.Fatal(err)
		}
		s := NewFilesystemSink(file)
		if err := s.EnsureRoot(); err == nil {
			t.Error("EnsureRoot() error = nil, want error")
		}
		if err := s.WriteFile(ctx, "f.ts", nil); err == nil {
			t.Error("WriteFile() error = nil, want error")
		}
	})

	t.Run("remove missing is not an error", func(t *testing.T) {
		s := NewFilesystemSink(t.TempDir())
		if err := s.Remove("nope.ts"); err != nil {
			t.Errorf("Remove() error = %v, want nil", err)
		}
	})
}

type failingSink struct {
	failOn string
	wrote  []string
}

func (f *failingSink) WriteFile(_ context.Context, path string, _ []byte) error {
	if path == f.failOn {
		return errors.New("disk full")
	}
	f.wrote = append(f.wrote, path)
	return nil
}

func TestWrite(t *testing.T) {
	artifacts := []Artifact{
		{Path: "src/groups/users.ts", Content: []byte("a")},
		{Path: "src/types.ts", Content: []byte("b")},
		{Path: "package.json", Content: []byte("c")},
	}

	t.Run("writes in order", func(t *testing.T) {
		s := NewMemorySink()
		if err := Write(context.Background(), s, artifacts); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		want := []string{"src/groups/users.ts", "src/types.ts", "package.json"}
		if diff := cmp.Diff(want, s.Paths()); diff != "" {
			t.Errorf("Paths() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("stops at first failure", func(t *testing.T) {
		s := &failingSink{failOn: "src/types.ts"}
		err := Write(context.Background(), s, artifacts)

		var we *WriteError
		if !errors.As(err, &we) {
			t.Fatalf("Write() error = %v, want *WriteError", err)
		}
		if we.Path != "src/types.ts" || we.Written != 1 {
			t.Errorf("WriteError = {%q, %d}, want {%q, 1}", we.Path, we.Written, "src/types.ts")
		}
		if diff := cmp.Diff([]string{"src/groups/users.ts"}, s.wrote); diff != "" {
			t.Errorf("written mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestTxtarSink(t *testing.T) {
	ctx := context.Background()
	s := NewTxtarSink("ocpgen output")
	_ = s.WriteFile(ctx, "src/index.ts", []byte("export {};\n"))
	_ = s.WriteFile(ctx, "package.json", []byte("{}\n"))
	_ = s.WriteFile(ctx, "src/index.ts", []byte("export * from './client';\n"))

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	want := "ocpgen output\n" +
		"-- src/index.ts --\n" +
		"export * from './client';\n" +
		"-- package.json --\n" +
		"{}\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("archive mismatch (-want +got):\n%s", diff)
	}

	if err := s.WriteFile(ctx, "../escape.ts", nil); err == nil {
		t.Error("WriteFile(../escape.ts) error = nil, want error")
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewFilesystemSink(root)

	first := []Artifact{
		{Path: "src/groups/users.ts", Content: []byte("u")},
		{Path: "src/groups/orders.ts", Content: []byte("o")},
	}
	if err := Write(ctx, s, first); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFile(ctx, ManifestPath, Manifest(first)); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFile(ctx, "notes.txt", []byte("mine")); err != nil {
		t.Fatal(err)
	}

	second := first[:1]
	removed, err := Prune(s, second)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if diff := cmp.Diff([]string{"src/groups/orders.ts"}, removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(root, "src", "groups", "orders.ts")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("orders.ts still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "notes.txt")); err != nil {
		t.Errorf("unowned file removed: %v", err)
	}
}

func TestPrune_NoManifest(t *testing.T) {
	s := NewFilesystemSink(t.TempDir())
	removed, err := Prune(s, nil)
	if err != nil || removed != nil {
		t.Errorf("Prune() = %v, %v, want nil, nil", removed, err)
	}
}

func TestParseManifest(t *testing.T) {
	data := []byte("# header\n\nsrc/a.ts\n  src/b.ts  \n../evil\n")
	want := []string{"src/a.ts", "src/b.ts", "../evil"}
	if diff := cmp.Diff(want, ParseManifest(data)); diff != "" {
		t.Errorf("ParseManifest() mismatch (-want +got):\n%s", diff)
	}
}
