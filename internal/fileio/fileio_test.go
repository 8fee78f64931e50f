package fileio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFile_ReadFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte("P6\n1\n1\n255\n\x01\x02\x03")

	for _, name := range []string{"plain.ppm", "packed.ppm.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := WriteFile(path, data); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}

			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("got %q, want %q", got, data)
			}
		})
	}
}

func TestWriteFile_Compresses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zeros.ppm.zst")
	data := make([]byte, 64*1024)

	if err := WriteFile(path, data); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("os.ReadFile failed: %v", err)
	}
	if len(raw) >= len(data) {
		t.Errorf("compressed size %d not smaller than %d", len(raw), len(data))
	}
}

func TestWriteFile_NoLeftovers(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFile(filepath.Join(dir, "out.ppm"), []byte("x")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.ppm" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("directory contents: got %v, want [out.ppm]", names)
	}
}

func TestWriteFile_MissingDirectory(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "missing", "out.ppm"), []byte("x"))
	if !errors.Is(err, ErrIO) {
		t.Errorf("got %v, want ErrIO", err)
	}
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "bogus.ppm.zst")
	if err := os.WriteFile(bogus, []byte("not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "nope.ppm")},
		{"corrupt zstd", bogus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFile(tt.path)
			if !errors.Is(err, ErrIO) {
				t.Errorf("got %v, want ErrIO", err)
			}
		})
	}
}

func TestExt(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"a.ppm", ".ppm"},
		{"a.PPM", ".ppm"},
		{"dir/frame.ppm.zst", ".ppm"},
		{"photo.png", ".png"},
		{"noext", ""},
	}

	for _, tt := range tests {
		if got := Ext(tt.path); got != tt.want {
			t.Errorf("Ext(%q): got %q, want %q", tt.path, got, tt.want)
		}
	}
}
