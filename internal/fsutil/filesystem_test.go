package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	m := NewMemoryFileSystem()
	w, err := m.Create("out/events.jsonl")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := m.Open("out/events.jsonl"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("file visible before Close, err = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := m.Open("out/./events.jsonl")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(r)
	if string(data) != "hello\n" {
		t.Errorf("content = %q", data)
	}

	info, err := m.Stat("out/events.jsonl")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 6 || info.Name() != "events.jsonl" || info.IsDir() {
		t.Errorf("Stat = %s size %d dir %v", info.Name(), info.Size(), info.IsDir())
	}
}

func TestMemoryFileSystem_Missing(t *testing.T) {
	m := NewMemoryFileSystem()
	if _, err := m.Open("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open err = %v", err)
	}
	if _, err := m.Stat("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat err = %v", err)
	}
	if _, err := m.ReadFile("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile err = %v", err)
	}
}

func TestMemoryFileSystem_WriteFileCopies(t *testing.T) {
	m := NewMemoryFileSystem()
	data := []byte("abc")
	m.WriteFile("b.json", data)
	m.WriteFile("a.json", nil)
	data[0] = 'x'

	got, err := m.ReadFile("b.json")
	if err != nil || string(got) != "abc" {
		t.Errorf("ReadFile = %q, %v", got, err)
	}
	names := m.Names()
	if len(names) != 2 || names[0] != "a.json" || names[1] != "b.json" {
		t.Errorf("Names() = %v", names)
	}
}

func TestOSFileSystem(t *testing.T) {
	var fsys FileSystem = OSFileSystem{}
	path := filepath.Join(t.TempDir(), "f.txt")

	w, err := fsys.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte("data")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := fsys.Stat(path)
	if err != nil || info.Size() != 4 {
		t.Fatalf("Stat = %v, %v", info, err)
	}
	r, err := fsys.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "data" {
		t.Errorf("content = %q", data)
	}
}
