//go:build windows

package filesystem

import (
	"path/filepath"
	"testing"

	"bionlptag/pkg/contract"
)

// TestMapPathWindows 卷名、绝对路径与反斜杠逃逸均拒绝；flat 模式只取基名
func TestMapPathWindows(t *testing.T) {
	dir := t.TempDir()
	w, err := New(&Options{OutputDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{`C:\abs\train.conll`, `D:rel.conll`, `..\up.conll`, `out\..\..\x.conll`, "."} {
		if _, err := w.mapPath(contract.ArtifactID(id)); err != contract.ErrPathInvalid {
			t.Fatalf("%s: want ErrPathInvalid, got %v", id, err)
		}
	}
	fw, err := New(&Options{OutputDir: dir, Flat: true})
	if err != nil {
		t.Fatal(err)
	}
	got, err := fw.mapPath(`C:\abs\train.conll`)
	if err != nil || got != filepath.Join(dir, "train.conll") {
		t.Fatalf("flat: got %q, %v", got, err)
	}
}
