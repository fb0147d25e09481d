package localfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/twopane/twopane/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestListSortsDirsFirstCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zeta.txt"), "z")
	writeFile(t, filepath.Join(dir, "Alpha.txt"), "a")
	if err := os.Mkdir(filepath.Join(dir, "music"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "Books"), 0755); err != nil {
		t.Fatal(err)
	}

	entries, err := List(dir, ListOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Books", "music", "Alpha.txt", "zeta.txt"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, name := range want {
		if entries[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, entries[i].Name)
		}
	}
	if !entries[0].Locator.IsLocal() {
		t.Error("entries should carry local locators")
	}
}

func TestListHiddenFiltering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".secret"), "s")
	writeFile(t, filepath.Join(dir, "visible.txt"), "v")

	entries, err := List(dir, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "visible.txt" {
		t.Errorf("hidden files should be excluded by default, got %+v", entries)
	}

	entries, err = List(dir, ListOptions{IncludeHidden: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries with IncludeHidden, got %d", len(entries))
	}
}

func TestListMissingDirectory(t *testing.T) {
	_, err := List("/nonexistent/nowhere", ListOptions{})
	if models.KindOf(err) != models.ErrNotFound {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestCopyFileReportsProgress(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	content := make([]byte, 300*1024) // forces multiple copy chunks
	for i := range content {
		content[i] = byte(i)
	}
	if err := os.WriteFile(src, content, 0644); err != nil {
		t.Fatal(err)
	}

	var calls int
	var lastCopied, lastTotal int64
	err := Copy(src, dst, func(copied, total int64) {
		if copied < lastCopied {
			t.Errorf("progress went backwards: %d after %d", copied, lastCopied)
		}
		lastCopied, lastTotal = copied, total
		calls++
	})
	if err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if calls < 2 {
		t.Errorf("expected multiple progress callbacks, got %d", calls)
	}
	if lastCopied != int64(len(content)) || lastTotal != int64(len(content)) {
		t.Errorf("final progress %d/%d, want %d/%d", lastCopied, lastTotal, len(content), len(content))
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(content) {
		t.Errorf("destination size %d, want %d", len(got), len(content))
	}
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dstParent := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(src, "a.txt"), "aaa")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "bbbb")

	dst := filepath.Join(dstParent, "copy")
	if err := Copy(src, dst, nil); err != nil {
		t.Fatalf("tree copy failed: %v", err)
	}
	for _, rel := range []string{"a.txt", filepath.Join("sub", "b.txt")} {
		if _, err := os.Stat(filepath.Join(dst, rel)); err != nil {
			t.Errorf("missing %s in destination: %v", rel, err)
		}
	}
}

func TestMove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "old.txt")
	dst := filepath.Join(dir, "new.txt")
	writeFile(t, src, "payload")

	if err := Move(src, dst, nil); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if _, err := os.Stat(src); !errors.Is(err, os.ErrNotExist) {
		t.Error("source should be gone after move")
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "payload" {
		t.Errorf("destination content wrong: %q, %v", got, err)
	}
}

func TestUniqueDestination(t *testing.T) {
	dir := t.TempDir()

	// No collision: original name comes back.
	got, err := UniqueDestination(dir, "report.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "report.txt") {
		t.Errorf("expected original name, got %s", got)
	}

	writeFile(t, filepath.Join(dir, "report.txt"), "1")
	got, err = UniqueDestination(dir, "report.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "report 1.txt") {
		t.Errorf("expected 'report 1.txt', got %s", got)
	}

	writeFile(t, filepath.Join(dir, "report 1.txt"), "2")
	got, err = UniqueDestination(dir, "report.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "report 2.txt") {
		t.Errorf("expected 'report 2.txt', got %s", got)
	}
}

func TestMkdir(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "newdir")
	if err := Mkdir(target); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		t.Errorf("expected directory at %s", target)
	}

	if err := Mkdir(target); err == nil {
		t.Error("expected error creating existing directory")
	}
}

func TestDeleteMovesToTrash(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	dir := t.TempDir()
	victim := filepath.Join(dir, "doomed.txt")
	writeFile(t, victim, "bytes")

	if err := Delete(victim); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := os.Stat(victim); !errors.Is(err, os.ErrNotExist) {
		t.Error("file should be gone from its original location")
	}

	trashed := filepath.Join(dataHome, "Trash", "files", "doomed.txt")
	if _, err := os.Stat(trashed); err != nil {
		t.Errorf("file should be in trash: %v", err)
	}
	info := filepath.Join(dataHome, "Trash", "info", "doomed.txt.trashinfo")
	if _, err := os.Stat(info); err != nil {
		t.Errorf("trashinfo record missing: %v", err)
	}
}

func TestDeleteTrashCollision(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		victim := filepath.Join(dir, "same.txt")
		writeFile(t, victim, "x")
		if err := Delete(victim); err != nil {
			t.Fatalf("delete %d failed: %v", i, err)
		}
	}

	filesDir := filepath.Join(dataHome, "Trash", "files")
	for _, name := range []string{"same.txt", "same 1.txt"} {
		if _, err := os.Stat(filepath.Join(filesDir, name)); err != nil {
			t.Errorf("expected %s in trash: %v", name, err)
		}
	}
}

func TestDeleteMissing(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	err := Delete("/nonexistent/nope.txt")
	if models.KindOf(err) != models.ErrNotFound {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestIsHiddenName(t *testing.T) {
	tests := []struct {
		name   string
		hidden bool
	}{
		{".bashrc", true},
		{"visible", false},
		{".", false},
		{"..", false},
	}
	for _, tt := range tests {
		if IsHiddenName(tt.name) != tt.hidden {
			t.Errorf("IsHiddenName(%q) != %v", tt.name, tt.hidden)
		}
	}
}
