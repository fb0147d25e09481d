package models

import (
	"sort"
	"strings"
	"time"
)

// Entry represents one browsable file-system-like object. Entries are built
// fresh on every listing and never mutated in place; a refresh replaces the
// whole slice. The Locator tag is fixed at construction — an entry never
// migrates between backends.
type Entry struct {
	Name       string
	Size       int64 // bytes; 0 for directories
	IsDir      bool
	ModTime    time.Time // zero when the backend does not report it
	CreatedAt  time.Time // local backend only
	AccessedAt time.Time // local backend only
	Locator    Locator
}

// SortEntries orders a listing the way both backends present it:
// directories first, then case-insensitive lexicographic by name.
// The sort is stable so equal-folded names keep backend order.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}
