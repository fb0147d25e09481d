// Package paths provides filename utilities shared by the local and device
// backends, chiefly the numeric disambiguator used to generate
// collision-free destination names.
package paths

import (
	"fmt"
	"path/filepath"
)

// SplitExt splits a filename into its stem and extension.
// "report.txt" -> ("report", ".txt"), "Makefile" -> ("Makefile", "").
// A dotfile whose only dot is the leading one (".hidden") has no extension.
func SplitExt(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	if ext == name {
		return name, ""
	}
	return name[:len(name)-len(ext)], ext
}

// Numbered returns the n-th disambiguated candidate for name, inserting the
// counter before the extension: Numbered("report.txt", 1) == "report 1.txt".
// n == 0 returns the name unchanged.
func Numbered(name string, n int) string {
	if n == 0 {
		return name
	}
	stem, ext := SplitExt(name)
	return fmt.Sprintf("%s %d%s", stem, n, ext)
}

// MaxCandidates bounds the disambiguation search. Exhausting it is treated
// as fatal for the item rather than retried.
const MaxCandidates = 10000

// FirstAvailable walks the candidate sequence name, "name 1", "name 2", ...
// and returns the first one for which exists reports false. The second
// return is false when MaxCandidates were all taken.
func FirstAvailable(name string, exists func(string) bool) (string, bool) {
	for n := 0; n <= MaxCandidates; n++ {
		candidate := Numbered(name, n)
		if !exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}
