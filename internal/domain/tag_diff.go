package domain

import (
	"sort"

	"github.com/quillpost/quill-server/internal/normalize"
)

// TagDiff is the minimal set of tag changes transforming a post's current
// tag set into a requested one. Names in both slices are normalized.
type TagDiff struct {
	Add    []string // requested names not currently on the post
	Remove []string // current names absent from the request
}

// Empty reports whether the diff requires no mutation.
func (d TagDiff) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// ComputeTagDiff computes the additions and removals needed to replace a
// post's current tag names with a requested list.
//
// existing must hold normalized names (the stored form). requested is raw
// user input: each entry is normalized, blanks are discarded, duplicates
// collapse. A name differing from a current tag only in case or spacing
// therefore never appears in either side of the diff.
//
// Pure function — no I/O. Results are sorted so callers get deterministic
// ordering regardless of input order.
func ComputeTagDiff(existing []string, requested []string) TagDiff {
	want := normalize.TagNames(requested)

	have := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		have[name] = struct{}{}
	}

	var diff TagDiff
	wanted := make(map[string]struct{}, len(want))
	for _, name := range want {
		wanted[name] = struct{}{}
		if _, ok := have[name]; !ok {
			diff.Add = append(diff.Add, name)
		}
	}
	for _, name := range existing {
		if _, ok := wanted[name]; !ok {
			diff.Remove = append(diff.Remove, name)
		}
	}

	sort.Strings(diff.Add)
	sort.Strings(diff.Remove)
	return diff
}
