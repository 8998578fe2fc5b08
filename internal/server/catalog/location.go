package catalog

import (
	"sort"
	"strings"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
)

// Location addresses one node of the catalog: the department list, a
// department root, or a category prefix inside a department.
type Location struct {
	Top        bool   `json:"top,omitempty"`
	Department int    `json:"dept"`
	Path       string `json:"path,omitempty"`
}

// TopLevel is the department list.
func TopLevel() Location {
	return Location{Top: true}
}

func DepartmentRoot(department int) Location {
	return Location{Department: department}
}

func (l Location) Segments() []string {
	if l.Top || l.Path == "" {
		return nil
	}
	return strings.Split(l.Path, common.CategorySeparator)
}

func (l Location) Depth() int {
	return len(l.Segments())
}

func (l Location) Child(segment string) Location {
	if l.Top {
		return l
	}
	if l.Path == "" {
		return Location{Department: l.Department, Path: segment}
	}
	return Location{Department: l.Department, Path: l.Path + common.CategorySeparator + segment}
}

// Parent pops the last segment. A department root goes back to the
// department list, which is its own parent.
func (l Location) Parent() Location {
	if l.Top {
		return l
	}
	segs := l.Segments()
	if len(segs) == 0 {
		return TopLevel()
	}
	return Location{Department: l.Department, Path: strings.Join(segs[:len(segs)-1], common.CategorySeparator)}
}

// ChildSegments returns the sorted distinct segments directly below prefix
// among the given category paths. Paths outside prefix are ignored, as is
// prefix itself.
func ChildSegments(prefix string, paths []string) []string {
	seen := make(map[string]struct{})
	for _, p := range paths {
		rest := p
		if prefix != "" {
			if !strings.HasPrefix(p, prefix+common.CategorySeparator) {
				continue
			}
			rest = p[len(prefix)+len(common.CategorySeparator):]
		}
		if rest == "" {
			continue
		}
		seg, _, _ := strings.Cut(rest, common.CategorySeparator)
		if seg == "" {
			continue
		}
		seen[seg] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
