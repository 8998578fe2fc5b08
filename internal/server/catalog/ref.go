package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
)

// DefaultRefBudget is the longest reference a chat button can carry,
// minus room for an action prefix.
const DefaultRefBudget = 48

const (
	refTop   = "root"
	refDept  = 'd'
	refToken = 't'
	refSep   = "."
)

// ChildLister returns the sorted child segments of a location.
type ChildLister func(ctx context.Context, loc Location) ([]string, error)

// RefCodec turns locations into short opaque references and back. A
// reference is "root", "d<dept>" or "d<dept>.<i>.<j>...", where each index
// points into the freshly listed children of the previous level. Locations
// whose compact form exceeds the budget are stored in the registry and
// referenced as "t<token>".
type RefCodec struct {
	children ChildLister
	registry Registry
	budget   int
}

func NewRefCodec(children ChildLister, registry Registry, budget int) *RefCodec {
	if budget <= 0 {
		budget = DefaultRefBudget
	}
	return &RefCodec{children: children, registry: registry, budget: budget}
}

func (c *RefCodec) Encode(ctx context.Context, loc Location) (string, error) {
	if loc.Top {
		return refTop, nil
	}

	var b strings.Builder
	b.WriteByte(refDept)
	b.WriteString(strconv.Itoa(loc.Department))

	cur := DepartmentRoot(loc.Department)
	for _, seg := range loc.Segments() {
		siblings, err := c.children(ctx, cur)
		if err != nil {
			return "", err
		}
		idx := indexOf(siblings, seg)
		if idx < 0 {
			return "", fmt.Errorf("%w: segment %q not under %q", common.ErrInvalidNavRef, seg, cur.Path)
		}
		b.WriteString(refSep)
		b.WriteString(strconv.Itoa(idx))
		cur = cur.Child(seg)
	}

	if b.Len() <= c.budget || c.registry == nil {
		return b.String(), nil
	}

	token, err := c.registry.Put(ctx, loc)
	if err != nil {
		return "", err
	}
	return string(refToken) + token, nil
}

func (c *RefCodec) Decode(ctx context.Context, ref string) (Location, error) {
	switch {
	case ref == refTop:
		return TopLevel(), nil
	case ref == "":
		return Location{}, common.ErrInvalidNavRef
	case ref[0] == refToken:
		if c.registry == nil {
			return Location{}, common.ErrInvalidNavRef
		}
		return c.registry.Get(ctx, ref[1:])
	case ref[0] != refDept:
		return Location{}, common.ErrInvalidNavRef
	}

	parts := strings.Split(ref[1:], refSep)
	dept, err := strconv.Atoi(parts[0])
	if err != nil {
		return Location{}, fmt.Errorf("%w: %q", common.ErrInvalidNavRef, ref)
	}

	loc := DepartmentRoot(dept)
	for _, p := range parts[1:] {
		idx, err := strconv.Atoi(p)
		if err != nil || idx < 0 {
			return Location{}, fmt.Errorf("%w: %q", common.ErrInvalidNavRef, ref)
		}
		siblings, err := c.children(ctx, loc)
		if err != nil {
			return Location{}, err
		}
		if idx >= len(siblings) {
			return Location{}, fmt.Errorf("%w: %q is stale", common.ErrInvalidNavRef, ref)
		}
		loc = loc.Child(siblings[idx])
	}
	return loc, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
