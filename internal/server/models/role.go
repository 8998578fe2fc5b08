package models

import (
	"fmt"
	"math"

	"github.com/dmitrijs2005/stockkeeper/internal/common"
)

// Role is the closed set of user tiers.
type Role string

const (
	RoleShop   Role = "shop"
	RolePatron Role = "patron"
	RoleAdmin  Role = "admin"
)

// Roles lists every valid role, lowest tier first.
var Roles = []Role{RoleShop, RolePatron, RoleAdmin}

// ParseRole validates s against the closed role set.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleShop, RolePatron, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrInvalidRole, s)
	}
}

// GroupingMode is the partition key used to split an order into files.
type GroupingMode int

const (
	GroupByDepartment GroupingMode = iota
	GroupBySupplier
)

func (m GroupingMode) String() string {
	switch m {
	case GroupByDepartment:
		return "department"
	case GroupBySupplier:
		return "supplier"
	default:
		return fmt.Sprintf("GroupingMode(%d)", int(m))
	}
}

// Policy is the set of role-dependent rules.
type Policy struct {
	Role      Role
	Reserve   int
	MaxQty    int
	Grouping  GroupingMode
	Analytics bool
}

// PolicyFor derives the policy of role from the configured reserve and
// max-order-quantity.
func PolicyFor(role Role, reserve, maxQty int) Policy {
	p := Policy{Role: role, MaxQty: maxQty}
	switch role {
	case RoleShop:
		p.Reserve = reserve
		p.Grouping = GroupByDepartment
	default:
		p.Grouping = GroupBySupplier
		p.Analytics = true
	}
	return p
}

// Limit is the largest quantity the role may reserve against stock.
// Shop users keep Reserve units untouched; every role is capped at MaxQty.
func (p Policy) Limit(stock float64) int {
	if p.Role != RoleShop {
		return p.MaxQty
	}
	avail := int(math.Floor(stock)) - p.Reserve
	if avail < 0 {
		avail = 0
	}
	if avail > p.MaxQty {
		avail = p.MaxQty
	}
	return avail
}
