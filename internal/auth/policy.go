package auth

import (
	"github.com/spec-kit/library-service/internal/domain"
)

// Operation names a capability a caller may hold.
type Operation string

const (
	OpViewCatalogAll       Operation = "view_catalog_all"
	OpViewCatalogAvailable Operation = "view_catalog_available"
	OpEditCatalog          Operation = "edit_catalog"
	OpBorrow               Operation = "borrow"
	OpReturn               Operation = "return"
	OpViewHistoryOwn       Operation = "view_history_own"
	OpViewHistoryAll       Operation = "view_history_all"
)

// Policy maps a role to the set of operations it may invoke. This is a
// static capability lookup, not a rules engine. The one switch is whether
// admins may force-return loans on behalf of members.
type Policy struct {
	grants map[domain.Role]map[Operation]struct{}
}

// NewPolicy builds the capability map. When adminForceReturn is set, the
// admin role additionally receives the return operation.
func NewPolicy(adminForceReturn bool) *Policy {
	adminOps := []Operation{OpViewCatalogAll, OpEditCatalog, OpViewHistoryAll}
	if adminForceReturn {
		adminOps = append(adminOps, OpReturn)
	}
	memberOps := []Operation{OpViewCatalogAvailable, OpBorrow, OpReturn, OpViewHistoryOwn}

	grants := map[domain.Role]map[Operation]struct{}{
		domain.RoleAdmin:  opSet(adminOps),
		domain.RoleMember: opSet(memberOps),
	}
	return &Policy{grants: grants}
}

// Allowed reports whether the role holds the operation.
func (p *Policy) Allowed(role domain.Role, op Operation) bool {
	ops, ok := p.grants[role]
	if !ok {
		return false
	}
	_, ok = ops[op]
	return ok
}

func opSet(ops []Operation) map[Operation]struct{} {
	set := make(map[Operation]struct{}, len(ops))
	for _, op := range ops {
		set[op] = struct{}{}
	}
	return set
}
