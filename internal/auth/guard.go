package auth

// Operation names every role-gated action in the API.  The guard is a
// static table lookup; anything not explicitly granted is denied.
type Operation string

const (
	OpCatalogRead    Operation = "catalog:read"
	OpReviewWrite    Operation = "review:write-own"
	OpReviewDelete   Operation = "review:delete"
	OpProductCreate  Operation = "product:create"
	OpProductUpdate  Operation = "product:update-own"
	OpProductDelete  Operation = "product:delete-own"
	OpCategoryWrite  Operation = "category:write"
	OpRoleChange     Operation = "user:role-change"
	OpUserDeactivate Operation = "user:deactivate"
)

// Roles carried in the "role" claim and the users.role column.
const (
	RoleBuyer  = "BUYER"
	RoleSeller = "SELLER"
	RoleAdmin  = "ADMIN"
)

var buyerOps = []Operation{
	OpCatalogRead,
	OpReviewWrite,
}

var sellerOps = []Operation{
	OpProductCreate,
	OpProductUpdate,
	OpProductDelete,
}

var adminOps = []Operation{
	OpReviewDelete,
	OpCategoryWrite,
	OpRoleChange,
	OpUserDeactivate,
}

var permissions = buildPermissions()

func buildPermissions() map[string]map[Operation]bool {
	grant := func(m map[Operation]bool, ops ...[]Operation) {
		for _, set := range ops {
			for _, op := range set {
				m[op] = true
			}
		}
	}
	buyer := make(map[Operation]bool)
	grant(buyer, buyerOps)
	// Sellers can do everything a buyer can plus manage their own products.
	seller := make(map[Operation]bool)
	grant(seller, buyerOps, sellerOps)
	// Admins can do everything.
	admin := make(map[Operation]bool)
	grant(admin, buyerOps, sellerOps, adminOps)
	return map[string]map[Operation]bool{
		RoleBuyer:  buyer,
		RoleSeller: seller,
		RoleAdmin:  admin,
	}
}

// Authorize reports whether the role may perform the operation.  Unknown
// roles and unknown operations deny by default (fail-closed).  The check
// is pure and has no side effects; callers translate a false result into
// a Forbidden response.
func Authorize(role string, op Operation) bool {
	ops, ok := permissions[role]
	if !ok {
		return false
	}
	return ops[op]
}

// ValidRole reports whether the given string is a known role value.
func ValidRole(role string) bool {
	_, ok := permissions[role]
	return ok
}
