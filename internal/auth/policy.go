package auth

import "github.com/ekinsu/auth-service/internal/model"

// Operation identifies a protected operation in the route table. The
// table is declarative data: routes look up their required roles here
// instead of scattering role checks through handlers.
type Operation string

const (
	OpSignUp     Operation = "auth.signup"
	OpSignIn     Operation = "auth.signin"
	OpRefresh    Operation = "auth.refresh"
	OpLogout     Operation = "auth.logout"
	OpProfile    Operation = "user.profile"
	OpGetUser    Operation = "user.get"
	OpListUsers  Operation = "user.list"
	OpCreateUser Operation = "user.create"
	OpUpdateUser Operation = "user.update"
	OpDeleteUser Operation = "user.delete"
)

// Policy maps operations to the role sets allowed to perform them. An
// operation with no required roles is public.
type Policy struct {
	table map[Operation][]model.Role
}

// NewPolicy returns the service's route table. Auth flows are public,
// user management is ADMIN-gated and profile access is open to any
// authenticated role.
func NewPolicy() *Policy {
	return &Policy{table: map[Operation][]model.Role{
		OpSignUp:     nil,
		OpSignIn:     nil,
		OpRefresh:    nil,
		OpLogout:     {model.RoleUser, model.RoleAdmin},
		OpProfile:    {model.RoleUser, model.RoleAdmin},
		OpGetUser:    {model.RoleUser, model.RoleAdmin},
		OpListUsers:  {model.RoleAdmin},
		OpCreateUser: {model.RoleAdmin},
		OpUpdateUser: {model.RoleAdmin},
		OpDeleteUser: {model.RoleAdmin},
	}}
}

// RequiredRoles returns the roles the operation demands. Unknown
// operations require ADMIN so a missing table entry fails closed.
func (p *Policy) RequiredRoles(op Operation) []model.Role {
	required, ok := p.table[op]
	if !ok {
		return []model.Role{model.RoleAdmin}
	}
	return required
}

// Authorize reports whether the actual roles intersect the required
// ones. An empty required set marks a public operation.
func (p *Policy) Authorize(required, actual []model.Role) bool {
	if len(required) == 0 {
		return true
	}
	allowed := make(map[model.Role]bool, len(required))
	for _, r := range required {
		allowed[r] = true
	}
	for _, r := range actual {
		if allowed[r] {
			return true
		}
	}
	return false
}

// AuthorizeOperation checks the actual roles against the table entry
// for op.
func (p *Policy) AuthorizeOperation(op Operation, actual []model.Role) bool {
	return p.Authorize(p.RequiredRoles(op), actual)
}
