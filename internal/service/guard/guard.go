package guard

import (
	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/service/capability"
)

type Outcome int

const (
	// Pending means the session is still being resolved; render nothing protected yet.
	Pending Outcome = iota
	Allow
	Deny
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	}
	return "unknown"
}

type Input struct {
	Session      *model.Session
	Role         model.Role
	Loading      bool
	RouteID      model.RouteID
	AllowedRoles []model.Role
}

type Decision struct {
	Outcome Outcome
	// Redirect is set on Deny.
	Redirect string
}

// Evaluate gates one protected navigation. It depends only on in.
func Evaluate(in Input) Decision {
	switch {
	case in.Loading:
		return Decision{Outcome: Pending}
	case in.Session == nil:
		return Decision{Outcome: Deny, Redirect: capability.LoginPath}
	case !capability.AccessAllowed(in.Role, in.RouteID, in.AllowedRoles):
		return Decision{Outcome: Deny, Redirect: capability.LoginPath}
	default:
		return Decision{Outcome: Allow}
	}
}
