package guard

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/hms-console/internal/model"
	"github.com/jwalitptl/hms-console/internal/service/capability"
)

func TestEvaluate(t *testing.T) {
	session := &model.Session{ID: uuid.New(), UserID: uuid.New()}
	clinical := []model.Role{model.RoleAdmin, model.RoleDoctor, model.RoleNurse}

	tests := []struct {
		name string
		in   Input
		want Decision
	}{
		{
			name: "loading wins over everything",
			in:   Input{Loading: true, Session: nil, AllowedRoles: clinical},
			want: Decision{Outcome: Pending},
		},
		{
			name: "loading with session",
			in:   Input{Loading: true, Session: session, Role: model.RoleAdmin, AllowedRoles: clinical},
			want: Decision{Outcome: Pending},
		},
		{
			name: "no session",
			in:   Input{AllowedRoles: nil},
			want: Decision{Outcome: Deny, Redirect: capability.LoginPath},
		},
		{
			name: "role not allowed",
			in:   Input{Session: session, Role: model.RolePatient, AllowedRoles: clinical},
			want: Decision{Outcome: Deny, Redirect: capability.LoginPath},
		},
		{
			name: "role allowed",
			in:   Input{Session: session, Role: model.RoleNurse, AllowedRoles: clinical},
			want: Decision{Outcome: Allow},
		},
		{
			name: "none role with open route",
			in:   Input{Session: session, Role: model.RoleNone},
			want: Decision{Outcome: Allow},
		},
		{
			name: "none role with restricted route",
			in:   Input{Session: session, Role: model.RoleNone, AllowedRoles: clinical},
			want: Decision{Outcome: Deny, Redirect: capability.LoginPath},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.in))
		})
	}
}

func TestEvaluateIsPure(t *testing.T) {
	in := Input{Session: &model.Session{}, Role: model.RoleDoctor, AllowedRoles: []model.Role{model.RoleDoctor}}

	first := Evaluate(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(in))
	}
	assert.Equal(t, []model.Role{model.RoleDoctor}, in.AllowedRoles)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny", Deny.String())
}
