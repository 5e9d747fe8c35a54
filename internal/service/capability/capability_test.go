package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hms-console/internal/model"
)

func allRoles() []model.Role {
	return append([]model.Role{model.RoleNone, model.Role("janitor")}, model.Roles...)
}

func TestNavigationAlwaysIncludesBaseItem(t *testing.T) {
	for _, role := range allRoles() {
		t.Run(role.String(), func(t *testing.T) {
			items := For(role).Navigation
			require.NotEmpty(t, items)
			assert.Equal(t, BaseItem, items[0])
		})
	}
}

func TestUnknownRolesGetBaseItemOnly(t *testing.T) {
	for _, role := range []model.Role{model.RoleNone, model.Role("janitor")} {
		caps := For(role)
		assert.Equal(t, []model.NavigationItem{BaseItem}, caps.Navigation)
		assert.Empty(t, caps.DashboardPlan)
	}
}

func TestEveryRoleHasMenu(t *testing.T) {
	for _, role := range model.Roles {
		assert.Greater(t, len(For(role).Navigation), 1, role)
	}
}

func TestAdminNavigationIsSuperset(t *testing.T) {
	adminRoutes := map[model.RouteID]bool{}
	for _, item := range For(model.RoleAdmin).Navigation {
		adminRoutes[item.RouteID] = true
	}

	for _, role := range model.Roles {
		for _, item := range For(role).Navigation {
			assert.True(t, adminRoutes[item.RouteID], "admin lacks %s from %s", item.RouteID, role)
		}
	}
}

func TestAccessAllowed(t *testing.T) {
	tests := []struct {
		name    string
		role    model.Role
		allowed []model.Role
		want    bool
	}{
		{"empty list admits admin", model.RoleAdmin, nil, true},
		{"empty list admits none", model.RoleNone, []model.Role{}, true},
		{"member", model.RoleNurse, []model.Role{model.RoleDoctor, model.RoleNurse}, true},
		{"non member", model.RolePatient, []model.Role{model.RoleDoctor, model.RoleNurse}, false},
		{"none against list", model.RoleNone, []model.Role{model.RoleAdmin}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AccessAllowed(tt.role, RoutePatients, tt.allowed))
		})
	}
}

func TestAccessAllowedExhaustive(t *testing.T) {
	for _, role := range allRoles() {
		for _, route := range Routes {
			want := len(route.AllowedRoles) == 0
			for _, r := range route.AllowedRoles {
				want = want || r == role
			}
			assert.Equal(t, want, AccessAllowed(role, route.ID, route.AllowedRoles), "%s on %s", role, route.ID)
		}
	}
}

func TestRouteTable(t *testing.T) {
	billing, ok := RouteByID(RouteBilling)
	require.True(t, ok)
	assert.Equal(t, "/billing", billing.Path)
	assert.Equal(t, "bills", billing.Table)
	assert.ElementsMatch(t, []model.Role{model.RoleAdmin, model.RolePatient}, billing.AllowedRoles)

	_, ok = RouteByID(RouteSettings)
	assert.False(t, ok)
}

func TestLanding(t *testing.T) {
	assert.Equal(t, "/", Landing(model.RoleAdmin))
	assert.Equal(t, "/", Landing(model.RoleLabTechnician))
	assert.Equal(t, "/appointments", Landing(model.RolePatient))
	assert.Equal(t, LoginPath, Landing(model.RoleNone))
}

func TestPlans(t *testing.T) {
	keys := func(role model.Role) []string {
		var out []string
		for _, q := range For(role).DashboardPlan {
			out = append(out, q.Key)
		}
		return out
	}

	assert.Equal(t, []string{"totalPatients", "totalAppointments", "pendingTests", "unpaidBills", "lowStock", "recentNotifications"}, keys(model.RoleAdmin))
	assert.Equal(t, []string{"totalPatients", "totalAppointments", "recentNotifications"}, keys(model.RoleDoctor))
	assert.Equal(t, []string{"totalAppointments", "recentNotifications"}, keys(model.RoleNurse))
	assert.Equal(t, []string{"lowStock", "pendingPrescriptions", "recentNotifications"}, keys(model.RolePharmacist))
	assert.Equal(t, []string{"pendingTests", "recentNotifications"}, keys(model.RoleLabTechnician))
	assert.Empty(t, keys(model.RolePatient))
}

func TestDoctorPlanIsScopedToSubject(t *testing.T) {
	plan := For(model.RoleDoctor).DashboardPlan

	patients := plan[0]
	require.Len(t, patients.Filter, 1)
	assert.True(t, patients.Filter[0].BindSubject)

	appointments := plan[1]
	assert.Equal(t, model.Filter{model.EqSubject("doctor_id"), model.Eq("status", "pending")}, appointments.Filter)

	feed := plan[2]
	assert.Equal(t, model.QueryNotifications, feed.Kind)
	assert.Equal(t, DefaultNotificationLimit, feed.Limit)
	assert.Equal(t, model.NewestFirst, feed.Order)
}

func TestNurseAppointmentsAreUnscoped(t *testing.T) {
	q := For(model.RoleNurse).DashboardPlan[0]
	assert.Equal(t, model.Filter{model.Eq("status", "pending")}, q.Filter)
}
