package capability

import "github.com/jwalitptl/hms-console/internal/model"

const (
	RouteLogin         model.RouteID = "login"
	RouteSignup        model.RouteID = "signup"
	RouteDashboard     model.RouteID = "dashboard"
	RoutePatients      model.RouteID = "patients"
	RouteDoctors       model.RouteID = "doctors"
	RouteAppointments  model.RouteID = "appointments"
	RouteRecords       model.RouteID = "records"
	RouteBilling       model.RouteID = "billing"
	RouteInventory     model.RouteID = "inventory"
	RoutePharmacy      model.RouteID = "pharmacy"
	RouteLaboratory    model.RouteID = "laboratory"
	RoutePrescriptions model.RouteID = "prescriptions"
	RouteTestResults   model.RouteID = "test-results"
	RouteSettings      model.RouteID = "settings"
	RouteUsers         model.RouteID = "users"
)

// Route is a protected console screen. Table names the record collection the
// screen edits, if any.
type Route struct {
	ID           model.RouteID
	Path         string
	Table        string
	AllowedRoles []model.Role
}

var (
	admin         = model.RoleAdmin
	doctor        = model.RoleDoctor
	nurse         = model.RoleNurse
	pharmacist    = model.RolePharmacist
	labTechnician = model.RoleLabTechnician
	patient       = model.RolePatient
)

// Routes lists every protected screen with its allowed roles.
// Navigation-only items (settings, users, prescriptions, test results) have no screen.
var Routes = []Route{
	{ID: RouteDashboard, Path: "/", AllowedRoles: []model.Role{admin, doctor, nurse, pharmacist, labTechnician}},
	{ID: RoutePatients, Path: "/patients", Table: "patients", AllowedRoles: []model.Role{admin, doctor, nurse}},
	{ID: RouteDoctors, Path: "/doctors", Table: "doctors", AllowedRoles: []model.Role{admin}},
	{ID: RouteAppointments, Path: "/appointments", Table: "appointments", AllowedRoles: []model.Role{admin, doctor, nurse, patient}},
	{ID: RouteRecords, Path: "/records", Table: "medical_records", AllowedRoles: []model.Role{admin, doctor, nurse, patient}},
	{ID: RouteBilling, Path: "/billing", Table: "bills", AllowedRoles: []model.Role{admin, patient}},
	{ID: RouteInventory, Path: "/inventory", Table: "inventory", AllowedRoles: []model.Role{admin, pharmacist}},
	{ID: RoutePharmacy, Path: "/pharmacy", Table: "pharmacy_items", AllowedRoles: []model.Role{admin, pharmacist}},
	{ID: RouteLaboratory, Path: "/laboratory", Table: "lab_tests", AllowedRoles: []model.Role{admin, labTechnician}},
}

// LoginPath is where denied navigations are sent.
const LoginPath = "/login"

func RouteByID(id model.RouteID) (Route, bool) {
	for _, r := range Routes {
		if r.ID == id {
			return r, true
		}
	}
	return Route{}, false
}

// AccessAllowed is the single authorization predicate for every protected
// route: true iff allowed is empty or contains role.
func AccessAllowed(role model.Role, _ model.RouteID, allowed []model.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// Landing returns the first screen of role's navigation it may open, or the login path.
func Landing(role model.Role) string {
	for _, item := range For(role).Navigation {
		route, ok := RouteByID(item.RouteID)
		if ok && AccessAllowed(role, route.ID, route.AllowedRoles) {
			return route.Path
		}
	}
	return LoginPath
}
