package capability

import "github.com/jwalitptl/hms-console/internal/model"

// DefaultNotificationLimit caps the unread notification feed of every plan.
const DefaultNotificationLimit = 5

// Capabilities is everything a role may see: its menu and its dashboard reads.
type Capabilities struct {
	Navigation    []model.NavigationItem
	DashboardPlan []model.QuerySpec
}

func nav(label string, id model.RouteID, path string) model.NavigationItem {
	return model.NavigationItem{Label: label, RouteID: id, Path: path}
}

// BaseItem is shown to every role, including none.
var BaseItem = nav("Dashboard", RouteDashboard, "/")

// For resolves the capabilities of role. Unknown roles get the base item and an empty plan.
func For(role model.Role) Capabilities {
	return Capabilities{
		Navigation:    append([]model.NavigationItem{BaseItem}, navigationFor(role)...),
		DashboardPlan: planFor(role),
	}
}

func navigationFor(role model.Role) []model.NavigationItem {
	switch role {
	case model.RoleAdmin:
		return []model.NavigationItem{
			nav("Patients", RoutePatients, "/patients"),
			nav("Doctors", RouteDoctors, "/doctors"),
			nav("Appointments", RouteAppointments, "/appointments"),
			nav("Medical Records", RouteRecords, "/records"),
			nav("Billing", RouteBilling, "/billing"),
			nav("Inventory", RouteInventory, "/inventory"),
			nav("Pharmacy", RoutePharmacy, "/pharmacy"),
			nav("Laboratory", RouteLaboratory, "/laboratory"),
			nav("Prescriptions", RoutePrescriptions, "/prescriptions"),
			nav("Test Results", RouteTestResults, "/test-results"),
			nav("Settings", RouteSettings, "/settings"),
			nav("User Management", RouteUsers, "/users"),
		}
	case model.RoleDoctor:
		return []model.NavigationItem{
			nav("My Patients", RoutePatients, "/patients"),
			nav("Appointments", RouteAppointments, "/appointments"),
			nav("Medical Records", RouteRecords, "/records"),
			nav("Prescriptions", RoutePrescriptions, "/prescriptions"),
		}
	case model.RoleNurse:
		return []model.NavigationItem{
			nav("Patients", RoutePatients, "/patients"),
			nav("Appointments", RouteAppointments, "/appointments"),
			nav("Medical Records", RouteRecords, "/records"),
		}
	case model.RolePharmacist:
		return []model.NavigationItem{
			nav("Pharmacy", RoutePharmacy, "/pharmacy"),
			nav("Inventory", RouteInventory, "/inventory"),
			nav("Prescriptions", RoutePrescriptions, "/prescriptions"),
		}
	case model.RoleLabTechnician:
		return []model.NavigationItem{
			nav("Laboratory", RouteLaboratory, "/laboratory"),
			nav("Test Results", RouteTestResults, "/test-results"),
		}
	case model.RolePatient:
		return []model.NavigationItem{
			nav("My Appointments", RouteAppointments, "/appointments"),
			nav("My Records", RouteRecords, "/records"),
			nav("My Bills", RouteBilling, "/billing"),
			nav("Prescriptions", RoutePrescriptions, "/prescriptions"),
		}
	case model.RoleNone:
		return nil
	}
	return nil
}

func count(key model.CounterKey, table string, filter ...model.Condition) model.QuerySpec {
	return model.QuerySpec{Key: string(key), Kind: model.QueryCount, Table: table, Filter: filter}
}

func pending(key model.CounterKey, table string, filter ...model.Condition) model.QuerySpec {
	return count(key, table, append(filter, model.Eq("status", "pending"))...)
}

// RecentNotifications is the unread feed of the current subject, newest first.
func RecentNotifications(limit int) model.QuerySpec {
	return model.QuerySpec{
		Key:    model.RecentNotificationsKey,
		Kind:   model.QueryNotifications,
		Table:  "notifications",
		Filter: model.Filter{model.EqSubject("user_id"), model.Eq("read", false)},
		Order:  model.NewestFirst,
		Limit:  limit,
	}
}

func planFor(role model.Role) []model.QuerySpec {
	switch role {
	case model.RoleAdmin:
		return []model.QuerySpec{
			count(model.CounterTotalPatients, "patients"),
			pending(model.CounterTotalAppointments, "appointments"),
			pending(model.CounterPendingTests, "lab_tests"),
			pending(model.CounterUnpaidBills, "bills"),
			count(model.CounterLowStock, "inventory", model.LtColumn("quantity", "reorder_level")),
			RecentNotifications(DefaultNotificationLimit),
		}
	case model.RoleDoctor:
		return []model.QuerySpec{
			count(model.CounterTotalPatients, "patients", model.EqSubject("doctor_id")),
			pending(model.CounterTotalAppointments, "appointments", model.EqSubject("doctor_id")),
			RecentNotifications(DefaultNotificationLimit),
		}
	case model.RoleNurse:
		return []model.QuerySpec{
			pending(model.CounterTotalAppointments, "appointments"),
			RecentNotifications(DefaultNotificationLimit),
		}
	case model.RolePharmacist:
		return []model.QuerySpec{
			count(model.CounterLowStock, "pharmacy_items", model.LtColumn("quantity", "reorder_level")),
			pending(model.CounterPendingPrescriptions, "prescriptions"),
			RecentNotifications(DefaultNotificationLimit),
		}
	case model.RoleLabTechnician:
		return []model.QuerySpec{
			pending(model.CounterPendingTests, "lab_tests"),
			RecentNotifications(DefaultNotificationLimit),
		}
	case model.RolePatient, model.RoleNone:
		// no counters are defined for patients
		return nil
	}
	return nil
}
