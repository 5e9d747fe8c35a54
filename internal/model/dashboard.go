package model

import "time"

// CounterKey names one dashboard counter.
type CounterKey string

const (
	CounterTotalPatients        CounterKey = "totalPatients"
	CounterTotalAppointments    CounterKey = "totalAppointments"
	CounterPendingTests         CounterKey = "pendingTests"
	CounterUnpaidBills          CounterKey = "unpaidBills"
	CounterLowStock             CounterKey = "lowStock"
	CounterPendingPrescriptions CounterKey = "pendingPrescriptions"
)

// QueryKind selects how a QuerySpec result is folded into the snapshot.
type QueryKind int

const (
	QueryCount QueryKind = iota
	QueryNotifications
)

// RecentNotificationsKey identifies the notification feed query in a plan.
const RecentNotificationsKey = "recentNotifications"

// QuerySpec is one read of a dashboard plan.
type QuerySpec struct {
	Key    string    `json:"key"`
	Kind   QueryKind `json:"kind"`
	Table  string    `json:"table"`
	Filter Filter    `json:"filter,omitempty"`
	Order  *Order    `json:"order,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

// DashboardSnapshot is the computed view for one role at one point in time. Never persisted.
type DashboardSnapshot struct {
	Role                Role                 `json:"role"`
	Counters            map[CounterKey]int64 `json:"counters"`
	RecentNotifications []Notification       `json:"recentNotifications"`
	UnreadNotifications int                  `json:"unreadNotifications"`
	Failures            []string             `json:"failures,omitempty"`
	GeneratedAt         time.Time            `json:"generatedAt"`
}

// RouteID identifies a navigable console route.
type RouteID string

// NavigationItem is one entry of a role's menu.
type NavigationItem struct {
	Label   string  `json:"label"`
	RouteID RouteID `json:"route_id"`
	Path    string  `json:"path"`
}
