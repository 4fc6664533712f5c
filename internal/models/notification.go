package models

import "time"

// NotificationKind tells the presentation layer what raised a notification.
type NotificationKind string

const (
	NotificationAlert       NotificationKind = "alert"
	NotificationFault       NotificationKind = "fault"
	NotificationMaintenance NotificationKind = "maintenance"
)

// Notification is a user-facing message waiting to be dismissed.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	Sensors   []SensorKind     `json:"sensors,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}
