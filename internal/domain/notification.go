package domain

// Notification is a daily reminder: a wall-clock trigger time and the message
// to send. Immutable once created.
type Notification struct {
	Time TimeOfDay `json:"time"`
	Text string    `json:"text"`
}
