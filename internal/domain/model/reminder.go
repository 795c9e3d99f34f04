package model

import "time"

type ReminderStatus string

const (
	ReminderStatusPending ReminderStatus = "pending"
	ReminderStatusPaid    ReminderStatus = "paid"
)

type Reminder struct {
	ID       string         `json:"id"`
	UserID   string         `json:"user_id"`
	Title    string         `json:"title"`
	Amount   *float64       `json:"valor"`
	RemindAt time.Time      `json:"remind_at"`
	Status   ReminderStatus `json:"status"`
}

// PushSubscription is one browser/device registered for web push.
type PushSubscription struct {
	ID       string
	UserID   string
	Endpoint string
	P256dh   string
	Auth     string
}

// PushPayload is the JSON body delivered to the service worker.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// StartOfDay returns the first instant of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last instant of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), loc)
}
