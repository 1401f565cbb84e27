package model

import "time"

// Layouts for the calendar date and clock time of an appointment. Both are
// zero-padded, so lexical order equals chronological order.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Appointment is a scheduled treatment or consultation.
type Appointment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// AppointmentUpdate is a partial set of mutable appointment fields.
// Nil fields are left untouched.
type AppointmentUpdate struct {
	Name      *string
	Date      *string
	Time      *string
	Completed *bool
}

// IsEmpty reports whether no field is set.
func (u AppointmentUpdate) IsEmpty() bool {
	return u.Name == nil && u.Date == nil && u.Time == nil && u.Completed == nil
}
