package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "SCHEDULED"
	StatusCheckedIn   AppointmentStatus = "CHECKED_IN"
	StatusUnderReview AppointmentStatus = "UNDER_REVIEW"
	StatusCompleted   AppointmentStatus = "COMPLETED"
	StatusCancelled   AppointmentStatus = "CANCELLED"
)

// Appointment represents one clinical encounter. Status only moves forward
// along SCHEDULED -> CHECKED_IN -> UNDER_REVIEW -> COMPLETED; CANCELLED is
// reachable from any non-terminal state.
type Appointment struct {
	BaseModel
	PatientID        string            `gorm:"size:36;index" json:"patientId"`
	DoctorID         string            `gorm:"size:36;index" json:"doctorId"`
	ServiceID        string            `gorm:"size:36;index" json:"serviceId"`
	ScheduledAt      time.Time         `json:"scheduledAt"`
	IsOnline         bool              `gorm:"default:false" json:"isOnline"`
	CheckedIn        bool              `gorm:"default:false" json:"checkedIn"`
	RequestLabSample bool              `gorm:"default:false" json:"requestLabSample"`
	BloodPressure    string            `gorm:"size:20" json:"bloodPressure"`
	Symptoms         string            `gorm:"type:text" json:"symptoms"`
	Notes            string            `gorm:"type:text" json:"notes"`
	Status           AppointmentStatus `gorm:"size:20;default:'SCHEDULED'" json:"status"`
	CancelReason     string            `gorm:"size:255" json:"cancelReason,omitempty"`
	ArchivedAt       *time.Time        `json:"archivedAt,omitempty"` // appointments are never hard-deleted

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"-"`
}

// IsTerminal reports whether the appointment can no longer change state.
func (a *Appointment) IsTerminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusCancelled
}
