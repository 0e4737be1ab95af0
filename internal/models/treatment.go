package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// TreatmentPlanStatus represents the status of a treatment plan
type TreatmentPlanStatus string

const (
	PlanActive       TreatmentPlanStatus = "ACTIVE"
	PlanPaused       TreatmentPlanStatus = "PAUSED"
	PlanCompleted    TreatmentPlanStatus = "COMPLETED"
	PlanDiscontinued TreatmentPlanStatus = "DISCONTINUED"
)

// MedicationFrequency represents how often a medication is taken
type MedicationFrequency string

const (
	OnceDaily       MedicationFrequency = "ONCE_DAILY"
	TwiceDaily      MedicationFrequency = "TWICE_DAILY"
	ThreeTimesDaily MedicationFrequency = "THREE_TIMES_DAILY"
	FourTimesDaily  MedicationFrequency = "FOUR_TIMES_DAILY"
	EveryOtherDay   MedicationFrequency = "EVERY_OTHER_DAY"
	Weekly          MedicationFrequency = "WEEKLY"
	Monthly         MedicationFrequency = "MONTHLY"
)

// TreatmentPlan is the ARV treatment aggregate authored by a doctor during
// an appointment's review. It is linked 1:1 to the appointment that produced
// it and owns its medication list.
type TreatmentPlan struct {
	BaseModel
	AppointmentID string              `gorm:"size:36;uniqueIndex" json:"appointmentId"`
	PatientID     string              `gorm:"size:36;index" json:"patientId"`
	DoctorID      string              `gorm:"size:36;index" json:"doctorId"`
	Description   string              `gorm:"type:text" json:"description"`
	StartDate     time.Time           `json:"startDate"`
	EndDate       *time.Time          `json:"endDate,omitempty"`
	Status        TreatmentPlanStatus `gorm:"size:20;default:'ACTIVE'" json:"status"`

	Medications []MedicationPrescription `gorm:"foreignKey:TreatmentPlanID" json:"medications"`
}

// IsTerminal reports whether the plan accepts no further edits.
func (p *TreatmentPlan) IsTerminal() bool {
	return p.Status == PlanCompleted || p.Status == PlanDiscontinued
}

// MedicationPrescription is one prescribed medication inside a treatment
// plan. MedicationID references the external medication catalogue. Position
// preserves prescription order within the plan; batch inserts share one
// created_at so the timestamp cannot order them.
type MedicationPrescription struct {
	BaseModel
	TreatmentPlanID string              `gorm:"size:36;index;not null" json:"treatmentPlanId"`
	Position        int                 `gorm:"not null;default:0" json:"position"`
	MedicationID    string              `gorm:"size:36;not null" json:"medicationId"`
	Dosage          string              `gorm:"size:100" json:"dosage"`
	Frequency       MedicationFrequency `gorm:"size:30" json:"frequency"`
	StartDate       *time.Time          `json:"startDate,omitempty"`
	EndDate         *time.Time          `json:"endDate,omitempty"`
	PrescribedBy    string              `gorm:"size:100" json:"prescribedBy"`
	Instructions    string              `gorm:"type:text" json:"instructions"`

	Schedules []MedicationSchedule `gorm:"foreignKey:MedicationPrescriptionID" json:"schedules"`
}

// MedicationSchedule is a single dosing-time entry for a medication.
// An empty DaysOfWeek set means the dose is taken every day.
type MedicationSchedule struct {
	BaseModel
	MedicationPrescriptionID string     `gorm:"size:36;index;not null" json:"medicationId"`
	Position                 int        `gorm:"not null;default:0" json:"position"`
	TimeOfDay                string     `gorm:"size:5" json:"timeOfDay"` // HH:MM
	DosageAmount             string     `gorm:"size:50" json:"dosageAmount"`
	DaysOfWeek               WeekdaySet `gorm:"size:64" json:"daysOfWeek"`
	Notes                    string     `gorm:"size:255" json:"notes"`
	LastTakenAt              *time.Time `json:"lastTakenAt,omitempty"`
}

// Weekdays is the full 7-day set in display order.
var Weekdays = []string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

// WeekdaySet is a subset of the 7-day week, stored as a comma-joined column.
type WeekdaySet []string

// Value implements driver.Valuer.
func (w WeekdaySet) Value() (driver.Value, error) {
	return strings.Join(w, ","), nil
}

// Scan implements sql.Scanner.
func (w *WeekdaySet) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*w = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into WeekdaySet", value)
	}
	if raw == "" {
		*w = nil
		return nil
	}
	*w = strings.Split(raw, ",")
	return nil
}

// Validate checks that the set only contains known weekdays, each at most once.
func (w WeekdaySet) Validate() error {
	seen := make(map[string]bool, len(w))
	for _, day := range w {
		valid := false
		for _, known := range Weekdays {
			if day == known {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid day of week: %s", day)
		}
		if seen[day] {
			return fmt.Errorf("duplicate day of week: %s", day)
		}
		seen[day] = true
	}
	return nil
}

// Display formats the set for human consumption; the empty set means the
// dose is taken daily.
func (w WeekdaySet) Display() string {
	if len(w) == 0 {
		return "every day"
	}
	return strings.Join(w, ", ")
}
