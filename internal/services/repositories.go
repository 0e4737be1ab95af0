package services

import (
	"time"

	"hiv-clinic-server/internal/models"
)

// Actor identifies who is performing a call. Threaded explicitly into every
// mutating operation instead of being read from ambient state.
type Actor struct {
	ID   string
	Name string
	Role models.Role
}

// AppointmentRepository is the persistence surface the appointment state
// machine needs.
type AppointmentRepository interface {
	ByID(id string) (*models.Appointment, error)
	Create(a *models.Appointment) error
	Save(a *models.Appointment) error
	ListByPatient(patientID string) ([]models.Appointment, error)
	ListByDoctor(doctorID string, status models.AppointmentStatus) ([]models.Appointment, error)
	ListForDay(day time.Time) ([]models.Appointment, error)
}

// TreatmentPlanRepository persists the treatment-plan aggregate. Create and
// AddMedications cascade medication and schedule rows.
type TreatmentPlanRepository interface {
	ByID(id string) (*models.TreatmentPlan, error)
	ByAppointment(appointmentID string) (*models.TreatmentPlan, error)
	Create(p *models.TreatmentPlan) error
	Save(p *models.TreatmentPlan) error
	AddMedications(planID string, meds []models.MedicationPrescription) error
	Delete(p *models.TreatmentPlan) error
	ListByPatient(patientID string) ([]models.TreatmentPlan, error)
}

// ScheduleRepository persists per-medication dosing schedules.
type ScheduleRepository interface {
	ByID(id string) (*models.MedicationSchedule, error)
	MedicationByID(id string) (*models.MedicationPrescription, error)
	ForMedication(medicationID string) ([]models.MedicationSchedule, error)
	CreateBatch(rows []models.MedicationSchedule) error
	Save(s *models.MedicationSchedule) error
	Delete(id string) error
}

// Finalization is the terminal write applied to a PENDING transaction.
type Finalization struct {
	Status                models.TransactionStatus
	ProviderTransactionID string
	ConfirmedBy           string
	Notes                 string
	At                    time.Time
}

// PaymentRepository persists payment transactions. FinalizePending is the
// compare-and-set: it must apply the finalization only if the row is still
// PENDING, atomically at the storage layer, and report whether it won.
type PaymentRepository interface {
	ByID(id string) (*models.PaymentTransaction, error)
	ByOrderID(orderID string) (*models.PaymentTransaction, error)
	CurrentByAppointment(appointmentID string) (*models.PaymentTransaction, error)
	OpenByAppointment(appointmentID string) (*models.PaymentTransaction, error)
	Create(t *models.PaymentTransaction) error
	Save(t *models.PaymentTransaction) error
	AttachProviderRef(id, providerTxID string) error
	FinalizePending(id string, fin Finalization) (bool, error)
	ListNeedingConfirmation() ([]models.PaymentTransaction, error)
	ListByPatient(patientID string) ([]models.PaymentTransaction, error)
}
