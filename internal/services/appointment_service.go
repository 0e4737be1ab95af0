package services

import (
	"time"

	"hiv-clinic-server/internal/models"
)

// AppointmentService drives the clinical-encounter state machine:
// SCHEDULED -> CHECKED_IN -> UNDER_REVIEW -> COMPLETED, with CANCELLED
// reachable from any non-terminal state.
type AppointmentService struct {
	repo  AppointmentRepository
	plans TreatmentPlanRepository
}

// NewAppointmentService creates a new AppointmentService.
func NewAppointmentService(repo AppointmentRepository, plans TreatmentPlanRepository) *AppointmentService {
	return &AppointmentService{repo: repo, plans: plans}
}

// BookAppointmentInput is the payload for booking a new appointment.
type BookAppointmentInput struct {
	PatientID   string
	DoctorID    string
	ServiceID   string
	ScheduledAt time.Time
	IsOnline    bool
	Symptoms    string
}

// Book creates a new SCHEDULED appointment.
func (s *AppointmentService) Book(actor Actor, input BookAppointmentInput) (*models.Appointment, error) {
	appointment := &models.Appointment{
		PatientID:   input.PatientID,
		DoctorID:    input.DoctorID,
		ServiceID:   input.ServiceID,
		ScheduledAt: input.ScheduledAt,
		IsOnline:    input.IsOnline,
		Symptoms:    input.Symptoms,
		Status:      models.StatusScheduled,
	}
	if err := s.repo.Create(appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Get returns one appointment by ID.
func (s *AppointmentService) Get(id string) (*models.Appointment, error) {
	return s.repo.ByID(id)
}

// ListByPatient returns a patient's appointments.
func (s *AppointmentService) ListByPatient(patientID string) ([]models.Appointment, error) {
	return s.repo.ListByPatient(patientID)
}

// ListByDoctor returns a doctor's appointments, optionally filtered by status.
func (s *AppointmentService) ListByDoctor(doctorID string, status models.AppointmentStatus) ([]models.Appointment, error) {
	return s.repo.ListByDoctor(doctorID, status)
}

// ListForDay returns every appointment scheduled on the given day, for the
// staff check-in desk.
func (s *AppointmentService) ListForDay(day time.Time) ([]models.Appointment, error) {
	return s.repo.ListForDay(day)
}

// CheckIn marks a scheduled patient as having arrived at the clinic.
func (s *AppointmentService) CheckIn(id string) (*models.Appointment, error) {
	appointment, err := s.repo.ByID(id)
	if err != nil {
		return nil, err
	}
	if appointment.Status != models.StatusScheduled {
		return nil, &InvalidTransitionError{
			Entity: "appointment",
			From:   string(appointment.Status),
			To:     string(models.StatusCheckedIn),
		}
	}
	appointment.CheckedIn = true
	appointment.Status = models.StatusCheckedIn
	if err := s.repo.Save(appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// UnderReviewInput carries the doctor's intake findings.
type UnderReviewInput struct {
	Notes            string
	BloodPressure    string
	RequestLabSample bool
	Symptoms         string
}

// PutUnderReview moves an appointment into clinical review. Re-entry is
// idempotent: an appointment already UNDER_REVIEW is returned untouched so
// the doctor can proceed straight to treatment planning. Online
// consultations skip the check-in requirement, and a lab sample can never be
// requested for them.
func (s *AppointmentService) PutUnderReview(id string, actor Actor, input UnderReviewInput) (*models.Appointment, error) {
	appointment, err := s.repo.ByID(id)
	if err != nil {
		return nil, err
	}

	if appointment.Status == models.StatusUnderReview {
		return appointment, nil
	}

	allowed := appointment.Status == models.StatusCheckedIn ||
		(appointment.Status == models.StatusScheduled && appointment.IsOnline)
	if !allowed {
		return nil, &InvalidTransitionError{
			Entity: "appointment",
			From:   string(appointment.Status),
			To:     string(models.StatusUnderReview),
		}
	}

	if input.BloodPressure == "" {
		verr := &ValidationError{}
		verr.Add("bloodPressure is required")
		return nil, verr
	}

	requestLabSample := input.RequestLabSample
	if appointment.IsOnline {
		requestLabSample = false
	}

	appointment.Status = models.StatusUnderReview
	appointment.BloodPressure = input.BloodPressure
	appointment.RequestLabSample = requestLabSample
	if input.Symptoms != "" {
		appointment.Symptoms = input.Symptoms
	}
	if input.Notes != "" {
		appointment.Notes = input.Notes
	}
	if err := s.repo.Save(appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// AttachTreatmentPlan creates the treatment plan for an appointment under
// review. The appointment stays UNDER_REVIEW until Complete is called.
func (s *AppointmentService) AttachTreatmentPlan(id string, actor Actor, planService *TreatmentPlanService, input CreatePlanInput) (*models.TreatmentPlan, error) {
	appointment, err := s.repo.ByID(id)
	if err != nil {
		return nil, err
	}
	if appointment.Status != models.StatusUnderReview {
		return nil, &InvalidTransitionError{
			Entity: "appointment",
			From:   string(appointment.Status),
			To:     "treatment planning",
		}
	}
	input.AppointmentID = appointment.ID
	input.PatientID = appointment.PatientID
	return planService.CreatePlan(actor, input)
}

// Complete finishes the encounter. It requires the appointment to be under
// review with a treatment plan carrying at least one medication attached.
func (s *AppointmentService) Complete(id string, actor Actor, notes string) (*models.Appointment, error) {
	appointment, err := s.repo.ByID(id)
	if err != nil {
		return nil, err
	}
	if appointment.Status != models.StatusUnderReview {
		return nil, &InvalidTransitionError{
			Entity: "appointment",
			From:   string(appointment.Status),
			To:     string(models.StatusCompleted),
		}
	}

	plan, err := s.plans.ByAppointment(appointment.ID)
	if err != nil {
		if err == ErrNotFound {
			return nil, &PreconditionError{Reason: "appointment has no treatment plan attached"}
		}
		return nil, err
	}
	if len(plan.Medications) == 0 {
		return nil, &PreconditionError{Reason: "treatment plan has no medications"}
	}

	appointment.Status = models.StatusCompleted
	if notes != "" {
		appointment.Notes = notes
	}
	if err := s.repo.Save(appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Cancel aborts the encounter from any non-terminal state.
func (s *AppointmentService) Cancel(id string, actor Actor, reason string) (*models.Appointment, error) {
	appointment, err := s.repo.ByID(id)
	if err != nil {
		return nil, err
	}
	if appointment.IsTerminal() {
		return nil, &InvalidTransitionError{
			Entity: "appointment",
			From:   string(appointment.Status),
			To:     string(models.StatusCancelled),
		}
	}
	appointment.Status = models.StatusCancelled
	appointment.CancelReason = reason
	if err := s.repo.Save(appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}
