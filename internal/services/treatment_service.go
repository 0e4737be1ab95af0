package services

import (
	"fmt"
	"time"

	"hiv-clinic-server/internal/models"
)

// TreatmentPlanService owns the treatment-plan aggregate: validation,
// status transitions and the medication list.
type TreatmentPlanService struct {
	repo         TreatmentPlanRepository
	appointments AppointmentRepository
}

// NewTreatmentPlanService creates a new TreatmentPlanService.
func NewTreatmentPlanService(repo TreatmentPlanRepository, appointments AppointmentRepository) *TreatmentPlanService {
	return &TreatmentPlanService{repo: repo, appointments: appointments}
}

// MedicationInput is one prescribed medication in a create/append request.
type MedicationInput struct {
	MedicationID string
	Dosage       string
	Frequency    models.MedicationFrequency
	StartDate    *time.Time
	EndDate      *time.Time
	PrescribedBy string
	Instructions string
	Schedules    []ScheduleInput
}

// CreatePlanInput is the payload for creating a treatment plan.
type CreatePlanInput struct {
	AppointmentID string
	PatientID     string
	Description   string
	StartDate     *time.Time
	EndDate       *time.Time
	Medications   []MedicationInput
}

// legal status edges; terminal states have none.
var planTransitions = map[models.TreatmentPlanStatus][]models.TreatmentPlanStatus{
	models.PlanActive: {models.PlanPaused, models.PlanCompleted, models.PlanDiscontinued},
	models.PlanPaused: {models.PlanActive, models.PlanCompleted, models.PlanDiscontinued},
}

// CreatePlan validates and persists a treatment plan with its medication
// list. All violations are collected into a single ValidationError. On
// success the plan is ACTIVE and medication creation cascades, with each
// medication's prescribedBy defaulting to the authoring doctor and default
// dosing schedules generated for medications that carry none.
func (s *TreatmentPlanService) CreatePlan(actor Actor, input CreatePlanInput) (*models.TreatmentPlan, error) {
	verr := &ValidationError{}

	if input.StartDate == nil {
		verr.Add("startDate is required")
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		verr.Add("endDate must not be before startDate")
	}
	if len(input.Medications) == 0 {
		verr.Add("at least one medication required")
	}
	for i, med := range input.Medications {
		if med.MedicationID == "" {
			verr.Add(fmt.Sprintf("medications[%d].medicationId is required", i))
		}
		if med.Dosage == "" {
			verr.Add(fmt.Sprintf("medications[%d].dosage is required", i))
		}
	}
	if verr.HasViolations() {
		return nil, verr
	}

	if _, err := s.appointments.ByID(input.AppointmentID); err != nil {
		return nil, err
	}
	if existing, err := s.repo.ByAppointment(input.AppointmentID); err == nil && existing != nil {
		return nil, &ConflictError{Reason: "appointment already has a treatment plan"}
	} else if err != nil && err != ErrNotFound {
		return nil, err
	}

	plan := &models.TreatmentPlan{
		AppointmentID: input.AppointmentID,
		PatientID:     input.PatientID,
		DoctorID:      actor.ID,
		Description:   input.Description,
		StartDate:     *input.StartDate,
		EndDate:       input.EndDate,
		Status:        models.PlanActive,
	}
	plan.Medications = buildMedications(actor, input.Medications)

	if err := s.repo.Create(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// GetPlan returns a plan with medications and schedules preloaded.
func (s *TreatmentPlanService) GetPlan(id string) (*models.TreatmentPlan, error) {
	return s.repo.ByID(id)
}

// ListByPatient returns a patient's treatment plans.
func (s *TreatmentPlanService) ListByPatient(patientID string) ([]models.TreatmentPlan, error) {
	return s.repo.ListByPatient(patientID)
}

// AddMedications batch-appends medications to a plan. Terminal plans accept
// no further edits.
func (s *TreatmentPlanService) AddMedications(planID string, actor Actor, inputs []MedicationInput) (*models.TreatmentPlan, error) {
	plan, err := s.repo.ByID(planID)
	if err != nil {
		return nil, err
	}
	if plan.IsTerminal() {
		return nil, &ConflictError{Reason: "treatment plan is already terminal"}
	}

	verr := &ValidationError{}
	if len(inputs) == 0 {
		verr.Add("at least one medication required")
	}
	for i, med := range inputs {
		if med.MedicationID == "" {
			verr.Add(fmt.Sprintf("medications[%d].medicationId is required", i))
		}
		if med.Dosage == "" {
			verr.Add(fmt.Sprintf("medications[%d].dosage is required", i))
		}
	}
	if verr.HasViolations() {
		return nil, verr
	}

	if err := s.repo.AddMedications(plan.ID, buildMedications(actor, inputs)); err != nil {
		return nil, err
	}
	return s.repo.ByID(planID)
}

// UpdateStatus applies a plan status transition. ACTIVE and PAUSED swap
// freely; either may move to COMPLETED or DISCONTINUED; terminal states
// accept nothing.
func (s *TreatmentPlanService) UpdateStatus(planID string, newStatus models.TreatmentPlanStatus) (*models.TreatmentPlan, error) {
	plan, err := s.repo.ByID(planID)
	if err != nil {
		return nil, err
	}
	if plan.IsTerminal() {
		return nil, &ConflictError{Reason: "treatment plan is already terminal"}
	}
	legal := false
	for _, to := range planTransitions[plan.Status] {
		if to == newStatus {
			legal = true
			break
		}
	}
	if !legal {
		return nil, &InvalidTransitionError{
			Entity: "treatment plan",
			From:   string(plan.Status),
			To:     string(newStatus),
		}
	}
	plan.Status = newStatus
	if err := s.repo.Save(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// DeletePlan removes a plan. Only non-terminal plans whose appointment has
// not been completed may be deleted; a plan linked to a completed encounter
// is part of the clinical record.
func (s *TreatmentPlanService) DeletePlan(planID string) error {
	plan, err := s.repo.ByID(planID)
	if err != nil {
		return err
	}
	if plan.IsTerminal() {
		return &ConflictError{Reason: "treatment plan is already terminal"}
	}
	appointment, err := s.appointments.ByID(plan.AppointmentID)
	if err != nil {
		return err
	}
	if appointment.Status == models.StatusCompleted {
		return &ConflictError{Reason: "treatment plan belongs to a completed appointment"}
	}
	return s.repo.Delete(plan)
}

func buildMedications(actor Actor, inputs []MedicationInput) []models.MedicationPrescription {
	meds := make([]models.MedicationPrescription, 0, len(inputs))
	for i, in := range inputs {
		prescribedBy := in.PrescribedBy
		if prescribedBy == "" {
			prescribedBy = actor.Name
		}
		med := models.MedicationPrescription{
			Position:     i,
			MedicationID: in.MedicationID,
			Dosage:       in.Dosage,
			Frequency:    in.Frequency,
			StartDate:    in.StartDate,
			EndDate:      in.EndDate,
			PrescribedBy: prescribedBy,
			Instructions: in.Instructions,
		}
		if len(in.Schedules) > 0 {
			for j, sched := range in.Schedules {
				med.Schedules = append(med.Schedules, models.MedicationSchedule{
					Position:     j,
					TimeOfDay:    sched.TimeOfDay,
					DosageAmount: sched.DosageAmount,
					DaysOfWeek:   sched.DaysOfWeek,
					Notes:        sched.Notes,
				})
			}
		} else {
			med.Schedules = DefaultSchedules(in.Frequency, in.Dosage)
		}
		meds = append(meds, med)
	}
	return meds
}
