package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"hiv-clinic-server/internal/models"
	"hiv-clinic-server/internal/services"
	"hiv-clinic-server/internal/utils"
)

// TreatmentPlanHandler handles treatment plan related requests.
type TreatmentPlanHandler struct {
	Service *services.TreatmentPlanService
}

// NewTreatmentPlanHandler creates a new TreatmentPlanHandler.
func NewTreatmentPlanHandler(service *services.TreatmentPlanService) *TreatmentPlanHandler {
	return &TreatmentPlanHandler{Service: service}
}

// ScheduleRequest is one dosing-time entry in a medication request.
type ScheduleRequest struct {
	TimeOfDay    string            `json:"timeOfDay"`
	DosageAmount string            `json:"dosageAmount"`
	DaysOfWeek   models.WeekdaySet `json:"daysOfWeek"`
	Notes        string            `json:"notes"`
}

// MedicationRequest is one prescribed medication in a plan request.
type MedicationRequest struct {
	MedicationID string                     `json:"medicationId"`
	Dosage       string                     `json:"dosage"`
	Frequency    models.MedicationFrequency `json:"frequency"`
	StartDate    *time.Time                 `json:"startDate"`
	EndDate      *time.Time                 `json:"endDate"`
	PrescribedBy string                     `json:"prescribedBy"`
	Instructions string                     `json:"instructions"`
	Schedules    []ScheduleRequest          `json:"schedules"`
}

func medicationInputs(reqs []MedicationRequest) []services.MedicationInput {
	inputs := make([]services.MedicationInput, 0, len(reqs))
	for _, r := range reqs {
		in := services.MedicationInput{
			MedicationID: r.MedicationID,
			Dosage:       r.Dosage,
			Frequency:    r.Frequency,
			StartDate:    r.StartDate,
			EndDate:      r.EndDate,
			PrescribedBy: r.PrescribedBy,
			Instructions: r.Instructions,
		}
		for _, s := range r.Schedules {
			in.Schedules = append(in.Schedules, services.ScheduleInput{
				TimeOfDay:    s.TimeOfDay,
				DosageAmount: s.DosageAmount,
				DaysOfWeek:   s.DaysOfWeek,
				Notes:        s.Notes,
			})
		}
		inputs = append(inputs, in)
	}
	return inputs
}

// CreatePlanRequest represents the request body for creating a treatment plan.
type CreatePlanRequest struct {
	AppointmentID string              `json:"appointmentId" binding:"required,uuid"`
	PatientID     string              `json:"patientId" binding:"required,uuid"`
	Description   string              `json:"description"`
	StartDate     *time.Time          `json:"startDate"`
	EndDate       *time.Time          `json:"endDate"`
	Medications   []MedicationRequest `json:"medications"`
}

// Create handles creating a treatment plan directly (doctor only).
func (h *TreatmentPlanHandler) Create(c *gin.Context) {
	var req CreatePlanRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	plan, err := h.Service.CreatePlan(actorFromContext(c), services.CreatePlanInput{
		AppointmentID: req.AppointmentID,
		PatientID:     req.PatientID,
		Description:   req.Description,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Medications:   medicationInputs(req.Medications),
	})
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Created(c, "Treatment plan created successfully", plan)
}

// GetByID handles fetching a single plan with its medication list.
func (h *TreatmentPlanHandler) GetByID(c *gin.Context) {
	plan, err := h.Service.GetPlan(c.Param("id"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}

	actor := actorFromContext(c)
	if actor.Role == models.RolePatient && actor.ID != plan.PatientID {
		utils.Forbidden(c, "You are not authorized to view this treatment plan")
		return
	}

	utils.Success(c, "Treatment plan fetched successfully", plan)
}

// ListForPatient handles fetching a patient's plans.
func (h *TreatmentPlanHandler) ListForPatient(c *gin.Context) {
	patientID := c.Param("patientId")
	actor := actorFromContext(c)
	if actor.Role == models.RolePatient && actor.ID != patientID {
		utils.Forbidden(c, "You are not authorized to view these treatment plans")
		return
	}

	plans, err := h.Service.ListByPatient(patientID)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Treatment plans fetched successfully", plans)
}

// AddMedications handles batch-appending medications to a plan.
func (h *TreatmentPlanHandler) AddMedications(c *gin.Context) {
	var reqs []MedicationRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	plan, err := h.Service.AddMedications(c.Param("id"), actorFromContext(c), medicationInputs(reqs))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Medications added successfully", plan)
}

// UpdateStatusRequest represents the request body for a plan status change.
type UpdateStatusRequest struct {
	Status models.TreatmentPlanStatus `json:"status" binding:"required,oneof=ACTIVE PAUSED COMPLETED DISCONTINUED"`
	Reason string                     `json:"reason"`
}

// UpdateStatus handles a plan status transition.
func (h *TreatmentPlanHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	plan, err := h.Service.UpdateStatus(c.Param("id"), req.Status)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Treatment plan status updated successfully", plan)
}

// Delete handles removing a plan that is still editable.
func (h *TreatmentPlanHandler) Delete(c *gin.Context) {
	if err := h.Service.DeletePlan(c.Param("id")); err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Treatment plan deleted successfully", nil)
}
