package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"hiv-clinic-server/internal/middleware"
	"hiv-clinic-server/internal/models"
	"hiv-clinic-server/internal/services"
	"hiv-clinic-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Service *services.AppointmentService
	Plans   *services.TreatmentPlanService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(service *services.AppointmentService, plans *services.TreatmentPlanService) *AppointmentHandler {
	return &AppointmentHandler{Service: service, Plans: plans}
}

func actorFromContext(c *gin.Context) services.Actor {
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)
	name := c.GetString("userName")
	return services.Actor{ID: userID, Name: name, Role: role}
}

// BookAppointmentRequest represents the request body for booking an appointment.
type BookAppointmentRequest struct {
	DoctorID    string    `json:"doctorId" binding:"required,uuid"`
	PatientID   string    `json:"patientId" binding:"required,uuid"`
	ServiceID   string    `json:"serviceId"`
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
	IsOnline    bool      `json:"isOnline"`
	Symptoms    string    `json:"symptoms"`
}

// Book handles booking a new appointment. Typically initiated by a patient.
func (h *AppointmentHandler) Book(c *gin.Context) {
	var req BookAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	actor := actorFromContext(c)
	// Patients can only book for themselves
	if actor.Role == models.RolePatient && actor.ID != req.PatientID {
		utils.Forbidden(c, "Patients can only book appointments for themselves.")
		return
	}

	if req.ScheduledAt.Before(time.Now()) {
		utils.BadRequest(c, "Appointment date must be in the future.")
		return
	}

	appointment, err := h.Service.Book(actor, services.BookAppointmentInput{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		ServiceID:   req.ServiceID,
		ScheduledAt: req.ScheduledAt,
		IsOnline:    req.IsOnline,
		Symptoms:    req.Symptoms,
	})
	if err != nil {
		utils.ServiceError(c, err)
		return
	}

	utils.Created(c, "Appointment booked successfully", appointment)
}

// GetForUser handles fetching appointments for the logged-in user.
func (h *AppointmentHandler) GetForUser(c *gin.Context) {
	actor := actorFromContext(c)

	var (
		appointments []models.Appointment
		err          error
	)
	switch actor.Role {
	case models.RolePatient:
		appointments, err = h.Service.ListByPatient(actor.ID)
	case models.RoleDoctor:
		appointments, err = h.Service.ListByDoctor(actor.ID, models.AppointmentStatus(c.Query("status")))
	case models.RoleStaff, models.RoleManager, models.RoleAdmin:
		appointments, err = h.Service.ListForDay(time.Now())
	default:
		utils.Forbidden(c, "User role not permitted to view appointments this way.")
		return
	}
	if err != nil {
		utils.ServiceError(c, err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetByID handles fetching a single appointment by its ID.
func (h *AppointmentHandler) GetByID(c *gin.Context) {
	appointment, err := h.Service.Get(c.Param("id"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}

	actor := actorFromContext(c)
	involved := actor.ID == appointment.PatientID || actor.ID == appointment.DoctorID
	if actor.Role == models.RolePatient && !involved {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// Today handles the staff desk's list of today's appointments.
func (h *AppointmentHandler) Today(c *gin.Context) {
	appointments, err := h.Service.ListForDay(time.Now())
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Today's appointments fetched successfully", appointments)
}

// CheckIn handles marking a patient as arrived (staff only).
func (h *AppointmentHandler) CheckIn(c *gin.Context) {
	appointment, err := h.Service.CheckIn(c.Param("id"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Patient checked in successfully", appointment)
}

// UnderReviewRequest carries the doctor's intake findings.
type UnderReviewRequest struct {
	Notes            string `json:"notes"`
	BloodPressure    string `json:"bloodPressure"`
	RequestLabSample bool   `json:"requestLabSample"`
	Symptoms         string `json:"symptoms"`
}

// PutUnderReview handles moving an appointment into clinical review (doctor only).
func (h *AppointmentHandler) PutUnderReview(c *gin.Context) {
	var req UnderReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	actor := actorFromContext(c)
	if !h.ownsAppointment(c, actor) {
		return
	}

	appointment, err := h.Service.PutUnderReview(c.Param("id"), actor, services.UnderReviewInput{
		Notes:            req.Notes,
		BloodPressure:    req.BloodPressure,
		RequestLabSample: req.RequestLabSample,
		Symptoms:         req.Symptoms,
	})
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Appointment is under review", appointment)
}

// AttachPlanRequest represents the treatment plan attached during review.
type AttachPlanRequest struct {
	Description string              `json:"description"`
	StartDate   *time.Time          `json:"startDate" binding:"required"`
	EndDate     *time.Time          `json:"endDate"`
	Medications []MedicationRequest `json:"medications"`
}

// AttachTreatmentPlan handles creating the plan for an appointment under review.
func (h *AppointmentHandler) AttachTreatmentPlan(c *gin.Context) {
	var req AttachPlanRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	actor := actorFromContext(c)
	if !h.ownsAppointment(c, actor) {
		return
	}

	plan, err := h.Service.AttachTreatmentPlan(c.Param("id"), actor, h.Plans, services.CreatePlanInput{
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Medications: medicationInputs(req.Medications),
	})
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Created(c, "Treatment plan attached successfully", plan)
}

// CompleteRequest represents the request body for completing an appointment.
type CompleteRequest struct {
	Notes string `json:"notes"`
}

// Complete handles finishing the encounter (doctor only).
func (h *AppointmentHandler) Complete(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	actor := actorFromContext(c)
	if !h.ownsAppointment(c, actor) {
		return
	}

	appointment, err := h.Service.Complete(c.Param("id"), actor, req.Notes)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Appointment completed successfully", appointment)
}

// CancelRequest represents the request body for cancelling an appointment.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles aborting the encounter from any non-terminal state.
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	actor := actorFromContext(c)
	appointment, err := h.Service.Get(c.Param("id"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	// Patients may cancel their own appointments; doctors theirs; staff any.
	if actor.Role == models.RolePatient && actor.ID != appointment.PatientID {
		utils.Forbidden(c, "You are not authorized to cancel this appointment")
		return
	}
	if actor.Role == models.RoleDoctor && actor.ID != appointment.DoctorID {
		utils.Forbidden(c, "You are not authorized to cancel this appointment")
		return
	}

	cancelled, err := h.Service.Cancel(c.Param("id"), actor, req.Reason)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", cancelled)
}

// ownsAppointment verifies the acting doctor is assigned to the appointment.
func (h *AppointmentHandler) ownsAppointment(c *gin.Context, actor services.Actor) bool {
	appointment, err := h.Service.Get(c.Param("id"))
	if err != nil {
		utils.ServiceError(c, err)
		return false
	}
	if actor.Role == models.RoleDoctor && actor.ID != appointment.DoctorID {
		utils.Forbidden(c, "You are not assigned to this appointment")
		return false
	}
	return true
}
