package handlers

import (
	"github.com/gin-gonic/gin"

	"hiv-clinic-server/internal/services"
	"hiv-clinic-server/internal/utils"
)

// MedicationScheduleHandler handles dosing-schedule requests.
type MedicationScheduleHandler struct {
	Service *services.MedicationScheduleService
}

// NewMedicationScheduleHandler creates a new MedicationScheduleHandler.
func NewMedicationScheduleHandler(service *services.MedicationScheduleService) *MedicationScheduleHandler {
	return &MedicationScheduleHandler{Service: service}
}

// ListForMedication handles fetching all schedules of one medication.
func (h *MedicationScheduleHandler) ListForMedication(c *gin.Context) {
	schedules, err := h.Service.ListForMedication(c.Param("medicationId"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Medication schedules fetched successfully", schedules)
}

// CreateDefaults handles generating the frequency-derived default slots.
func (h *MedicationScheduleHandler) CreateDefaults(c *gin.Context) {
	schedules, err := h.Service.GenerateDefaults(c.Param("medicationId"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Created(c, "Default schedules created successfully", schedules)
}

// CreateCustom handles creating caller-defined schedule entries.
func (h *MedicationScheduleHandler) CreateCustom(c *gin.Context) {
	var reqs []ScheduleRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	inputs := make([]services.ScheduleInput, 0, len(reqs))
	for _, r := range reqs {
		inputs = append(inputs, services.ScheduleInput{
			TimeOfDay:    r.TimeOfDay,
			DosageAmount: r.DosageAmount,
			DaysOfWeek:   r.DaysOfWeek,
			Notes:        r.Notes,
		})
	}

	schedules, err := h.Service.CreateCustom(c.Param("medicationId"), inputs)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Created(c, "Custom schedules created successfully", schedules)
}

// Update handles patching one schedule entry.
func (h *MedicationScheduleHandler) Update(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	schedule, err := h.Service.Update(c.Param("id"), services.ScheduleInput{
		TimeOfDay:    req.TimeOfDay,
		DosageAmount: req.DosageAmount,
		DaysOfWeek:   req.DaysOfWeek,
		Notes:        req.Notes,
	})
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Schedule updated successfully", schedule)
}

// Delete handles removing one schedule entry.
func (h *MedicationScheduleHandler) Delete(c *gin.Context) {
	if err := h.Service.Delete(c.Param("id")); err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Schedule deleted successfully", nil)
}

// MarkTaken handles the patient recording a taken dose.
func (h *MedicationScheduleHandler) MarkTaken(c *gin.Context) {
	schedule, err := h.Service.MarkTaken(c.Param("id"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Medication marked as taken", schedule)
}
