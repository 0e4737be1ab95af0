package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"hiv-clinic-server/internal/models"
	"hiv-clinic-server/internal/services"
)

type stubAppointmentRepo struct {
	appointments map[string]*models.Appointment
}

func (r *stubAppointmentRepo) ByID(id string) (*models.Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (r *stubAppointmentRepo) Create(a *models.Appointment) error {
	r.appointments[a.ID] = a
	return nil
}

func (r *stubAppointmentRepo) Save(a *models.Appointment) error {
	c := *a
	r.appointments[a.ID] = &c
	return nil
}

func (r *stubAppointmentRepo) ListByPatient(string) ([]models.Appointment, error) {
	return nil, nil
}

func (r *stubAppointmentRepo) ListByDoctor(string, models.AppointmentStatus) ([]models.Appointment, error) {
	return nil, nil
}

func (r *stubAppointmentRepo) ListForDay(time.Time) ([]models.Appointment, error) {
	return nil, nil
}

type stubPlanRepo struct{}

func (stubPlanRepo) ByID(string) (*models.TreatmentPlan, error) { return nil, services.ErrNotFound }
func (stubPlanRepo) ByAppointment(string) (*models.TreatmentPlan, error) {
	return nil, services.ErrNotFound
}
func (stubPlanRepo) Create(*models.TreatmentPlan) error { return nil }
func (stubPlanRepo) Save(*models.TreatmentPlan) error   { return nil }
func (stubPlanRepo) AddMedications(string, []models.MedicationPrescription) error {
	return nil
}
func (stubPlanRepo) Delete(*models.TreatmentPlan) error { return nil }
func (stubPlanRepo) ListByPatient(string) ([]models.TreatmentPlan, error) {
	return nil, nil
}

func scheduledAppointment() *models.Appointment {
	a := &models.Appointment{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		Status:    models.StatusScheduled,
	}
	a.ID = "apt-1"
	return a
}

// cancelRouter wires the cancel endpoint behind a stub auth context, the
// same keys AuthMiddleware sets.
func cancelRouter(repo *stubAppointmentRepo, actorID string, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	service := services.NewAppointmentService(repo, stubPlanRepo{})
	handler := NewAppointmentHandler(service, nil)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", actorID)
		c.Set("userName", "Test User")
		c.Set("userRole", role)
	})
	router.PUT("/appointments/:id/cancel", handler.Cancel)
	return router
}

func doCancel(t *testing.T, router *gin.Engine, id string) *httptest.ResponseRecorder {
	t.Helper()
	body := bytes.NewBufferString(`{"reason":"cannot attend"}`)
	req := httptest.NewRequest(http.MethodPut, "/appointments/"+id+"/cancel", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCancelAllowsOwnPatient(t *testing.T) {
	repo := &stubAppointmentRepo{appointments: map[string]*models.Appointment{"apt-1": scheduledAppointment()}}
	router := cancelRouter(repo, "pat-1", models.RolePatient)

	w := doCancel(t, router, "apt-1")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusCancelled, repo.appointments["apt-1"].Status)
}

func TestCancelForbidsOtherPatient(t *testing.T) {
	repo := &stubAppointmentRepo{appointments: map[string]*models.Appointment{"apt-1": scheduledAppointment()}}
	router := cancelRouter(repo, "pat-2", models.RolePatient)

	w := doCancel(t, router, "apt-1")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.StatusScheduled, repo.appointments["apt-1"].Status)
}

func TestCancelForbidsUnassignedDoctor(t *testing.T) {
	repo := &stubAppointmentRepo{appointments: map[string]*models.Appointment{"apt-1": scheduledAppointment()}}
	router := cancelRouter(repo, "doc-2", models.RoleDoctor)

	w := doCancel(t, router, "apt-1")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCancelAllowsStaff(t *testing.T) {
	repo := &stubAppointmentRepo{appointments: map[string]*models.Appointment{"apt-1": scheduledAppointment()}}
	router := cancelRouter(repo, "staff-1", models.RoleStaff)

	w := doCancel(t, router, "apt-1")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusCancelled, repo.appointments["apt-1"].Status)
}
