package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"hiv-clinic-server/internal/models"
)

type mockAppointmentRepo struct {
	mock.Mock
}

func (m *mockAppointmentRepo) ByID(id string) (*models.Appointment, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *mockAppointmentRepo) Create(a *models.Appointment) error {
	args := m.Called(a)
	return args.Error(0)
}

func (m *mockAppointmentRepo) Save(a *models.Appointment) error {
	args := m.Called(a)
	return args.Error(0)
}

func (m *mockAppointmentRepo) ListByPatient(patientID string) ([]models.Appointment, error) {
	args := m.Called(patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}

func (m *mockAppointmentRepo) ListByDoctor(doctorID string, status models.AppointmentStatus) ([]models.Appointment, error) {
	args := m.Called(doctorID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}

func (m *mockAppointmentRepo) ListForDay(day time.Time) ([]models.Appointment, error) {
	args := m.Called(day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}

type mockPlanRepo struct {
	mock.Mock
}

func (m *mockPlanRepo) ByID(id string) (*models.TreatmentPlan, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TreatmentPlan), args.Error(1)
}

func (m *mockPlanRepo) ByAppointment(appointmentID string) (*models.TreatmentPlan, error) {
	args := m.Called(appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TreatmentPlan), args.Error(1)
}

func (m *mockPlanRepo) Create(p *models.TreatmentPlan) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *mockPlanRepo) Save(p *models.TreatmentPlan) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *mockPlanRepo) AddMedications(planID string, meds []models.MedicationPrescription) error {
	args := m.Called(planID, meds)
	return args.Error(0)
}

func (m *mockPlanRepo) Delete(p *models.TreatmentPlan) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *mockPlanRepo) ListByPatient(patientID string) ([]models.TreatmentPlan, error) {
	args := m.Called(patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TreatmentPlan), args.Error(1)
}

func testDoctor() Actor {
	return Actor{ID: "doc-1", Name: "Dr. Lan Pham", Role: models.RoleDoctor}
}

func appointmentWith(status models.AppointmentStatus, online bool) *models.Appointment {
	a := &models.Appointment{
		PatientID:   "pat-1",
		DoctorID:    "doc-1",
		ServiceID:   "svc-1",
		ScheduledAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		IsOnline:    online,
		Status:      status,
	}
	a.ID = "apt-1"
	return a
}

func TestBookCreatesScheduledAppointment(t *testing.T) {
	repo := new(mockAppointmentRepo)
	service := NewAppointmentService(repo, new(mockPlanRepo))

	repo.On("Create", mock.AnythingOfType("*models.Appointment")).Return(nil)

	appointment, err := service.Book(testDoctor(), BookAppointmentInput{
		PatientID:   "pat-1",
		DoctorID:    "doc-1",
		ServiceID:   "svc-1",
		ScheduledAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Symptoms:    "fatigue",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, appointment.Status)
	assert.False(t, appointment.CheckedIn)
	repo.AssertExpectations(t)
}

func TestCheckInMovesScheduledToCheckedIn(t *testing.T) {
	repo := new(mockAppointmentRepo)
	service := NewAppointmentService(repo, new(mockPlanRepo))

	repo.On("ByID", "apt-1").Return(appointmentWith(models.StatusScheduled, false), nil)
	repo.On("Save", mock.AnythingOfType("*models.Appointment")).Return(nil)

	appointment, err := service.CheckIn("apt-1")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, appointment.Status)
	assert.True(t, appointment.CheckedIn)
}

func TestCheckInRejectsNonScheduled(t *testing.T) {
	for _, status := range []models.AppointmentStatus{
		models.StatusCheckedIn,
		models.StatusUnderReview,
		models.StatusCompleted,
		models.StatusCancelled,
	} {
		repo := new(mockAppointmentRepo)
		service := NewAppointmentService(repo, new(mockPlanRepo))
		repo.On("ByID", "apt-1").Return(appointmentWith(status, false), nil)

		_, err := service.CheckIn("apt-1")

		var transitionErr *InvalidTransitionError
		assert.ErrorAs(t, err, &transitionErr, "status %s", status)
		repo.AssertNotCalled(t, "Save", mock.Anything)
	}
}

func TestPutUnderReviewFromCheckedIn(t *testing.T) {
	repo := new(mockAppointmentRepo)
	service := NewAppointmentService(repo, new(mockPlanRepo))

	repo.On("ByID", "apt-1").Return(appointmentWith(models.StatusCheckedIn, false), nil)
	repo.On("Save", mock.AnythingOfType("*models.Appointment")).Return(nil)

	appointment, err := service.PutUnderReview("apt-1", testDoctor(), UnderReviewInput{
		BloodPressure:    "120/80",
		RequestLabSample: true,
		Notes:            "routine review",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, appointment.Status)
	assert.Equal(t, "120/80", appointment.BloodPressure)
	assert.True(t, appointment.RequestLabSample)
}

func TestPutUnderReviewOnlineSkipsCheckIn(t *testing.T) {
	repo := new(mockAppointmentRepo)
	service := NewAppointmentService(repo, new(mockPlanRepo))

	repo.On("ByID", "apt-1").Return(appointmentWith(models.StatusScheduled, true), nil)
	repo.On("Save", mock.AnythingOfType("*models.Appointment")).Return(nil)

	appointment, err := service.PutUnderReview("apt-1", testDoctor(), UnderReviewInput{
		BloodPressure:    "118/76",
		RequestLabSample: true,
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, appointment.Status)
	// Lab samples cannot be collected during an online consultation
	assert.False(t, appointment.RequestLabSample)
}

func TestPutUnderReviewRejectsScheduledInPerson(t *testing.T) {
	repo := new(mockAppointmentRepo)
	service := NewAppointmentService(repo, new(mockPlanRepo))

	repo.On("ByID", "apt-1").Return(appointmentWith(models.StatusScheduled, false), nil)

	_, err := service.PutUnderReview("apt-1", testDoctor(), UnderReviewInput{BloodPressure: "120/80"})

	var transitionErr *InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)
	repo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestPutUnderReviewIsIdempotent(t *testing.T) {
	repo := new(mockAppointmentRepo)
	service := NewAppointmentService(repo, new(mockPlanRepo))

	existing := appointmentWith(models.StatusUnderReview, false)
	existing.BloodPressure = "130/85"
	repo.On("ByID", "apt-1").Return(existing, nil)

	appointment, err := service.PutUnderReview("apt-1", testDoctor(), UnderReviewInput{
		BloodPressure: "999/999",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, appointment.Status)
	assert.Equal(t, "130/85", appointment.BloodPressure)
	repo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestPutUnderReviewRequiresBloodPressure(t *testing.T) {
	repo := new(mockAppointmentRepo)
	service := NewAppointmentService(repo, new(mockPlanRepo))

	repo.On("ByID", "apt-1").Return(appointmentWith(models.StatusCheckedIn, false), nil)

	_, err := service.PutUnderReview("apt-1", testDoctor(), UnderReviewInput{})

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, "bloodPressure is required")
}

func TestCompleteRequiresTreatmentPlan(t *testing.T) {
	repo := new(mockAppointmentRepo)
	plans := new(mockPlanRepo)
	service := NewAppointmentService(repo, plans)

	repo.On("ByID", "apt-1").Return(appointmentWith(models.StatusUnderReview, false), nil)
	plans.On("ByAppointment", "apt-1").Return(nil, ErrNotFound)

	_, err := service.Complete("apt-1", testDoctor(), "")

	var preErr *PreconditionError
	assert.ErrorAs(t, err, &preErr)
}

func TestCompleteRequiresMedications(t *testing.T) {
	repo := new(mockAppointmentRepo)
	plans := new(mockPlanRepo)
	service := NewAppointmentService(repo, plans)

	repo.On("ByID", "apt-1").Return(appointmentWith(models.StatusUnderReview, false), nil)
	plans.On("ByAppointment", "apt-1").Return(&models.TreatmentPlan{Status: models.PlanActive}, nil)

	_, err := service.Complete("apt-1", testDoctor(), "")

	var preErr *PreconditionError
	assert.ErrorAs(t, err, &preErr)
	repo.AssertNotCalled(t, "Save", mock.Anything)
}

func TestCompleteHappyPath(t *testing.T) {
	repo := new(mockAppointmentRepo)
	plans := new(mockPlanRepo)
	service := NewAppointmentService(repo, plans)

	plan := &models.TreatmentPlan{
		Status: models.PlanActive,
		Medications: []models.MedicationPrescription{
			{MedicationID: "med-tdf", Dosage: "300mg"},
		},
	}
	repo.On("ByID", "apt-1").Return(appointmentWith(models.StatusUnderReview, false), nil)
	plans.On("ByAppointment", "apt-1").Return(plan, nil)
	repo.On("Save", mock.AnythingOfType("*models.Appointment")).Return(nil)

	appointment, err := service.Complete("apt-1", testDoctor(), "stable on current regimen")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, appointment.Status)
	assert.Equal(t, "stable on current regimen", appointment.Notes)
}

func TestCompleteRejectsNonReviewStates(t *testing.T) {
	for _, status := range []models.AppointmentStatus{
		models.StatusScheduled,
		models.StatusCheckedIn,
		models.StatusCompleted,
		models.StatusCancelled,
	} {
		repo := new(mockAppointmentRepo)
		service := NewAppointmentService(repo, new(mockPlanRepo))
		repo.On("ByID", "apt-1").Return(appointmentWith(status, false), nil)

		_, err := service.Complete("apt-1", testDoctor(), "")

		var transitionErr *InvalidTransitionError
		assert.ErrorAs(t, err, &transitionErr, "status %s", status)
	}
}

func TestCancelFromAnyNonTerminalState(t *testing.T) {
	for _, status := range []models.AppointmentStatus{
		models.StatusScheduled,
		models.StatusCheckedIn,
		models.StatusUnderReview,
	} {
		repo := new(mockAppointmentRepo)
		service := NewAppointmentService(repo, new(mockPlanRepo))
		repo.On("ByID", "apt-1").Return(appointmentWith(status, false), nil)
		repo.On("Save", mock.AnythingOfType("*models.Appointment")).Return(nil)

		appointment, err := service.Cancel("apt-1", testDoctor(), "patient request")

		assert.NoError(t, err, "status %s", status)
		assert.Equal(t, models.StatusCancelled, appointment.Status)
		assert.Equal(t, "patient request", appointment.CancelReason)
	}
}

func TestCancelRejectsTerminalStates(t *testing.T) {
	for _, status := range []models.AppointmentStatus{
		models.StatusCompleted,
		models.StatusCancelled,
	} {
		repo := new(mockAppointmentRepo)
		service := NewAppointmentService(repo, new(mockPlanRepo))
		repo.On("ByID", "apt-1").Return(appointmentWith(status, false), nil)

		_, err := service.Cancel("apt-1", testDoctor(), "too late")

		var transitionErr *InvalidTransitionError
		assert.ErrorAs(t, err, &transitionErr, "status %s", status)
		repo.AssertNotCalled(t, "Save", mock.Anything)
	}
}

func TestAttachTreatmentPlanRequiresUnderReview(t *testing.T) {
	repo := new(mockAppointmentRepo)
	plans := new(mockPlanRepo)
	service := NewAppointmentService(repo, plans)
	planService := NewTreatmentPlanService(plans, repo)

	repo.On("ByID", "apt-1").Return(appointmentWith(models.StatusCheckedIn, false), nil)

	start := time.Now()
	_, err := service.AttachTreatmentPlan("apt-1", testDoctor(), planService, CreatePlanInput{
		StartDate:   &start,
		Medications: []MedicationInput{{MedicationID: "med-tdf", Dosage: "300mg"}},
	})

	var transitionErr *InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)
}
