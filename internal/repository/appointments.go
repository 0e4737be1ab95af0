package repository

import (
	"time"

	"gorm.io/gorm"

	"hiv-clinic-server/internal/models"
	"hiv-clinic-server/internal/services"
)

// AppointmentRepository is the gorm-backed implementation of
// services.AppointmentRepository.
type AppointmentRepository struct {
	DB *gorm.DB
}

// NewAppointmentRepository creates a new AppointmentRepository.
func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{DB: db}
}

func (r *AppointmentRepository) ByID(id string) (*models.Appointment, error) {
	var appointment models.Appointment
	if err := r.DB.First(&appointment, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *AppointmentRepository) Create(a *models.Appointment) error {
	return r.DB.Create(a).Error
}

func (r *AppointmentRepository) Save(a *models.Appointment) error {
	return r.DB.Save(a).Error
}

func (r *AppointmentRepository) ListByPatient(patientID string) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := r.DB.Preload("Doctor").
		Where("patient_id = ?", patientID).
		Order("scheduled_at asc").
		Find(&appointments).Error
	return appointments, err
}

func (r *AppointmentRepository) ListByDoctor(doctorID string, status models.AppointmentStatus) ([]models.Appointment, error) {
	var appointments []models.Appointment
	query := r.DB.Preload("Patient").Where("doctor_id = ?", doctorID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("scheduled_at asc").Find(&appointments).Error
	return appointments, err
}

func (r *AppointmentRepository) ListForDay(day time.Time) ([]models.Appointment, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	var appointments []models.Appointment
	err := r.DB.Preload("Patient").Preload("Doctor").
		Where("scheduled_at >= ? AND scheduled_at < ?", start, end).
		Order("scheduled_at asc").
		Find(&appointments).Error
	return appointments, err
}
