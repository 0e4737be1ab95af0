package repository

import (
	"gorm.io/gorm"

	"hiv-clinic-server/internal/models"
	"hiv-clinic-server/internal/services"
)

// ScheduleRepository is the gorm-backed implementation of
// services.ScheduleRepository.
type ScheduleRepository struct {
	DB *gorm.DB
}

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{DB: db}
}

func (r *ScheduleRepository) ByID(id string) (*models.MedicationSchedule, error) {
	var schedule models.MedicationSchedule
	if err := r.DB.First(&schedule, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *ScheduleRepository) MedicationByID(id string) (*models.MedicationPrescription, error) {
	var med models.MedicationPrescription
	if err := r.DB.First(&med, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &med, nil
}

func (r *ScheduleRepository) ForMedication(medicationID string) ([]models.MedicationSchedule, error) {
	var schedules []models.MedicationSchedule
	err := r.DB.
		Where("medication_prescription_id = ?", medicationID).
		Order("time_of_day asc").
		Find(&schedules).Error
	return schedules, err
}

func (r *ScheduleRepository) CreateBatch(rows []models.MedicationSchedule) error {
	if len(rows) == 0 {
		return nil
	}
	// a batch always targets one medication; its rows continue the
	// position sequence after the existing entries
	var base int64
	err := r.DB.Model(&models.MedicationSchedule{}).
		Where("medication_prescription_id = ?", rows[0].MedicationPrescriptionID).
		Count(&base).Error
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].Position = int(base) + i
	}
	return r.DB.Create(&rows).Error
}

func (r *ScheduleRepository) Save(s *models.MedicationSchedule) error {
	return r.DB.Save(s).Error
}

func (r *ScheduleRepository) Delete(id string) error {
	return r.DB.Delete(&models.MedicationSchedule{}, "id = ?", id).Error
}
