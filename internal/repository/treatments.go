package repository

import (
	"gorm.io/gorm"

	"hiv-clinic-server/internal/models"
	"hiv-clinic-server/internal/services"
)

// TreatmentPlanRepository is the gorm-backed implementation of
// services.TreatmentPlanRepository. Medication and schedule rows cascade
// through gorm associations; preloads keep insertion order via the position
// column, since batch-inserted rows share one created_at value.
type TreatmentPlanRepository struct {
	DB *gorm.DB
}

// NewTreatmentPlanRepository creates a new TreatmentPlanRepository.
func NewTreatmentPlanRepository(db *gorm.DB) *TreatmentPlanRepository {
	return &TreatmentPlanRepository{DB: db}
}

func (r *TreatmentPlanRepository) preload() *gorm.DB {
	return r.DB.
		Preload("Medications", func(db *gorm.DB) *gorm.DB {
			return db.Order("medication_prescriptions.position asc")
		}).
		Preload("Medications.Schedules", func(db *gorm.DB) *gorm.DB {
			return db.Order("medication_schedules.position asc")
		})
}

func (r *TreatmentPlanRepository) ByID(id string) (*models.TreatmentPlan, error) {
	var plan models.TreatmentPlan
	if err := r.preload().First(&plan, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *TreatmentPlanRepository) ByAppointment(appointmentID string) (*models.TreatmentPlan, error) {
	var plan models.TreatmentPlan
	if err := r.preload().First(&plan, "appointment_id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *TreatmentPlanRepository) Create(p *models.TreatmentPlan) error {
	return r.DB.Create(p).Error
}

func (r *TreatmentPlanRepository) Save(p *models.TreatmentPlan) error {
	// associations are managed explicitly; only the plan row is written here
	return r.DB.Omit("Medications").Save(p).Error
}

func (r *TreatmentPlanRepository) AddMedications(planID string, meds []models.MedicationPrescription) error {
	// appended rows continue the position sequence after the existing ones
	var base int64
	err := r.DB.Model(&models.MedicationPrescription{}).
		Where("treatment_plan_id = ?", planID).
		Count(&base).Error
	if err != nil {
		return err
	}
	for i := range meds {
		meds[i].TreatmentPlanID = planID
		meds[i].Position = int(base) + i
	}
	return r.DB.Create(&meds).Error
}

func (r *TreatmentPlanRepository) Delete(p *models.TreatmentPlan) error {
	return r.DB.Select("Medications", "Medications.Schedules").Delete(p).Error
}

func (r *TreatmentPlanRepository) ListByPatient(patientID string) ([]models.TreatmentPlan, error) {
	var plans []models.TreatmentPlan
	err := r.preload().
		Where("patient_id = ?", patientID).
		Order("created_at desc").
		Find(&plans).Error
	return plans, err
}
