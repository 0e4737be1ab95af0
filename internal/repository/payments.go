package repository

import (
	"gorm.io/gorm"

	"hiv-clinic-server/internal/models"
	"hiv-clinic-server/internal/services"
)

// PaymentRepository is the gorm-backed implementation of
// services.PaymentRepository. FinalizePending is the one concurrency-
// sensitive write in the system: a conditional UPDATE guarded on
// transaction_status = 'PENDING', judged by affected-row count, so two
// racing writers can never both finalize the same row.
type PaymentRepository struct {
	DB *gorm.DB
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

func (r *PaymentRepository) ByID(id string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	if err := r.DB.First(&tx, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *PaymentRepository) ByOrderID(orderID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	if err := r.DB.First(&tx, "order_id = ?", orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *PaymentRepository) CurrentByAppointment(appointmentID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	err := r.DB.
		Where("appointment_id = ?", appointmentID).
		Order("created_at desc").
		First(&tx).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *PaymentRepository) OpenByAppointment(appointmentID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	err := r.DB.
		Where("appointment_id = ? AND transaction_status = ?", appointmentID, models.TxPending).
		First(&tx).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, services.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *PaymentRepository) Create(t *models.PaymentTransaction) error {
	return r.DB.Create(t).Error
}

func (r *PaymentRepository) Save(t *models.PaymentTransaction) error {
	return r.DB.Save(t).Error
}

// AttachProviderRef records the provider's transaction reference on a row
// that is still PENDING, without finalizing it.
func (r *PaymentRepository) AttachProviderRef(id, providerTxID string) error {
	return r.DB.Model(&models.PaymentTransaction{}).
		Where("id = ? AND transaction_status = ?", id, models.TxPending).
		Update("provider_transaction_id", providerTxID).Error
}

// FinalizePending applies the terminal write only if the row is still
// PENDING. The WHERE guard makes the transition atomic at the storage
// layer; the returned bool reports whether this caller won.
func (r *PaymentRepository) FinalizePending(id string, fin services.Finalization) (bool, error) {
	updates := map[string]interface{}{
		"transaction_status": fin.Status,
		"transaction_time":   fin.At,
	}
	if fin.ProviderTransactionID != "" {
		updates["provider_transaction_id"] = fin.ProviderTransactionID
	}
	if fin.ConfirmedBy != "" {
		updates["confirmed_by"] = fin.ConfirmedBy
	}
	if fin.Notes != "" {
		updates["notes"] = fin.Notes
	}

	result := r.DB.Model(&models.PaymentTransaction{}).
		Where("id = ? AND transaction_status = ?", id, models.TxPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *PaymentRepository) ListNeedingConfirmation() ([]models.PaymentTransaction, error) {
	var txs []models.PaymentTransaction
	err := r.DB.Preload("Appointment").Preload("Appointment.Patient").
		Where("payment_method = ? AND provider_transaction_id <> '' AND transaction_status = ?",
			models.MethodQR, models.TxPending).
		Order("updated_at asc").
		Find(&txs).Error
	return txs, err
}

func (r *PaymentRepository) ListByPatient(patientID string) ([]models.PaymentTransaction, error) {
	var txs []models.PaymentTransaction
	err := r.DB.
		Joins("JOIN appointments ON appointments.id = payment_transactions.appointment_id").
		Where("appointments.patient_id = ?", patientID).
		Order("payment_transactions.created_at desc").
		Find(&txs).Error
	return txs, err
}
