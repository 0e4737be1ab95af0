package services

import (
	"context"
	"fmt"
	"time"

	"hiv-clinic-server/internal/models"
)

// Provider result codes, per the MoMo gateway contract.
const (
	ProviderResultSuccess    = 0    // payment captured
	ProviderResultAuthorized = 9000 // authorized on the patient's device, not captured yet
)

// PaymentProvider is the external QR payment gateway.
type PaymentProvider interface {
	Initiate(ctx context.Context, orderID string, amount int64, orderInfo string) (payURL string, err error)
}

// PaymentService owns the PaymentTransaction lifecycle. Two independent
// writers race to finalize a PENDING transaction: the provider
// callback/poll (ReconcileFromProvider) and a staff member's manual
// confirmation (StaffConfirm). Whichever wins the conditional
// PENDING -> terminal update in the repository finalizes the row; the loser
// degrades to a read of the winner's result.
type PaymentService struct {
	repo     PaymentRepository
	provider PaymentProvider
	now      func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(repo PaymentRepository, provider PaymentProvider) *PaymentService {
	return &PaymentService{repo: repo, provider: provider, now: time.Now}
}

// CreateTransaction opens the invoice for an appointment. At most one
// non-terminal transaction may exist per appointment at a time.
func (s *PaymentService) CreateTransaction(appointmentID string, amount int64, method models.PaymentMethod) (*models.PaymentTransaction, error) {
	if amount <= 0 {
		verr := &ValidationError{}
		verr.Add("amount must be positive")
		return nil, verr
	}
	if open, err := s.repo.OpenByAppointment(appointmentID); err == nil && open != nil {
		return nil, &ConflictError{Reason: "appointment already has a pending transaction"}
	} else if err != nil && err != ErrNotFound {
		return nil, err
	}

	tx := &models.PaymentTransaction{
		AppointmentID:     appointmentID,
		Amount:            amount,
		PaymentMethod:     method,
		TransactionStatus: models.TxPending,
	}
	if err := s.repo.Create(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// CreateQrPayment generates a fresh provider order for a pending
// transaction and returns the pay-URL. Nothing is finalized here: the
// transaction stays PENDING until a reconciliation writer wins. If the
// provider call fails the order is kept so staff can retry or confirm
// manually.
func (s *PaymentService) CreateQrPayment(ctx context.Context, transactionID string, amount int64, orderInfo string) (string, *models.PaymentTransaction, error) {
	tx, err := s.repo.ByID(transactionID)
	if err != nil {
		return "", nil, err
	}
	if tx.IsTerminal() {
		return "", nil, &ConflictError{Reason: "transaction is already finalized"}
	}

	if orderInfo == "" {
		orderInfo = fmt.Sprintf("Thanh toán hóa đơn #%s", tx.ID)
	}
	if amount > 0 {
		tx.Amount = amount
	}
	orderID := fmt.Sprintf("ORDER_%s_%d", tx.ID, s.now().UnixMilli())
	tx.OrderID = &orderID
	tx.PaymentMethod = models.MethodQR
	if err := s.repo.Save(tx); err != nil {
		return "", nil, err
	}

	payURL, err := s.provider.Initiate(ctx, orderID, tx.Amount, orderInfo)
	if err != nil {
		return "", tx, &ProviderUnavailableError{Err: err}
	}
	return payURL, tx, nil
}

// ReconcileFromProvider consumes the provider's redirect/webhook payload.
// resultCode 0 finalizes PENDING -> SUCCESS, the authorized-only code keeps
// the row PENDING but records the provider reference (which is what puts it
// on the staff worklist), anything else finalizes PENDING -> FAILED. A
// transaction that is already terminal is returned unchanged: this call
// never overwrites a prior finalization.
func (s *PaymentService) ReconcileFromProvider(orderID, providerTxID string, resultCode int) (*models.PaymentTransaction, error) {
	tx, err := s.repo.ByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if tx.IsTerminal() {
		return tx, nil
	}

	switch resultCode {
	case ProviderResultSuccess:
		return s.finalize(tx.ID, Finalization{
			Status:                models.TxSuccess,
			ProviderTransactionID: providerTxID,
			At:                    s.now(),
		})
	case ProviderResultAuthorized:
		if err := s.repo.AttachProviderRef(tx.ID, providerTxID); err != nil {
			return nil, err
		}
		return s.repo.ByID(tx.ID)
	default:
		return s.finalize(tx.ID, Finalization{
			Status:                models.TxFailed,
			ProviderTransactionID: providerTxID,
			At:                    s.now(),
		})
	}
}

// StaffConfirm is the manual finalization path: staff visually confirmed a
// cash payment or a QR payment shown on the patient's device. If the
// provider already won the race the existing SUCCESS is returned as a
// successful no-op; a FAILED or CANCELLED transaction cannot be confirmed.
func (s *PaymentService) StaffConfirm(appointmentID string, method models.PaymentMethod, notes string, actor Actor) (*models.PaymentTransaction, error) {
	tx, err := s.repo.CurrentByAppointment(appointmentID)
	if err != nil {
		return nil, err
	}

	switch tx.TransactionStatus {
	case models.TxSuccess:
		return tx, nil
	case models.TxFailed, models.TxCancelled:
		return nil, &ConflictError{Reason: fmt.Sprintf("transaction is already %s", tx.TransactionStatus)}
	}

	if method != "" && tx.PaymentMethod != method {
		return nil, &ConflictError{Reason: fmt.Sprintf("transaction method is %s, not %s", tx.PaymentMethod, method)}
	}

	won, err := s.repo.FinalizePending(tx.ID, Finalization{
		Status:                models.TxSuccess,
		ProviderTransactionID: tx.ProviderTransactionID,
		ConfirmedBy:           actor.Name,
		Notes:                 notes,
		At:                    s.now(),
	})
	if err != nil {
		return nil, err
	}

	current, err := s.repo.ByID(tx.ID)
	if err != nil {
		return nil, err
	}
	if !won && current.TransactionStatus != models.TxSuccess {
		// the provider finalized it as FAILED between our read and the CAS
		return nil, &ConflictError{Reason: fmt.Sprintf("transaction is already %s", current.TransactionStatus)}
	}
	return current, nil
}

// finalize runs the conditional update and, win or lose, returns the
// current terminal row.
func (s *PaymentService) finalize(id string, fin Finalization) (*models.PaymentTransaction, error) {
	if _, err := s.repo.FinalizePending(id, fin); err != nil {
		return nil, err
	}
	return s.repo.ByID(id)
}

// NeedsStaffConfirmation reports whether the transaction belongs on the
// staff worklist. Pure derived predicate; recomputed on every poll.
func (s *PaymentService) NeedsStaffConfirmation(tx *models.PaymentTransaction) bool {
	return tx.NeedsStaffConfirmation()
}

// ListNeedingConfirmation returns the staff worklist, fresh from storage.
func (s *PaymentService) ListNeedingConfirmation() ([]models.PaymentTransaction, error) {
	return s.repo.ListNeedingConfirmation()
}

// ByAppointment returns the appointment's current transaction.
func (s *PaymentService) ByAppointment(appointmentID string) (*models.PaymentTransaction, error) {
	return s.repo.CurrentByAppointment(appointmentID)
}

// ListByPatient returns every transaction of the patient's appointments.
func (s *PaymentService) ListByPatient(patientID string) ([]models.PaymentTransaction, error) {
	return s.repo.ListByPatient(patientID)
}
