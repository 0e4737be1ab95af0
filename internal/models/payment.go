package models

import (
	"time"
)

// PaymentMethod represents how an invoice is settled
type PaymentMethod string

const (
	MethodCash PaymentMethod = "CASH"
	MethodQR   PaymentMethod = "QR"
)

// TransactionStatus represents the lifecycle state of a payment transaction
type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxSuccess   TransactionStatus = "SUCCESS"
	TxFailed    TransactionStatus = "FAILED"
	TxCancelled TransactionStatus = "CANCELLED"
)

// PaymentTransaction is the payment attached to one appointment. Two
// independent writers (the provider callback and a staff confirmation) may
// try to finalize it; the PENDING -> terminal transition happens exactly
// once, via a conditional update in the repository. Terminal rows are
// immutable and never deleted.
//
// OrderID is nullable: only QR transactions get a provider order, and the
// unique index must not collide on the cash transactions that never have
// one.
type PaymentTransaction struct {
	BaseModel
	AppointmentID         string            `gorm:"size:36;index;not null" json:"appointmentId"`
	OrderID               *string           `gorm:"size:64;uniqueIndex" json:"orderId,omitempty"`
	Amount                int64             `gorm:"not null" json:"amount"`
	PaymentMethod         PaymentMethod     `gorm:"size:10" json:"paymentMethod"`
	ProviderTransactionID string            `gorm:"size:64" json:"providerTransactionId,omitempty"`
	TransactionStatus     TransactionStatus `gorm:"size:20;default:'PENDING'" json:"transactionStatus"`
	TransactionTime       *time.Time        `json:"transactionTime,omitempty"`
	ConfirmedBy           string            `gorm:"size:100" json:"confirmedBy,omitempty"`
	Notes                 string            `gorm:"size:255" json:"notes,omitempty"`

	// Relations
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
}

// IsTerminal reports whether the transaction has been finalized.
func (t *PaymentTransaction) IsTerminal() bool {
	return t.TransactionStatus != TxPending
}

// NeedsStaffConfirmation reports whether the transaction should appear on
// the staff worklist: a QR payment the provider has referenced but that no
// writer has finalized yet. Derived on every read, never cached.
func (t *PaymentTransaction) NeedsStaffConfirmation() bool {
	return t.PaymentMethod == MethodQR &&
		t.ProviderTransactionID != "" &&
		t.TransactionStatus == TxPending
}
