package cron

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"gorm.io/gorm"

	"hiv-clinic-server/internal/models"
)

// PaymentSweeper periodically scans for QR transactions that have been
// sitting in PENDING longer than the configured threshold so that clinic
// staff can chase them up. It never changes transaction state itself;
// finalization always goes through the reconciliation or staff paths.
type PaymentSweeper struct {
	DB         *gorm.DB
	StaleAfter time.Duration
}

// NewPaymentSweeper creates a new stale payment sweeper.
func NewPaymentSweeper(db *gorm.DB, staleAfter time.Duration) *PaymentSweeper {
	return &PaymentSweeper{
		DB:         db,
		StaleAfter: staleAfter,
	}
}

// Start starts the cron job that reports stale pending QR payments.
func (ps *PaymentSweeper) Start() *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.Local)

	// Run every 10 minutes
	scheduler.Every(10).Minutes().Do(func() {
		if err := ps.ReportStalePayments(); err != nil {
			log.Printf("Error sweeping stale payments: %v", err)
		}
	})

	scheduler.StartAsync()
	log.Println("Stale payment sweeper started")

	return scheduler
}

// ReportStalePayments logs every QR transaction still PENDING past the threshold.
func (ps *PaymentSweeper) ReportStalePayments() error {
	cutoff := time.Now().Add(-ps.StaleAfter)

	var stale []models.PaymentTransaction
	result := ps.DB.
		Where("payment_method = ? AND transaction_status = ? AND created_at < ?",
			models.MethodQR, models.TxPending, cutoff).
		Find(&stale)
	if result.Error != nil {
		return result.Error
	}

	for _, tx := range stale {
		orderID := "none"
		if tx.OrderID != nil {
			orderID = *tx.OrderID
		}
		log.Printf("Stale QR payment: transaction %s (order %s) pending since %s",
			tx.ID, orderID, tx.CreatedAt.Format(time.RFC3339))
	}

	if len(stale) > 0 {
		log.Printf("Found %d stale pending QR payment(s)", len(stale))
	}

	return nil
}
