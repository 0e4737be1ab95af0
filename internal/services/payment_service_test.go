package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hiv-clinic-server/internal/models"
)

// fakePaymentRepo is an in-memory PaymentRepository whose FinalizePending is
// a real compare-and-set guarded by a mutex, so the finalization race can be
// exercised with actual goroutines.
type fakePaymentRepo struct {
	mu    sync.Mutex
	seq   int
	rows  map[string]*models.PaymentTransaction
	order []string
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{rows: map[string]*models.PaymentTransaction{}}
}

func copyTx(t *models.PaymentTransaction) *models.PaymentTransaction {
	c := *t
	return &c
}

func (r *fakePaymentRepo) ByID(id string) (*models.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTx(tx), nil
}

func (r *fakePaymentRepo) ByOrderID(orderID string) (*models.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.rows {
		if tx.OrderID != nil && *tx.OrderID == orderID {
			return copyTx(tx), nil
		}
	}
	return nil, ErrNotFound
}

// orderIDTaken mirrors the schema's unique index: only non-null order IDs
// may collide.
func (r *fakePaymentRepo) orderIDTaken(t *models.PaymentTransaction) bool {
	if t.OrderID == nil {
		return false
	}
	for id, other := range r.rows {
		if id != t.ID && other.OrderID != nil && *other.OrderID == *t.OrderID {
			return true
		}
	}
	return false
}

func (r *fakePaymentRepo) CurrentByAppointment(appointmentID string) (*models.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		tx := r.rows[r.order[i]]
		if tx.AppointmentID == appointmentID {
			return copyTx(tx), nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakePaymentRepo) OpenByAppointment(appointmentID string) (*models.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		tx := r.rows[id]
		if tx.AppointmentID == appointmentID && tx.TransactionStatus == models.TxPending {
			return copyTx(tx), nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakePaymentRepo) Create(t *models.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if t.ID == "" {
		t.ID = fmt.Sprintf("tx-%d", r.seq)
	}
	if r.orderIDTaken(t) {
		return errors.New("duplicate order_id")
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	r.rows[t.ID] = copyTx(t)
	r.order = append(r.order, t.ID)
	return nil
}

func (r *fakePaymentRepo) Save(t *models.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[t.ID]; !ok {
		return ErrNotFound
	}
	if r.orderIDTaken(t) {
		return errors.New("duplicate order_id")
	}
	t.UpdatedAt = time.Now()
	r.rows[t.ID] = copyTx(t)
	return nil
}

func (r *fakePaymentRepo) AttachProviderRef(id, providerTxID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	if tx.TransactionStatus == models.TxPending {
		tx.ProviderTransactionID = providerTxID
		tx.UpdatedAt = time.Now()
	}
	return nil
}

func (r *fakePaymentRepo) FinalizePending(id string, fin Finalization) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.rows[id]
	if !ok {
		return false, ErrNotFound
	}
	if tx.TransactionStatus != models.TxPending {
		return false, nil
	}
	tx.TransactionStatus = fin.Status
	if fin.ProviderTransactionID != "" {
		tx.ProviderTransactionID = fin.ProviderTransactionID
	}
	tx.ConfirmedBy = fin.ConfirmedBy
	tx.Notes = fin.Notes
	at := fin.At
	tx.TransactionTime = &at
	tx.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakePaymentRepo) ListNeedingConfirmation() ([]models.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PaymentTransaction
	for _, id := range r.order {
		tx := r.rows[id]
		if tx.NeedsStaffConfirmation() {
			out = append(out, *copyTx(tx))
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) ListByPatient(patientID string) ([]models.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PaymentTransaction
	for _, id := range r.order {
		out = append(out, *copyTx(r.rows[id]))
	}
	return out, nil
}

type stubProvider struct {
	payURL string
	err    error
}

func (p *stubProvider) Initiate(ctx context.Context, orderID string, amount int64, orderInfo string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.payURL, nil
}

func testStaff() Actor {
	return Actor{ID: "staff-1", Name: "Mai Nguyen", Role: models.RoleStaff}
}

func newTestPaymentService(repo PaymentRepository, provider PaymentProvider) *PaymentService {
	if provider == nil {
		provider = &stubProvider{payURL: "https://pay.example/qr"}
	}
	return NewPaymentService(repo, provider)
}

func TestCreateTransactionRejectsNonPositiveAmount(t *testing.T) {
	service := newTestPaymentService(newFakePaymentRepo(), nil)

	_, err := service.CreateTransaction("apt-1", 0, models.MethodCash)

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, "amount must be positive")
}

func TestCreateTransactionRejectsSecondOpenInvoice(t *testing.T) {
	repo := newFakePaymentRepo()
	service := newTestPaymentService(repo, nil)

	_, err := service.CreateTransaction("apt-1", 150000, models.MethodCash)
	assert.NoError(t, err)

	_, err = service.CreateTransaction("apt-1", 150000, models.MethodQR)

	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestCreateTransactionAllowsMultipleCashInvoices(t *testing.T) {
	repo := newFakePaymentRepo()
	service := newTestPaymentService(repo, nil)

	first, err := service.CreateTransaction("apt-1", 150000, models.MethodCash)
	assert.NoError(t, err)
	second, err := service.CreateTransaction("apt-2", 80000, models.MethodCash)
	assert.NoError(t, err)

	// Cash invoices never get a provider order, so none may collide on it
	assert.Nil(t, first.OrderID)
	assert.Nil(t, second.OrderID)
}

func TestCreateTransactionAllowedAfterPriorFinalized(t *testing.T) {
	repo := newFakePaymentRepo()
	service := newTestPaymentService(repo, nil)

	first, err := service.CreateTransaction("apt-1", 150000, models.MethodCash)
	assert.NoError(t, err)
	_, err = service.StaffConfirm("apt-1", models.MethodCash, "", testStaff())
	assert.NoError(t, err)

	second, err := service.CreateTransaction("apt-1", 80000, models.MethodCash)
	assert.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateQrPaymentGeneratesOrderID(t *testing.T) {
	repo := newFakePaymentRepo()
	service := newTestPaymentService(repo, nil)

	tx, err := service.CreateTransaction("apt-1", 150000, models.MethodQR)
	assert.NoError(t, err)

	payURL, updated, err := service.CreateQrPayment(context.Background(), tx.ID, 0, "")

	assert.NoError(t, err)
	assert.Equal(t, "https://pay.example/qr", payURL)
	assert.Equal(t, models.TxPending, updated.TransactionStatus)
	if assert.NotNil(t, updated.OrderID) {
		assert.Regexp(t, regexp.MustCompile(`^ORDER_`+tx.ID+`_\d+$`), *updated.OrderID)
	}
}

func TestCreateQrPaymentProviderDownKeepsPending(t *testing.T) {
	repo := newFakePaymentRepo()
	service := newTestPaymentService(repo, &stubProvider{err: errors.New("gateway timeout")})

	tx, err := service.CreateTransaction("apt-1", 150000, models.MethodQR)
	assert.NoError(t, err)

	_, returned, err := service.CreateQrPayment(context.Background(), tx.ID, 0, "")

	var unavailable *ProviderUnavailableError
	assert.ErrorAs(t, err, &unavailable)
	assert.NotNil(t, returned)

	stored, err := repo.ByID(tx.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.TxPending, stored.TransactionStatus)
	assert.NotNil(t, stored.OrderID, "the order survives so staff can retry")
}

func TestCreateQrPaymentRejectsFinalizedTransaction(t *testing.T) {
	repo := newFakePaymentRepo()
	service := newTestPaymentService(repo, nil)

	tx, _ := service.CreateTransaction("apt-1", 150000, models.MethodCash)
	_, err := service.StaffConfirm("apt-1", models.MethodCash, "", testStaff())
	assert.NoError(t, err)

	_, _, err = service.CreateQrPayment(context.Background(), tx.ID, 0, "")

	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func qrTransactionWithOrder(t *testing.T, service *PaymentService) *models.PaymentTransaction {
	t.Helper()
	tx, err := service.CreateTransaction("apt-1", 150000, models.MethodQR)
	assert.NoError(t, err)
	_, updated, err := service.CreateQrPayment(context.Background(), tx.ID, 0, "")
	assert.NoError(t, err)
	return updated
}

func TestReconcileCapturedFinalizesSuccess(t *testing.T) {
	repo := newFakePaymentRepo()
	service := newTestPaymentService(repo, nil)
	tx := qrTransactionWithOrder(t, service)

	result, err := service.ReconcileFromProvider(*tx.OrderID, "momo-123", ProviderResultSuccess)

	assert.NoError(t, err)
	assert.Equal(t, models.TxSuccess, result.TransactionStatus)
	assert.Equal(t, "momo-123", result.ProviderTransactionID)
	assert.NotNil(t, result.TransactionTime)
}

func TestReconcileAuthorizedJoinsStaffWorklist(t *testing.T) {
	repo := newFakePaymentRepo()
	service := newTestPaymentService(repo, nil)
	tx := qrTransactionWithOrder(t, service)

	result, err := service.ReconcileFromProvider(*tx.OrderID, "momo-456", ProviderResultAuthorized)

	assert.NoError(t, err)
	assert.Equal(t, models.TxPending, result.TransactionStatus)
	assert.Equal(t, "momo-456", result.ProviderTransactionID)
	assert.True(t, service.NeedsStaffConfirmation(result))

	worklist, err := service.ListNeedingConfirmation()
	assert.NoError(t, err)
	if assert.Len(t, worklist, 1) {
		assert.Equal(t, tx.ID, worklist[0].ID)
	}
}

func TestReconcileFailureCodeFinalizesFailed(t *testing.T) {
	repo := newFakePaymentRepo()
	service := newTestPaymentService(repo, nil)
	tx := qrTransactionWithOrder(t, service)

	result, err := service.ReconcileFromProvider(*tx.OrderID, "momo-789", 1006)

	assert.NoError(t, err)
	assert.Equal(t, models.TxFailed, result.TransactionStatus)
}

func TestReconcileNeverOverwritesTerminalState(t *testing.T) {
	repo := newFakePaymentRepo()
	service := newTestPaymentService(repo, nil)
	tx := qrTransactionWithOrder(t, service)

	first, err := service.ReconcileFromProvider(*tx.OrderID, "momo-123", ProviderResultSuccess)
	assert.NoError(t, err)

	// A duplicate webhook with a contradictory result changes nothing
	second, err := service.ReconcileFromProvider(*tx.OrderID, "momo-123", 1006)

	assert.NoError(t, err)
	assert.Equal(t, models.TxSuccess, second.TransactionStatus)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt, "no write happens on the duplicate")
}

func TestStaffConfirmCashPayment(t *testing.T) {
	repo := newFakePaymentRepo()
	service := newTestPaymentService(repo, nil)

	_, err := service.CreateTransaction("apt-1", 150000, models.MethodCash)
	assert.NoError(t, err)

	tx, err := service.StaffConfirm("apt-1", models.MethodCash, "paid at front desk", testStaff())

	assert.NoError(t, err)
	assert.Equal(t, models.TxSuccess, tx.TransactionStatus)
	assert.Equal(t, "Mai Nguyen", tx.ConfirmedBy)
	assert.Equal(t, "paid at front desk", tx.Notes)
}

func TestStaffConfirmAlreadySuccessIsNoOp(t *testing.T) {
	repo := newFakePaymentRepo()
	service := newTestPaymentService(repo, nil)
	tx := qrTransactionWithOrder(t, service)

	confirmed, err := service.ReconcileFromProvider(*tx.OrderID, "momo-123", ProviderResultSuccess)
	assert.NoError(t, err)

	again, err := service.StaffConfirm("apt-1", models.MethodQR, "", testStaff())

	assert.NoError(t, err)
	assert.Equal(t, models.TxSuccess, again.TransactionStatus)
	assert.Empty(t, again.ConfirmedBy, "the provider's finalization is not overwritten")
	assert.Equal(t, confirmed.UpdatedAt, again.UpdatedAt, "no write happens on the no-op")
}

func TestStaffConfirmRejectsFailedTransaction(t *testing.T) {
	repo := newFakePaymentRepo()
	service := newTestPaymentService(repo, nil)
	tx := qrTransactionWithOrder(t, service)

	_, err := service.ReconcileFromProvider(*tx.OrderID, "momo-123", 1006)
	assert.NoError(t, err)

	_, err = service.StaffConfirm("apt-1", models.MethodQR, "", testStaff())

	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestStaffConfirmRejectsMethodMismatch(t *testing.T) {
	repo := newFakePaymentRepo()
	service := newTestPaymentService(repo, nil)

	_, err := service.CreateTransaction("apt-1", 150000, models.MethodCash)
	assert.NoError(t, err)

	_, err = service.StaffConfirm("apt-1", models.MethodQR, "", testStaff())

	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestConcurrentFinalizationHasExactlyOneWinner(t *testing.T) {
	for i := 0; i < 100; i++ {
		repo := newFakePaymentRepo()
		service := newTestPaymentService(repo, nil)
		tx := qrTransactionWithOrder(t, service)

		var wg sync.WaitGroup
		var reconcileErr, staffErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, reconcileErr = service.ReconcileFromProvider(*tx.OrderID, "momo-123", 1006)
		}()
		go func() {
			defer wg.Done()
			_, staffErr = service.StaffConfirm("apt-1", models.MethodQR, "", testStaff())
		}()
		wg.Wait()

		assert.NoError(t, reconcileErr)

		final, err := repo.ByID(tx.ID)
		assert.NoError(t, err)
		assert.True(t, final.IsTerminal())

		switch final.TransactionStatus {
		case models.TxSuccess:
			// staff won; the provider's later FAILED result was discarded
			assert.NoError(t, staffErr)
			assert.Equal(t, "Mai Nguyen", final.ConfirmedBy)
		case models.TxFailed:
			// provider won; the staff confirmation degraded to a conflict
			var conflict *ConflictError
			assert.ErrorAs(t, staffErr, &conflict)
		default:
			t.Fatalf("unexpected terminal status %s", final.TransactionStatus)
		}
	}
}

func TestNeedsStaffConfirmationPredicate(t *testing.T) {
	cases := []struct {
		name     string
		tx       models.PaymentTransaction
		expected bool
	}{
		{
			"qr pending with provider ref",
			models.PaymentTransaction{PaymentMethod: models.MethodQR, ProviderTransactionID: "momo-1", TransactionStatus: models.TxPending},
			true,
		},
		{
			"qr pending without provider ref",
			models.PaymentTransaction{PaymentMethod: models.MethodQR, TransactionStatus: models.TxPending},
			false,
		},
		{
			"cash pending",
			models.PaymentTransaction{PaymentMethod: models.MethodCash, ProviderTransactionID: "momo-1", TransactionStatus: models.TxPending},
			false,
		},
		{
			"qr already succeeded",
			models.PaymentTransaction{PaymentMethod: models.MethodQR, ProviderTransactionID: "momo-1", TransactionStatus: models.TxSuccess},
			false,
		},
	}

	service := newTestPaymentService(newFakePaymentRepo(), nil)
	for _, tc := range cases {
		tx := tc.tx
		assert.Equal(t, tc.expected, service.NeedsStaffConfirmation(&tx), tc.name)
	}
}
