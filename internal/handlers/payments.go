package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"hiv-clinic-server/internal/models"
	"hiv-clinic-server/internal/services"
	"hiv-clinic-server/internal/utils"
)

// PaymentHandler handles payment transaction requests, including the
// provider's redirect/IPN callbacks.
type PaymentHandler struct {
	Service *services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{Service: service}
}

// CreateTransactionRequest represents the request body for opening an invoice.
type CreateTransactionRequest struct {
	AppointmentID string               `json:"appointmentId" binding:"required,uuid"`
	Amount        int64                `json:"amount" binding:"required"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod" binding:"required,oneof=CASH QR"`
}

// CreateTransaction handles opening the invoice for an appointment (staff).
func (h *PaymentHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tx, err := h.Service.CreateTransaction(req.AppointmentID, req.Amount, req.PaymentMethod)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Created(c, "Payment transaction created successfully", tx)
}

// CreateQrPaymentRequest represents the request body for starting a QR payment.
type CreateQrPaymentRequest struct {
	TransactionID string `json:"transactionId" binding:"required,uuid"`
	Amount        int64  `json:"amount"`
	OrderInfo     string `json:"orderInfo"`
}

// CreateQrPayment handles starting the provider-hosted QR flow.
func (h *PaymentHandler) CreateQrPayment(c *gin.Context) {
	var req CreateQrPaymentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	payURL, tx, err := h.Service.CreateQrPayment(c.Request.Context(), req.TransactionID, req.Amount, req.OrderInfo)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "QR payment created successfully", gin.H{
		"payUrl":      payURL,
		"transaction": tx,
	})
}

// MoMoReturn handles the provider redirecting the payer back. The redirect
// query string carries orderId, transId and resultCode; those three values
// are the whole payload.
func (h *PaymentHandler) MoMoReturn(c *gin.Context) {
	orderID := c.Query("orderId")
	if orderID == "" {
		utils.BadRequest(c, "orderId is required")
		return
	}
	resultCode, err := strconv.Atoi(c.DefaultQuery("resultCode", "-1"))
	if err != nil {
		utils.BadRequest(c, "resultCode must be numeric")
		return
	}

	tx, err := h.Service.ReconcileFromProvider(orderID, c.Query("transId"), resultCode)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Payment reconciled", tx)
}

// MoMoIPNRequest is the provider's server-to-server notification payload.
type MoMoIPNRequest struct {
	OrderID    string `json:"orderId" binding:"required"`
	TransID    string `json:"transId"`
	ResultCode int    `json:"resultCode"`
}

// MoMoIPN handles the provider's asynchronous notification. Same
// reconciliation path as the redirect; whichever arrives first wins.
func (h *PaymentHandler) MoMoIPN(c *gin.Context) {
	var req MoMoIPNRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tx, err := h.Service.ReconcileFromProvider(req.OrderID, req.TransID, req.ResultCode)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Payment reconciled", tx)
}

// StaffConfirmRequest represents the manual confirmation payload.
type StaffConfirmRequest struct {
	AppointmentID string               `json:"appointmentId" binding:"required,uuid"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod" binding:"omitempty,oneof=CASH QR"`
	Notes         string               `json:"notes"`
}

// StaffConfirm handles a staff member manually finalizing a payment.
func (h *PaymentHandler) StaffConfirm(c *gin.Context) {
	var req StaffConfirmRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tx, err := h.Service.StaffConfirm(req.AppointmentID, req.PaymentMethod, req.Notes, actorFromContext(c))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Payment confirmed", tx)
}

// NeedingConfirmation handles the staff worklist poll.
func (h *PaymentHandler) NeedingConfirmation(c *gin.Context) {
	txs, err := h.Service.ListNeedingConfirmation()
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Transactions needing confirmation fetched successfully", txs)
}

// ByAppointment handles fetching the current transaction of an appointment.
func (h *PaymentHandler) ByAppointment(c *gin.Context) {
	tx, err := h.Service.ByAppointment(c.Param("appointmentId"))
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Payment transaction fetched successfully", tx)
}

// MyTransactions handles the logged-in patient's transaction history.
func (h *PaymentHandler) MyTransactions(c *gin.Context) {
	actor := actorFromContext(c)
	txs, err := h.Service.ListByPatient(actor.ID)
	if err != nil {
		utils.ServiceError(c, err)
		return
	}
	utils.Success(c, "Transactions fetched successfully", txs)
}
