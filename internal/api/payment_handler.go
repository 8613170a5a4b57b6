package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"cafezao-backend-go/internal/core"
	"cafezao-backend-go/internal/models"
)

// PaymentHandler handles subscription payment endpoints.
type PaymentHandler struct {
	paymentService core.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ps core.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: ps}
}

// mapPaymentErrorToStatus maps errors from the payment flows to HTTP status
// codes.
func mapPaymentErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrPaymentNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrPaymentNotFound.Error()}
	case errors.Is(err, core.ErrForbiddenAccess):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrForbiddenAccess.Error()}
	case errors.Is(err, core.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrUserNotFound.Error()}
	case errors.Is(err, core.ErrInvalidMethod):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: core.ErrInvalidMethod.Error()}
	default:
		log.Printf("Internal Server Error: %v", err)
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// CreatePayment handles POST /payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	var payment *models.Payment
	var err error
	switch req.Method {
	case models.MethodPix:
		payment, err = h.paymentService.CreatePixPayment(c.Request.Context(), userID.(string), req)
	case models.MethodCredit:
		payment, err = h.paymentService.CreateCheckoutPayment(c.Request.Context(), userID.(string), req)
	default:
		err = core.ErrInvalidMethod
	}
	if err != nil {
		mapPaymentErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// GetPayment handles GET /payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), userID.(string), c.Param("id"))
	if err != nil {
		mapPaymentErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// GetPaymentQR handles GET /payments/:id/qr
// Renders the PIX copy-paste code of the payment as a PNG so clients can
// display it without a base64 round trip.
func (h *PaymentHandler) GetPaymentQR(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), userID.(string), c.Param("id"))
	if err != nil {
		mapPaymentErrorToStatus(c, err)
		return
	}
	if payment.QRCode == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "payment has no PIX code"})
		return
	}

	png, err := qrcode.Encode(payment.QRCode, qrcode.Medium, 256)
	if err != nil {
		log.Printf("Failed to render QR code for payment %s: %v", payment.ID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to render QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// ClearPendingPayments handles DELETE /payments/pending
func (h *PaymentHandler) ClearPendingPayments(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	deleted, err := h.paymentService.ClearPendingPayments(c.Request.Context(), userID.(string))
	if err != nil {
		mapPaymentErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// Webhook handles POST /webhooks/mercadopago
// The provider sends {"type":"payment","data":{"id":"..."}} notifications.
// Always answers 200 for recognized shapes so the provider stops retrying.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var notification struct {
		Type string `json:"type"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.ShouldBindJSON(&notification); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid notification payload"})
		return
	}
	if notification.Type != "payment" || notification.Data.ID == "" {
		c.JSON(http.StatusOK, SuccessResponse{Message: "ignored"})
		return
	}

	if err := h.paymentService.HandleWebhook(c.Request.Context(), notification.Data.ID); err != nil {
		log.Printf("Webhook processing failed for provider payment %s: %v", notification.Data.ID, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to process notification"})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "processed"})
}
