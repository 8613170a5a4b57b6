package models

import (
	"errors"
	"time"
)

// Payment status values. A payment is created pending and converges to a
// terminal state via the status poller or the document listener.
const (
	PaymentPending   = "pending"
	PaymentApproved  = "approved"
	PaymentExpired   = "expired"
	PaymentCancelled = "cancelled"
	PaymentRejected  = "rejected"
)

// Payment methods accepted at intent creation.
const (
	MethodPix    = "pix"
	MethodCredit = "credit"
)

// Payment is a payment intent record. Provider fields are filled in after the
// Mercado Pago call succeeds; QR fields only exist for direct PIX payments.
type Payment struct {
	ID                string    `json:"id" firestore:"-"`
	UserID            string    `json:"userId" firestore:"userId"`
	UserName          string    `json:"userName" firestore:"userName"`
	Amount            float64   `json:"amount" firestore:"amount"`
	Method            string    `json:"method" firestore:"method"`
	Status            string    `json:"status" firestore:"status"`
	ProviderPaymentID string    `json:"providerPaymentId,omitempty" firestore:"providerPaymentId"`
	ExternalReference string    `json:"externalReference,omitempty" firestore:"externalReference"`
	QRCode            string    `json:"qrCode,omitempty" firestore:"qr_code"`
	QRCodeBase64      string    `json:"qrCodeBase64,omitempty" firestore:"qr_code_base64"`
	TicketURL         string    `json:"ticketUrl,omitempty" firestore:"ticket_url"`
	InitPoint         string    `json:"initPoint,omitempty" firestore:"init_point"`
	StatusDetail      string    `json:"statusDetail,omitempty" firestore:"transaction_status_detail"`
	CreatedAt         time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt         time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// TerminalPaymentStatus reports whether s ends the payment lifecycle.
func TerminalPaymentStatus(s string) bool {
	switch s {
	case PaymentApproved, PaymentExpired, PaymentCancelled, PaymentRejected:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether s is a known lifecycle state.
func ValidPaymentStatus(s string) bool {
	return s == PaymentPending || TerminalPaymentStatus(s)
}

// Validate enforces document shape at the read boundary.
func (p *Payment) Validate() error {
	if p.UserID == "" {
		return errors.New("payment document missing userId")
	}
	if p.Amount <= 0 {
		return errors.New("payment document carries non-positive amount")
	}
	if p.Status == "" {
		p.Status = PaymentPending
	}
	if !ValidPaymentStatus(p.Status) {
		return errors.New("payment document carries unknown status '" + p.Status + "'")
	}
	return nil
}

// CreditSurcharge is the fraction added on top of the base amount when the
// credit card method is selected.
const CreditSurcharge = 0.1

// ChargeAmount returns the amount actually charged for the given method:
// PIX pays the base price, credit pays base plus the surcharge.
func ChargeAmount(base float64, method string) float64 {
	if method == MethodCredit {
		return base + base*CreditSurcharge
	}
	return base
}
