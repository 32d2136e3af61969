package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentMethodPayPal     PaymentMethod = "PAYPAL"
	PaymentMethodUPI        PaymentMethod = "UPI"
	PaymentMethodNetBanking PaymentMethod = "NET_BANKING"
	PaymentMethodWallet     PaymentMethod = "WALLET"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPayPal,
		PaymentMethodUPI, PaymentMethodNetBanking, PaymentMethodWallet:
		return true
	}
	return false
}

// PaymentStatus 付款狀態
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment 付款紀錄
type Payment struct {
	ID             string        `json:"id" db:"id"`
	BookingID      string        `json:"booking_id" db:"booking_id"`
	Amount         float64       `json:"amount" db:"amount"`
	Method         PaymentMethod `json:"method" db:"method"`
	Status         PaymentStatus `json:"status" db:"status"`
	TransactionRef string        `json:"transaction_ref,omitempty" db:"transaction_ref"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
}

func NewPayment(bookingID string, amount float64, method PaymentMethod, now time.Time) *Payment {
	return &Payment{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		Amount:    amount,
		Method:    method,
		Status:    PaymentStatusPending,
		CreatedAt: now,
	}
}

func (p *Payment) Complete(transactionRef string, now time.Time) {
	p.Status = PaymentStatusCompleted
	p.TransactionRef = transactionRef
	p.CompletedAt = &now
}

func (p *Payment) Fail() {
	p.Status = PaymentStatusFailed
}

// Refund 只有 COMPLETED 的付款可以退款，其他狀態不變
func (p *Payment) Refund() bool {
	if p.Status != PaymentStatusCompleted {
		return false
	}
	p.Status = PaymentStatusRefunded
	return true
}
