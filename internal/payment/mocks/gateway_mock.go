package mocks

import (
	"context"

	"event-booking-engine/internal/model"
	"event-booking-engine/internal/payment"

	"github.com/stretchr/testify/mock"
)

type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) Charge(ctx context.Context, amount float64, method model.PaymentMethod) (payment.ChargeResult, error) {
	args := m.Called(ctx, amount, method)
	return args.Get(0).(payment.ChargeResult), args.Error(1)
}

func (m *GatewayMock) Refund(ctx context.Context, paymentID string) (payment.RefundResult, error) {
	args := m.Called(ctx, paymentID)
	return args.Get(0).(payment.RefundResult), args.Error(1)
}
