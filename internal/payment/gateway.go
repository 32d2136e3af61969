package payment

import (
	"context"
	"math/rand/v2"
	"strings"

	"event-booking-engine/internal/model"
	"event-booking-engine/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChargeResult struct {
	Success        bool
	TransactionRef string
}

type RefundResult struct {
	Success bool
}

// Gateway 外部金流介面，每次 settle 只會呼叫一次 Charge
type Gateway interface {
	Charge(ctx context.Context, amount float64, method model.PaymentMethod) (ChargeResult, error)
	Refund(ctx context.Context, paymentID string) (RefundResult, error)
}

const DefaultSuccessRate = 0.9

// SimulatedGateway 模擬金流，依 successRate 決定扣款是否成功，退款一律成功
type SimulatedGateway struct {
	successRate float64
	roll        func() float64
	log         *zap.Logger
}

func NewSimulatedGateway(successRate float64) *SimulatedGateway {
	if successRate < 0 || successRate > 1 {
		successRate = DefaultSuccessRate
	}
	return &SimulatedGateway{
		successRate: successRate,
		roll:        rand.Float64,
		log:         logger.WithComponent("payment"),
	}
}

func (g *SimulatedGateway) Charge(ctx context.Context, amount float64, method model.PaymentMethod) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}

	if g.roll() >= g.successRate {
		g.log.Info("charge declined", zap.Float64("amount", amount), zap.String("method", string(method)))
		return ChargeResult{Success: false}, nil
	}

	ref := "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	g.log.Info("charge completed",
		zap.Float64("amount", amount),
		zap.String("method", string(method)),
		zap.String("transaction_ref", ref),
	)
	return ChargeResult{Success: true, TransactionRef: ref}, nil
}

func (g *SimulatedGateway) Refund(ctx context.Context, paymentID string) (RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return RefundResult{}, err
	}
	g.log.Info("refund completed", zap.String("payment_id", paymentID))
	return RefundResult{Success: true}, nil
}
