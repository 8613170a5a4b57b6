package mailer

import (
	"context"

	"go.uber.org/zap"
)

// SimulateStrategy logs the message instead of sending it. Used as the final
// link of the chain in development so password-reset flows stay testable
// without a working email route.
type SimulateStrategy struct {
	logger *zap.Logger
}

// NewSimulateStrategy creates a new SimulateStrategy.
func NewSimulateStrategy(logger *zap.Logger) *SimulateStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulateStrategy{logger: logger}
}

// Name implements Strategy.
func (s *SimulateStrategy) Name() string { return "simulate" }

// Send implements Strategy. It never fails.
func (s *SimulateStrategy) Send(_ context.Context, msg *Message) error {
	s.logger.Info("simulated email delivery",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("bodyBytes", len(msg.HTML)))
	return nil
}
