// Package mailer delivers transactional email through a chain of strategies.
// The primary path is a direct HTTP call to the email API; when that is
// blocked the chain falls through to SendGrid, then to public CORS proxies,
// and finally to a local simulation so development never hard-fails on email.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Message is one outbound email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Strategy is one way of getting a Message delivered.
type Strategy interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// Mailer sends email through the first strategy that succeeds.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// Chain tries each strategy in order, retrying each with exponential backoff
// before moving on. Delivery succeeds as soon as one strategy does.
type Chain struct {
	strategies []Strategy
	attempts   uint64
	baseDelay  time.Duration
	logger     *zap.Logger
}

// NewChainConfig contains options for creating a new Chain.
type NewChainConfig struct {
	Strategies []Strategy
	Attempts   uint64
	BaseDelay  time.Duration
	Logger     *zap.Logger
}

// NewChain creates a new Chain.
func NewChain(cfg NewChainConfig) (*Chain, error) {
	if len(cfg.Strategies) == 0 {
		return nil, fmt.Errorf("mailer: at least one strategy is required")
	}
	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = 3
	}
	baseDelay := cfg.BaseDelay
	if baseDelay == 0 {
		baseDelay = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		strategies: cfg.Strategies,
		attempts:   attempts,
		baseDelay:  baseDelay,
		logger:     logger,
	}, nil
}

// Send delivers msg through the first strategy that succeeds. Each strategy
// gets its own retry budget; the error of the last strategy is returned when
// all of them fail.
func (c *Chain) Send(ctx context.Context, msg *Message) error {
	var lastErr error
	for _, strategy := range c.strategies {
		backoff := retry.WithMaxRetries(c.attempts-1, retry.NewExponential(c.baseDelay))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := strategy.Send(ctx, msg); err != nil {
				c.logger.Warn("email delivery attempt failed",
					zap.String("strategy", strategy.Name()),
					zap.String("to", msg.To),
					zap.Error(err))
				return retry.RetryableError(err)
			}
			return nil
		})
		if err == nil {
			c.logger.Info("email delivered",
				zap.String("strategy", strategy.Name()),
				zap.String("to", msg.To))
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("mailer: all strategies failed: %w", lastErr)
}
