package service

import (
	"context"
	"dsa_hub_backend/internal/config"
	"dsa_hub_backend/pkg/logger"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy LLM 调用的指数退避策略，MaxAttempts <= 1 时不重试
type RetryPolicy struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func NewRetryPolicy(cfg config.AIConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		InitialWait: time.Duration(cfg.InitialWaitMS) * time.Millisecond,
		MaxWait:     time.Duration(cfg.MaxWaitMS) * time.Millisecond,
		Multiplier:  2,
	}
}

// Do 执行 fn，可重试的错误按退避等待后重试
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := max(p.MaxAttempts, 1)
	invalidRetried := false

	var lastErr error
	for attempt := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err, &invalidRetried) || attempt == attempts-1 {
			break
		}

		wait := p.backoff(attempt, err)
		logger.Log.Warn("LLM call failed, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}

func shouldRetry(err error, invalidRetried *bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var maxTok *ErrMaxTokensExceeded
	if errors.As(err, &maxTok) {
		return false
	}

	// 格式错误只重试一次
	var invResp *ErrInvalidResponse
	if errors.As(err, &invResp) {
		if *invalidRetried {
			return false
		}
		*invalidRetried = true
	}
	return true
}

func (p RetryPolicy) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(p.InitialWait) * math.Pow(p.Multiplier, float64(attempt))
	if p.MaxWait > 0 && wait > float64(p.MaxWait) {
		wait = float64(p.MaxWait)
	}

	// ±20% 抖动
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
