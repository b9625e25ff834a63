package dispatch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/wikigap/internal/model"
)

// WithRateLimit rejects requests beyond the action's window allowance
func WithRateLimit(l *RateLimiter) Middleware {
	return func(action string, next Handler) Handler {
		return func(ctx context.Context, req Request) (Response, error) {
			if ok, retryAfter := l.Allow(action); !ok {
				return Response{}, &model.RateLimitError{Action: action, RetryAfter: retryAfter}
			}
			return next(ctx, req)
		}
	}
}

// WithRetry re-runs handlers that fail with a storage error, sleeping
// delay*(i+1) after the i-th failure. A nil sleep uses time.Sleep.
func WithRetry(attempts int, delay time.Duration, sleep func(time.Duration)) Middleware {
	if attempts < 1 {
		attempts = 1
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return func(action string, next Handler) Handler {
		return func(ctx context.Context, req Request) (Response, error) {
			var (
				resp Response
				err  error
			)
			for i := 0; i < attempts; i++ {
				resp, err = next(ctx, req)
				if err == nil {
					return resp, nil
				}
				var serr *model.StorageError
				if !errors.As(err, &serr) || i == attempts-1 {
					return resp, err
				}
				sleep(delay * time.Duration(i+1))
			}
			return resp, err
		}
	}
}

// WithLogging records each action's outcome and latency
func WithLogging(logger *zap.Logger) Middleware {
	return func(action string, next Handler) Handler {
		return func(ctx context.Context, req Request) (Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			fields := []zap.Field{
				zap.String("action", action),
				zap.String("request_id", req.RequestID),
				zap.Duration("elapsed", time.Since(start)),
			}
			if err != nil {
				logger.Warn("action failed", append(fields, zap.Error(err))...)
			} else {
				logger.Debug("action handled", fields...)
			}
			return resp, err
		}
	}
}
