// Package dispatch routes named actions to persistence operations behind
// rate-limit, retry and logging middleware.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/wikigap/internal/model"
	"github.com/ppiankov/wikigap/internal/store"
)

// Request is one action message
type Request struct {
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	// Source is the page URL the request originated from
	Source string `json:"source,omitempty"`
}

// Response is the uniform result of every action
type Response struct {
	Success     bool       `json:"success"`
	Data        any        `json:"data,omitempty"`
	OfflineMode *bool      `json:"offlineMode,omitempty"`
	LastSync    *time.Time `json:"lastSync,omitempty"`
	Error       string     `json:"error,omitempty"`
	// RetryAfter is a hint in milliseconds
	RetryAfter int64 `json:"retryAfter,omitempty"`
	// RateLimited marks a request refused by the action's limiter
	RateLimited bool `json:"-"`
}

// Handler executes one action
type Handler func(ctx context.Context, req Request) (Response, error)

// Middleware decorates a handler
type Middleware func(action string, next Handler) Handler

// ErrUnknownAction is reported for unregistered actions
var ErrUnknownAction = errors.New("Unknown action")

// Dispatcher maps action names to decorated handlers
type Dispatcher struct {
	handlers map[string]Handler
	manager  *store.Manager
	flight   singleflight.Group
	logger   *zap.Logger
	// retryAfter is reported on failures that exhausted their retries
	retryAfter time.Duration
}

// New creates a dispatcher with every built-in action registered and the
// configured middleware applied: logging, then rate limiting, then retry
func New(m *store.Manager, cfg model.DispatchConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		handlers:   make(map[string]Handler),
		manager:    m,
		logger:     logger,
		retryAfter: cfg.RetryDelay,
	}

	limiter := NewRateLimiter(cfg.RateLimits)
	chain := []Middleware{
		WithLogging(logger),
		WithRateLimit(limiter),
		WithRetry(cfg.RetryAttempts, cfg.RetryDelay, nil),
	}
	for action, h := range builtinHandlers(m) {
		d.Register(action, h, chain...)
	}
	return d
}

// Register installs h for action; the first middleware is the outermost
func (d *Dispatcher) Register(action string, h Handler, mws ...Middleware) {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](action, h)
	}
	d.handlers[action] = h
}

// Actions lists the registered action names
func (d *Dispatcher) Actions() []string {
	out := make([]string, 0, len(d.handlers))
	for a := range d.handlers {
		out = append(out, a)
	}
	return out
}

// Dispatch runs req to completion. Caller cancellation does not interrupt a
// dispatched action, and concurrent calls sharing a RequestID share one run.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	h, ok := d.handlers[req.Action]
	if !ok {
		return Response{Success: false, Error: ErrUnknownAction.Error()}
	}

	ctx = context.WithoutCancel(ctx)
	id := req.RequestID
	if id == "" {
		id = uuid.NewString()
	}

	v, _, _ := d.flight.Do(id, func() (any, error) {
		return d.run(ctx, h, req), nil
	})
	return v.(Response)
}

func (d *Dispatcher) run(ctx context.Context, h Handler, req Request) Response {
	resp, err := h(ctx, req)
	if err == nil {
		return resp
	}

	var rl *model.RateLimitError
	if errors.As(err, &rl) {
		return Response{Success: false, Error: rl.Error(), RetryAfter: rl.RetryAfter.Milliseconds(), RateLimited: true}
	}
	if errors.Is(err, store.ErrOfflineSync) {
		return Response{Success: false, Error: err.Error()}
	}
	var verr *model.ValidationError
	if errors.As(err, &verr) && req.Action == ActionSaveAnalysis {
		// SaveAnalysis records its own validation failures
		return Response{Success: false, Error: err.Error()}
	}

	if _, logErr := d.manager.AppendError(ctx, req.Action, err.Error(), store.SeverityError); logErr != nil {
		d.logger.Error("failed to record error", zap.String("action", req.Action), zap.Error(logErr))
	}
	return Response{Success: false, Error: err.Error(), RetryAfter: d.retryAfter.Milliseconds()}
}
