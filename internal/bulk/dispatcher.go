package bulk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/tabula/internal/observability"
	"github.com/pitabwire/tabula/internal/table"
	"github.com/pitabwire/tabula/model"
)

// DefaultIdempotencyTTL is used when neither the action nor the dispatcher
// sets one.
const DefaultIdempotencyTTL = 24 * time.Hour

// Observer receives the outcome of every dispatch that reached a handler.
type Observer interface {
	OnBulkDispatched(ctx context.Context, event Event)
}

// Event describes one bulk dispatch.
type Event struct {
	TableID   string        `json:"table_id"`
	ActionID  string        `json:"action_id"`
	SubjectID string        `json:"subject_id"`
	Count     int           `json:"count"`
	Success   bool          `json:"success"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Dispatcher runs bulk actions declared on table definitions.
type Dispatcher struct {
	handlers    *HandlerRegistry
	idempotency IdempotencyStore
	ttl         time.Duration
	observers   []Observer
	logger      *zap.Logger
}

// DispatcherOption configures optional dependencies.
type DispatcherOption func(*Dispatcher)

// WithIdempotencyStore enables replay detection with the given default TTL.
func WithIdempotencyStore(store IdempotencyStore, ttl time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.idempotency = store
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithObserver adds a dispatch observer.
func WithObserver(obs Observer) DispatcherOption {
	return func(d *Dispatcher) { d.observers = append(d.observers, obs) }
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates a Dispatcher over handlers.
func NewDispatcher(handlers *HandlerRegistry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handlers: handlers,
		ttl:      DefaultIdempotencyTTL,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute runs actionID of def over ids. It checks that the action exists
// and that caps grants its capabilities, replays the stored result when
// idemKey was already used with the same ids, and otherwise invokes the
// handler inside a span and notifies observers.
func (d *Dispatcher) Execute(
	ctx context.Context,
	rctx *model.RequestContext,
	caps model.CapabilitySet,
	def model.TableDefinition,
	actionID string,
	ids []string,
	idemKey string,
) (model.BulkResult, error) {
	action, ok := def.BulkAction(actionID)
	if !ok {
		return model.BulkResult{}, model.NewNotFoundError(
			fmt.Sprintf("bulk action %q not found on table %q", actionID, def.ID),
		)
	}
	if !caps.HasAll(action.Capabilities...) {
		return model.BulkResult{}, model.NewForbiddenError(
			fmt.Sprintf("insufficient capabilities for bulk action %q", actionID),
		)
	}
	handler, ok := d.handlers.Get(action.Handler)
	if !ok {
		return model.BulkResult{}, model.NewNotFoundError(
			fmt.Sprintf("bulk handler %q is not registered", action.Handler),
		)
	}

	var storeKey, hash string
	if idemKey != "" && d.idempotency != nil {
		storeKey = FormatIdempotencyKey(def.ID, actionID, idemKey)
		hash = hashIDs(ids)
		cached, found, err := d.idempotency.Check(ctx, storeKey, hash)
		if err != nil {
			return model.BulkResult{}, err
		}
		if found && cached != nil {
			d.logger.Info("bulk dispatch replayed",
				zap.String("table_id", def.ID),
				zap.String("action_id", actionID),
			)
			return *cached, nil
		}
	}

	ctx, span := observability.StartSpan(ctx, "bulk.dispatch",
		observability.AttrTableID.String(def.ID),
		observability.AttrActionID.String(actionID),
		observability.AttrRowCount.Int(len(ids)),
	)
	start := time.Now()
	result, err := handler.Execute(ctx, rctx, Request{
		TableID:    def.ID,
		Collection: def.Source,
		ActionID:   actionID,
		IDs:        ids,
		Set:        action.Set,
	})
	observability.EndSpanWithError(span, err)
	if err == nil && result.Success && storeKey != "" {
		if serr := d.idempotency.Store(ctx, storeKey, hash, result, d.actionTTL(action)); serr != nil {
			d.logger.Warn("storing idempotency result failed", zap.Error(serr))
		}
	}

	d.notify(ctx, rctx, def.ID, actionID, len(ids), err == nil && result.Success, time.Since(start), err)
	return result, err
}

// Bind adapts Execute into the executor a table instance dispatches through.
func (d *Dispatcher) Bind(
	rctx *model.RequestContext,
	caps model.CapabilitySet,
	def model.TableDefinition,
	idemKey string,
) table.Executor {
	return func(ctx context.Context, action string, ids []string) (model.BulkResult, error) {
		return d.Execute(ctx, rctx, caps, def, action, ids, idemKey)
	}
}

func (d *Dispatcher) actionTTL(action model.BulkActionDefinition) time.Duration {
	if action.IdempotencyTTL != "" {
		if ttl, err := time.ParseDuration(action.IdempotencyTTL); err == nil && ttl > 0 {
			return ttl
		}
	}
	return d.ttl
}

func (d *Dispatcher) notify(
	ctx context.Context,
	rctx *model.RequestContext,
	tableID, actionID string,
	count int,
	success bool,
	duration time.Duration,
	err error,
) {
	event := Event{
		TableID:  tableID,
		ActionID: actionID,
		Count:    count,
		Success:  success,
		Duration: duration,
	}
	if rctx != nil {
		event.SubjectID = rctx.SubjectID
	}
	if err != nil {
		event.Error = err.Error()
	}
	for _, obs := range d.observers {
		obs.OnBulkDispatched(ctx, event)
	}
}

func hashIDs(ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\x00")))
	return hex.EncodeToString(sum[:])
}
