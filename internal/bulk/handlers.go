package bulk

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pitabwire/tabula/internal/store"
	"github.com/pitabwire/tabula/model"
)

// RegisterBuiltins registers the delete, update and notify handlers.
func RegisterBuiltins(r *HandlerRegistry, rows store.RowStore, logger *zap.Logger) {
	r.Register(NewDeleteHandler(rows))
	r.Register(NewUpdateHandler(rows))
	r.Register(NewNotifyHandler(logger))
}

// DeleteHandler removes the selected rows.
type DeleteHandler struct {
	rows store.RowStore
}

// NewDeleteHandler creates a DeleteHandler over rows.
func NewDeleteHandler(rows store.RowStore) *DeleteHandler {
	return &DeleteHandler{rows: rows}
}

// Name implements Handler.
func (h *DeleteHandler) Name() string { return "delete" }

// Execute implements Handler.
func (h *DeleteHandler) Execute(ctx context.Context, _ *model.RequestContext, req Request) (model.BulkResult, error) {
	n, err := h.rows.Delete(ctx, req.Collection, req.IDs)
	if err != nil {
		return model.BulkResult{}, err
	}
	return model.BulkResult{
		Success:  true,
		Message:  fmt.Sprintf("Deleted %d of %d rows", n, len(req.IDs)),
		Affected: n,
	}, nil
}

// UpdateHandler writes the action's fixed field values to the selected rows.
type UpdateHandler struct {
	rows store.RowStore
}

// NewUpdateHandler creates an UpdateHandler over rows.
func NewUpdateHandler(rows store.RowStore) *UpdateHandler {
	return &UpdateHandler{rows: rows}
}

// Name implements Handler.
func (h *UpdateHandler) Name() string { return "update" }

// Execute implements Handler.
func (h *UpdateHandler) Execute(ctx context.Context, _ *model.RequestContext, req Request) (model.BulkResult, error) {
	if len(req.Set) == 0 {
		return model.BulkResult{}, model.NewBadRequestError(
			fmt.Sprintf("bulk action %q has no fields to set", req.ActionID),
		)
	}
	n, err := h.rows.Update(ctx, req.Collection, req.IDs, req.Set)
	if err != nil {
		return model.BulkResult{}, err
	}
	return model.BulkResult{
		Success:  true,
		Message:  fmt.Sprintf("Updated %d rows", n),
		Affected: n,
		Result:   map[string]any{"set": req.Set},
	}, nil
}

// NotifyHandler records a notification for every selected row. Delivery is
// left to whatever consumes the log stream.
type NotifyHandler struct {
	logger *zap.Logger
}

// NewNotifyHandler creates a NotifyHandler that logs to logger.
func NewNotifyHandler(logger *zap.Logger) *NotifyHandler {
	return &NotifyHandler{logger: logger}
}

// Name implements Handler.
func (h *NotifyHandler) Name() string { return "notify" }

// Execute implements Handler.
func (h *NotifyHandler) Execute(_ context.Context, rctx *model.RequestContext, req Request) (model.BulkResult, error) {
	var subject string
	if rctx != nil {
		subject = rctx.SubjectID
	}
	h.logger.Info("bulk notification queued",
		zap.String("table_id", req.TableID),
		zap.String("action_id", req.ActionID),
		zap.String("requested_by", subject),
		zap.Strings("row_ids", req.IDs),
	)
	return model.BulkResult{
		Success:  true,
		Message:  fmt.Sprintf("Queued %d notifications", len(req.IDs)),
		Affected: len(req.IDs),
	}, nil
}
