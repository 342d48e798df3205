package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pitabwire/tabula/internal/bulk"
	"github.com/pitabwire/tabula/internal/metadata"
	"github.com/pitabwire/tabula/internal/observability"
	"github.com/pitabwire/tabula/internal/session"
	"github.com/pitabwire/tabula/internal/store"
	"github.com/pitabwire/tabula/model"
)

// sessionAPI serves the routes that drive a live table instance.
type sessionAPI struct {
	tables   *metadata.TableProvider
	sessions *session.Manager
	rows     store.RowStore
	bulk     *bulk.Dispatcher
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// load returns the caller's session after re-checking access to its table.
func (a *sessionAPI) load(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	rctx := model.RequestContextFrom(r.Context())
	if rctx == nil {
		WriteError(w, model.NewUnauthorizedError("missing request context"))
		return nil, false
	}
	s, err := a.sessions.Get(chi.URLParam(r, "sessionId"), rctx.SubjectID)
	if err != nil {
		WriteError(w, err)
		return nil, false
	}
	if _, err := a.tables.Authorize(CapabilitiesFrom(r.Context()), s.Def.ID); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return s, true
}

// mutate runs fn against the session and answers with the fresh view.
func (a *sessionAPI) mutate(fn func(r *http.Request, s *session.Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.load(w, r)
		if !ok {
			return
		}
		if err := fn(r, s); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, a.sessions.View(s))
	}
}

func (a *sessionAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	s, ok := a.load(w, r)
	if !ok {
		return
	}
	if err := s.Refresh(r.Context(), a.rows); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, a.sessions.View(s))
}

func (a *sessionAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	if rctx == nil {
		WriteError(w, model.NewUnauthorizedError("missing request context"))
		return
	}
	if err := a.sessions.Delete(chi.URLParam(r, "sessionId"), rctx.SubjectID); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func setSearch(r *http.Request, s *session.Session) error {
	var body struct {
		Term string `json:"term"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	return s.Table.SetSearch(body.Term)
}

// setFilter resolves JSON scalars against the offered options so that "3"
// or 3 select a numeric option and "2024-01-05T00:00:00Z" a time option.
func setFilter(r *http.Request, s *session.Session) error {
	key := chi.URLParam(r, "key")
	var body struct {
		Value any `json:"value"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	value := body.Value
	switch v := value.(type) {
	case string:
		value = s.Table.ResolveFilterValue(key, v)
	case json.Number:
		value = s.Table.ResolveFilterValue(key, v.String())
		if _, unresolved := value.(string); unresolved {
			value = numberValue(v)
		}
	case map[string]any, []any:
		return model.NewBadRequestError("filter value must be a scalar")
	}
	return s.Table.SetFilter(key, value)
}

func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func clearFilter(r *http.Request, s *session.Session) error {
	return s.Table.SetFilter(chi.URLParam(r, "key"), nil)
}

func clearFilters(_ *http.Request, s *session.Session) error {
	if !s.Table.Options().Filterable {
		return model.NewFeatureDisabledError("filtering")
	}
	s.Table.ClearFilters()
	return nil
}

func toggleSort(r *http.Request, s *session.Session) error {
	return s.Table.ToggleSort(chi.URLParam(r, "key"))
}

func setPage(r *http.Request, s *session.Session) error {
	var body model.PaginationState
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.PageSize != 0 {
		if err := s.Table.SetPageSize(body.PageSize); err != nil {
			return err
		}
	}
	if body.Page != 0 {
		return s.Table.SetPage(body.Page)
	}
	return nil
}

func toggleRow(r *http.Request, s *session.Session) error {
	return s.Table.ToggleRow(chi.URLParam(r, "rowId"))
}

func toggleVisible(r *http.Request, s *session.Session) error {
	var body struct {
		Scope string `json:"scope"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.Scope != "visible" {
		return model.NewBadRequestError(fmt.Sprintf("unsupported selection scope %q", body.Scope))
	}
	return s.Table.ToggleAllVisible()
}

func clearSelection(_ *http.Request, s *session.Session) error {
	return s.Table.ClearSelection()
}

func (a *sessionAPI) handleExport(w http.ResponseWriter, r *http.Request) {
	s, ok := a.load(w, r)
	if !ok {
		return
	}
	_, span := observability.StartSpan(r.Context(), "table.export",
		observability.AttrTableID.String(s.Def.ID),
		observability.AttrSessionID.String(s.ID),
	)
	export, err := s.Table.Export(a.now())
	observability.EndSpanWithError(span, err)
	if err != nil {
		WriteError(w, err)
		return
	}

	if a.metrics != nil {
		a.metrics.RecordExport(s.Def.ID, export.Rows)
	}
	observability.LoggerFrom(r.Context(), a.logger).Info("table exported",
		zap.String("table_id", s.Def.ID),
		zap.Int("rows", export.Rows),
	)

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(export.Body)
}

// handleRowEvent applies a declared row action to one row.
func (a *sessionAPI) handleRowEvent(w http.ResponseWriter, r *http.Request) {
	s, ok := a.load(w, r)
	if !ok {
		return
	}
	event := model.RowEvent(chi.URLParam(r, "event"))

	var action *model.ActionDefinition
	for i := range s.Def.RowActions {
		if s.Def.RowActions[i].ID == string(event) {
			action = &s.Def.RowActions[i]
			break
		}
	}
	if action == nil {
		WriteError(w, model.NewNotFoundError(fmt.Sprintf("row action %q not found on table %q", event, s.Def.ID)))
		return
	}
	if !CapabilitiesFrom(r.Context()).HasAll(action.Capabilities...) {
		WriteError(w, model.NewForbiddenError(fmt.Sprintf("insufficient capabilities for row action %q", event)))
		return
	}

	row, err := s.Table.Emit(r.Context(), event, chi.URLParam(r, "rowId"))
	if err != nil {
		WriteError(w, err)
		return
	}
	if event == model.RowEventDelete {
		if err := s.Refresh(r.Context(), a.rows); err != nil {
			WriteError(w, err)
			return
		}
	}
	WriteJSON(w, http.StatusOK, model.RowEventResponse{Event: event, Row: row, View: a.sessions.View(s)})
}

// handleBulk dispatches a bulk action over the session's selection. The
// selection is cleared afterwards only when the action asks for it, the
// dispatch succeeded and no other dispatch still holds the selection.
func (a *sessionAPI) handleBulk(w http.ResponseWriter, r *http.Request) {
	s, ok := a.load(w, r)
	if !ok {
		return
	}
	actionID := chi.URLParam(r, "actionId")
	action, found := s.Def.BulkAction(actionID)
	if !found {
		WriteError(w, model.NewNotFoundError(fmt.Sprintf("bulk action %q not found on table %q", actionID, s.Def.ID)))
		return
	}

	rctx := model.RequestContextFrom(r.Context())
	exec := a.bulk.Bind(rctx, CapabilitiesFrom(r.Context()), s.Def, r.Header.Get("X-Idempotency-Key"))
	result, err := s.Table.Dispatch(r.Context(), actionID, exec)
	if err != nil {
		WriteError(w, err)
		return
	}

	// The action has been applied; from here on failures are logged and the
	// result is still reported.
	logger := observability.LoggerFrom(r.Context(), a.logger).With(
		zap.String("table_id", s.Def.ID),
		zap.String("action_id", actionID),
	)
	cleared := false
	if action.ClearSelection {
		if err := s.Table.ClearSelection(); err != nil {
			logger.Warn("selection not cleared after bulk action", zap.Error(err))
		} else {
			cleared = true
		}
	}
	if err := s.Refresh(r.Context(), a.rows); err != nil {
		logger.Error("refreshing rows after bulk action", zap.Error(err))
	}
	WriteJSON(w, http.StatusOK, model.BulkResponse{
		Result:           result,
		SelectionCleared: cleared,
		View:             a.sessions.View(s),
	})
}
