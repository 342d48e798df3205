package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitabwire/tabula/internal/metadata"
	"github.com/pitabwire/tabula/internal/session"
	"github.com/pitabwire/tabula/model"
)

func handleListTables(tables *metadata.TableProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caps := CapabilitiesFrom(r.Context())
		WriteJSON(w, http.StatusOK, map[string]any{"tables": tables.ListTables(caps)})
	}
}

func handleGetTable(tables *metadata.TableProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caps := CapabilitiesFrom(r.Context())
		desc, err := tables.GetTable(caps, chi.URLParam(r, "tableId"))
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, desc)
	}
}

func handleCreateSession(tables *metadata.TableProvider, sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx == nil {
			WriteError(w, model.NewUnauthorizedError("missing request context"))
			return
		}
		def, err := tables.Authorize(CapabilitiesFrom(r.Context()), chi.URLParam(r, "tableId"))
		if err != nil {
			WriteError(w, err)
			return
		}

		s, err := sessions.Create(r.Context(), def, rctx.SubjectID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, model.SessionResponse{
			SessionID: s.ID,
			TableID:   def.ID,
			View:      sessions.View(s),
		})
	}
}
