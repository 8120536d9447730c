package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tracklite/internal/domain"
	"tracklite/internal/export"
	"tracklite/internal/session"
)

// HTTPServer returns a configured http.Server exposing the session
// operations. The caller runs ListenAndServe in a goroutine and Shutdown on
// exit. Identity arrives as an X-User-ID header supplied by the external
// auth layer; no authentication happens here.
func (a *App) HTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /session", a.handleSignIn)
	mux.HandleFunc("DELETE /session", a.handleSignOut)

	mux.HandleFunc("GET /entries", a.withSession(a.handleList))
	mux.HandleFunc("POST /entries", a.withSession(a.handleCreate))
	mux.HandleFunc("PUT /entries/{id}", a.withSession(a.handleUpdate))
	mux.HandleFunc("DELETE /entries/{id}", a.withSession(a.handleDelete))
	mux.HandleFunc("GET /totals", a.withSession(a.handleTotals))
	mux.HandleFunc("POST /reload", a.withSession(a.handleReload))
	mux.HandleFunc("GET /export", a.withSession(a.handleExport))

	srv := &http.Server{Addr: addr, Handler: loggingMiddleware(a.log, mux)}
	a.log.Info("http server configured", slog.String("addr", addr))
	return srv
}

// entryJSON is the wire form of a TimeEntry on the HTTP boundary.
type entryJSON struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	Project     string    `json:"project"`
	Description *string   `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Duration    int64     `json:"duration"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

func toEntryJSON(e domain.TimeEntry) entryJSON {
	return entryJSON{
		ID:          e.ID,
		UserID:      e.UserID,
		Project:     e.Project,
		Description: e.Description,
		Tags:        e.Tags,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Duration:    e.Duration,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (j entryJSON) toDomain() domain.TimeEntry {
	return domain.TimeEntry{
		ID:          j.ID,
		Project:     j.Project,
		Description: j.Description,
		Tags:        j.Tags,
		StartTime:   j.StartTime,
		EndTime:     j.EndTime,
		Duration:    j.Duration,
	}
}

func entriesJSON(entries []domain.TimeEntry) []entryJSON {
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryJSON(e))
	}
	return out
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (a *App) handleSignIn(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		httpError(w, http.StatusUnauthorized, errors.New("missing X-User-ID"))
		return
	}
	s, err := a.sessions.SignIn(r.Context(), userID)
	if err != nil {
		// The session exists but its initial load failed; report the
		// failure so the client can retry via /reload.
		httpDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entriesJSON(s.Entries()),
		"totals":  s.Totals(),
	})
}

func (a *App) handleSignOut(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		httpError(w, http.StatusUnauthorized, errors.New("missing X-User-ID"))
		return
	}
	a.sessions.SignOut(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) withSession(next func(http.ResponseWriter, *http.Request, *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			httpError(w, http.StatusUnauthorized, errors.New("missing X-User-ID"))
			return
		}
		s, ok := a.sessions.Get(userID)
		if !ok {
			httpError(w, http.StatusUnauthorized, errors.New("not signed in"))
			return
		}
		next(w, r, s)
	}
}

func (a *App) handleList(w http.ResponseWriter, r *http.Request, s *session.Session) {
	writeJSON(w, http.StatusOK, entriesJSON(s.Entries()))
}

func (a *App) handleCreate(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var payload entryJSON
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}
	created, err := s.Create(r.Context(), payload.toDomain())
	if err != nil {
		httpDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryJSON(*created))
}

func (a *App) handleUpdate(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var payload entryJSON
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}
	entry := payload.toDomain()
	entry.ID = r.PathValue("id")
	updated, err := s.Update(r.Context(), entry)
	if err != nil {
		httpDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryJSON(*updated))
}

func (a *App) handleDelete(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := s.Delete(r.Context(), r.PathValue("id")); err != nil {
		httpDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleTotals(w http.ResponseWriter, r *http.Request, s *session.Session) {
	writeJSON(w, http.StatusOK, s.Totals())
}

func (a *App) handleReload(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if err := s.Load(r.Context()); err != nil {
		httpDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entriesJSON(s.Entries()),
		"totals":  s.Totals(),
	})
}

func (a *App) handleExport(w http.ResponseWriter, r *http.Request, s *session.Session) {
	doc, err := export.PDF(s.Entries())
	if err != nil {
		httpError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="records.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// ---------------------------------------------------------------------------
// Plumbing
// ---------------------------------------------------------------------------

func httpDomainError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrNeedsRefresh):
		// The remote write went through; the client should reload rather
		// than re-submit.
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"status":       "error",
			"error":        err.Error(),
			"needsRefresh": true,
		})
		return
	}
	httpError(w, status, err)
}

func httpError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"status": "error",
		"error":  err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// loggingMiddleware provides basic request logging.
func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("dur", time.Since(start)),
		)
	})
}
