package web

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/heartsync/heartsync/internal/config"
	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/ops"
	"github.com/heartsync/heartsync/internal/summary"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// maxBodyBytes leaves room for a contact photo data URL plus JSON framing.
const maxBodyBytes = 2 << 20

// Handlers contains HTTP route handlers for the API.
type Handlers struct {
	db          *sql.DB
	cfg         *config.Config
	clock       wellbeing.Clock
	completer   summary.Completer
	coordinator *summary.Coordinator
}

type userKey struct{}

// requireIdentity resolves the caller from X-User-ID (or ?user=) and rejects
// requests without one.
func requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if user == "" {
			user = strings.TrimSpace(r.URL.Query().Get("user"))
		}
		if user == "" {
			renderError(w, errors.NewUnauthenticated())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func userFrom(r *http.Request) string {
	user, _ := r.Context().Value(userKey{}).(string)
	return user
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return errors.NewInvalidRequest("request body is required")
		}
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// --- Summary ---

// HandleSummary handles POST /api/summary: a stateless summary of the
// request body. Nothing is read from or written to the store.
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	var req summary.Request
	if err := decodeBody(w, r, &req); err != nil {
		renderError(w, err)
		return
	}

	ctx := r.Context()
	if d := h.cfg.SummaryTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	resp, err := summary.Generate(ctx, h.completer, req, h.clock.Now(), h.clock.Location(), ops.SummaryOptions(h.cfg))
	if err != nil {
		renderError(w, err)
		return
	}
	renderSummary(w, r, resp)
}

// HandleUserSummary handles POST /api/me/summary. A newer request from the
// same user supersedes one still in flight.
func (h *Handlers) HandleUserSummary(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	resp, err := h.coordinator.Run(r.Context(), user, func(ctx context.Context) (*summary.Response, error) {
		return ops.Summary(ctx, h.db, h.clock, h.completer, h.cfg, user)
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderSummary(w, r, resp)
}

// --- Moods ---

type moodBody struct {
	Date        string `json:"date"`
	Mood        int    `json:"mood"`
	Emotion     string `json:"emotion"`
	Activity    string `json:"activity"`
	Description string `json:"description"`
}

// HandleListMoods handles GET /api/me/moods?from=&to=.
func (h *Handlers) HandleListMoods(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListMoods(r.Context(), h.db, ops.ListMoodsInput{
		UserID: userFrom(r),
		From:   r.URL.Query().Get("from"),
		To:     r.URL.Query().Get("to"),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleMoodToday handles GET /api/me/moods/today.
func (h *Handlers) HandleMoodToday(w http.ResponseWriter, r *http.Request) {
	out, err := ops.MoodLoggedToday(r.Context(), h.db, h.clock, userFrom(r))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleGetMood handles GET /api/me/moods/{day}.
func (h *Handlers) HandleGetMood(w http.ResponseWriter, r *http.Request) {
	l, err := ops.GetMood(r.Context(), h.db, userFrom(r), r.PathValue("day"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, l)
}

// HandlePutMood handles PUT /api/me/moods and PUT /api/me/moods/{day}.
// Without a day in the path or body the log is stored for today.
func (h *Handlers) HandlePutMood(w http.ResponseWriter, r *http.Request) {
	var body moodBody
	if err := decodeBody(w, r, &body); err != nil {
		renderError(w, err)
		return
	}

	day := r.PathValue("day")
	if day != "" && body.Date != "" && body.Date != day {
		renderError(w, errors.NewInvalidRequest("body date does not match path"))
		return
	}
	if day == "" {
		day = body.Date
	}

	l, err := ops.LogMood(r.Context(), h.db, h.clock, ops.LogMoodInput{
		UserID:      userFrom(r),
		Date:        day,
		Mood:        body.Mood,
		Emotion:     body.Emotion,
		Activity:    body.Activity,
		Description: body.Description,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, l)
}

// HandleDeleteMood handles DELETE /api/me/moods/{day}.
func (h *Handlers) HandleDeleteMood(w http.ResponseWriter, r *http.Request) {
	out, err := ops.DeleteMood(r.Context(), h.db, userFrom(r), r.PathValue("day"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// --- Contacts ---

type addContactBody struct {
	Name            string `json:"name"`
	Relation        string `json:"relation"`
	ConnectionLevel *int   `json:"connection_level"`
	Photo           string `json:"photo"`
}

type updateContactBody struct {
	Name            *string `json:"name"`
	Relation        *string `json:"relation"`
	ConnectionLevel *int    `json:"connection_level"`
	Photo           *string `json:"photo"`
}

// HandleListContacts handles GET /api/me/contacts.
func (h *Handlers) HandleListContacts(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListContacts(r.Context(), h.db, userFrom(r))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleAddContact handles POST /api/me/contacts.
func (h *Handlers) HandleAddContact(w http.ResponseWriter, r *http.Request) {
	var body addContactBody
	if err := decodeBody(w, r, &body); err != nil {
		renderError(w, err)
		return
	}

	c, err := ops.AddContact(r.Context(), h.db, h.clock, ops.AddContactInput{
		UserID:          userFrom(r),
		Name:            body.Name,
		Relation:        body.Relation,
		ConnectionLevel: body.ConnectionLevel,
		Photo:           body.Photo,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusCreated, c)
}

// HandleGetContact handles GET /api/me/contacts/{id}.
func (h *Handlers) HandleGetContact(w http.ResponseWriter, r *http.Request) {
	c, err := ops.GetContact(r.Context(), h.db, userFrom(r), r.PathValue("id"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, c)
}

// HandleUpdateContact handles PATCH /api/me/contacts/{id}. Absent fields
// are left unchanged.
func (h *Handlers) HandleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var body updateContactBody
	if err := decodeBody(w, r, &body); err != nil {
		renderError(w, err)
		return
	}

	c, err := ops.UpdateContact(r.Context(), h.db, h.clock, ops.UpdateContactInput{
		UserID:          userFrom(r),
		ID:              r.PathValue("id"),
		Name:            body.Name,
		Relation:        body.Relation,
		ConnectionLevel: body.ConnectionLevel,
		Photo:           body.Photo,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, c)
}

// HandleDeleteContact handles DELETE /api/me/contacts/{id}.
func (h *Handlers) HandleDeleteContact(w http.ResponseWriter, r *http.Request) {
	out, err := ops.DeleteContact(r.Context(), h.db, userFrom(r), r.PathValue("id"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleCheckIn handles POST /api/me/contacts/{id}/checkin, toggling
// today's check-in.
func (h *Handlers) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ToggleCheckIn(r.Context(), h.db, h.clock, userFrom(r), r.PathValue("id"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleStats handles GET /api/me/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := ops.Stats(r.Context(), h.db, h.clock, userFrom(r))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, stats)
}
