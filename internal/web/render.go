package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/summary"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error string           `json:"error"`
	Code  errors.ErrorCode `json:"code"`
}

// renderError writes err as {"error", "code"} with the coded HTTP status.
func renderError(w http.ResponseWriter, err error) {
	if stderrors.Is(err, summary.ErrSuperseded) {
		err = errors.NewConflict(err.Error())
	}
	hErr := errors.As(err)
	if hErr.Code == errors.ErrInternal {
		log.Printf("internal error: %v", hErr.Details["internal_error"])
	}
	renderJSON(w, hErr.Status, errorBody{Error: hErr.Message, Code: hErr.Code})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderSummary writes a summary as JSON, or as an HTML fragment when the
// client asked for text/html.
func renderSummary(w http.ResponseWriter, r *http.Request, resp *summary.Response) {
	if !wantsHTML(r) {
		renderJSON(w, http.StatusOK, resp)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="summary">` + string(renderMarkdown(resp.Summary)) + `</div>`))
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

// renderMarkdown converts markdown text to HTML using goldmark.
// goldmark's default renderer drops raw HTML, so model output cannot inject markup.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		log.Printf("markdown render failed: %v", err)
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// RenderMarkdown exposes the summary HTML rendering for the CLI.
func RenderMarkdown(md string) string {
	return string(renderMarkdown(md))
}
