package web

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/heartsync/heartsync/internal/config"
	"github.com/heartsync/heartsync/internal/summary"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// NewHandler builds the routed handler for the HeartSync API.
// completer may be nil; summary routes then answer SUMMARY_UNAVAILABLE.
func NewHandler(db *sql.DB, cfg *config.Config, clock wellbeing.Clock, completer summary.Completer) http.Handler {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	h := &Handlers{
		db:          db,
		cfg:         cfg,
		clock:       clock,
		completer:   completer,
		coordinator: summary.NewCoordinator(),
	}

	me := http.NewServeMux()
	me.HandleFunc("GET /api/me/moods", h.HandleListMoods)
	me.HandleFunc("GET /api/me/moods/today", h.HandleMoodToday)
	me.HandleFunc("GET /api/me/moods/{day}", h.HandleGetMood)
	me.HandleFunc("PUT /api/me/moods", h.HandlePutMood)
	me.HandleFunc("PUT /api/me/moods/{day}", h.HandlePutMood)
	me.HandleFunc("DELETE /api/me/moods/{day}", h.HandleDeleteMood)
	me.HandleFunc("GET /api/me/contacts", h.HandleListContacts)
	me.HandleFunc("POST /api/me/contacts", h.HandleAddContact)
	me.HandleFunc("GET /api/me/contacts/{id}", h.HandleGetContact)
	me.HandleFunc("PATCH /api/me/contacts/{id}", h.HandleUpdateContact)
	me.HandleFunc("DELETE /api/me/contacts/{id}", h.HandleDeleteContact)
	me.HandleFunc("POST /api/me/contacts/{id}/checkin", h.HandleCheckIn)
	me.HandleFunc("GET /api/me/stats", h.HandleStats)
	me.HandleFunc("POST /api/me/summary", h.HandleUserSummary)

	// Routes using Go 1.22+ pattern syntax
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/summary", h.HandleSummary)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/api/me/", requireIdentity(me))

	return securityHeaders(mux)
}

// NewServer creates the HTTP server for the HeartSync API.
func NewServer(db *sql.DB, cfg *config.Config, clock wellbeing.Clock, completer summary.Completer, bind string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           NewHandler(db, cfg, clock, completer),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("HeartSync API running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
