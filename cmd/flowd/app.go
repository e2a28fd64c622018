package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"github.com/alovak/paymentflow/flow"
	"github.com/alovak/paymentflow/internal/middleware"
	"github.com/alovak/paymentflow/internal/store"
	"github.com/alovak/paymentflow/protocol"
)

// App is the flowd participant service: an HTTP bridge that feeds inbound
// protocol envelopes into the stage dispatcher and returns the outbound
// envelopes (ack, audit events, terminal) to the caller. The bridge is a
// stand-in for whatever transport an orchestrator uses in production.
type App struct {
	srv         *http.Server
	wg          *sync.WaitGroup
	Addr        string
	logger      *slog.Logger
	config      *Config
	store       *store.ResponseStore
	participant *protocol.ParticipantSession

	mu sync.Mutex
	// outbound envelopes of the in-flight invocation
	outbound []protocol.Message
}

func NewApp(logger *slog.Logger, config *Config) *App {
	logger = logger.With(slog.String("app", "flowd"))

	if config == nil {
		config = DefaultConfig()
	}

	return &App{
		wg:     &sync.WaitGroup{},
		logger: logger,
		config: config,
	}
}

func (a *App) Start() error {
	a.logger.Info("starting app...")

	switch a.config.StoreBackend {
	case "pg":
		if a.config.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required for pg backend")
		}
		db, err := sql.Open("postgres", a.config.DBDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxIdleConns(5)
		db.SetMaxOpenConns(10)
		if err := db.Ping(); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		a.store = store.NewPGResponseStore(db)
	case "mem":
		a.store = store.NewResponseStore()
	default:
		return fmt.Errorf("unsupported STORE_BACKEND=%s", a.config.StoreBackend)
	}

	dispatcher := flow.NewDispatcher(a.logger)
	registerHandlers(dispatcher, a.logger)
	a.participant = protocol.NewParticipantSession(a.logger, channelFunc(a.collect), dispatcher, a.config.SenderVersion, nil)

	router := chi.NewRouter()
	router.Use(middleware.NewStructuredLogger(a.logger))
	a.appendRoutes(router)

	l, err := net.Listen("tcp", a.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening tcp port: %w", err)
	}

	a.Addr = l.Addr().String()

	a.srv = &http.Server{
		Handler: router,
	}

	a.wg.Add(1)
	go func() {
		a.logger.Info("http server started", slog.String("addr", a.Addr))

		if err := a.srv.Serve(l); err != nil {
			if err != http.ErrServerClosed {
				a.logger.Error("starting http server", "err", err)
			}

			a.logger.Info("http server stopped")
		}

		a.wg.Done()
	}()

	return nil
}

func (a *App) Shutdown() {
	a.logger.Info("shutting down app...")

	a.srv.Shutdown(context.Background())
	a.wg.Wait()

	a.logger.Info("app stopped")
}

// channelFunc adapts a function to the protocol.Channel interface.
type channelFunc func(ctx context.Context, msg protocol.Message) error

func (f channelFunc) Send(ctx context.Context, msg protocol.Message) error {
	return f(ctx, msg)
}

func (a *App) collect(_ context.Context, msg protocol.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outbound = append(a.outbound, msg)
	return nil
}

func (a *App) takeOutbound() []protocol.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.outbound
	a.outbound = nil
	return out
}

func (a *App) appendRoutes(r chi.Router) {
	r.Post("/stages/{stage}", a.handleStage)
	r.Post("/events/{event}", a.handleEvent)
	r.Get("/responses/{correlationID}", a.getStoredResponse)

	r.Get("/-/live", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/-/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.store.Ping(ctx); err != nil {
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

// handleStage runs one stage invocation. The request body is a REQUEST
// envelope; the response body is the ordered list of envelopes the
// participant produced (ack, audit events, terminal).
func (a *App) handleStage(w http.ResponseWriter, r *http.Request) {
	stageName := chi.URLParam(r, "stage")

	var msg protocol.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	correlationID := r.Header.Get("X-Correlation-Id")
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	if err := a.participant.HandleRequest(r.Context(), stageName, msg); err != nil {
		a.logger.Error("handling stage request", "err", err)
	}

	outbound := a.takeOutbound()
	for _, m := range outbound {
		if m.Type != protocol.MessageTypeResponse {
			continue
		}
		err := a.store.Put(r.Context(), store.Entry{
			CorrelationID: correlationID,
			Stage:         stageName,
			Payload:       m.Payload,
		})
		if err != nil {
			a.logger.Warn("storing response", "err", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Correlation-Id", correlationID)
	json.NewEncoder(w).Encode(outbound)
}

func (a *App) handleEvent(w http.ResponseWriter, r *http.Request) {
	event := flow.Event(chi.URLParam(r, "event"))

	data := map[string]string{}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&data)
	}

	a.participant.DeliverEvent(event, data)
	w.WriteHeader(http.StatusAccepted)
}

// getStoredResponse serves redelivery lookups by correlation id.
func (a *App) getStoredResponse(w http.ResponseWriter, r *http.Request) {
	correlationID := chi.URLParam(r, "correlationID")

	entry, err := a.store.Get(r.Context(), correlationID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}
