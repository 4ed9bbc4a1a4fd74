package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metobs/internal/database"
	"metobs/internal/export"
	"metobs/internal/models"
)

// Querier runs live queries against the met service
type Querier interface {
	GetMetData(ctx context.Context, q models.Query) (models.Table, error)
}

// ObservationStore reads collected observations
type ObservationStore interface {
	GetObservations(ctx context.Context, f database.ObservationFilter) (*models.LongTable, error)
	Ping(ctx context.Context) error
}

const defaultStoredLimit = 10000

// Server represents the HTTP server
type Server struct {
	querier     Querier
	store       ObservationStore
	defaultZone *time.Location
	logger      *slog.Logger
	mux         *http.ServeMux
	srv         *http.Server
}

// NewServer creates a new HTTP server. store may be nil, in which case
// /stored-observations answers 503.
func NewServer(querier Querier, store ObservationStore, defaultZone *time.Location, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultZone == nil {
		defaultZone = time.UTC
	}
	s := &Server{
		querier:     querier,
		store:       store,
		defaultZone: defaultZone,
		logger:      logger.With("component", "server"),
		mux:         http.NewServeMux(),
	}
	s.srv = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/observations", s.handleObservations)
	s.mux.HandleFunc("/stored-observations", s.handleStoredObservations)
	s.mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler exposes the routes, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves on addr until Shutdown is called. A Shutdown that happens
// before Start makes Start return immediately.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("listening", "addr", ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// handleHealth returns the server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if s.store != nil {
		status["database"] = "ok"
		if err := s.store.Ping(r.Context()); err != nil {
			status["database"] = "unavailable"
		}
	}
	writeJSON(w, http.StatusOK, status)
}

// handleObservations runs a live query. Parameters: stations, elements, from,
// to (YYYY-MM-DD), hours, months, tz, format (wide|long), timeserietypeid and
// output (json|csv).
func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	q, err := parseQuery(params, s.defaultZone)
	if err != nil {
		s.writeError(w, err)
		return
	}

	table, err := s.querier.GetMetData(r.Context(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if params.Get("output") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		if err := export.WriteCSV(w, table); err != nil {
			s.logger.Error("failed to write csv", "err", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// handleStoredObservations reads collected observations. Parameters: stations,
// elements, from, to (YYYY-MM-DD, to inclusive), tz and limit.
func (s *Server) handleStoredObservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "observation store not configured"})
		return
	}

	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, err)
		return
	}

	table, err := s.store.GetObservations(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func parseQuery(params url.Values, defaultZone *time.Location) (models.Query, error) {
	q := models.Query{
		TimeSerieTypeID: params.Get("timeserietypeid"),
		Stations:        models.ParseCodeList(params.Get("stations")),
		Elements:        models.ParseCodeList(params.Get("elements")),
		Location:        defaultZone,
	}
	if q.TimeSerieTypeID == "" {
		q.TimeSerieTypeID = models.SupportedTimeSerieType
	}

	var err error
	if q.From, err = parseDate(params, "from"); err != nil {
		return q, err
	}
	if q.To, err = parseDate(params, "to"); err != nil {
		return q, err
	}
	if q.Hours, err = models.ParseIntList(params.Get("hours")); err != nil {
		return q, err
	}
	if q.Months, err = models.ParseIntList(params.Get("months")); err != nil {
		return q, err
	}
	if q.Format, err = models.ParseFormat(params.Get("format")); err != nil {
		return q, err
	}
	if tz := params.Get("tz"); tz != "" {
		if q.Location, err = time.LoadLocation(tz); err != nil {
			return q, &models.QueryError{Message: fmt.Sprintf("unknown time zone %q", tz)}
		}
	}
	return q, nil
}

func parseFilter(params url.Values) (database.ObservationFilter, error) {
	f := database.ObservationFilter{
		Stations: models.ParseCodeList(params.Get("stations")),
		Elements: models.ParseCodeList(params.Get("elements")),
		Timezone: params.Get("tz"),
		Limit:    defaultStoredLimit,
	}

	if params.Get("from") != "" {
		from, err := parseDate(params, "from")
		if err != nil {
			return f, err
		}
		f.From = from
	}
	if params.Get("to") != "" {
		to, err := parseDate(params, "to")
		if err != nil {
			return f, err
		}
		f.To = to.AddDate(0, 0, 1)
	}
	if limitStr := params.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			return f, &models.QueryError{Message: fmt.Sprintf("invalid limit %q", limitStr)}
		}
		f.Limit = limit
	}
	return f, nil
}

func parseDate(params url.Values, key string) (time.Time, error) {
	raw := params.Get(key)
	if raw == "" {
		return time.Time{}, &models.QueryError{Message: fmt.Sprintf("%s is required", key)}
	}
	t, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, &models.QueryError{Message: fmt.Sprintf("%s must be YYYY-MM-DD, got %q", key, raw)}
	}
	return t, nil
}

// statusFor maps query errors to 400 and upstream failures to 502
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrServiceStatus),
		errors.Is(err, models.ErrXMLParsing),
		errors.Is(err, models.ErrUnknownResponseShape):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeJSON encodes v before writing the header so an encoding failure turns
// into a 500 instead of a truncated body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "failed to encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
