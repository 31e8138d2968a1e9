package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/campuspass/server/internal/apperr"
	"github.com/campuspass/server/internal/campus/service"
	"github.com/campuspass/server/internal/campus/types"
	"github.com/campuspass/server/internal/db"
	"github.com/campuspass/server/internal/logging"
)

type Dependencies struct {
	Logger *slog.Logger
	Addr   string
	Engine *service.Engine
	Ingest *service.IngestService
	// Manager, when set, scopes one store session to each request.
	Manager *db.Manager
	// Health reports whether the store is usable; nil means always healthy.
	Health func(ctx context.Context) error
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	mux        *http.ServeMux
	engine     *service.Engine
	ingest     *service.IngestService
	health     func(ctx context.Context) error
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()
	logger := d.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Server{
		logger: logger,
		mux:    mux,
		engine: d.Engine,
		ingest: d.Ingest,
		health: d.Health,
	}

	mux.HandleFunc("POST /v1/passage", s.handlePassage)
	mux.HandleFunc("GET /v1/vehicles", s.handleListVehicles)
	mux.HandleFunc("GET /v1/vehicles/{code}", s.handleGetVehicle)
	mux.HandleFunc("GET /v1/vehicles/{code}/passages", s.handleVehiclePassages)
	mux.HandleFunc("GET /v1/sensors", s.handleListSensors)
	mux.HandleFunc("GET /v1/sensors/{code}", s.handleGetSensor)
	mux.HandleFunc("GET /v1/sensors/{code}/passages", s.handleSensorPassages)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	handler := requestIDMiddleware(loggingMiddleware(logger, sessionMiddleware(d.Manager, mux)))

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ── Ingestion ────────────────────────────────────────────────────────────────

func (s *Server) handlePassage(w http.ResponseWriter, r *http.Request) {
	asProto := isProtobuf(r)

	var req types.PassageRequest
	if asProto {
		var body structpb.Struct
		if err := readProto(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "bad_proto", "invalid protobuf body")
			return
		}
		req = passageRequestFromProto(&body)
	} else {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
			return
		}
	}

	resp, err := s.ingest.Ingest(r.Context(), req)
	status := http.StatusOK
	if err != nil {
		status = apperr.KindOf(err).HTTPStatus()
		if errors.Is(err, service.ErrThrottled) {
			status = http.StatusTooManyRequests
		}
	}

	if asProto {
		writeProto(w, status, passageResponseToProto(resp))
		return
	}
	writeJSON(w, status, resp)
}

// ── Queries ──────────────────────────────────────────────────────────────────

// pageParams reads ?cursor=&limit=. Absent values fall back to the
// listing defaults.
func pageParams(r *http.Request) (limit, offset int, ok bool) {
	q := r.URL.Query()
	parse := func(key string) (int, bool) {
		v := q.Get(key)
		if v == "" {
			return 0, true
		}
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	limit, okLimit := parse("limit")
	offset, okCursor := parse("cursor")
	return limit, offset, okLimit && okCursor
}

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_page", "cursor and limit must be integers")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.GetVehicles(r.Context(), limit, offset))
}

func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.GetVehicleStatus(r.Context(), r.PathValue("code")))
}

func (s *Server) handleVehiclePassages(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_page", "cursor and limit must be integers")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.GetPassageByVehicle(r.Context(), r.PathValue("code"), limit, offset))
}

func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_page", "cursor and limit must be integers")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.GetSensors(r.Context(), limit, offset))
}

func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.GetSensorStatus(r.Context(), r.PathValue("code")))
}

// handleSensorPassages resolves the sensor code to its surrogate id first;
// an unknown code is reported like any other lookup failure.
func (s *Server) handleSensorPassages(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := pageParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_page", "cursor and limit must be integers")
		return
	}

	sensor := s.engine.GetSensorStatus(r.Context(), r.PathValue("code"))
	if !sensor.OK {
		writeJSON(w, http.StatusOK, types.PageResult[types.PassageRecord]{Message: sensor.Message})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.GetPassageBySensor(r.Context(), sensor.Data.ID, limit, offset))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "health check failed", logging.Err(err))
			writeJSON(w, http.StatusServiceUnavailable, types.Failed("store unavailable"))
			return
		}
	}
	writeJSON(w, http.StatusOK, types.Succeeded("ok"))
}
