package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/campuspass/server/internal/apperr"
	"github.com/campuspass/server/internal/campus/store"
	"github.com/campuspass/server/internal/campus/types"
	"github.com/campuspass/server/internal/logging"
)

var (
	ErrInvalidVehicleID = apperr.New(apperr.KindValidation, "invalid_vehicle_id", "vehicle_id is required")
	ErrInvalidSensorID  = apperr.New(apperr.KindValidation, "invalid_sensor_id", "sensor_id is required")
	ErrThrottled        = apperr.New(apperr.KindContention, "ingest_throttled", "too many passage reports, retry later")
)

// IngestConfig bounds how fast sensors may report. Rate <= 0 disables the
// limit.
type IngestConfig struct {
	Rate  float64 // reports per second
	Burst int
}

// IngestService turns raw sensor reports into recorded passages. Reports
// name the sensor by code; only active sensors are accepted.
type IngestService struct {
	store   store.Store
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewIngestService(s store.Store, cfg IngestConfig, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = logging.Discard()
	}
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &IngestService{
		store:   s,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Ingest validates and records one report. The response is filled in on
// every path so adapters can echo it back; err carries the reason a report
// was dropped.
func (s *IngestService) Ingest(ctx context.Context, req types.PassageRequest) (types.PassageResponse, error) {
	vehicleID := strings.TrimSpace(req.VehicleID)
	sensorID := strings.TrimSpace(req.SensorID)

	resp := types.PassageResponse{
		VehicleID:  vehicleID,
		SensorID:   sensorID,
		ServerTime: types.FormatTime(types.Now()),
	}

	err := s.ingest(ctx, vehicleID, sensorID, &resp)
	if err != nil {
		resp.Message = s.dropReason(ctx, vehicleID, sensorID, err)
		return resp, err
	}
	return resp, nil
}

func (s *IngestService) ingest(ctx context.Context, vehicleID, sensorID string, resp *types.PassageResponse) error {
	if vehicleID == "" {
		return ErrInvalidVehicleID
	}
	if sensorID == "" {
		return ErrInvalidSensorID
	}
	if !s.limiter.Allow() {
		return ErrThrottled
	}

	sensor, err := s.store.GetSensor(ctx, sensorID)
	if err != nil {
		return err
	}
	if !sensor.Active {
		return store.ErrSensorInactive
	}

	if _, err := s.store.GetVehicle(ctx, vehicleID); err != nil {
		return err
	}

	out, err := s.store.RecordPassage(ctx, vehicleID, sensor.ID)
	if err != nil {
		return err
	}

	onCampus := out.OnCampus
	resp.OK = true
	resp.Message = "passage recorded"
	resp.OnCampus = &onCampus
	resp.ServerTime = types.FormatTime(out.Record.PassageTime)

	s.logger.InfoContext(ctx, "passage ingested",
		"vehicle", vehicleID, "sensor", sensorID, "location", sensor.Location,
		"on_campus", onCampus, "toggled", out.Toggled)
	return nil
}

func (s *IngestService) dropReason(ctx context.Context, vehicleID, sensorID string, err error) string {
	msg, domain := apperr.Message(err)
	switch {
	case domain:
		s.logger.InfoContext(ctx, "passage dropped", "vehicle", vehicleID, "sensor", sensorID, "reason", msg)
		return msg
	case errors.Is(err, ErrThrottled):
		s.logger.WarnContext(ctx, "passage throttled", "vehicle", vehicleID, "sensor", sensorID)
		return ErrThrottled.Message
	case apperr.IsKind(err, apperr.KindContention):
		s.logger.WarnContext(ctx, "passage dropped", "vehicle", vehicleID, "sensor", sensorID, logging.Err(err))
		return msgBusy
	default:
		s.logger.ErrorContext(ctx, "passage ingest failed", "vehicle", vehicleID, "sensor", sensorID, logging.Err(err))
		return msgFailed
	}
}
