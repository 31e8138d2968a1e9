package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campuspass/server/internal/apperr"
	"github.com/campuspass/server/internal/campus/store"
	"github.com/campuspass/server/internal/campus/types"
	"github.com/campuspass/server/internal/logging"
)

const (
	msgBusy   = "store busy, retry later"
	msgFailed = "operation failed"
)

// Engine is the operation surface handed to collaborators. Every method
// returns a result value; domain failures become (false, message) and
// nothing is returned as a Go error.
type Engine struct {
	store  store.Store
	logger *slog.Logger
}

func NewEngine(s store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{store: s, logger: logger}
}

// Store exposes the underlying repositories for in-process collaborators
// that need typed errors rather than flattened results.
func (e *Engine) Store() store.Store { return e.store }

// flatten turns err into the caller-facing message, logging anything that
// is not an ordinary domain outcome.
func (e *Engine) flatten(ctx context.Context, op string, err error) string {
	if msg, ok := apperr.Message(err); ok {
		return msg
	}
	if apperr.IsKind(err, apperr.KindContention) {
		e.logger.WarnContext(ctx, "store contention not recovered", "op", op, logging.Err(err))
		return msgBusy
	}
	e.logger.ErrorContext(ctx, "operation failed", "op", op, logging.Err(err))
	return msgFailed
}

func (e *Engine) result(ctx context.Context, op string, err error, ok string) types.Result {
	if err != nil {
		return types.Failed(e.flatten(ctx, op, err))
	}
	return types.Succeeded(ok)
}

func lookup[T any](ctx context.Context, e *Engine, op string, v T, err error) types.LookupResult[T] {
	if err != nil {
		return types.LookupResult[T]{Message: e.flatten(ctx, op, err)}
	}
	return types.LookupResult[T]{OK: true, Data: &v}
}

func paged[T any](ctx context.Context, e *Engine, op string, page types.PageRequest, items []T, total int, err error) types.PageResult[T] {
	if err != nil {
		return types.PageResult[T]{Message: e.flatten(ctx, op, err)}
	}
	if items == nil {
		items = []T{}
	}
	page = page.Normalize()
	return types.PageResult[T]{
		OK:         true,
		Data:       items,
		Total:      total,
		NextCursor: types.NextCursor(page.Offset, page.Limit, total),
	}
}

// ── users ─────────────────────────────────────────────────────────────────

func (e *Engine) AddUser(ctx context.Context, name, password string, isAdmin bool) types.Result {
	return e.result(ctx, "add_user", e.store.AddUser(ctx, name, password, isAdmin), "user added")
}

// VerifyUser reports NoCredential for an unknown name, a wrong password and
// a failed lookup alike.
func (e *Engine) VerifyUser(ctx context.Context, name, password string) types.Credential {
	cred, err := e.store.VerifyUser(ctx, name, password)
	if err != nil {
		e.flatten(ctx, "verify_user", err)
		return types.NoCredential
	}
	return cred
}

func (e *Engine) ChangePassword(ctx context.Context, name string, oldPassword *string, newPassword string) types.Result {
	return e.result(ctx, "change_password", e.store.ChangePassword(ctx, name, oldPassword, newPassword), "password changed")
}

func (e *Engine) DeleteUser(ctx context.Context, name string, password *string) types.Result {
	return e.result(ctx, "delete_user", e.store.DeleteUser(ctx, name, password), "user deleted")
}

func (e *Engine) GetUsers(ctx context.Context, limit, offset int) types.PageResult[types.User] {
	page := types.PageRequest{Limit: limit, Offset: offset}
	users, total, err := e.store.ListUsers(ctx, page)
	return paged(ctx, e, "get_users", page, users, total, err)
}

// ── sensors ───────────────────────────────────────────────────────────────

func (e *Engine) AddSensor(ctx context.Context, s types.NewSensor) types.Result {
	return e.result(ctx, "add_sensor", e.store.AddSensor(ctx, s), "sensor added")
}

func (e *Engine) DeleteSensor(ctx context.Context, code string) types.Result {
	return e.result(ctx, "delete_sensor", e.store.DeleteSensor(ctx, code), "sensor deleted")
}

func (e *Engine) UpdateSensorStatus(ctx context.Context, code string, active bool) types.Result {
	return e.result(ctx, "update_sensor_status", e.store.UpdateSensorStatus(ctx, code, active), "sensor status updated")
}

func (e *Engine) GetSensorStatus(ctx context.Context, code string) types.LookupResult[types.Sensor] {
	s, err := e.store.GetSensor(ctx, code)
	return lookup(ctx, e, "get_sensor_status", s, err)
}

func (e *Engine) GetSensors(ctx context.Context, limit, offset int) types.PageResult[types.Sensor] {
	page := types.PageRequest{Limit: limit, Offset: offset}
	sensors, total, err := e.store.ListSensors(ctx, page)
	return paged(ctx, e, "get_sensors", page, sensors, total, err)
}

// ── vehicles ──────────────────────────────────────────────────────────────

func (e *Engine) AddVehicle(ctx context.Context, code string, ownerID int64, onCampus bool) types.Result {
	return e.result(ctx, "add_vehicle", e.store.AddVehicle(ctx, code, ownerID, onCampus), "vehicle registered")
}

func (e *Engine) DeleteVehicle(ctx context.Context, code string) types.Result {
	return e.result(ctx, "delete_vehicle", e.store.DeleteVehicle(ctx, code), "vehicle deleted")
}

func (e *Engine) GetVehicleStatus(ctx context.Context, code string) types.LookupResult[types.Vehicle] {
	v, err := e.store.GetVehicle(ctx, code)
	return lookup(ctx, e, "get_vehicle_status", v, err)
}

func (e *Engine) GetVehicles(ctx context.Context, limit, offset int) types.PageResult[types.Vehicle] {
	page := types.PageRequest{Limit: limit, Offset: offset}
	vehicles, total, err := e.store.ListVehicles(ctx, page)
	return paged(ctx, e, "get_vehicles", page, vehicles, total, err)
}

// ── passages ──────────────────────────────────────────────────────────────

func (e *Engine) RecordPassage(ctx context.Context, vehicleCode string, sensorID int64) types.Result {
	out, err := e.store.RecordPassage(ctx, vehicleCode, sensorID)
	if err != nil {
		return types.Failed(e.flatten(ctx, "record_passage", err))
	}
	e.logger.DebugContext(ctx, "passage recorded",
		"vehicle", vehicleCode, "sensor", sensorID, "on_campus", out.OnCampus, "toggled", out.Toggled)
	return types.Succeeded("passage recorded")
}

func (e *Engine) GetPassageByVehicle(ctx context.Context, vehicleCode string, limit, offset int) types.PageResult[types.PassageRecord] {
	page := types.PageRequest{Limit: limit, Offset: offset}
	records, total, err := e.store.ListByVehicle(ctx, vehicleCode, page)
	return paged(ctx, e, "get_passage_by_vehicle", page, records, total, err)
}

func (e *Engine) GetPassageBySensor(ctx context.Context, sensorID int64, limit, offset int) types.PageResult[types.PassageRecord] {
	page := types.PageRequest{Limit: limit, Offset: offset}
	records, total, err := e.store.ListBySensor(ctx, sensorID, page)
	return paged(ctx, e, "get_passage_by_sensor", page, records, total, err)
}

// DeletePassageRecordsByTime removes records with start <= passage_time <=
// end. Both bounds use the stored "YYYY-MM-DD HH:MM:SS" form.
func (e *Engine) DeletePassageRecordsByTime(ctx context.Context, start, end string) types.CountResult {
	from, err := types.ParseTime(start)
	if err != nil {
		return types.CountResult{Message: store.ErrInvalidTimestamp.Message}
	}
	to, err := types.ParseTime(end)
	if err != nil {
		return types.CountResult{Message: store.ErrInvalidTimestamp.Message}
	}

	n, err := e.store.DeleteByTimeRange(ctx, from, to)
	if err != nil {
		return types.CountResult{Message: e.flatten(ctx, "delete_passage_records_by_time", err)}
	}
	return types.CountResult{OK: true, Message: fmt.Sprintf("deleted %d records", n), Affected: n}
}
