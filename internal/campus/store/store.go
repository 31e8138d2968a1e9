// Package store declares the persistence contracts of the campus passage
// engine. Implementations return domain outcomes as *apperr.Error values
// (see errors.go); anything else is an unexpected failure.
package store

import (
	"context"
	"time"

	"github.com/campuspass/server/internal/campus/types"
)

type UserStore interface {
	AddUser(ctx context.Context, name, password string, isAdmin bool) error
	VerifyUser(ctx context.Context, name, password string) (types.Credential, error)
	// ChangePassword and DeleteUser skip the password check when the
	// current password is nil. Callers must gate that at a trust boundary.
	ChangePassword(ctx context.Context, name string, oldPassword *string, newPassword string) error
	DeleteUser(ctx context.Context, name string, password *string) error
	ListUsers(ctx context.Context, page types.PageRequest) ([]types.User, int, error)
}

type SensorStore interface {
	AddSensor(ctx context.Context, s types.NewSensor) error
	DeleteSensor(ctx context.Context, code string) error
	UpdateSensorStatus(ctx context.Context, code string, active bool) error
	GetSensor(ctx context.Context, code string) (types.Sensor, error)
	ListSensors(ctx context.Context, page types.PageRequest) ([]types.Sensor, int, error)
}

type VehicleStore interface {
	AddVehicle(ctx context.Context, code string, ownerID int64, onCampus bool) error
	DeleteVehicle(ctx context.Context, code string) error
	GetVehicle(ctx context.Context, code string) (types.Vehicle, error)
	ListVehicles(ctx context.Context, page types.PageRequest) ([]types.Vehicle, int, error)
}

// PassageStore records crossings and derives the on-campus state from them.
type PassageStore interface {
	// RecordPassage appends a record stamped with the current second and,
	// for gate sensors, toggles the vehicle's on-campus flag, atomically.
	RecordPassage(ctx context.Context, vehicleCode string, sensorID int64) (types.PassageOutcome, error)
	ListByVehicle(ctx context.Context, vehicleCode string, page types.PageRequest) ([]types.PassageRecord, int, error)
	ListBySensor(ctx context.Context, sensorID int64, page types.PageRequest) ([]types.PassageRecord, int, error)
	// DeleteByTimeRange removes records with start <= passage_time <= end.
	DeleteByTimeRange(ctx context.Context, start, end time.Time) (int64, error)
}

// Store bundles every repository.
type Store interface {
	UserStore
	SensorStore
	VehicleStore
	PassageStore
}
