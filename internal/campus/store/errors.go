package store

import "github.com/campuspass/server/internal/apperr"

// Domain outcomes. Messages are shown to callers as-is.
var (
	ErrDuplicateName = apperr.New(apperr.KindDuplicate, "duplicate_name", "user name already exists")
	ErrUserNotFound  = apperr.New(apperr.KindNotFound, "user_not_found", "user not found")
	ErrWrongPassword = apperr.New(apperr.KindCredential, "wrong_password", "password is incorrect")
	ErrEmptyName     = apperr.New(apperr.KindValidation, "empty_name", "user name is required")
	ErrEmptyPassword = apperr.New(apperr.KindValidation, "empty_password", "password is required")

	ErrDuplicateCode     = apperr.New(apperr.KindDuplicate, "duplicate_sensor_code", "sensor id already exists")
	ErrDuplicateLocation = apperr.New(apperr.KindDuplicate, "duplicate_location", "location is already occupied")
	ErrSensorNotFound    = apperr.New(apperr.KindNotFound, "sensor_not_found", "sensor not found")
	ErrSensorInactive    = apperr.New(apperr.KindValidation, "sensor_inactive", "sensor is not active")
	ErrEmptySensorCode   = apperr.New(apperr.KindValidation, "empty_sensor_code", "sensor id is required")

	ErrVehicleAlreadyRegistered = apperr.New(apperr.KindDuplicate, "vehicle_registered", "vehicle already registered")
	ErrOwnerNotFound            = apperr.New(apperr.KindNotFound, "owner_not_found", "registering user not found")
	ErrVehicleNotFound          = apperr.New(apperr.KindNotFound, "vehicle_not_found", "vehicle not found")
	ErrEmptyVehicleCode         = apperr.New(apperr.KindValidation, "empty_vehicle_code", "vehicle id is required")

	ErrInvalidTimestamp = apperr.New(apperr.KindValidation, "invalid_timestamp", "timestamps must be YYYY-MM-DD HH:MM:SS")
)
