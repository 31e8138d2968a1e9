package types

import "time"

type User struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	IsAdmin   bool      `json:"is_admin" yaml:"is_admin"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Credential is the outcome of a password check. A missing user and a wrong
// password both produce Matched=false, UserID=-1.
type Credential struct {
	Matched bool  `json:"matched"`
	UserID  int64 `json:"user_id"`
	IsAdmin bool  `json:"is_admin"`
}

// NoCredential is the single failed-verification value.
var NoCredential = Credential{Matched: false, UserID: -1}

type Sensor struct {
	ID          int64     `json:"id" yaml:"id"`
	Code        string    `json:"sensor_id" yaml:"sensor_id"`
	Location    string    `json:"location" yaml:"location"`
	Description string    `json:"description" yaml:"description"`
	Active      bool      `json:"is_active" yaml:"is_active"`
	Gate        bool      `json:"is_gate" yaml:"is_gate"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewSensor carries the fields accepted at sensor creation.
type NewSensor struct {
	Code        string
	Location    string
	Description string
	Active      bool
	Gate        bool
}

type Vehicle struct {
	Code     string `json:"vehicle_id" yaml:"vehicle_id"`
	OnCampus bool   `json:"is_on_campus" yaml:"is_on_campus"`
	OwnerID  *int64 `json:"registered_by,omitempty" yaml:"registered_by,omitempty"`
	// OwnerName is nil when the owning user no longer exists.
	OwnerName *string   `json:"registered_by_name" yaml:"registered_by_name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

type PassageRecord struct {
	ID          int64  `json:"id" yaml:"id"`
	VehicleCode string `json:"vehicle_id" yaml:"vehicle_id"`
	SensorID    int64  `json:"sensor_id" yaml:"sensor_id"`
	// Location is empty when the sensor has since been deleted.
	Location    string    `json:"location" yaml:"location"`
	PassageTime time.Time `json:"passage_time" yaml:"passage_time"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// PassageOutcome describes what a recorded crossing did to the vehicle.
type PassageOutcome struct {
	Record   PassageRecord `json:"record"`
	OnCampus bool          `json:"is_on_campus"`
	Toggled  bool          `json:"toggled"`
}
