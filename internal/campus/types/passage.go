package types

// PassageRequest is what a roadside sensor reports for one crossing.
// SensorID is the sensor's code, not its surrogate id.
type PassageRequest struct {
	VehicleID string `json:"vehicle_id"`
	SensorID  string `json:"sensor_id"`
}

type PassageResponse struct {
	OK         bool   `json:"ok"`
	Message    string `json:"message"`
	VehicleID  string `json:"vehicle_id"`
	SensorID   string `json:"sensor_id"`
	OnCampus   *bool  `json:"is_on_campus,omitempty"`
	ServerTime string `json:"server_time"`
}
