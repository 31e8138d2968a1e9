package httpapi

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/campuspass/server/internal/campus/types"
)

// ── Passage ──────────────────────────────────────────────────────────────────

// passageRequestFromProto reads the report fields out of a Struct body.
// Missing or non-string fields come back empty and fail validation later.
func passageRequestFromProto(p *structpb.Struct) types.PassageRequest {
	fields := p.GetFields()
	return types.PassageRequest{
		VehicleID: fields["vehicle_id"].GetStringValue(),
		SensorID:  fields["sensor_id"].GetStringValue(),
	}
}

func passageResponseToProto(r types.PassageResponse) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"ok":          structpb.NewBoolValue(r.OK),
		"message":     structpb.NewStringValue(r.Message),
		"vehicle_id":  structpb.NewStringValue(r.VehicleID),
		"sensor_id":   structpb.NewStringValue(r.SensorID),
		"server_time": structpb.NewStringValue(r.ServerTime),
	}
	if r.OnCampus != nil {
		fields["is_on_campus"] = structpb.NewBoolValue(*r.OnCampus)
	}
	return &structpb.Struct{Fields: fields}
}
