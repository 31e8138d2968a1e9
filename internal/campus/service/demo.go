package service

import (
	"context"
	"fmt"

	"github.com/campuspass/server/internal/campus/store"
	"github.com/campuspass/server/internal/campus/types"
)

const (
	DemoUserName     = "test_user"
	DemoUserPassword = "test123"
)

var demoSensors = []types.NewSensor{
	{Code: "sensor_001", Location: "东门", Description: "入口主传感器", Active: true, Gate: true},
	{Code: "sensor_002", Location: "西门", Description: "出口主传感器", Active: true, Gate: true},
	{Code: "sensor_003", Location: "停车场A区", Description: "停车区传感器", Active: true, Gate: false},
}

var demoPassages = []struct {
	vehicle, sensor string
}{
	{"ABC123", "sensor_001"},
	{"ABC123", "sensor_002"},
	{"XYZ789", "sensor_001"},
}

// SeedDemo fills an empty store with a demo user, two gate sensors, one
// parking sensor, two vehicles and a few passages. It stops at the first
// failure, so running it twice fails on the duplicate user.
func SeedDemo(ctx context.Context, s store.Store) error {
	if err := s.AddUser(ctx, DemoUserName, DemoUserPassword, false); err != nil {
		return fmt.Errorf("add demo user: %w", err)
	}

	for _, sensor := range demoSensors {
		if err := s.AddSensor(ctx, sensor); err != nil {
			return fmt.Errorf("add sensor %s: %w", sensor.Code, err)
		}
	}

	cred, err := s.VerifyUser(ctx, DemoUserName, DemoUserPassword)
	if err != nil {
		return fmt.Errorf("verify demo user: %w", err)
	}
	if !cred.Matched {
		return fmt.Errorf("demo user %s did not verify", DemoUserName)
	}

	for _, code := range []string{"ABC123", "XYZ789"} {
		if err := s.AddVehicle(ctx, code, cred.UserID, false); err != nil {
			return fmt.Errorf("add vehicle %s: %w", code, err)
		}
	}

	for _, p := range demoPassages {
		sensor, err := s.GetSensor(ctx, p.sensor)
		if err != nil {
			return fmt.Errorf("resolve sensor %s: %w", p.sensor, err)
		}
		if _, err := s.RecordPassage(ctx, p.vehicle, sensor.ID); err != nil {
			return fmt.Errorf("record %s at %s: %w", p.vehicle, p.sensor, err)
		}
	}
	return nil
}
