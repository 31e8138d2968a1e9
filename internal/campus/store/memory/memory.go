// Package memory is a mutex-guarded in-process implementation of
// store.Store for service and HTTP tests. It follows the same domain rules
// as the sqlite implementation but has no contention to retry.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/campuspass/server/internal/campus/store"
	"github.com/campuspass/server/internal/campus/types"
	"github.com/campuspass/server/internal/passwd"
)

type user struct {
	types.User
	hash string
}

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	users    []*user
	sensors  []*types.Sensor
	vehicles []*types.Vehicle // insertion order
	passages []types.PassageRecord

	nextUserID    int64
	nextSensorID  int64
	nextPassageID int64
}

var _ store.Store = (*Store)(nil)

// New returns an empty store holding only the given administrator.
func New(adminName, adminPassword string) *Store {
	s := &Store{now: types.Now}
	now := s.now()
	s.nextUserID++
	s.users = append(s.users, &user{
		User: types.User{ID: s.nextUserID, Name: adminName, IsAdmin: true, CreatedAt: now, UpdatedAt: now},
		hash: passwd.Hash(adminPassword),
	})
	return s
}

// WithClock replaces the clock used for timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

// Passages returns a copy of every stored record in insertion order.
func (s *Store) Passages() []types.PassageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.PassageRecord, len(s.passages))
	copy(out, s.passages)
	return out
}

func (s *Store) stamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// ── users ─────────────────────────────────────────────────────────────────

func (s *Store) AddUser(_ context.Context, name, password string, isAdmin bool) error {
	if strings.TrimSpace(name) == "" {
		return store.ErrEmptyName
	}
	if password == "" {
		return store.ErrEmptyPassword
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userByName(name) != nil {
		return store.ErrDuplicateName
	}
	now := s.stamp()
	s.nextUserID++
	s.users = append(s.users, &user{
		User: types.User{ID: s.nextUserID, Name: name, IsAdmin: isAdmin, CreatedAt: now, UpdatedAt: now},
		hash: passwd.Hash(password),
	})
	return nil
}

func (s *Store) VerifyUser(_ context.Context, name, password string) (types.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.userByName(name)
	if u == nil || !passwd.Matches(u.hash, password) {
		return types.NoCredential, nil
	}
	return types.Credential{Matched: true, UserID: u.ID, IsAdmin: u.IsAdmin}, nil
}

func (s *Store) ChangePassword(_ context.Context, name string, oldPassword *string, newPassword string) error {
	if newPassword == "" {
		return store.ErrEmptyPassword
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.checkPassword(name, oldPassword)
	if err != nil {
		return err
	}
	u.hash = passwd.Hash(newPassword)
	u.UpdatedAt = s.stamp()
	return nil
}

func (s *Store) DeleteUser(_ context.Context, name string, password *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.checkPassword(name, password)
	if err != nil {
		return err
	}

	kept := s.vehicles[:0]
	for _, v := range s.vehicles {
		if v.OwnerID == nil || *v.OwnerID != u.ID {
			kept = append(kept, v)
		}
	}
	s.vehicles = kept

	for i, cur := range s.users {
		if cur == u {
			s.users = append(s.users[:i], s.users[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) ListUsers(_ context.Context, page types.PageRequest) ([]types.User, int, error) {
	page = page.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo, hi := window(len(s.users), page)
	out := make([]types.User, 0, hi-lo)
	for _, u := range s.users[lo:hi] {
		out = append(out, u.User)
	}
	return out, len(s.users), nil
}

func (s *Store) userByName(name string) *user {
	for _, u := range s.users {
		if u.Name == name {
			return u
		}
	}
	return nil
}

func (s *Store) userByID(id int64) *user {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Store) checkPassword(name string, password *string) (*user, error) {
	u := s.userByName(name)
	if u == nil {
		return nil, store.ErrUserNotFound
	}
	if password != nil && !passwd.Matches(u.hash, *password) {
		return nil, store.ErrWrongPassword
	}
	return u, nil
}

// ── sensors ───────────────────────────────────────────────────────────────

func (s *Store) AddSensor(_ context.Context, in types.NewSensor) error {
	if strings.TrimSpace(in.Code) == "" {
		return store.ErrEmptySensorCode
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cur := range s.sensors {
		if cur.Code == in.Code {
			return store.ErrDuplicateCode
		}
	}
	for _, cur := range s.sensors {
		if cur.Location == in.Location {
			return store.ErrDuplicateLocation
		}
	}

	now := s.stamp()
	s.nextSensorID++
	s.sensors = append(s.sensors, &types.Sensor{
		ID:          s.nextSensorID,
		Code:        in.Code,
		Location:    in.Location,
		Description: in.Description,
		Active:      in.Active,
		Gate:        in.Gate,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	return nil
}

func (s *Store) DeleteSensor(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, cur := range s.sensors {
		if cur.Code != code {
			continue
		}
		s.dropPassages(func(r types.PassageRecord) bool { return r.SensorID == cur.ID })
		s.sensors = append(s.sensors[:i], s.sensors[i+1:]...)
		return nil
	}
	return store.ErrSensorNotFound
}

func (s *Store) UpdateSensorStatus(_ context.Context, code string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sensor := s.sensorByCode(code)
	if sensor == nil {
		return store.ErrSensorNotFound
	}
	sensor.Active = active
	sensor.UpdatedAt = s.stamp()
	return nil
}

func (s *Store) GetSensor(_ context.Context, code string) (types.Sensor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sensor := s.sensorByCode(code)
	if sensor == nil {
		return types.Sensor{}, store.ErrSensorNotFound
	}
	return *sensor, nil
}

func (s *Store) ListSensors(_ context.Context, page types.PageRequest) ([]types.Sensor, int, error) {
	page = page.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo, hi := window(len(s.sensors), page)
	out := make([]types.Sensor, 0, hi-lo)
	for _, sensor := range s.sensors[lo:hi] {
		out = append(out, *sensor)
	}
	return out, len(s.sensors), nil
}

func (s *Store) sensorByCode(code string) *types.Sensor {
	for _, cur := range s.sensors {
		if cur.Code == code {
			return cur
		}
	}
	return nil
}

func (s *Store) sensorByID(id int64) *types.Sensor {
	for _, cur := range s.sensors {
		if cur.ID == id {
			return cur
		}
	}
	return nil
}

// ── vehicles ──────────────────────────────────────────────────────────────

func (s *Store) AddVehicle(_ context.Context, code string, ownerID int64, onCampus bool) error {
	if strings.TrimSpace(code) == "" {
		return store.ErrEmptyVehicleCode
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vehicleByCode(code) != nil {
		return store.ErrVehicleAlreadyRegistered
	}
	if s.userByID(ownerID) == nil {
		return store.ErrOwnerNotFound
	}

	now := s.stamp()
	owner := ownerID
	s.vehicles = append(s.vehicles, &types.Vehicle{
		Code:      code,
		OnCampus:  onCampus,
		OwnerID:   &owner,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return nil
}

func (s *Store) DeleteVehicle(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, cur := range s.vehicles {
		if cur.Code != code {
			continue
		}
		s.dropPassages(func(r types.PassageRecord) bool { return r.VehicleCode == code })
		s.vehicles = append(s.vehicles[:i], s.vehicles[i+1:]...)
		return nil
	}
	return store.ErrVehicleNotFound
}

func (s *Store) GetVehicle(_ context.Context, code string) (types.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.vehicleByCode(code)
	if v == nil {
		return types.Vehicle{}, store.ErrVehicleNotFound
	}
	return s.withOwnerName(*v), nil
}

func (s *Store) ListVehicles(_ context.Context, page types.PageRequest) ([]types.Vehicle, int, error) {
	page = page.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo, hi := window(len(s.vehicles), page)
	out := make([]types.Vehicle, 0, hi-lo)
	for _, v := range s.vehicles[lo:hi] {
		out = append(out, s.withOwnerName(*v))
	}
	return out, len(s.vehicles), nil
}

func (s *Store) vehicleByCode(code string) *types.Vehicle {
	for _, cur := range s.vehicles {
		if cur.Code == code {
			return cur
		}
	}
	return nil
}

func (s *Store) withOwnerName(v types.Vehicle) types.Vehicle {
	v.OwnerName = nil
	if v.OwnerID != nil {
		if u := s.userByID(*v.OwnerID); u != nil {
			name := u.Name
			v.OwnerName = &name
		}
	}
	return v
}

// ── passages ──────────────────────────────────────────────────────────────

func (s *Store) RecordPassage(_ context.Context, vehicleCode string, sensorID int64) (types.PassageOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.vehicleByCode(vehicleCode)
	if v == nil {
		return types.PassageOutcome{}, store.ErrVehicleNotFound
	}
	sensor := s.sensorByID(sensorID)
	if sensor == nil {
		return types.PassageOutcome{}, store.ErrSensorNotFound
	}

	at := s.stamp()
	s.nextPassageID++
	rec := types.PassageRecord{
		ID:          s.nextPassageID,
		VehicleCode: vehicleCode,
		SensorID:    sensorID,
		PassageTime: at,
		CreatedAt:   at,
	}
	s.passages = append(s.passages, rec)

	if sensor.Gate {
		v.OnCampus = !v.OnCampus
	}
	v.UpdatedAt = at

	rec.Location = sensor.Location
	return types.PassageOutcome{Record: rec, OnCampus: v.OnCampus, Toggled: sensor.Gate}, nil
}

func (s *Store) ListByVehicle(_ context.Context, vehicleCode string, page types.PageRequest) ([]types.PassageRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.vehicleByCode(vehicleCode) == nil {
		return nil, 0, store.ErrVehicleNotFound
	}
	records, total := s.pagePassages(page, func(r types.PassageRecord) bool { return r.VehicleCode == vehicleCode })
	return records, total, nil
}

func (s *Store) ListBySensor(_ context.Context, sensorID int64, page types.PageRequest) ([]types.PassageRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sensorByID(sensorID) == nil {
		return nil, 0, store.ErrSensorNotFound
	}
	records, total := s.pagePassages(page, func(r types.PassageRecord) bool { return r.SensorID == sensorID })
	return records, total, nil
}

func (s *Store) DeleteByTimeRange(_ context.Context, start, end time.Time) (int64, error) {
	from, to := start.UTC().Truncate(time.Second), end.UTC().Truncate(time.Second)
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.dropPassages(func(r types.PassageRecord) bool {
		return !r.PassageTime.Before(from) && !r.PassageTime.After(to)
	})
	return int64(n), nil
}

func (s *Store) pagePassages(page types.PageRequest, match func(types.PassageRecord) bool) ([]types.PassageRecord, int) {
	page = page.Normalize()

	var matched []types.PassageRecord
	for _, r := range s.passages {
		if match(r) {
			if sensor := s.sensorByID(r.SensorID); sensor != nil {
				r.Location = sensor.Location
			}
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].PassageTime.Equal(matched[j].PassageTime) {
			return matched[i].PassageTime.After(matched[j].PassageTime)
		}
		return matched[i].ID > matched[j].ID
	})

	lo, hi := window(len(matched), page)
	return matched[lo:hi], len(matched)
}

func (s *Store) dropPassages(drop func(types.PassageRecord) bool) int {
	kept := s.passages[:0]
	n := 0
	for _, r := range s.passages {
		if drop(r) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.passages = kept
	return n
}

func window(total int, page types.PageRequest) (int, int) {
	lo := min(page.Offset, total)
	hi := min(lo+page.Limit, total)
	return lo, hi
}
