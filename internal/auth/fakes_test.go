package auth_test

// In-memory store fakes shared by the session, resolver and gate tests.
// The session fake guards every method with a mutex and implements Rotate
// as a genuine compare-and-swap so the concurrency tests exercise the same
// contract the MySQL repository provides.

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/hartono/bizman-backend/internal/auth"
	"github.com/hartono/bizman-backend/internal/model"
	"github.com/hartono/bizman-backend/internal/queue"
)

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uint64]model.User
}

func newFakeUserStore(users ...model.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uint64]model.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) GetByUserName(_ context.Context, userName string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.UserName == userName {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (s *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *fakeUserStore) UpdateCurrentAccessKey(_ context.Context, userID, accessKeyID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	u.CurrentAccessKey = accessKeyID
	s.users[userID] = u
	return nil
}

func (s *fakeUserStore) currentKey(userID uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].CurrentAccessKey
}

type fakeSessionStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.UserLoginSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{rows: make(map[uint64]model.UserLoginSession)}
}

func (s *fakeSessionStore) Create(_ context.Context, row model.UserLoginSession) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	row.ID = s.nextID
	row.IsActive = true
	row.LastLogin = time.Now().UTC()
	s.rows[row.ID] = row
	return row.ID, nil
}

func (s *fakeSessionStore) Rotate(_ context.Context, oldHash, newHash string, expiresAt time.Time) (model.UserLoginSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for id, row := range s.rows {
		if row.RefreshToken == oldHash && row.IsActive && row.RefreshExpiresAt.After(now) {
			row.RefreshToken = newHash
			row.RefreshExpiresAt = expiresAt
			row.ModifiedAt = now
			s.rows[id] = row
			return row, nil
		}
	}
	return model.UserLoginSession{}, auth.ErrInvalidSession
}

func (s *fakeSessionStore) Deactivate(_ context.Context, tokenHash string) (model.UserLoginSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for id, row := range s.rows {
		if row.RefreshToken == tokenHash && row.IsActive {
			row.IsActive = false
			row.IsLogout = true
			row.LastLogout = &now
			s.rows[id] = row
			return row, nil
		}
	}
	return model.UserLoginSession{}, nil
}

func (s *fakeSessionStore) DeactivateAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for id, row := range s.rows {
		if row.UserID == userID && row.IsActive {
			row.IsActive = false
			row.IsLogout = true
			row.LastLogout = &now
			s.rows[id] = row
		}
	}
	return nil
}

func (s *fakeSessionStore) ListActiveForUser(_ context.Context, userID uint64) ([]model.UserLoginSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.UserLoginSession
	for _, row := range s.rows {
		if row.UserID == userID && row.IsActive {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *fakeSessionStore) get(id uint64) (model.UserLoginSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	return row, ok
}

// expire backdates a session's refresh expiry so expiry paths can be
// tested without sleeping.
func (s *fakeSessionStore) expire(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.rows[id]
	row.RefreshExpiresAt = time.Now().UTC().Add(-time.Minute)
	s.rows[id] = row
}

type fakePresetStore struct {
	mu        sync.Mutex
	actions   []model.RoleActionPreset
	locations []model.RoleLocationPreset
	overrides []model.UserPermissionPreset
	version   uint64
}

func (s *fakePresetStore) RoleActionPresets(_ context.Context, roleID uint64) ([]model.RoleActionPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RoleActionPreset
	for _, p := range s.actions {
		if p.RoleID == roleID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePresetStore) RoleLocationPresets(_ context.Context, roleID uint64) ([]model.RoleLocationPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RoleLocationPreset
	for _, p := range s.locations {
		if p.RoleID == roleID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePresetStore) UserOverrides(_ context.Context, userID, roleID, accessKeyID uint64) ([]model.UserPermissionPreset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.UserPermissionPreset
	for _, p := range s.overrides {
		if p.UserID == userID && p.RoleID == roleID && p.AccessKeyID == accessKeyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePresetStore) Version(_ context.Context, _, _ uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, nil
}

func (s *fakePresetStore) setActions(version uint64, actions ...model.RoleActionPreset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = actions
	s.version = version
}

func (s *fakePresetStore) setLocations(locations ...model.RoleLocationPreset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = locations
}

type fakeKeyStore struct {
	mu       sync.Mutex
	entitled map[[2]uint64]bool
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{entitled: make(map[[2]uint64]bool)}
}

func (s *fakeKeyStore) grant(userID, keyID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entitled[[2]uint64{userID, keyID}] = true
}

func (s *fakeKeyStore) HasEntitlement(_ context.Context, userID, accessKeyID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entitled[[2]uint64{userID, accessKeyID}], nil
}

type recordSink struct {
	mu     sync.Mutex
	events []queue.SecurityEvent
}

func (s *recordSink) Record(_ context.Context, ev queue.SecurityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordSink) byKind(kind string) []queue.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []queue.SecurityEvent
	for _, ev := range s.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (s *recordSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Kind)
	}
	return out
}
