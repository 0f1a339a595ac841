package auth_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hartono/bizman-backend/internal/auth"
	"github.com/hartono/bizman-backend/internal/config"
	"github.com/hartono/bizman-backend/internal/model"
	"github.com/hartono/bizman-backend/internal/queue"
	"github.com/hartono/bizman-backend/internal/utils"
)

const (
	testUserID = uint64(9)
	testRoleID = uint64(1)
	testKeyID  = uint64(5)
	testSecret = "test-secret"
)

type managerEnv struct {
	users    *fakeUserStore
	sessions *fakeSessionStore
	presets  *fakePresetStore
	keys     *fakeKeyStore
	sink     *recordSink
	mgr      *auth.Manager
}

func newManagerEnv(t *testing.T) *managerEnv {
	t.Helper()
	hash, err := utils.HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)

	e := &managerEnv{
		users: newFakeUserStore(model.User{
			ID:               testUserID,
			UserName:         "budi",
			PasswordHash:     hash,
			RoleID:           testRoleID,
			StatusID:         model.StatusActive,
			CurrentAccessKey: testKeyID,
		}),
		sessions: newFakeSessionStore(),
		presets:  &fakePresetStore{},
		keys:     newFakeKeyStore(),
		sink:     &recordSink{},
	}
	e.presets.setActions(0,
		roleAction(testRoleID, moduleInventory, actionView),
		roleAction(testRoleID, moduleInventory, actionEdit),
	)
	e.keys.grant(testUserID, testKeyID)

	cfg := config.Config{
		JWTSecret:      testSecret,
		AccessTTLMin:   15,
		RefreshTTLDays: 30,
		BcryptCost:     bcrypt.MinCost,
	}
	e.mgr = auth.NewManager(cfg, e.users, e.sessions, e.keys,
		&auth.SnapshotSource{Presets: e.presets}, e.sink)
	return e
}

func TestLoginIssuesSessionAndTokens(t *testing.T) {
	e := newManagerEnv(t)

	pair, err := e.mgr.Login(context.Background(), "budi", "s3cret", auth.Device{
		Info: "android/pixel-8", IP: "10.0.0.7", UserAgent: "okhttp/4.12",
	})
	require.NoError(t, err)
	require.NotEmpty(t, pair.Refresh.Raw)

	cl, err := utils.ParseAccessClaims(testSecret, pair.Access.Token)
	require.NoError(t, err)
	require.Equal(t, testUserID, cl.UserID)
	require.Equal(t, testRoleID, cl.RoleID)
	require.Equal(t, testKeyID, cl.AccessKeyID)

	row, ok := e.sessions.get(pair.SessionID)
	require.True(t, ok)
	require.True(t, row.IsActive)
	require.False(t, row.IsLogout)
	require.Equal(t, "android/pixel-8", row.DeviceInfo)
	// Only the hash of the refresh token is persisted.
	require.Equal(t, utils.HashRefreshRaw(pair.Refresh.Raw), row.RefreshToken)
	require.Contains(t, e.sink.kinds(), queue.EventLogin)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	e := newManagerEnv(t)

	_, err := e.mgr.Login(context.Background(), "budi", "wrong", auth.Device{})
	require.ErrorIs(t, err, auth.ErrAuthFailed)

	_, err = e.mgr.Login(context.Background(), "nobody", "s3cret", auth.Device{})
	require.ErrorIs(t, err, auth.ErrAuthFailed)
}

func TestLoginInactiveUser(t *testing.T) {
	e := newManagerEnv(t)
	e.users.mu.Lock()
	u := e.users.users[testUserID]
	u.StatusID = model.StatusInactive
	e.users.users[testUserID] = u
	e.users.mu.Unlock()

	_, err := e.mgr.Login(context.Background(), "budi", "s3cret", auth.Device{})
	require.ErrorIs(t, err, auth.ErrAuthFailed)
}

func TestRefreshRotationIsSingleUse(t *testing.T) {
	e := newManagerEnv(t)
	pair, err := e.mgr.Login(context.Background(), "budi", "s3cret", auth.Device{})
	require.NoError(t, err)

	next, err := e.mgr.Refresh(context.Background(), pair.Refresh.Raw)
	require.NoError(t, err)
	require.NotEqual(t, pair.Refresh.Raw, next.Refresh.Raw)
	require.Equal(t, pair.SessionID, next.SessionID, "rotation reuses the session row")

	// The rotated-away token must never work again.
	_, err = e.mgr.Refresh(context.Background(), pair.Refresh.Raw)
	require.ErrorIs(t, err, auth.ErrInvalidSession)

	// The replacement still does.
	_, err = e.mgr.Refresh(context.Background(), next.Refresh.Raw)
	require.NoError(t, err)
}

func TestConcurrentRefreshExactlyOneWinner(t *testing.T) {
	e := newManagerEnv(t)
	pair, err := e.mgr.Login(context.Background(), "budi", "s3cret", auth.Device{})
	require.NoError(t, err)

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.mgr.Refresh(context.Background(), pair.Refresh.Raw)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins, losses := 0, 0
	for err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, auth.ErrInvalidSession)
			losses++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, callers-1, losses)
}

func TestRefreshExpiredToken(t *testing.T) {
	e := newManagerEnv(t)
	pair, err := e.mgr.Login(context.Background(), "budi", "s3cret", auth.Device{})
	require.NoError(t, err)
	e.sessions.expire(pair.SessionID)

	_, err = e.mgr.Refresh(context.Background(), pair.Refresh.Raw)
	require.ErrorIs(t, err, auth.ErrInvalidSession)
}

func TestLogoutIsIdempotent(t *testing.T) {
	e := newManagerEnv(t)
	pair, err := e.mgr.Login(context.Background(), "budi", "s3cret", auth.Device{})
	require.NoError(t, err)

	require.NoError(t, e.mgr.Logout(context.Background(), pair.Refresh.Raw))
	row, _ := e.sessions.get(pair.SessionID)
	require.False(t, row.IsActive)
	require.True(t, row.IsLogout)
	require.NotNil(t, row.LastLogout)

	// The logout event is attributed to the user and session that ended.
	logouts := e.sink.byKind(queue.EventLogout)
	require.Len(t, logouts, 1)
	require.Equal(t, testUserID, logouts[0].UserID)
	require.Equal(t, pair.SessionID, logouts[0].SessionID)

	// Second logout is a no-op success, and refresh is dead for good.
	require.NoError(t, e.mgr.Logout(context.Background(), pair.Refresh.Raw))
	require.Len(t, e.sink.byKind(queue.EventLogout), 1, "repeat logout emits no second event")
	_, err = e.mgr.Refresh(context.Background(), pair.Refresh.Raw)
	require.ErrorIs(t, err, auth.ErrInvalidSession)
}

func TestTwoDevicesRevokeIndependently(t *testing.T) {
	e := newManagerEnv(t)
	deviceA, err := e.mgr.Login(context.Background(), "budi", "s3cret", auth.Device{Info: "device-a"})
	require.NoError(t, err)
	deviceB, err := e.mgr.Login(context.Background(), "budi", "s3cret", auth.Device{Info: "device-b"})
	require.NoError(t, err)

	require.NoError(t, e.mgr.Logout(context.Background(), deviceA.Refresh.Raw))

	rowB, _ := e.sessions.get(deviceB.SessionID)
	require.True(t, rowB.IsActive, "device B must be untouched by device A's logout")
	_, err = e.mgr.Refresh(context.Background(), deviceB.Refresh.Raw)
	require.NoError(t, err)

	list, err := e.mgr.ListSessions(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "device-b", list[0].DeviceInfo)
}

func TestRevokeAllKillsEverySession(t *testing.T) {
	e := newManagerEnv(t)
	deviceA, err := e.mgr.Login(context.Background(), "budi", "s3cret", auth.Device{})
	require.NoError(t, err)
	deviceB, err := e.mgr.Login(context.Background(), "budi", "s3cret", auth.Device{})
	require.NoError(t, err)

	require.NoError(t, e.mgr.RevokeAll(context.Background(), testUserID))

	for _, pair := range []auth.TokenPair{deviceA, deviceB} {
		row, _ := e.sessions.get(pair.SessionID)
		require.False(t, row.IsActive)
		_, err := e.mgr.Refresh(context.Background(), pair.Refresh.Raw)
		require.ErrorIs(t, err, auth.ErrInvalidSession)
	}

	list, err := e.mgr.ListSessions(context.Background(), testUserID)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestChangeAccessKeyWithoutEntitlement(t *testing.T) {
	e := newManagerEnv(t)

	_, err := e.mgr.ChangeAccessKey(context.Background(), testUserID, 77)
	require.ErrorIs(t, err, auth.ErrForbidden)
	require.Equal(t, testKeyID, e.users.currentKey(testUserID), "current_access_key must stay unchanged on denial")
}

func TestChangeAccessKeyEntitled(t *testing.T) {
	e := newManagerEnv(t)
	const newKey = uint64(6)
	e.keys.grant(testUserID, newKey)

	access, err := e.mgr.ChangeAccessKey(context.Background(), testUserID, newKey)
	require.NoError(t, err)
	require.Equal(t, newKey, e.users.currentKey(testUserID))

	cl, err := utils.ParseAccessClaims(testSecret, access.Token)
	require.NoError(t, err)
	require.Equal(t, newKey, cl.AccessKeyID)
}

func TestChangeAccessKeyEmptyCapabilitySet(t *testing.T) {
	e := newManagerEnv(t)
	const newKey = uint64(6)
	e.keys.grant(testUserID, newKey)
	// Drop every role grant: the user resolves to zero capabilities under
	// the new key, which must block the switch.
	e.presets.setActions(1)

	_, err := e.mgr.ChangeAccessKey(context.Background(), testUserID, newKey)
	require.ErrorIs(t, err, auth.ErrForbidden)
	require.Equal(t, testKeyID, e.users.currentKey(testUserID))
}
