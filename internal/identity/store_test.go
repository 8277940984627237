package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/angelmondragon/elitejewels-backend/pkg/realtime"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSource struct {
	mu         sync.Mutex
	user       *SessionUser
	sessionErr error
	signOutErr error
	signOuts   int
	listener   func(context.Context, AuthEvent)
	stopped    int
}

func (f *fakeSource) CurrentSession(context.Context) (*SessionUser, error) {
	return f.user, f.sessionErr
}

func (f *fakeSource) SignOut(context.Context) error {
	f.signOuts++
	return f.signOutErr
}

func (f *fakeSource) OnAuthStateChange(_ context.Context, fn func(context.Context, AuthEvent)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listener = nil
		f.stopped++
	}, nil
}

func (f *fakeSource) emit(evt AuthEvent) {
	f.mu.Lock()
	fn := f.listener
	f.mu.Unlock()
	if fn != nil {
		fn(context.Background(), evt)
	}
}

type fakeProfiles struct {
	profile *models.Profile
	err     error
}

func (f *fakeProfiles) FindByID(context.Context, uuid.UUID) (*models.Profile, error) {
	return f.profile, f.err
}

func strPtr(s string) *string { return &s }

func sessionUser(id uuid.UUID) *SessionUser {
	return &SessionUser{
		ID:       id.String(),
		Email:    strPtr("asha@example.com"),
		Phone:    strPtr("+917899013601"),
		Metadata: map[string]string{"name": "Asha"},
	}
}

func TestRestoreMergesProfileOverSession(t *testing.T) {
	id := uuid.New()
	source := &fakeSource{user: sessionUser(id)}
	profiles := &fakeProfiles{profile: &models.Profile{ID: id, Name: strPtr("Asha R")}}
	store := NewStore(source, profiles, nil)

	snap := store.Restore(context.Background())
	require.True(t, snap.IsLoggedIn)
	require.NotNil(t, snap.User)
	assert.Equal(t, "Asha R", *snap.User.Name)
	assert.Equal(t, "asha@example.com", *snap.User.Email)
	assert.Equal(t, "+917899013601", *snap.User.Phone)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Message)
}

func TestRestoreFallsBackToMetadataWhenProfileMissing(t *testing.T) {
	id := uuid.New()
	store := NewStore(&fakeSource{user: sessionUser(id)}, &fakeProfiles{err: gorm.ErrRecordNotFound}, nil)

	snap := store.Restore(context.Background())
	require.True(t, snap.IsLoggedIn)
	assert.Equal(t, id.String(), snap.User.ID)
	assert.Equal(t, "Asha", *snap.User.Name)
}

func TestRestoreWithoutSessionIsLoggedOut(t *testing.T) {
	store := NewStore(&fakeSource{}, &fakeProfiles{}, nil)
	snap := store.Restore(context.Background())
	assert.False(t, snap.IsLoggedIn)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Message)
}

func TestRestoreFailuresLogOut(t *testing.T) {
	id := uuid.New()

	store := NewStore(&fakeSource{sessionErr: errors.New("network")}, &fakeProfiles{}, nil)
	snap := store.Restore(context.Background())
	assert.False(t, snap.IsLoggedIn)
	assert.Nil(t, snap.User)
	assert.Equal(t, msgRestoreFailed, snap.Message)

	store = NewStore(&fakeSource{user: sessionUser(id)}, &fakeProfiles{err: errors.New("timeout")}, nil)
	snap = store.Restore(context.Background())
	assert.False(t, snap.IsLoggedIn)
	assert.Nil(t, snap.User)
}

func TestRestoreAsyncSettles(t *testing.T) {
	store := NewStore(&fakeSource{user: sessionUser(uuid.New())}, &fakeProfiles{err: gorm.ErrRecordNotFound}, nil)
	done := store.RestoreAsync(context.Background())
	<-done
	snap := store.Snapshot()
	assert.True(t, snap.IsLoggedIn)
	assert.False(t, snap.Loading)
}

func TestLoginClosesModalOnSuccess(t *testing.T) {
	source := &fakeSource{}
	store := NewStore(source, &fakeProfiles{err: gorm.ErrRecordNotFound}, nil)
	store.ShowAuthModal()

	snap := store.Login(context.Background())
	assert.False(t, snap.IsLoggedIn)
	assert.True(t, snap.AuthModalOpen)
	assert.Equal(t, msgNoSession, snap.Message)

	source.user = sessionUser(uuid.New())
	snap = store.Login(context.Background())
	assert.True(t, snap.IsLoggedIn)
	assert.False(t, snap.AuthModalOpen)
	assert.Empty(t, snap.Message)
}

func TestLogoutClearsStateEvenWhenSignOutFails(t *testing.T) {
	source := &fakeSource{user: sessionUser(uuid.New()), signOutErr: errors.New("offline")}
	store := NewStore(source, &fakeProfiles{err: gorm.ErrRecordNotFound}, nil)
	require.True(t, store.Restore(context.Background()).IsLoggedIn)
	store.SetAuthModalOpen(true)

	snap := store.Logout(context.Background())
	assert.Equal(t, 1, source.signOuts)
	assert.False(t, snap.IsLoggedIn)
	assert.Nil(t, snap.User)
	assert.False(t, snap.AuthModalOpen)
}

func TestDemoLoginNeedsNoBackend(t *testing.T) {
	store := NewStore(nil, nil, nil)
	snap := store.DemoLogin()
	require.True(t, snap.IsLoggedIn)
	assert.Equal(t, demoUserID, snap.User.ID)

	snap = store.Logout(context.Background())
	assert.False(t, snap.IsLoggedIn)
}

func TestSubscribeToChangesReResolvesProfile(t *testing.T) {
	id := uuid.New()
	source := &fakeSource{}
	profiles := &fakeProfiles{profile: &models.Profile{ID: id, Name: strPtr("Profile Name")}}
	store := NewStore(source, profiles, nil)

	var seen []Session
	stop, err := store.SubscribeToChanges(context.Background(), func(s Session) { seen = append(seen, s) })
	require.NoError(t, err)

	source.emit(AuthEvent{Type: realtime.SignedIn, User: sessionUser(id)})
	snap := store.Snapshot()
	require.True(t, snap.IsLoggedIn)
	assert.Equal(t, "Profile Name", *snap.User.Name)

	profiles.err = errors.New("profile service down")
	source.emit(AuthEvent{Type: realtime.TokenRefreshed, User: sessionUser(id)})
	snap = store.Snapshot()
	require.True(t, snap.IsLoggedIn, "lookup failure during change keeps the session")
	assert.Equal(t, "Asha", *snap.User.Name)

	source.emit(AuthEvent{Type: realtime.SignedOut})
	snap = store.Snapshot()
	assert.False(t, snap.IsLoggedIn)
	assert.Nil(t, snap.User)
	assert.Len(t, seen, 3)

	stop()
	store.Close()
	assert.Equal(t, 1, source.stopped)
	source.emit(AuthEvent{Type: realtime.SignedIn, User: sessionUser(id)})
	assert.False(t, store.Snapshot().IsLoggedIn)
}

func TestSnapshotIsACopy(t *testing.T) {
	store := NewStore(nil, nil, nil)
	snap := store.DemoLogin()
	snap.User.ID = "mutated"
	assert.Equal(t, demoUserID, store.Snapshot().User.ID)
}
