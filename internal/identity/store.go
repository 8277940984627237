// Package identity holds the shopper session state: who is logged in, their
// resolved profile fields and whether the auth modal is open.
package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/angelmondragon/elitejewels-backend/pkg/db/models"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/realtime"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	msgNoSession      = "No active session. Please sign in again."
	msgRestoreFailed  = "We couldn't restore your session. Please sign in again."
	msgLoginFailed    = "Login failed. Please try again."
	demoUserID        = "demo-user"
	demoUserName      = "Demo Shopper"
	demoUserEmail     = "demo@elitejewels.in"
	metadataNameField = "name"
)

// SessionUser is the authenticated identity as the auth backend reports it.
type SessionUser struct {
	ID       string            `json:"id"`
	Email    *string           `json:"email,omitempty"`
	Phone    *string           `json:"phone,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AuthEvent is one asynchronous session change. User is nil on sign-out.
type AuthEvent struct {
	Type realtime.ChangeType
	User *SessionUser
}

// SessionSource is the auth backend contract the store consumes.
type SessionSource interface {
	CurrentSession(ctx context.Context) (*SessionUser, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(ctx context.Context, fn func(context.Context, AuthEvent)) (func(), error)
}

// ProfileFinder loads the profile row for a user id. A missing row is
// reported as gorm.ErrRecordNotFound.
type ProfileFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// User is the resolved shopper identity.
type User struct {
	ID    string  `json:"id"`
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// Session is a point-in-time copy of the store state. User is non-nil iff
// IsLoggedIn.
type Session struct {
	IsLoggedIn    bool   `json:"is_logged_in"`
	User          *User  `json:"user"`
	AuthModalOpen bool   `json:"auth_modal_open"`
	Loading       bool   `json:"loading"`
	Message       string `json:"message,omitempty"`
}

// Store mediates restore, login, logout and change notifications for one
// shopper session.
type Store struct {
	source   SessionSource
	profiles ProfileFinder
	logg     *logger.Logger

	mu          sync.Mutex
	state       Session
	unsubscribe func()
}

func NewStore(source SessionSource, profiles ProfileFinder, logg *logger.Logger) *Store {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{source: source, profiles: profiles, logg: logg}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Restore resolves an existing session. No session or any lookup failure
// leaves the store logged out.
func (s *Store) Restore(ctx context.Context) Session {
	s.setLoading(true)
	user, failed := s.resolveStrict(ctx, "identity.restore")
	msg := ""
	if failed {
		msg = msgRestoreFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setUserLocked(user)
	s.state.Message = msg
	s.state.Loading = false
	return s.copyLocked()
}

// RestoreAsync runs Restore on its own goroutine. The returned channel is
// closed once the state has settled; Loading is true until then.
func (s *Store) RestoreAsync(ctx context.Context) <-chan struct{} {
	s.setLoading(true)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Restore(ctx)
	}()
	return done
}

// Login re-reads the session after an external sign-in step. Success closes
// the auth modal; anything else forces the logged-out state.
func (s *Store) Login(ctx context.Context) Session {
	s.setLoading(true)
	user, failed := s.resolveStrict(ctx, "identity.login")
	msg := ""
	switch {
	case failed:
		msg = msgLoginFailed
	case user == nil:
		msg = msgNoSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setUserLocked(user)
	s.state.Message = msg
	if user != nil {
		s.state.AuthModalOpen = false
	}
	s.state.Loading = false
	return s.copyLocked()
}

// Logout signs out remotely and always clears local state, even when the
// remote call fails.
func (s *Store) Logout(ctx context.Context) Session {
	if s.source != nil {
		if err := s.source.SignOut(ctx); err != nil {
			s.logg.Error(ctx, "identity.logout.sign_out_failed", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setUserLocked(nil)
	s.state.AuthModalOpen = false
	s.state.Message = ""
	return s.copyLocked()
}

// DemoLogin installs a fixed identity without contacting the auth backend.
func (s *Store) DemoLogin() Session {
	name, email := demoUserName, demoUserEmail
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setUserLocked(&User{ID: demoUserID, Name: &name, Email: &email})
	s.state.AuthModalOpen = false
	s.state.Message = ""
	return s.copyLocked()
}

func (s *Store) ShowAuthModal() { s.SetAuthModalOpen(true) }

func (s *Store) SetAuthModalOpen(open bool) {
	s.mu.Lock()
	s.state.AuthModalOpen = open
	s.mu.Unlock()
}

// SubscribeToChanges registers for auth-state events. Sign-out clears the
// session; other events re-resolve the profile, falling back to the session
// metadata when the profile lookup fails. fn, when set, receives the state
// after each event. The returned func unregisters; Close does the same.
func (s *Store) SubscribeToChanges(ctx context.Context, fn func(Session)) (func(), error) {
	if s.source == nil {
		return nil, errors.New("session source is required")
	}
	stop, err := s.source.OnAuthStateChange(ctx, func(evtCtx context.Context, evt AuthEvent) {
		snap := s.applyEvent(evtCtx, evt)
		if fn != nil {
			fn(snap)
		}
	})
	if err != nil {
		return nil, err
	}

	var once sync.Once
	unsubscribe := func() { once.Do(stop) }

	s.mu.Lock()
	prev := s.unsubscribe
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	if prev != nil {
		prev()
	}
	return unsubscribe, nil
}

// Close drops the change registration, if any.
func (s *Store) Close() {
	s.mu.Lock()
	stop := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (s *Store) applyEvent(ctx context.Context, evt AuthEvent) Session {
	if evt.Type == realtime.SignedOut || evt.User == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.setUserLocked(nil)
		return s.copyLocked()
	}

	user, err := s.resolveProfile(ctx, evt.User)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "user_id", evt.User.ID), "identity.change.profile_lookup_failed")
		user = fromSession(evt.User)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setUserLocked(user)
	return s.copyLocked()
}

// resolveStrict reads the current session and profile. A nil user with
// failed=false means there is simply no session.
func (s *Store) resolveStrict(ctx context.Context, event string) (user *User, failed bool) {
	if s.source == nil {
		return nil, false
	}
	sessionUser, err := s.source.CurrentSession(ctx)
	if err != nil {
		s.logg.Error(ctx, event+".session_failed", err)
		return nil, true
	}
	if sessionUser == nil {
		return nil, false
	}
	user, err = s.resolveProfile(ctx, sessionUser)
	if err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, sessionUser.ID), event+".profile_failed", err)
		return nil, true
	}
	return user, false
}

// resolveProfile merges the profile row over the session fields. A missing
// row resolves to the session fields alone.
func (s *Store) resolveProfile(ctx context.Context, su *SessionUser) (*User, error) {
	if s.profiles == nil {
		return fromSession(su), nil
	}
	id, err := uuid.Parse(su.ID)
	if err != nil {
		return fromSession(su), nil
	}
	profile, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fromSession(su), nil
		}
		return nil, err
	}
	if profile == nil {
		return fromSession(su), nil
	}
	base := fromSession(su)
	return &User{
		ID:    profile.ID.String(),
		Name:  firstNonNil(profile.Name, base.Name),
		Email: firstNonNil(profile.Email, base.Email),
		Phone: firstNonNil(profile.Phone, base.Phone),
	}, nil
}

func fromSession(su *SessionUser) *User {
	u := &User{ID: su.ID, Email: su.Email, Phone: su.Phone}
	if name, ok := su.Metadata[metadataNameField]; ok && name != "" {
		u.Name = &name
	}
	return u
}

func firstNonNil(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.state.Loading = v
	s.mu.Unlock()
}

func (s *Store) setUserLocked(u *User) {
	s.state.User = u
	s.state.IsLoggedIn = u != nil
}

func (s *Store) copyLocked() Session {
	out := s.state
	if s.state.User != nil {
		u := *s.state.User
		out.User = &u
	}
	return out
}
