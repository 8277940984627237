package auth

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/angelmondragon/elitejewels-backend/internal/identity"
	"github.com/angelmondragon/elitejewels-backend/internal/users"
	pkgAuth "github.com/angelmondragon/elitejewels-backend/pkg/auth"
	"github.com/angelmondragon/elitejewels-backend/pkg/realtime"
	"gorm.io/gorm"
)

// TokenSession presents one bearer token as an identity.SessionSource so the
// HTTP layer can drive an identity.Store per request.
type TokenSession struct {
	svc    *Service
	claims *pkgAuth.AccessTokenClaims
}

// SessionFor wraps claims; nil claims behave as "no session".
func (s *Service) SessionFor(claims *pkgAuth.AccessTokenClaims) *TokenSession {
	return &TokenSession{svc: s, claims: claims}
}

func (t *TokenSession) CurrentSession(ctx context.Context) (*identity.SessionUser, error) {
	if t.claims == nil {
		return nil, nil
	}
	active, err := t.svc.sessions.HasSession(ctx, t.claims.ID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, nil
	}
	user, err := t.svc.users.FindByID(ctx, t.claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toSessionUser(users.FromModel(user)), nil
}

func (t *TokenSession) SignOut(ctx context.Context) error {
	if t.claims == nil {
		return nil
	}
	return t.svc.Logout(ctx, t.claims.ID, t.claims.UserID)
}

// OnAuthStateChange subscribes to the token owner's auth topic.
func (t *TokenSession) OnAuthStateChange(ctx context.Context, fn func(context.Context, identity.AuthEvent)) (func(), error) {
	if t.claims == nil {
		return nil, errors.New("no session to watch")
	}
	sub, err := t.svc.feed.Subscribe(ctx, realtime.AuthTopic(t.claims.UserID.String()), func(evtCtx context.Context, evt realtime.Event) {
		out := identity.AuthEvent{Type: evt.Type}
		if evt.Type != realtime.SignedOut && len(evt.New) > 0 {
			var dto users.UserDTO
			if err := json.Unmarshal(evt.New, &dto); err != nil {
				t.svc.logg.Warn(evtCtx, "auth.decode_event_failed")
				return
			}
			out.User = toSessionUser(&dto)
		}
		fn(evtCtx, out)
	})
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

func toSessionUser(u *users.UserDTO) *identity.SessionUser {
	su := &identity.SessionUser{ID: u.ID.String(), Email: u.Email}
	if u.Phone != "" {
		p := u.Phone
		su.Phone = &p
	}
	if u.Name != "" {
		su.Metadata = map[string]string{"name": u.Name}
	}
	return su
}
