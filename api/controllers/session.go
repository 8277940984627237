package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/elitejewels-backend/api/middleware"
	"github.com/angelmondragon/elitejewels-backend/api/responses"
	"github.com/angelmondragon/elitejewels-backend/internal/identity"
	pkgAuth "github.com/angelmondragon/elitejewels-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
)

// SessionStoreFactory builds an identity store bound to the request's token.
// Nil claims yield a store with no session.
type SessionStoreFactory func(claims *pkgAuth.AccessTokenClaims) *identity.Store

const sseHeartbeat = 25 * time.Second

// SessionRestore resolves the caller's session. Anonymous callers get a
// logged-out snapshot, never an error.
func SessionRestore(stores SessionStoreFactory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if stores == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("session store"))
			return
		}
		store := stores(middleware.ClaimsFromContext(r.Context()))
		responses.WriteSuccess(w, store.Restore(r.Context()))
	}
}

// SessionLogin resolves the session right after the client obtained tokens.
// A failed resolution is reported in the snapshot message.
func SessionLogin(stores SessionStoreFactory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if stores == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("session store"))
			return
		}
		store := stores(middleware.ClaimsFromContext(r.Context()))
		responses.WriteSuccess(w, store.Login(r.Context()))
	}
}

// SessionLogout signs out. Local state is cleared even when revocation fails.
func SessionLogout(stores SessionStoreFactory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if stores == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("session store"))
			return
		}
		store := stores(middleware.ClaimsFromContext(r.Context()))
		responses.WriteSuccess(w, store.Logout(r.Context()))
	}
}

// SessionDemo returns the fixed demo identity without touching any backend.
func SessionDemo(stores SessionStoreFactory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := stores(nil)
		responses.WriteSuccess(w, store.DemoLogin())
	}
}

// SessionEvents streams session snapshots as server-sent events until the
// client disconnects.
func SessionEvents(stores SessionStoreFactory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if stores == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("session store"))
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}
		ctx := r.Context()
		claims := middleware.ClaimsFromContext(ctx)
		if claims == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "please log in to continue"))
			return
		}
		store := stores(claims)
		defer store.Close()

		updates := make(chan identity.Session, 8)
		if _, err := store.SubscribeToChanges(ctx, func(s identity.Session) {
			select {
			case updates <- s:
			default:
				logg.Warn(ctx, "session.events.dropped")
			}
		}); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to session changes"))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		if err := writeEvent(w, "session", store.Restore(ctx)); err != nil {
			return
		}
		flusher.Flush()

		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-updates:
				if err := writeEvent(w, "session", snap); err != nil {
					return
				}
				flusher.Flush()
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
