package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/elitejewels-backend/api/responses"
	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
)

const (
	deviceIDHeader  = "X-Device-Id"
	maxDeviceIDSize = 128
)

// RequireDeviceID reads the browser-scoped device id that keys favorites.
func RequireDeviceID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(deviceIDHeader))
			if !validDeviceID(id) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Device-Id header required").
					WithDetails(map[string]string{"header": deviceIDHeader}))
				return
			}
			ctx := context.WithValue(r.Context(), ctxDeviceID, id)
			if logg != nil {
				ctx = logg.WithDeviceID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validDeviceID(id string) bool {
	if id == "" || len(id) > maxDeviceIDSize {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
