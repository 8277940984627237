package validators

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
)

// IntQuery describes a bounded integer query parameter such as a page size.
type IntQuery struct {
	Name     string
	Default  int
	Min, Max int
}

// Parse reads the parameter from r. A missing or blank value yields Default.
func (q IntQuery) Parse(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(q.Name))
	if raw == "" {
		return q.Default, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").
			WithDetails(map[string]any{"field": q.Name})
	}
	if value < q.Min || value > q.Max {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between %d and %d", q.Name, q.Min, q.Max).
			WithDetails(map[string]any{"field": q.Name, "min": q.Min, "max": q.Max})
	}
	return value, nil
}

// QueryString returns the first value for key, trimmed and capped at maxLen
// bytes.
func QueryString(values url.Values, key string, maxLen int) string {
	return SanitizeString(values.Get(key), maxLen)
}

// QueryFilter is QueryString lowercased, for catalog filters where "All" and
// "all" mean the same thing.
func QueryFilter(values url.Values, key string, maxLen int) string {
	return strings.ToLower(QueryString(values, key, maxLen))
}
