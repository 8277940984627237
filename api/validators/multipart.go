package validators

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
)

// FormFile is one uploaded file read fully into memory.
type FormFile struct {
	Filename string
	Data     []byte
}

// ParseMultipart parses a multipart form bounded by maxBytes. Oversized
// bodies fail validation instead of spilling to disk.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.New(pkgerrors.CodeValidation, "upload too large").
				WithDetails(map[string]string{"image": fmt.Sprintf("must be at most %d MB", maxBytes>>20)})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

// FormValue returns a trimmed form field.
func FormValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

// ReadFormFile reads the named file field. A missing file returns nil.
func ReadFormFile(r *http.Request, field string, maxBytes int64) (*FormFile, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid upload")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if int64(len(data)) > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload too large").
			WithDetails(map[string]string{field: fmt.Sprintf("must be at most %d MB", maxBytes>>20)})
	}
	return &FormFile{Filename: header.Filename, Data: data}, nil
}
