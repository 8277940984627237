// Package media validates admin image uploads and stores them in the catalog
// bucket.
package media

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"github.com/angelmondragon/elitejewels-backend/pkg/storage/gcs"
)

const newArrivalsPrefix = "new_arrivals"

// Upload is one image received from an admin form.
type Upload struct {
	Filename string
	Data     []byte
}

// Stored describes an uploaded image.
type Stored struct {
	Object      string `json:"object"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

type objectStore interface {
	Upload(ctx context.Context, bucket, object, contentType string, body []byte) (*gcs.Object, error)
	Delete(ctx context.Context, bucket, object string) error
	PublicURL(bucket, object string) string
}

// Service stores catalog images.
type Service struct {
	store    objectStore
	bucket   string
	maxBytes int64
	timeout  time.Duration
	now      func() time.Time
	logg     *logger.Logger
}

type ServiceParams struct {
	Store    objectStore
	Bucket   string
	MaxBytes int64
	Timeout  time.Duration
	Logger   *logger.Logger
	Now      func() time.Time
}

func NewService(p ServiceParams) (*Service, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if strings.TrimSpace(p.Bucket) == "" {
		return nil, fmt.Errorf("bucket required")
	}
	if p.MaxBytes <= 0 {
		p.MaxBytes = 10 << 20
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &Service{store: p.Store, bucket: p.Bucket, maxBytes: p.MaxBytes, timeout: p.Timeout, now: p.Now, logg: p.Logger}, nil
}

// Check validates an upload without storing it.
func (s *Service) Check(img Upload) error {
	_, _, err := s.check(img)
	return err
}

// UploadProductImage stores a catalog image under <material>/<main_category>/<millis>.<ext>.
func (s *Service) UploadProductImage(ctx context.Context, material, mainCategory string, img Upload) (*Stored, error) {
	material = strings.ToLower(strings.TrimSpace(material))
	mainCategory = strings.ToLower(strings.TrimSpace(mainCategory))
	if material == "" || mainCategory == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material and main category are required")
	}
	return s.put(ctx, path.Join(material, mainCategory), img)
}

// UploadNewArrivalImage stores a homepage highlight image under new_arrivals/<millis>.<ext>.
func (s *Service) UploadNewArrivalImage(ctx context.Context, img Upload) (*Stored, error) {
	return s.put(ctx, newArrivalsPrefix, img)
}

// Discard removes a stored object. Failures are logged only.
func (s *Service) Discard(ctx context.Context, object string) {
	if object == "" {
		return
	}
	if err := s.store.Delete(ctx, s.bucket, object); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"object": object, "error": err.Error()}), "media: discarding upload failed")
	}
}

func (s *Service) check(img Upload) (string, string, error) {
	if len(img.Data) == 0 {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	}
	if int64(len(img.Data)) > s.maxBytes {
		return "", "", pkgerrors.Newf(pkgerrors.CodeValidation, "image exceeds %d bytes", s.maxBytes)
	}
	contentType, ext, err := sniffImage(img.Data)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image rejected")
	}
	return contentType, ext, nil
}

func (s *Service) put(ctx context.Context, prefix string, img Upload) (*Stored, error) {
	contentType, ext, err := s.check(img)
	if err != nil {
		return nil, err
	}
	object := path.Join(prefix, strconv.FormatInt(s.now().UnixMilli(), 10)+"."+ext)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, err := s.store.Upload(ctx, s.bucket, object, contentType, img.Data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "image upload failed")
	}
	s.logg.Info(s.logg.WithField(ctx, "object", object), "media: image stored")
	return &Stored{Object: object, URL: s.store.PublicURL(s.bucket, object), ContentType: contentType}, nil
}
