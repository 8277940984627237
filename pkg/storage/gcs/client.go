package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/angelmondragon/elitejewels-backend/pkg/config"
	"github.com/angelmondragon/elitejewels-backend/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
)

const (
	scope           = "https://www.googleapis.com/auth/devstorage.read_write"
	defaultEndpoint = "https://storage.googleapis.com"
	pingTimeout     = 5 * time.Second
)

// Client talks to the Cloud Storage JSON API for the catalog image bucket.
type Client struct {
	httpClient    *http.Client
	tokens        oauth2.TokenSource
	endpoint      string
	publicBase    string
	defaultBucket string
	logg          *logger.Logger
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Object describes a stored blob.
type Object struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	tokens, err := tokenSource(ctx, gcp)
	if err != nil {
		return nil, err
	}

	timeout := cfg.UploadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		tokens:        tokens,
		endpoint:      defaultEndpoint,
		publicBase:    strings.TrimRight(cfg.PublicBaseURL, "/"),
		defaultBucket: cfg.BucketName,
		logg:          logg,
	}
	if client.publicBase == "" {
		client.publicBase = defaultEndpoint
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}
	return client, nil
}

func tokenSource(ctx context.Context, gcp config.GCPConfig) (oauth2.TokenSource, error) {
	var raw []byte
	switch {
	case gcp.CredentialsJSON != "":
		raw = []byte(gcp.CredentialsJSON)
	case gcp.ApplicationCredentials != "":
		b, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		raw = b
	default:
		ts, err := google.DefaultTokenSource(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("default gcp credentials: %w", err)
		}
		return ts, nil
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, scope)
	if err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	return creds.TokenSource, nil
}

func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.defaultBucket
}

func (c *Client) Close() error {
	return nil
}

// Ping lists at most one object to prove the bucket is reachable with our credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokens == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", c.endpoint, url.PathEscape(c.defaultBucket))
	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return err
	}
	defer c.closeBody(ctx, resp.Body)
	return googleapi.CheckResponse(resp)
}

// Upload writes body to object in bucket (the default bucket when empty).
func (c *Client) Upload(ctx context.Context, bucket, object, contentType string, body []byte) (*Object, error) {
	if c == nil || c.tokens == nil {
		return nil, errors.New("gcs client not initialized")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	object = strings.TrimLeft(object, "/")
	if object == "" {
		return nil, errors.New("object name is required")
	}

	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", object)
	u := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", c.endpoint, url.PathEscape(bucket), q.Encode())

	resp, err := c.do(ctx, http.MethodPost, u, bytes.NewReader(body), contentType)
	if err != nil {
		return nil, err
	}
	defer c.closeBody(ctx, resp.Body)
	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("upload %s: %w", object, err)
	}

	var out Object
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &out, nil
}

// Delete removes an object; a missing object is not an error.
func (c *Client) Delete(ctx context.Context, bucket, object string) error {
	if c == nil || c.tokens == nil {
		return errors.New("gcs client not initialized")
	}
	if bucket == "" {
		bucket = c.defaultBucket
	}
	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", c.endpoint, url.PathEscape(bucket), url.PathEscape(object))
	resp, err := c.do(ctx, http.MethodDelete, u, nil, "")
	if err != nil {
		return err
	}
	defer c.closeBody(ctx, resp.Body)
	if err := googleapi.CheckResponse(resp); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil
		}
		return err
	}
	return nil
}

// PublicURL returns the anonymous read URL for an object.
func (c *Client) PublicURL(bucket, object string) string {
	if bucket == "" {
		bucket = c.defaultBucket
	}
	segments := strings.Split(strings.TrimLeft(object, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", c.publicBase, url.PathEscape(bucket), strings.Join(segments, "/"))
}

func (c *Client) do(ctx context.Context, method, u string, body io.Reader, contentType string) (*http.Response, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("gcs token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpClient.Do(req)
}

func (c *Client) closeBody(ctx context.Context, body io.Closer) {
	if err := body.Close(); err != nil && c.logg != nil {
		c.logg.Warn(ctx, "gcs: closing response body failed")
	}
}
