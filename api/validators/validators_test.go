package validators

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
)

type phoneBody struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"code" validate:"required,numeric"`
}

type productBody struct {
	Material string `json:"material" validate:"required,material"`
	Contact  string `json:"contact" validate:"omitempty,phone"`
	Lines    []struct {
		Name string `json:"name" validate:"required"`
	} `json:"lines" validate:"required,min=1,dive"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"","code":"12ab"}`))
	var body phoneBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok || details["phone"] != "is required" || details["code"] != "must be numeric" {
		t.Fatalf("unexpected details %v", pkgerrors.As(err).Details())
	}
}

func TestDecodeJSONBodyDomainTags(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"material":"platinum","contact":"12","lines":[{"name":""}]}`))
	var body productBody
	err := DecodeJSONBody(req, &body)
	details, _ := pkgerrors.As(err).Details().(map[string]string)
	if details["material"] != "must be gold or silver" {
		t.Fatalf("unexpected material detail %v", details)
	}
	if details["contact"] != "must be a phone number" {
		t.Fatalf("unexpected contact detail %v", details)
	}
	if details["lines[0].name"] != "is required" {
		t.Fatalf("expected nested path, got %v", details)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"material":"Gold","contact":"+91 98765-43210","lines":[{"name":"Ring"}]}`))
	if err := DecodeJSONBody(req, &productBody{}); err != nil {
		t.Fatalf("expected valid body, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"material":"gold","lines":[{"name":"Ring"}]} {"x":1}`))
	if err := DecodeJSONBody(req, &productBody{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected trailing data rejection, got %v", err)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"1","code":"1","extra":true}`))
	var body phoneBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIntQueryParse(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&bad=x&big=500", nil)
	page := func(name string) IntQuery { return IntQuery{Name: name, Default: 10, Min: 1, Max: 100} }
	if v, err := page("limit").Parse(req); err != nil || v != 5 {
		t.Fatalf("expected 5, got %d %v", v, err)
	}
	if v, err := page("missing").Parse(req); err != nil || v != 10 {
		t.Fatalf("expected default, got %d %v", v, err)
	}
	if _, err := page("bad").Parse(req); err == nil {
		t.Fatalf("expected non-numeric error")
	}
	if _, err := page("big").Parse(req); err == nil {
		t.Fatalf("expected range error")
	}
}

func TestSanitizeStringKeepsRunesWhole(t *testing.T) {
	if got := SanitizeString("  héllo  ", 2); got != "h" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString(" rings ", 0); got != "rings" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestReadFormFile(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", "  Rose Ring ")
	part, _ := mw.CreateFormFile("image", "ring.png")
	_, _ = part.Write([]byte("0123456789"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	if err := ParseMultipart(rec, req, 1<<20); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if FormValue(req, "name") != "Rose Ring" {
		t.Fatalf("expected trimmed name")
	}
	file, err := ReadFormFile(req, "image", 1<<20)
	if err != nil || file == nil || file.Filename != "ring.png" || len(file.Data) != 10 {
		t.Fatalf("unexpected file %+v %v", file, err)
	}
	if _, err := ReadFormFile(req, "image", 5); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected size error, got %v", err)
	}
	missing, err := ReadFormFile(req, "other", 1<<20)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing file")
	}
}
