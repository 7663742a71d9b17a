package extraction

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestHandler() (*echo.Echo, *Handler) {
	e := echo.New()
	h := NewHandler(NewService(nil, nil, zerolog.Nop()))
	h.RegisterRoutes(e.Group("/api/v1"))
	return e, h
}

func TestExtractHandlerJSON(t *testing.T) {
	e, _ := newTestHandler()

	body := `{"text":"Patient is a 58-year-old female with stage IV non-small cell lung cancer."}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp extractResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Strategy != "rules" {
		t.Errorf("strategy = %q, want rules", resp.Strategy)
	}
	if resp.Features == nil || resp.Features.Age == nil || resp.Features.Age.Value != 58 {
		t.Errorf("features = %+v", resp.Features)
	}
	if resp.Concise == nil || resp.Concise.Gender != "female" {
		t.Errorf("concise = %+v", resp.Concise)
	}
}

func TestExtractHandlerForm(t *testing.T) {
	e, _ := newTestHandler()

	form := "text=" + strings.ReplaceAll("63 year old man with melanoma", " ", "+")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader(form))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestExtractHandlerEmptyText(t *testing.T) {
	e, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", strings.NewReader(`{"text":"  "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
