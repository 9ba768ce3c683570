package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liciel/internal/config"
	apierrors "liciel/internal/errors"
	"liciel/internal/infrastructure"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{name: "generated", incoming: ""},
		{name: "propagated", incoming: "req-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen, traced string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
				traced = infrastructure.GetTraceID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.NotEmpty(t, seen)
			assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
			assert.Equal(t, seen, traced)
			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, seen)
			}
		})
	}
}

func TestRecoverer(t *testing.T) {
	h := RequestID(Recoverer(infrastructure.DiscardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/missions", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apierrors.TypeInternal, body["type"])
	assert.Equal(t, rec.Header().Get(RequestIDHeader), body["trace_id"])
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, infrastructure.DiscardLogger())
	h := rl.Handler(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestTimeout(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantCode   int
	}{
		{name: "any origin", allowed: nil, origin: "http://a.test", method: http.MethodGet, wantOrigin: "http://a.test", wantCode: http.StatusOK},
		{name: "listed origin", allowed: []string{"http://a.test"}, origin: "http://A.test", method: http.MethodGet, wantOrigin: "http://A.test", wantCode: http.StatusOK},
		{name: "unlisted origin", allowed: []string{"http://a.test"}, origin: "http://b.test", method: http.MethodGet, wantOrigin: "", wantCode: http.StatusOK},
		{name: "preflight", allowed: []string{"*"}, origin: "http://b.test", method: http.MethodOptions, wantOrigin: "http://b.test", wantCode: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(CORSConfig{AllowedOrigins: tt.allowed})(okHandler())
			req := httptest.NewRequest(tt.method, "/api/missions", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "ETag")
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestOTelMiddlewareRoutePattern(t *testing.T) {
	providers, err := infrastructure.InitializeOTel(config.TelemetryConfig{ServiceName: "liciel-test"}, infrastructure.DiscardLogger())
	require.NoError(t, err)

	m, err := NewOTelMiddleware(providers, infrastructure.DiscardLogger())
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/api/missions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/missions/M1", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestGetRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1:1234", GetRealIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", GetRealIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.3")
	assert.Equal(t, "203.0.113.7", GetRealIP(req))
}

type scanBody struct {
	Prefix  string `json:"prefix" validate:"omitempty,safename"`
	Workers int    `json:"workers" validate:"gte=0,lte=64"`
	Label   string `json:"label" validate:"required"`
}

func TestValidatorDecodeJSON(t *testing.T) {
	v := NewValidator(infrastructure.DiscardLogger(), 256)

	tests := []struct {
		name     string
		body     string
		wantCode string
		wantErr  bool
	}{
		{name: "valid", body: `{"prefix":"DPE","workers":4,"label":"x"}`},
		{name: "empty", body: ``, wantErr: true, wantCode: "EMPTY_BODY"},
		{name: "malformed", body: `{"prefix":`, wantErr: true, wantCode: "INVALID_JSON"},
		{name: "trailing", body: `{"label":"x"} {}`, wantErr: true, wantCode: "INVALID_JSON"},
		{name: "traversal", body: `{"prefix":"../etc","label":"x"}`, wantErr: true, wantCode: "VALIDATION_FAILED"},
		{name: "missing label", body: `{"workers":2}`, wantErr: true, wantCode: "VALIDATION_FAILED"},
		{name: "too many workers", body: `{"workers":100,"label":"x"}`, wantErr: true, wantCode: "VALIDATION_FAILED"},
		{name: "too large", body: `{"label":"` + strings.Repeat("a", 300) + `"}`, wantErr: true, wantCode: "PAYLOAD_TOO_LARGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/scans", strings.NewReader(tt.body))
			if tt.body == "" {
				req.Body = http.NoBody
			}
			var dst scanBody
			err := v.DecodeJSON(req, &dst)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "DPE", dst.Prefix)
				return
			}
			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
		})
	}
}

func TestValidatorFieldMessages(t *testing.T) {
	v := NewValidator(infrastructure.DiscardLogger(), 0)

	err := v.ValidateStruct(&scanBody{Prefix: "a/b", Workers: 65})
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)

	details, ok := apiErr.Details.(apierrors.ValidationErrors)
	require.True(t, ok)
	msgs := make(map[string]string)
	for _, e := range details.Errors {
		msgs[e.Field] = e.Message
	}
	assert.Equal(t, "prefix must be a plain folder name", msgs["prefix"])
	assert.Equal(t, "workers must be less than or equal to 64", msgs["workers"])
	assert.Equal(t, "label is required", msgs["label"])
}

func TestContentTypeValidator(t *testing.T) {
	eh := apierrors.NewErrorHandler(infrastructure.DiscardLogger(), false)
	h := ContentTypeValidator(eh, "application/json")(okHandler())

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{name: "get skipped", method: http.MethodGet, body: "{}", want: http.StatusOK},
		{name: "json", method: http.MethodPost, body: "{}", contentType: "application/json; charset=utf-8", want: http.StatusOK},
		{name: "missing", method: http.MethodPost, body: "{}", want: http.StatusBadRequest},
		{name: "unsupported", method: http.MethodPost, body: "{}", contentType: "text/plain", want: http.StatusUnsupportedMediaType},
		{name: "bodiless post", method: http.MethodPost, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/payloads", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestQueryParamValidator(t *testing.T) {
	qv := NewQueryParamValidator(apierrors.NewErrorHandler(infrastructure.DiscardLogger(), false))

	tests := []struct {
		query  string
		want   int
		wantOK bool
	}{
		{query: "", want: 4, wantOK: true},
		{query: "workers=8", want: 8, wantOK: true},
		{query: "workers=x", wantOK: false},
		{query: "workers=99", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			got, ok := qv.ValidateInt(rec, req, "workers", 1, 64, 4)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			}
		})
	}

	rec := httptest.NewRecorder()
	f, ok := qv.ValidateEnum(rec, httptest.NewRequest(http.MethodGet, "/?format=pdf", nil), "format", []string{"csv", "xlsx"}, "csv")
	assert.False(t, ok)
	assert.Empty(t, f)
}
