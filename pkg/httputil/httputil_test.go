package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteForbidden(rec, "missing permission")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "missing permission", body["error"])
}

func TestParseJSONOrError(t *testing.T) {
	var dest struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name": "x"}`))
	rec := httptest.NewRecorder()
	require.True(t, ParseJSONOrError(rec, req, &dest))
	assert.Equal(t, "x", dest.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{broken`))
	rec = httptest.NewRecorder()
	require.False(t, ParseJSONOrError(rec, req, &dest))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParsePathInt64(t *testing.T) {
	router := mux.NewRouter()
	var got int64
	var ok bool
	router.HandleFunc("/thing/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, ok = ParsePathInt64OrError(w, r, "id")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/thing/42", nil))
	require.True(t, ok)
	assert.Equal(t, int64(42), got)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/thing/abc", nil))
	require.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// caller-provided id is preserved
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-7")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-7", rec.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(mw("first"), mw("second"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}
