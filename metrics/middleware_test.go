package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("fine"))
	})

	before := testutil.ToFloat64(HTTPRequests(http.MethodGet, "/items/{id}", http.StatusTeapot))
	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}
	assert.Equal(t, before+3, testutil.ToFloat64(HTTPRequests(http.MethodGet, "/items/{id}", http.StatusTeapot)))

	before = testutil.ToFloat64(HTTPRequests(http.MethodGet, "/ok", http.StatusOK))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequests(http.MethodGet, "/ok", http.StatusOK)))
}
