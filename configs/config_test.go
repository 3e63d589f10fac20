package config

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	var cfg struct {
		Port    string   `env:"TEST_PORT" envDefault:"8080"`
		Limit   int      `env:"TEST_LIMIT"`
		Origins []string `env:"TEST_ORIGINS" envSeparator:","`
	}

	t.Setenv("TEST_LIMIT", "42")
	t.Setenv("TEST_ORIGINS", "http://a,http://b")
	require.NoError(t, ParseEnv(&cfg))

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 42, cfg.Limit)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Origins)
}

func TestParseEnv_InvalidValue(t *testing.T) {
	var cfg struct {
		Limit int `env:"TEST_LIMIT"`
	}
	t.Setenv("TEST_LIMIT", "lots")
	assert.Error(t, ParseEnv(&cfg))
}

func TestCreateUniqueInstance(t *testing.T) {
	a := CreateUniqueInstance("test")
	b := CreateUniqueInstance("test")

	assert.NotEqual(t, a, b)
	assert.Equal(t, b, GetInstanceId())
}

func TestCustomLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := log.StandardLogger().Out
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	h := CustomLoggerMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/games", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), "GET /v1/games 418")
}
