package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/phrazzld/certquest-api/internal/config"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, LogLevel: "debug", ShutdownTimeout: time.Second},
		Database: config.DatabaseConfig{
			URL:             "postgres://certquest@localhost:5432/certquest",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Minute,
		},
		Redis: config.RedisConfig{KeyPrefix: "test", SessionTTL: time.Minute},
		Auth: config.AuthConfig{
			JWTSecret:            strings.Repeat("s", 32),
			TokenLifetimeMinutes: 60,
		},
		SRS: config.SRSConfig{
			InitialEasiness: 2.5,
			MinEasiness:     1.3,
			PassThreshold:   3,
			FirstInterval:   1,
			SecondInterval:  6,
			DueLimit:        20,
		},
		Adaptive: config.AdaptiveConfig{
			UpdateRate:          0.1,
			DomainUpdateRate:    0.15,
			MomentumDecay:       0.9,
			MomentumStep:        0.3,
			MomentumThreshold:   0.3,
			WindowSize:          20,
			StabilityWindow:     10,
			StabilityMinSamples: 5,
			WeakThreshold:       0.5,
			StrongThreshold:     0.8,
			DifficultySpread:    1,
			CandidateLimit:      50,
		},
		PvP: config.PvPConfig{
			KFactor:          32,
			DefaultRating:    1200,
			BotIDThreshold:   9000,
			InitialRadius:    200,
			RadiusStep:       50,
			StepInterval:     10 * time.Second,
			MaxRadius:        500,
			MaxWait:          30 * time.Second,
			StaleAfter:       10 * time.Minute,
			SweepInterval:    0,
			LeaderboardLimit: 100,
		},
		Season: config.SeasonConfig{SoftResetBaseline: 1200, SoftResetPct: 0.5},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) (*application, *miniredis.Miniredis) {
	t.Helper()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l, _ := logger.NewTestLogger()
	app, err := newApplication(cfg, l, db, rdb)
	require.NoError(t, err)
	return app, mr
}

func TestNewApplication_Health(t *testing.T) {
	app, mr := newTestApp(t, testConfig())
	router := app.router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mr.Close()

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewApplication_ServesPublicRoutes(t *testing.T) {
	app, _ := newTestApp(t, testConfig())

	rec := httptest.NewRecorder()
	app.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pvp/tiers", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "grandmaster")

	rec = httptest.NewRecorder()
	app.router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/review/cards/due", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewApplication_RejectsInvalidConfig(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	t.Run("short jwt secret", func(t *testing.T) {
		cfg := testConfig()
		cfg.Auth.JWTSecret = "short"
		_, err := newApplication(cfg, nil, db, rdb)
		assert.Error(t, err)
	})

	t.Run("stale timeout below bot wait", func(t *testing.T) {
		cfg := testConfig()
		cfg.PvP.StaleAfter = cfg.PvP.MaxWait
		_, err := newApplication(cfg, nil, db, rdb)
		assert.Error(t, err)
	})

	t.Run("missing redis", func(t *testing.T) {
		_, err := newApplication(testConfig(), nil, db, nil)
		assert.Error(t, err)
	})
}

func TestPvPConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.PvP.KFactor = 24
	cfg.PvP.RatingFloor = 100
	cfg.Season.SoftResetOnStart = true

	got := pvpConfig(cfg.PvP, cfg.Season)
	assert.InDelta(t, 24.0, got.Rating.KFactor, 1e-9)
	assert.Equal(t, 100, got.Rating.Floor)
	assert.Equal(t, int64(9000), got.Rating.BotIDThreshold)
	assert.Equal(t, 500, got.Matchmaking.MaxRadius)
	assert.Equal(t, 30*time.Second, got.Matchmaking.MaxWait)
	assert.Equal(t, 10*time.Minute, got.StaleAfter)
	assert.True(t, got.SoftResetOnStart)
	assert.Equal(t, 1200, got.SoftResetBaseline)
}

func TestSRSAndAdaptiveParams(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	p := srsParams(cfg.SRS)
	assert.InDelta(t, 2.5, p.InitialEasiness, 1e-9)
	assert.Equal(t, 6, p.SecondInterval)

	a := adaptiveParams(cfg.Adaptive)
	assert.Equal(t, 20, a.WindowSize)
	assert.InDelta(t, 0.8, a.StrongThreshold, 1e-9)
	assert.Equal(t, 1, a.DifficultySpread)
}
