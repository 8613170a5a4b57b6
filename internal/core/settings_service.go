package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"cafezao-backend-go/internal/cache"
	"cafezao-backend-go/internal/db"
	"cafezao-backend-go/internal/models"
)

// settingsCacheTTL bounds how stale the external cache copy may get when the
// listener is down.
const settingsCacheTTL = 10 * time.Minute

// settingsService implements the SettingsService interface. It serves a
// snapshot kept fresh by the document listener, falling back to the cache
// and then to Firestore.
type settingsService struct {
	settingsRepo db.SettingsRepository
	cache        cache.Cache
	logger       *zap.Logger

	mu       sync.RWMutex
	snapshot *models.SystemSettings
}

// NewSettingsService creates a new SettingsService instance.
func NewSettingsService(sr db.SettingsRepository, c cache.Cache, logger *zap.Logger) SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &settingsService{
		settingsRepo: sr,
		cache:        c,
		logger:       logger,
	}
}

// Start launches the listener that keeps the snapshot fresh until ctx is
// cancelled.
func (s *settingsService) Start(ctx context.Context) {
	snaps, err := s.settingsRepo.WatchSettings(ctx)
	if err != nil {
		s.logger.Warn("settings listener unavailable", zap.Error(err))
		return
	}
	go func() {
		for settings := range snaps {
			s.store(ctx, settings)
			s.logger.Info("settings snapshot refreshed",
				zap.String("minAppVersion", settings.MinAppVersion),
				zap.Bool("maintenanceMode", settings.MaintenanceMode))
		}
	}()
}

// Get returns the current settings snapshot.
func (s *settingsService) Get(ctx context.Context) (*models.SystemSettings, error) {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	s.store(ctx, settings)
	return settings, nil
}

// VersionAllowed compares a dotted app version against the configured
// minimum. Malformed or empty client versions are rejected when a minimum is
// set.
func (s *settingsService) VersionAllowed(ctx context.Context, version string) (bool, string, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return false, "", err
	}
	min := settings.MinAppVersion
	if min == "" {
		return true, "", nil
	}
	return CompareVersions(version, min) >= 0, min, nil
}

func (s *settingsService) store(ctx context.Context, settings *models.SystemSettings) {
	s.mu.Lock()
	s.snapshot = settings
	s.mu.Unlock()

	if s.cache == nil {
		return
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.SettingsKey, string(data), settingsCacheTTL); err != nil {
		s.logger.Warn("failed to mirror settings to cache", zap.Error(err))
	}
}

func (s *settingsService) fromCache(ctx context.Context) *models.SystemSettings {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, cache.SettingsKey)
	if err != nil || raw == "" {
		return nil
	}
	var settings models.SystemSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.logger.Warn("discarding malformed cached settings", zap.Error(err))
		return nil
	}
	settings.ApplyDefaults()
	return &settings
}

// CompareVersions compares two dotted version strings numerically, segment
// by segment. Missing segments count as zero; non-numeric segments count as
// zero too, which makes a garbage client version lose against any real
// minimum.
func CompareVersions(a, b string) int {
	as := strings.Split(strings.TrimSpace(a), ".")
	bs := strings.Split(strings.TrimSpace(b), ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}
