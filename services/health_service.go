package services

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/MonkyMars/gecho"
)

type ServerHealthStatus struct {
	Uptime       float64   `json:"uptime"`        // in seconds
	CurrentTime  time.Time `json:"current_time"`  // server current time
	ServiceAlive bool      `json:"service_alive"` // always true if service is running
	RamStats     *RamStats `json:"ram_stats"`
}

type RamStats struct {
	TotalMB     uint64 `json:"total_mb"`
	UsedMB      uint64 `json:"used_mb"`
	FreeMB      uint64 `json:"free_mb"`
	UsedPercent uint64 `json:"used_percent"`
}

type DependencyStatus struct {
	Connected      bool   `json:"connected"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	Error          string `json:"error,omitempty"`
}

type DatabaseHealthStatus struct {
	Database     DependencyStatus `json:"database"`
	Cache        DependencyStatus `json:"cache"`
	DatabasePool map[string]any   `json:"database_pool,omitempty"`
	CachePool    map[string]any   `json:"cache_pool,omitempty"`
	LastChecked  time.Time        `json:"last_checked"`
}

func (s DatabaseHealthStatus) Healthy() bool {
	return s.Database.Connected && s.Cache.Connected
}

// Pinger is anything whose connectivity can be checked
type Pinger interface {
	Health(ctx context.Context) error
}

// poolReporter is implemented by database.DB
type poolReporter interface {
	Driver() string
	GetStats() sql.DBStats
}

type HealthService struct {
	logger    *gecho.Logger
	db        Pinger
	cache     *CacheService
	startedAt time.Time
}

func NewHealthService(logger *gecho.Logger, db Pinger, cache *CacheService) *HealthService {
	return &HealthService{
		logger:    logger,
		db:        db,
		cache:     cache,
		startedAt: time.Now(),
	}
}

func getRamStats() *RamStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	totalMB := m.Sys / 1024 / 1024
	usedMB := m.Alloc / 1024 / 1024
	freeMB := totalMB - usedMB
	usedPercent := uint64(0)
	if totalMB > 0 {
		usedPercent = (usedMB * 100) / totalMB
	}

	return &RamStats{
		TotalMB:     totalMB,
		UsedMB:      usedMB,
		FreeMB:      freeMB,
		UsedPercent: usedPercent,
	}
}

func (hs *HealthService) GetServerHealthStatus() ServerHealthStatus {
	return ServerHealthStatus{
		Uptime:       time.Since(hs.startedAt).Seconds(),
		CurrentTime:  time.Now(),
		ServiceAlive: true,
		RamStats:     getRamStats(),
	}
}

// GetDatabaseHealthStatus pings Postgres and Redis
func (hs *HealthService) GetDatabaseHealthStatus(ctx context.Context) DatabaseHealthStatus {
	status := DatabaseHealthStatus{
		Database:    check(ctx, hs.db.Health),
		Cache:       check(ctx, hs.cache.Ping),
		CachePool:   hs.cache.GetConnectionStats(),
		LastChecked: time.Now(),
	}
	if pool, ok := hs.db.(poolReporter); ok {
		stats := pool.GetStats()
		status.DatabasePool = map[string]any{
			"driver":           pool.Driver(),
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"wait_count":       stats.WaitCount,
		}
	}

	if !status.Healthy() {
		hs.logger.Error("Dependency health check failed",
			gecho.Field("database", status.Database.Error),
			gecho.Field("cache", status.Cache.Error),
		)
	}
	return status
}

func check(ctx context.Context, ping func(context.Context) error) DependencyStatus {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	status := DependencyStatus{
		Connected:      err == nil,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		status.Error = err.Error()
	}
	return status
}
