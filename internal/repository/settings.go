package repository

import (
	"time"

	"aiproxy/internal/database"
	"aiproxy/internal/model"
)

type SettingsRepositoryInterface interface {
	Get() (*model.AppSettings, error)
	Update(settings *model.AppSettings) error
}

var _ SettingsRepositoryInterface = (*SettingsRepository)(nil)

type SettingsRepository struct{}

func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{}
}

func (r *SettingsRepository) Get() (*model.AppSettings, error) {
	db := database.GetDB()
	s := &model.AppSettings{}
	err := db.QueryRow(
		`SELECT rate_limit_enabled, rate_limit_requests, rate_limit_window_secs, request_timeout_secs, stream_idle_timeout_secs, enable_full_logging, updated_at
		 FROM app_settings WHERE id = 1`,
	).Scan(
		&s.RateLimitEnabled, &s.RateLimitRequests, &s.RateLimitWindowSecs,
		&s.RequestTimeoutSecs, &s.StreamIdleTimeoutSecs, &s.EnableFullLogging, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SettingsRepository) Update(settings *model.AppSettings) error {
	db := database.GetDB()
	settings.UpdatedAt = time.Now()

	_, err := db.Exec(
		`UPDATE app_settings SET rate_limit_enabled = ?, rate_limit_requests = ?, rate_limit_window_secs = ?, request_timeout_secs = ?, stream_idle_timeout_secs = ?, enable_full_logging = ?, updated_at = ?
		 WHERE id = 1`,
		settings.RateLimitEnabled, settings.RateLimitRequests, settings.RateLimitWindowSecs,
		settings.RequestTimeoutSecs, settings.StreamIdleTimeoutSecs, settings.EnableFullLogging, settings.UpdatedAt,
	)
	return err
}
