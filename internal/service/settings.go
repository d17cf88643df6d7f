package service

import (
	"aiproxy/internal/model"
	"aiproxy/internal/repository"
)

type SettingsService struct {
	repo *repository.SettingsRepository
}

func NewSettingsService() *SettingsService {
	return &SettingsService{
		repo: repository.NewSettingsRepository(),
	}
}

func (s *SettingsService) Get() (*model.AppSettings, error) {
	return s.repo.Get()
}

// Update 部分更新：仅覆盖请求中出现的字段
func (s *SettingsService) Update(req *model.AppSettingsRequest) (*model.AppSettings, error) {
	settings, err := s.repo.Get()
	if err != nil {
		return nil, err
	}

	if req.RateLimitEnabled != nil {
		settings.RateLimitEnabled = *req.RateLimitEnabled
	}
	if req.RateLimitRequests != nil {
		settings.RateLimitRequests = *req.RateLimitRequests
	}
	if req.RateLimitWindowSecs != nil {
		settings.RateLimitWindowSecs = *req.RateLimitWindowSecs
	}
	if req.RequestTimeoutSecs != nil {
		settings.RequestTimeoutSecs = *req.RequestTimeoutSecs
	}
	if req.StreamIdleTimeoutSecs != nil {
		settings.StreamIdleTimeoutSecs = *req.StreamIdleTimeoutSecs
	}
	if req.EnableFullLogging != nil {
		settings.EnableFullLogging = *req.EnableFullLogging
	}

	if err := s.repo.Update(settings); err != nil {
		return nil, err
	}
	return settings, nil
}
