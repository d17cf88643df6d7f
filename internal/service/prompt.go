package service

import (
	"aiproxy/internal/model"
	"aiproxy/internal/repository"
)

type PromptService struct {
	repo *repository.PromptConfigRepository
}

func NewPromptService() *PromptService {
	return &PromptService{
		repo: repository.NewPromptConfigRepository(),
	}
}

func (s *PromptService) Get() (*model.PromptConfig, error) {
	return s.repo.Get()
}

// Update 部分更新：仅覆盖请求中出现的字段
func (s *PromptService) Update(req *model.PromptConfigRequest) (*model.PromptConfig, error) {
	cfg, err := s.repo.Get()
	if err != nil {
		return nil, err
	}

	if req.UseCustomPrompt != nil {
		cfg.UseCustomPrompt = *req.UseCustomPrompt
	}
	if req.PromptTemplate != nil {
		cfg.PromptTemplate = *req.PromptTemplate
	}
	if req.SystemName != nil {
		cfg.SystemName = *req.SystemName
	}
	if req.ModelNameOverride != nil {
		cfg.ModelNameOverride = *req.ModelNameOverride
	}
	if req.RemoveAIReferences != nil {
		cfg.RemoveAIReferences = *req.RemoveAIReferences
	}
	if req.RemoveDefensiveRestrictions != nil {
		cfg.RemoveDefensiveRestrictions = *req.RemoveDefensiveRestrictions
	}

	if err := s.repo.Update(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
