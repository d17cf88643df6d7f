package service

import (
	"errors"

	"aiproxy/internal/model"
	"aiproxy/internal/registry"
	"aiproxy/internal/repository"
)

var (
	ErrAliasNotFound = errors.New("命令别名不存在")
	ErrAliasTaken    = errors.New("命令别名已存在")
	ErrAliasReserved = errors.New("该别名为系统保留")
)

type AliasService struct {
	repo         *repository.AliasRepository
	providerRepo *repository.ProviderRepository
	registry     *registry.Registry
}

func NewAliasService(reg *registry.Registry) *AliasService {
	return &AliasService{
		repo:         repository.NewAliasRepository(),
		providerRepo: repository.NewProviderRepository(),
		registry:     reg,
	}
}

func isReservedAlias(alias string) bool {
	return alias == model.ReservedAliasDefault || alias == model.ReservedAliasDefaultCustom
}

func (s *AliasService) Create(req *model.AliasRequest) (*model.AliasResponse, error) {
	if isReservedAlias(req.Alias) {
		return nil, ErrAliasReserved
	}

	provider, err := s.providerRepo.GetByID(req.ProviderID)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}

	existing, err := s.repo.GetByAlias(req.Alias)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAliasTaken
	}

	variant := req.PromptVariant
	if variant == "" {
		variant = model.PromptVariantStandard
	}

	alias := &model.CommandAlias{
		ProviderID:    req.ProviderID,
		Alias:         req.Alias,
		PromptVariant: variant,
	}
	if err := s.repo.Create(alias); err != nil {
		return nil, err
	}
	if err := s.registry.Reload(); err != nil {
		return nil, err
	}
	return s.toResponse(alias, provider.Name), nil
}

func (s *AliasService) List() ([]*model.AliasResponse, error) {
	aliases, err := s.repo.List()
	if err != nil {
		return nil, err
	}
	providers, err := s.providerRepo.List()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(providers))
	for _, p := range providers {
		names[p.ID] = p.Name
	}

	responses := make([]*model.AliasResponse, 0, len(aliases))
	for _, a := range aliases {
		responses = append(responses, s.toResponse(a, names[a.ProviderID]))
	}
	return responses, nil
}

func (s *AliasService) Update(id string, req *model.AliasRequest) (*model.AliasResponse, error) {
	if isReservedAlias(req.Alias) {
		return nil, ErrAliasReserved
	}

	alias, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if alias == nil {
		return nil, ErrAliasNotFound
	}

	provider, err := s.providerRepo.GetByID(req.ProviderID)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}

	if req.Alias != alias.Alias {
		existing, err := s.repo.GetByAlias(req.Alias)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrAliasTaken
		}
	}

	alias.ProviderID = req.ProviderID
	alias.Alias = req.Alias
	if req.PromptVariant != "" {
		alias.PromptVariant = req.PromptVariant
	}

	if err := s.repo.Update(alias); err != nil {
		return nil, err
	}
	if err := s.registry.Reload(); err != nil {
		return nil, err
	}
	return s.toResponse(alias, provider.Name), nil
}

func (s *AliasService) Delete(id string) error {
	alias, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if alias == nil {
		return ErrAliasNotFound
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	return s.registry.Reload()
}

func (s *AliasService) toResponse(a *model.CommandAlias, providerName string) *model.AliasResponse {
	return &model.AliasResponse{
		ID:            a.ID,
		ProviderID:    a.ProviderID,
		ProviderName:  providerName,
		Alias:         a.Alias,
		PromptVariant: a.PromptVariant,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}
