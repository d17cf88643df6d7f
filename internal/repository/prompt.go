package repository

import (
	"time"

	"aiproxy/internal/database"
	"aiproxy/internal/model"
)

type PromptConfigRepositoryInterface interface {
	Get() (*model.PromptConfig, error)
	Update(cfg *model.PromptConfig) error
}

var _ PromptConfigRepositoryInterface = (*PromptConfigRepository)(nil)

type PromptConfigRepository struct{}

func NewPromptConfigRepository() *PromptConfigRepository {
	return &PromptConfigRepository{}
}

func (r *PromptConfigRepository) Get() (*model.PromptConfig, error) {
	db := database.GetDB()
	cfg := &model.PromptConfig{}
	err := db.QueryRow(
		`SELECT use_custom_prompt, prompt_template, system_name, model_name_override, remove_ai_references, remove_defensive_restrictions, updated_at
		 FROM prompt_config WHERE id = 1`,
	).Scan(
		&cfg.UseCustomPrompt, &cfg.PromptTemplate, &cfg.SystemName, &cfg.ModelNameOverride,
		&cfg.RemoveAIReferences, &cfg.RemoveDefensiveRestrictions, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *PromptConfigRepository) Update(cfg *model.PromptConfig) error {
	db := database.GetDB()
	cfg.UpdatedAt = time.Now()

	_, err := db.Exec(
		`UPDATE prompt_config SET use_custom_prompt = ?, prompt_template = ?, system_name = ?, model_name_override = ?, remove_ai_references = ?, remove_defensive_restrictions = ?, updated_at = ?
		 WHERE id = 1`,
		cfg.UseCustomPrompt, cfg.PromptTemplate, cfg.SystemName, cfg.ModelNameOverride,
		cfg.RemoveAIReferences, cfg.RemoveDefensiveRestrictions, cfg.UpdatedAt,
	)
	return err
}
