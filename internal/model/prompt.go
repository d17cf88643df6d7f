package model

import "time"

type PromptConfig struct {
	UseCustomPrompt             bool      `json:"useCustomPrompt"`
	PromptTemplate              string    `json:"promptTemplate"`
	SystemName                  string    `json:"systemName"`
	ModelNameOverride           string    `json:"modelNameOverride"`
	RemoveAIReferences          bool      `json:"removeAiReferences"`
	RemoveDefensiveRestrictions bool      `json:"removeDefensiveRestrictions"`
	UpdatedAt                   time.Time `json:"updatedAt"`
}

type PromptConfigRequest struct {
	UseCustomPrompt             *bool   `json:"useCustomPrompt,omitempty"`
	PromptTemplate              *string `json:"promptTemplate,omitempty"`
	SystemName                  *string `json:"systemName,omitempty"`
	ModelNameOverride           *string `json:"modelNameOverride,omitempty"`
	RemoveAIReferences          *bool   `json:"removeAiReferences,omitempty"`
	RemoveDefensiveRestrictions *bool   `json:"removeDefensiveRestrictions,omitempty"`
}
