package model

import "time"

type PromptVariant string

const (
	PromptVariantStandard PromptVariant = "standard"
	PromptVariantCustom   PromptVariant = "custom"
)

// 保留别名，始终指向当前激活的供应商
const (
	ReservedAliasDefault       = "default"
	ReservedAliasDefaultCustom = "default-custom"
)

type CommandAlias struct {
	ID            string        `json:"id"`
	ProviderID    string        `json:"providerId"`
	Alias         string        `json:"alias"`
	PromptVariant PromptVariant `json:"promptVariant"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type AliasRequest struct {
	ProviderID    string        `json:"providerId" binding:"required"`
	Alias         string        `json:"alias" binding:"required,min=1,max=64"`
	PromptVariant PromptVariant `json:"promptVariant" binding:"omitempty,oneof=standard custom"`
}

type AliasResponse struct {
	ID            string        `json:"id"`
	ProviderID    string        `json:"providerId"`
	ProviderName  string        `json:"providerName"`
	Alias         string        `json:"alias"`
	PromptVariant PromptVariant `json:"promptVariant"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}
