package service

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"aiproxy/internal/crypto"
	"aiproxy/internal/model"
	"aiproxy/internal/registry"
	"aiproxy/internal/repository"
	"aiproxy/internal/translator"

	"github.com/tidwall/gjson"
)

var (
	ErrProviderNotFound  = errors.New("供应商不存在")
	ErrProviderNameTaken = errors.New("供应商名称已存在")
)

type ProviderService struct {
	repo          *repository.ProviderRepository
	aliasRepo     *repository.AliasRepository
	registry      *registry.Registry
	encryptionKey []byte
	testClient    *http.Client
}

func NewProviderService(reg *registry.Registry, encryptionKey []byte) *ProviderService {
	return &ProviderService{
		repo:          repository.NewProviderRepository(),
		aliasRepo:     repository.NewAliasRepository(),
		registry:      reg,
		encryptionKey: encryptionKey,
		testClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *ProviderService) Create(req *model.ProviderRequest) (*model.ProviderResponse, error) {
	existing, err := s.repo.GetByName(req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrProviderNameTaken
	}

	// 未配置加密密钥时明文存储
	apiKey := req.APIKey
	if apiKey != "" && len(s.encryptionKey) > 0 {
		apiKey, err = crypto.Encrypt([]byte(apiKey), s.encryptionKey)
		if err != nil {
			return nil, err
		}
	}

	authMethod := req.AuthMethod
	if authMethod == "" {
		authMethod = model.AuthBearerToken
	}

	provider := &model.Provider{
		Name:              req.Name,
		APIEndpoint:       strings.TrimSuffix(req.APIEndpoint, "/"),
		APIKey:            apiKey,
		AuthMethod:        authMethod,
		Dialect:           req.Dialect,
		DefaultModel:      req.DefaultModel,
		TierMappingJSON:   marshalMap(req.TierMapping),
		ModelOverrideJSON: marshalMap(req.ModelOverride),
		HeadersJSON:       marshalHeaders(req.Headers),
	}

	if err := s.repo.Create(provider); err != nil {
		return nil, err
	}

	// 每个供应商自动获得两个内置别名：<name> 与 <name>-custom
	if err := s.createBuiltinAliases(provider); err != nil {
		return nil, err
	}

	if err := s.registry.Reload(); err != nil {
		return nil, err
	}
	return s.toResponse(provider), nil
}

func (s *ProviderService) createBuiltinAliases(provider *model.Provider) error {
	builtin := []struct {
		alias   string
		variant model.PromptVariant
	}{
		{provider.Name, model.PromptVariantStandard},
		{provider.Name + "-custom", model.PromptVariantCustom},
	}
	for _, b := range builtin {
		err := s.aliasRepo.Create(&model.CommandAlias{
			ProviderID:    provider.ID,
			Alias:         b.alias,
			PromptVariant: b.variant,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *ProviderService) GetByID(id string) (*model.ProviderResponse, error) {
	provider, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}
	return s.toResponse(provider), nil
}

func (s *ProviderService) List() ([]*model.ProviderResponse, error) {
	providers, err := s.repo.List()
	if err != nil {
		return nil, err
	}
	responses := make([]*model.ProviderResponse, 0, len(providers))
	for _, p := range providers {
		responses = append(responses, s.toResponse(p))
	}
	return responses, nil
}

func (s *ProviderService) Update(id string, req *model.ProviderRequest) (*model.ProviderResponse, error) {
	provider, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}

	// 改名时在同一事务内同步内置别名
	aliasRenames := map[string]string{}
	if req.Name != provider.Name {
		existing, err := s.repo.GetByName(req.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrProviderNameTaken
		}
		aliasRenames[provider.Name] = req.Name
		aliasRenames[provider.Name+"-custom"] = req.Name + "-custom"
	}

	oldName := provider.Name
	provider.Name = req.Name
	provider.APIEndpoint = strings.TrimSuffix(req.APIEndpoint, "/")
	provider.Dialect = req.Dialect
	provider.DefaultModel = req.DefaultModel
	provider.TierMappingJSON = marshalMap(req.TierMapping)
	provider.ModelOverrideJSON = marshalMap(req.ModelOverride)
	provider.HeadersJSON = marshalHeaders(req.Headers)
	if req.AuthMethod != "" {
		provider.AuthMethod = req.AuthMethod
	}

	// 空 API key 表示保留原密钥
	if req.APIKey != "" {
		newKey := req.APIKey
		if len(s.encryptionKey) > 0 {
			newKey, err = crypto.Encrypt([]byte(req.APIKey), s.encryptionKey)
			if err != nil {
				return nil, err
			}
		}
		provider.APIKey = newKey
	}

	if err := s.repo.UpdateWithAliases(provider, aliasRenames); err != nil {
		provider.Name = oldName
		return nil, err
	}

	if err := s.registry.Reload(); err != nil {
		return nil, err
	}
	return s.toResponse(provider), nil
}

func (s *ProviderService) Delete(id string) error {
	provider, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if provider == nil {
		return ErrProviderNotFound
	}
	// 外键级联删除别名；删除激活中的供应商后不会自动激活其他供应商
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	return s.registry.Reload()
}

func (s *ProviderService) SetActive(id string) error {
	if err := s.repo.SetActive(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProviderNotFound
		}
		return err
	}
	return s.registry.Reload()
}

// Test 向供应商发送一个最小请求验证连通性
func (s *ProviderService) Test(id string) (*model.TestProviderResponse, error) {
	provider, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}

	apiKey := provider.APIKey
	if crypto.IsEncrypted(apiKey) {
		plain, derr := crypto.Decrypt(apiKey, s.encryptionKey)
		if derr != nil {
			return &model.TestProviderResponse{Success: false, Message: "无法解密 API key"}, nil
		}
		apiKey = string(plain)
	}

	codec, err := translator.ForDialect(translator.FromString(string(provider.Dialect)))
	if err != nil {
		return &model.TestProviderResponse{Success: false, Message: "不支持的方言: " + string(provider.Dialect)}, nil
	}

	probe := []byte(`{"model":"","max_tokens":1,"messages":[{"role":"user","content":"ping"}]}`)
	encoded, err := codec.EncodeRequest(probe, provider.DefaultModel, false)
	if err != nil {
		return &model.TestProviderResponse{Success: false, Message: err.Error()}, nil
	}

	url := strings.TrimSuffix(provider.APIEndpoint, "/") + codec.RequestPath()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return &model.TestProviderResponse{Success: false, Message: err.Error()}, nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if provider.Dialect == model.DialectAnthropic {
		req.Header.Set("x-api-key", apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")
	}

	start := time.Now()
	resp, err := s.testClient.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return &model.TestProviderResponse{Success: false, Message: err.Error(), LatencyMs: latency}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return &model.TestProviderResponse{Success: true, Message: "连接正常", LatencyMs: latency}, nil
	}
	return &model.TestProviderResponse{
		Success:   false,
		Message:   "上游返回状态码 " + resp.Status,
		LatencyMs: latency,
	}, nil
}

func (s *ProviderService) toResponse(p *model.Provider) *model.ProviderResponse {
	return &model.ProviderResponse{
		ID:            p.ID,
		Name:          p.Name,
		APIEndpoint:   p.APIEndpoint,
		APIKeySet:     p.APIKey != "",
		AuthMethod:    p.AuthMethod,
		Dialect:       p.Dialect,
		DefaultModel:  p.DefaultModel,
		TierMapping:   unmarshalMap(p.TierMappingJSON),
		ModelOverride: unmarshalMap(p.ModelOverrideJSON),
		Headers:       unmarshalHeaders(p.HeadersJSON),
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func marshalMap(m map[string]string) string {
	if m == nil {
		return "{}"
	}
	data, _ := json.Marshal(m)
	return string(data)
}

func unmarshalMap(raw string) map[string]string {
	m := map[string]string{}
	if raw == "" {
		return m
	}
	for k, v := range gjson.Parse(raw).Map() {
		m[k] = v.String()
	}
	return m
}

func marshalHeaders(headers []model.HeaderPair) string {
	if headers == nil {
		return "[]"
	}
	data, _ := json.Marshal(headers)
	return string(data)
}

func unmarshalHeaders(raw string) []model.HeaderPair {
	var headers []model.HeaderPair
	if raw == "" {
		return []model.HeaderPair{}
	}
	_ = json.Unmarshal([]byte(raw), &headers)
	if headers == nil {
		headers = []model.HeaderPair{}
	}
	return headers
}
