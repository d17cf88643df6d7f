package service

import (
	"errors"
	"os"
	"testing"

	"aiproxy/internal/crypto"
	"aiproxy/internal/database"
	"aiproxy/internal/model"
	"aiproxy/internal/registry"
	"aiproxy/internal/repository"
)

var testKey = crypto.DeriveKey("service-test-master-key")

func TestMain(m *testing.M) {
	if err := database.InitForTest(); err != nil {
		panic(err)
	}
	code := m.Run()
	database.Close()
	os.Exit(code)
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(repository.NewProviderRepository(), repository.NewAliasRepository(), testKey)
	if err := reg.Reload(); err != nil {
		t.Fatalf("registry reload: %v", err)
	}
	return reg
}

func providerRequest(name string) *model.ProviderRequest {
	return &model.ProviderRequest{
		Name:         name,
		APIEndpoint:  "https://api.example.com/v1/",
		APIKey:       "sk-" + name,
		Dialect:      model.DialectOpenAI,
		DefaultModel: "gpt-4o",
	}
}

func TestProviderCreateBuiltinAliases(t *testing.T) {
	reg := newTestRegistry(t)
	svc := NewProviderService(reg, testKey)

	resp, err := svc.Create(providerRequest("moonshot"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !resp.APIKeySet {
		t.Error("response should report the key as set")
	}
	if resp.APIEndpoint != "https://api.example.com/v1" {
		t.Errorf("endpoint should be trimmed of trailing slash: %q", resp.APIEndpoint)
	}

	// Both builtin aliases resolve right away, and the stored key is
	// encrypted while the resolved provider carries the plaintext.
	res, err := reg.Resolve("moonshot")
	if err != nil {
		t.Fatalf("resolve builtin alias: %v", err)
	}
	if res.PromptVariant != model.PromptVariantStandard || res.Provider.APIKey != "sk-moonshot" {
		t.Errorf("resolution = variant %s key %q", res.PromptVariant, res.Provider.APIKey)
	}
	res, err = reg.Resolve("moonshot-custom")
	if err != nil {
		t.Fatalf("resolve custom alias: %v", err)
	}
	if res.PromptVariant != model.PromptVariantCustom {
		t.Errorf("custom alias variant = %s", res.PromptVariant)
	}

	stored, _ := repository.NewProviderRepository().GetByID(resp.ID)
	if !crypto.IsEncrypted(stored.APIKey) {
		t.Error("stored api key should be encrypted")
	}

	if _, err := svc.Create(providerRequest("moonshot")); !errors.Is(err, ErrProviderNameTaken) {
		t.Errorf("duplicate name = %v, want ErrProviderNameTaken", err)
	}
}

func TestProviderRenameMovesBuiltinAliases(t *testing.T) {
	reg := newTestRegistry(t)
	svc := NewProviderService(reg, testKey)

	created, err := svc.Create(providerRequest("oldname"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := providerRequest("newname")
	req.APIKey = "" // keep the stored key
	if _, err := svc.Update(created.ID, req); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := reg.Resolve("oldname"); !errors.Is(err, registry.ErrUnknownAlias) {
		t.Errorf("old alias should be gone, got %v", err)
	}
	res, err := reg.Resolve("newname-custom")
	if err != nil {
		t.Fatalf("renamed custom alias: %v", err)
	}
	if res.Provider.APIKey != "sk-oldname" {
		t.Errorf("empty api key on update must keep the old key, got %q", res.Provider.APIKey)
	}
}

func TestProviderRenameRollsBackOnAliasCollision(t *testing.T) {
	reg := newTestRegistry(t)
	providerSvc := NewProviderService(reg, testKey)
	aliasSvc := NewAliasService(reg)

	created, err := providerSvc.Create(providerRequest("renameme"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	other, err := providerSvc.Create(providerRequest("bystander"))
	if err != nil {
		t.Fatalf("Create bystander: %v", err)
	}
	// A user alias already occupies the name the rename would claim.
	if _, err := aliasSvc.Create(&model.AliasRequest{
		ProviderID:    other.ID,
		Alias:         "wanted",
		PromptVariant: model.PromptVariantStandard,
	}); err != nil {
		t.Fatalf("Create alias: %v", err)
	}

	req := providerRequest("wanted")
	req.APIKey = ""
	if _, err := providerSvc.Update(created.ID, req); err == nil {
		t.Fatal("rename onto an occupied alias should fail")
	}

	// The failed update must leave neither the provider row nor the
	// builtin aliases renamed.
	stored, err := repository.NewProviderRepository().GetByID(created.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID after failed update: %v %+v", err, stored)
	}
	if stored.Name != "renameme" {
		t.Errorf("provider name = %q, want renameme", stored.Name)
	}
	aliasRepo := repository.NewAliasRepository()
	if row, _ := aliasRepo.GetByAlias("renameme"); row == nil || row.ProviderID != created.ID {
		t.Errorf("builtin alias lost after failed update: %+v", row)
	}
	if row, _ := aliasRepo.GetByAlias("wanted-custom"); row != nil {
		t.Errorf("half-renamed alias left behind: %+v", row)
	}
}

func TestProviderSetActiveAndDelete(t *testing.T) {
	reg := newTestRegistry(t)
	svc := NewProviderService(reg, testKey)

	created, err := svc.Create(providerRequest("activatable"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.SetActive(created.ID); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if active := reg.ActiveProvider(); active == nil || active.Name != "activatable" {
		t.Fatalf("active provider = %+v", active)
	}
	res, err := reg.Resolve(model.ReservedAliasDefault)
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if res.Provider.Name != "activatable" {
		t.Errorf("default should follow active provider, got %s", res.Provider.Name)
	}

	if err := svc.SetActive("missing-id"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("SetActive missing = %v, want ErrProviderNotFound", err)
	}

	if err := svc.Delete(created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := reg.Resolve("activatable"); !errors.Is(err, registry.ErrUnknownAlias) {
		t.Errorf("aliases should cascade on delete, got %v", err)
	}
	// Alias rows must be gone from the table, not just unresolvable.
	if row, _ := repository.NewAliasRepository().GetByAlias("activatable"); row != nil {
		t.Errorf("alias row survived provider delete: %+v", row)
	}
	if err := svc.Delete(created.ID); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("double delete = %v, want ErrProviderNotFound", err)
	}

	// Re-creating a provider under the deleted name must succeed, which
	// requires the builtin alias rows to have been removed with it.
	if _, err := svc.Create(providerRequest("activatable")); err != nil {
		t.Fatalf("re-create after delete: %v", err)
	}
	if _, err := reg.Resolve("activatable-custom"); err != nil {
		t.Errorf("re-created builtin alias should resolve: %v", err)
	}
}

func TestAliasServiceRules(t *testing.T) {
	reg := newTestRegistry(t)
	providerSvc := NewProviderService(reg, testKey)
	aliasSvc := NewAliasService(reg)

	created, err := providerSvc.Create(providerRequest("aliasable"))
	if err != nil {
		t.Fatalf("Create provider: %v", err)
	}

	resp, err := aliasSvc.Create(&model.AliasRequest{
		ProviderID:    created.ID,
		Alias:         "fast",
		PromptVariant: model.PromptVariantStandard,
	})
	if err != nil {
		t.Fatalf("Create alias: %v", err)
	}
	if _, err := reg.Resolve("fast"); err != nil {
		t.Errorf("new alias should resolve: %v", err)
	}

	if _, err := aliasSvc.Create(&model.AliasRequest{ProviderID: created.ID, Alias: "fast"}); !errors.Is(err, ErrAliasTaken) {
		t.Errorf("duplicate alias = %v, want ErrAliasTaken", err)
	}
	if _, err := aliasSvc.Create(&model.AliasRequest{ProviderID: created.ID, Alias: model.ReservedAliasDefault}); !errors.Is(err, ErrAliasReserved) {
		t.Errorf("reserved alias = %v, want ErrAliasReserved", err)
	}
	if _, err := aliasSvc.Create(&model.AliasRequest{ProviderID: "missing", Alias: "orphan"}); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("missing provider = %v, want ErrProviderNotFound", err)
	}

	if err := aliasSvc.Delete(resp.ID); err != nil {
		t.Fatalf("Delete alias: %v", err)
	}
	if _, err := reg.Resolve("fast"); !errors.Is(err, registry.ErrUnknownAlias) {
		t.Errorf("deleted alias should not resolve, got %v", err)
	}
}

func TestEstimateCost(t *testing.T) {
	cases := []struct {
		model string
		in    int64
		out   int64
		want  string
	}{
		{"claude-sonnet-4", 1_000_000, 1_000_000, "18"},
		{"glm-4-opus", 2_000_000, 0, "30"},
		{"gpt-4o-mini", 1_000_000, 1_000_000, "0.75"},
		{"gpt-4o", 1_000_000, 0, "2.5"},
		{"unknown-model", 5_000_000, 5_000_000, "0"},
	}
	for _, c := range cases {
		if got := estimateCost(c.model, c.in, c.out); got != c.want {
			t.Errorf("estimateCost(%q, %d, %d) = %s, want %s", c.model, c.in, c.out, got, c.want)
		}
	}
}
