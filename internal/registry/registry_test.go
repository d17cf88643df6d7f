package registry

import (
	"errors"
	"testing"

	"aiproxy/internal/crypto"
	"aiproxy/internal/model"
)

type fakeProviderRepo struct {
	providers []*model.Provider
	err       error
}

func (f *fakeProviderRepo) Create(*model.Provider) error              { return nil }
func (f *fakeProviderRepo) GetByID(string) (*model.Provider, error)   { return nil, nil }
func (f *fakeProviderRepo) GetByName(string) (*model.Provider, error) { return nil, nil }
func (f *fakeProviderRepo) GetActive() (*model.Provider, error)       { return nil, nil }
func (f *fakeProviderRepo) Update(*model.Provider) error              { return nil }
func (f *fakeProviderRepo) UpdateWithAliases(*model.Provider, map[string]string) error {
	return nil
}
func (f *fakeProviderRepo) Delete(string) error    { return nil }
func (f *fakeProviderRepo) SetActive(string) error { return nil }
func (f *fakeProviderRepo) List() ([]*model.Provider, error) {
	return f.providers, f.err
}

type fakeAliasRepo struct {
	aliases []*model.CommandAlias
}

func (f *fakeAliasRepo) Create(*model.CommandAlias) error                     { return nil }
func (f *fakeAliasRepo) GetByID(string) (*model.CommandAlias, error)          { return nil, nil }
func (f *fakeAliasRepo) GetByAlias(string) (*model.CommandAlias, error)       { return nil, nil }
func (f *fakeAliasRepo) ListByProvider(string) ([]*model.CommandAlias, error) { return nil, nil }
func (f *fakeAliasRepo) Update(*model.CommandAlias) error                     { return nil }
func (f *fakeAliasRepo) Delete(string) error                                  { return nil }
func (f *fakeAliasRepo) List() ([]*model.CommandAlias, error)                 { return f.aliases, nil }

func newTestRegistry(t *testing.T, providers []*model.Provider, aliases []*model.CommandAlias, key []byte) *Registry {
	t.Helper()
	r := New(&fakeProviderRepo{providers: providers}, &fakeAliasRepo{aliases: aliases}, key)
	if err := r.Reload(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	return r
}

func TestResolveAlias(t *testing.T) {
	r := newTestRegistry(t,
		[]*model.Provider{
			{ID: "p1", Name: "zhipu", APIKey: "plain-key", IsActive: true},
			{ID: "p2", Name: "kimi", APIKey: "other-key"},
		},
		[]*model.CommandAlias{
			{ID: "a1", ProviderID: "p1", Alias: "zhipu", PromptVariant: model.PromptVariantStandard},
			{ID: "a2", ProviderID: "p2", Alias: "kimi-custom", PromptVariant: model.PromptVariantCustom},
		},
		nil)

	res, err := r.Resolve("zhipu")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Provider.Name != "zhipu" || res.PromptVariant != model.PromptVariantStandard {
		t.Errorf("got %s/%s, want zhipu/standard", res.Provider.Name, res.PromptVariant)
	}

	res, err = r.Resolve("kimi-custom")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Provider.Name != "kimi" || res.PromptVariant != model.PromptVariantCustom {
		t.Errorf("got %s/%s, want kimi/custom", res.Provider.Name, res.PromptVariant)
	}

	if _, err := r.Resolve("nope"); !errors.Is(err, ErrUnknownAlias) {
		t.Errorf("unknown alias should fail with ErrUnknownAlias, got %v", err)
	}
}

func TestReservedAliasesFollowActiveProvider(t *testing.T) {
	r := newTestRegistry(t,
		[]*model.Provider{
			{ID: "p1", Name: "zhipu"},
			{ID: "p2", Name: "kimi", IsActive: true},
		},
		nil, nil)

	res, err := r.Resolve(model.ReservedAliasDefault)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Provider.Name != "kimi" || res.PromptVariant != model.PromptVariantStandard {
		t.Errorf("default should follow active provider, got %s/%s", res.Provider.Name, res.PromptVariant)
	}

	res, err = r.Resolve(model.ReservedAliasDefaultCustom)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.PromptVariant != model.PromptVariantCustom {
		t.Errorf("default-custom should select the custom variant, got %s", res.PromptVariant)
	}
}

func TestResolveNoActiveProvider(t *testing.T) {
	r := newTestRegistry(t, []*model.Provider{{ID: "p1", Name: "zhipu"}}, nil, nil)
	if _, err := r.Resolve(model.ReservedAliasDefault); !errors.Is(err, ErrNoActiveProvider) {
		t.Errorf("want ErrNoActiveProvider, got %v", err)
	}
	if r.ActiveProvider() != nil {
		t.Error("no provider is active")
	}
}

func TestReloadDecryptsKeys(t *testing.T) {
	key := crypto.DeriveKey("test-master-key")
	enc, err := crypto.Encrypt([]byte("sk-secret-value"), key)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	r := newTestRegistry(t,
		[]*model.Provider{{ID: "p1", Name: "zhipu", APIKey: enc, IsActive: true}},
		nil, key)

	p := r.ActiveProvider()
	if p == nil || p.APIKey != "sk-secret-value" {
		t.Fatalf("api key should be decrypted on reload, got %+v", p)
	}
}

func TestReloadSkipsDanglingAliases(t *testing.T) {
	r := newTestRegistry(t,
		[]*model.Provider{{ID: "p1", Name: "zhipu"}},
		[]*model.CommandAlias{
			{ID: "a1", ProviderID: "p1", Alias: "zhipu", PromptVariant: model.PromptVariantStandard},
			{ID: "a2", ProviderID: "gone", Alias: "ghost", PromptVariant: model.PromptVariantStandard},
		},
		nil)

	if _, err := r.Resolve("ghost"); !errors.Is(err, ErrUnknownAlias) {
		t.Errorf("dangling alias should not resolve, got %v", err)
	}
	names := r.Aliases()
	if len(names) != 1 || names["zhipu"] != "zhipu" {
		t.Errorf("alias table = %v", names)
	}
}

func TestConcurrentResolveDuringReload(t *testing.T) {
	pRepo := &fakeProviderRepo{providers: []*model.Provider{{ID: "p1", Name: "zhipu", IsActive: true}}}
	aRepo := &fakeAliasRepo{aliases: []*model.CommandAlias{
		{ID: "a1", ProviderID: "p1", Alias: "zhipu", PromptVariant: model.PromptVariantStandard},
	}}
	r := New(pRepo, aRepo, nil)
	if err := r.Reload(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if err := r.Reload(); err != nil {
				t.Errorf("reload failed: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		res, err := r.Resolve("zhipu")
		if err != nil {
			t.Fatalf("resolve failed mid-reload: %v", err)
		}
		if res.Provider.Name != "zhipu" {
			t.Fatalf("resolved wrong provider: %+v", res.Provider)
		}
	}
	<-done
}

func TestReloadKeepsOldSnapshotOnError(t *testing.T) {
	pRepo := &fakeProviderRepo{providers: []*model.Provider{{ID: "p1", Name: "zhipu", IsActive: true}}}
	r := New(pRepo, &fakeAliasRepo{}, nil)
	if err := r.Reload(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	pRepo.err = errors.New("db closed")
	if err := r.Reload(); err == nil {
		t.Fatal("reload should surface the repository error")
	}
	if p := r.ActiveProvider(); p == nil || p.Name != "zhipu" {
		t.Error("failed reload must not clobber the previous snapshot")
	}
}
