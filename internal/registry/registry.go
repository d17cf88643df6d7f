package registry

import (
	"errors"
	"sync"

	"aiproxy/internal/crypto"
	"aiproxy/internal/model"
	"aiproxy/internal/repository"

	log "github.com/sirupsen/logrus"
)

var (
	ErrUnknownAlias     = errors.New("unknown command alias")
	ErrNoActiveProvider = errors.New("no active provider configured")
)

// Resolution is the outcome of an alias lookup: the provider to route to
// and which prompt variant the alias selects.
type Resolution struct {
	Provider      *model.Provider
	PromptVariant model.PromptVariant
}

type aliasTarget struct {
	providerID    string
	promptVariant model.PromptVariant
}

// snapshot is an immutable view of the routing table. Lookups read one
// snapshot pointer and never see a half-applied reload.
type snapshot struct {
	providers map[string]*model.Provider
	aliases   map[string]aliasTarget
	activeID  string
}

// Registry maps command aliases to providers. Reload builds a fresh
// snapshot off to the side and swaps it in under the write lock, so
// in-flight requests keep the snapshot they resolved against.
type Registry struct {
	mu            sync.RWMutex
	snap          *snapshot
	providerRepo  repository.ProviderRepositoryInterface
	aliasRepo     repository.AliasRepositoryInterface
	encryptionKey []byte
}

func New(providerRepo repository.ProviderRepositoryInterface, aliasRepo repository.AliasRepositoryInterface, encryptionKey []byte) *Registry {
	return &Registry{
		snap:          &snapshot{providers: map[string]*model.Provider{}, aliases: map[string]aliasTarget{}},
		providerRepo:  providerRepo,
		aliasRepo:     aliasRepo,
		encryptionKey: encryptionKey,
	}
}

// Reload rebuilds the snapshot from the database. Stored API keys are
// decrypted here once so the hot path never touches the cipher.
func (r *Registry) Reload() error {
	providers, err := r.providerRepo.List()
	if err != nil {
		return err
	}
	aliases, err := r.aliasRepo.List()
	if err != nil {
		return err
	}

	snap := &snapshot{
		providers: make(map[string]*model.Provider, len(providers)),
		aliases:   make(map[string]aliasTarget, len(aliases)),
	}
	for _, p := range providers {
		cp := *p
		if crypto.IsEncrypted(cp.APIKey) {
			plain, err := crypto.Decrypt(cp.APIKey, r.encryptionKey)
			if err != nil {
				log.Warnf("registry: cannot decrypt api key for provider %s: %v", cp.Name, err)
				cp.APIKey = ""
			} else {
				cp.APIKey = string(plain)
			}
		}
		snap.providers[cp.ID] = &cp
		if cp.IsActive {
			snap.activeID = cp.ID
		}
	}
	for _, a := range aliases {
		if _, ok := snap.providers[a.ProviderID]; !ok {
			log.Warnf("registry: alias %s points at missing provider %s, skipping", a.Alias, a.ProviderID)
			continue
		}
		snap.aliases[a.Alias] = aliasTarget{providerID: a.ProviderID, promptVariant: a.PromptVariant}
	}

	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()

	log.Debugf("registry: loaded %d providers, %d aliases", len(snap.providers), len(snap.aliases))
	return nil
}

func (r *Registry) current() *snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// Resolve maps an alias to a provider. The reserved aliases "default"
// and "default-custom" always follow the currently active provider.
func (r *Registry) Resolve(alias string) (*Resolution, error) {
	snap := r.current()

	switch alias {
	case model.ReservedAliasDefault, model.ReservedAliasDefaultCustom:
		if snap.activeID == "" {
			return nil, ErrNoActiveProvider
		}
		variant := model.PromptVariantStandard
		if alias == model.ReservedAliasDefaultCustom {
			variant = model.PromptVariantCustom
		}
		return &Resolution{Provider: snap.providers[snap.activeID], PromptVariant: variant}, nil
	}

	target, ok := snap.aliases[alias]
	if !ok {
		return nil, ErrUnknownAlias
	}
	p, ok := snap.providers[target.providerID]
	if !ok {
		return nil, ErrUnknownAlias
	}
	return &Resolution{Provider: p, PromptVariant: target.promptVariant}, nil
}

// ActiveProvider returns the provider currently marked active, or nil.
func (r *Registry) ActiveProvider() *model.Provider {
	snap := r.current()
	if snap.activeID == "" {
		return nil
	}
	return snap.providers[snap.activeID]
}

// Aliases returns the alias table of the current snapshot.
func (r *Registry) Aliases() map[string]string {
	snap := r.current()
	out := make(map[string]string, len(snap.aliases))
	for alias, target := range snap.aliases {
		if p, ok := snap.providers[target.providerID]; ok {
			out[alias] = p.Name
		}
	}
	return out
}
