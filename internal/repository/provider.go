package repository

import (
	"database/sql"
	"time"

	"aiproxy/internal/database"
	"aiproxy/internal/model"

	"github.com/google/uuid"
)

type ProviderRepositoryInterface interface {
	Create(provider *model.Provider) error
	GetByID(id string) (*model.Provider, error)
	GetByName(name string) (*model.Provider, error)
	GetActive() (*model.Provider, error)
	List() ([]*model.Provider, error)
	Update(provider *model.Provider) error
	UpdateWithAliases(provider *model.Provider, aliasRenames map[string]string) error
	Delete(id string) error
	SetActive(id string) error
}

var _ ProviderRepositoryInterface = (*ProviderRepository)(nil)

type ProviderRepository struct{}

func NewProviderRepository() *ProviderRepository {
	return &ProviderRepository{}
}

const providerColumns = `id, name, api_endpoint, api_key, auth_method, dialect, default_model, tier_mapping_json, model_override_json, headers_json, is_active, created_at, updated_at`

func scanProvider(scan func(dest ...any) error) (*model.Provider, error) {
	p := &model.Provider{}
	err := scan(
		&p.ID, &p.Name, &p.APIEndpoint, &p.APIKey, &p.AuthMethod, &p.Dialect, &p.DefaultModel,
		&p.TierMappingJSON, &p.ModelOverrideJSON, &p.HeadersJSON, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProviderRepository) Create(provider *model.Provider) error {
	db := database.GetDB()
	provider.ID = uuid.New().String()
	now := time.Now()
	provider.CreatedAt = now
	provider.UpdatedAt = now

	_, err := db.Exec(
		`INSERT INTO providers (id, name, api_endpoint, api_key, auth_method, dialect, default_model, tier_mapping_json, model_override_json, headers_json, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		provider.ID, provider.Name, provider.APIEndpoint, provider.APIKey, provider.AuthMethod, provider.Dialect,
		provider.DefaultModel, provider.TierMappingJSON, provider.ModelOverrideJSON, provider.HeadersJSON,
		provider.IsActive, provider.CreatedAt, provider.UpdatedAt,
	)
	return err
}

func (r *ProviderRepository) GetByID(id string) (*model.Provider, error) {
	db := database.GetDB()
	p, err := scanProvider(db.QueryRow(
		`SELECT `+providerColumns+` FROM providers WHERE id = ?`, id,
	).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProviderRepository) GetByName(name string) (*model.Provider, error) {
	db := database.GetDB()
	p, err := scanProvider(db.QueryRow(
		`SELECT `+providerColumns+` FROM providers WHERE name = ?`, name,
	).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProviderRepository) GetActive() (*model.Provider, error) {
	db := database.GetDB()
	p, err := scanProvider(db.QueryRow(
		`SELECT ` + providerColumns + ` FROM providers WHERE is_active = 1 LIMIT 1`,
	).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProviderRepository) List() ([]*model.Provider, error) {
	db := database.GetDB()
	rows, err := db.Query(`SELECT ` + providerColumns + ` FROM providers ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []*model.Provider
	for rows.Next() {
		p, err := scanProvider(rows.Scan)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

func (r *ProviderRepository) Update(provider *model.Provider) error {
	db := database.GetDB()
	provider.UpdatedAt = time.Now()

	_, err := db.Exec(
		`UPDATE providers SET name = ?, api_endpoint = ?, api_key = ?, auth_method = ?, dialect = ?, default_model = ?, tier_mapping_json = ?, model_override_json = ?, headers_json = ?, updated_at = ?
		 WHERE id = ?`,
		provider.Name, provider.APIEndpoint, provider.APIKey, provider.AuthMethod, provider.Dialect,
		provider.DefaultModel, provider.TierMappingJSON, provider.ModelOverrideJSON, provider.HeadersJSON,
		provider.UpdatedAt, provider.ID,
	)
	return err
}

// UpdateWithAliases 在同一事务内更新供应商并改写其别名，任一失败则整体回滚
func (r *ProviderRepository) UpdateWithAliases(provider *model.Provider, aliasRenames map[string]string) error {
	db := database.GetDB()
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	provider.UpdatedAt = time.Now()
	_, err = tx.Exec(
		`UPDATE providers SET name = ?, api_endpoint = ?, api_key = ?, auth_method = ?, dialect = ?, default_model = ?, tier_mapping_json = ?, model_override_json = ?, headers_json = ?, updated_at = ?
		 WHERE id = ?`,
		provider.Name, provider.APIEndpoint, provider.APIKey, provider.AuthMethod, provider.Dialect,
		provider.DefaultModel, provider.TierMappingJSON, provider.ModelOverrideJSON, provider.HeadersJSON,
		provider.UpdatedAt, provider.ID,
	)
	if err != nil {
		return err
	}
	for oldAlias, newAlias := range aliasRenames {
		_, err := tx.Exec(
			`UPDATE command_aliases SET alias = ?, updated_at = ? WHERE provider_id = ? AND alias = ?`,
			newAlias, provider.UpdatedAt, provider.ID, oldAlias,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *ProviderRepository) Delete(id string) error {
	db := database.GetDB()
	_, err := db.Exec(`DELETE FROM providers WHERE id = ?`, id)
	return err
}

// SetActive 在同一事务内清除旧的激活标记，保证最多只有一个激活供应商
func (r *ProviderRepository) SetActive(id string) error {
	db := database.GetDB()
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.Exec(`UPDATE providers SET is_active = 0, updated_at = ? WHERE is_active = 1`, now); err != nil {
		return err
	}
	res, err := tx.Exec(`UPDATE providers SET is_active = 1, updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}
