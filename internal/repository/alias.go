package repository

import (
	"database/sql"
	"time"

	"aiproxy/internal/database"
	"aiproxy/internal/model"

	"github.com/google/uuid"
)

type AliasRepositoryInterface interface {
	Create(alias *model.CommandAlias) error
	GetByID(id string) (*model.CommandAlias, error)
	GetByAlias(alias string) (*model.CommandAlias, error)
	List() ([]*model.CommandAlias, error)
	ListByProvider(providerID string) ([]*model.CommandAlias, error)
	Update(alias *model.CommandAlias) error
	Delete(id string) error
}

var _ AliasRepositoryInterface = (*AliasRepository)(nil)

type AliasRepository struct{}

func NewAliasRepository() *AliasRepository {
	return &AliasRepository{}
}

const aliasColumns = `id, provider_id, alias, prompt_variant, created_at, updated_at`

func scanAlias(scan func(dest ...any) error) (*model.CommandAlias, error) {
	a := &model.CommandAlias{}
	err := scan(&a.ID, &a.ProviderID, &a.Alias, &a.PromptVariant, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AliasRepository) Create(alias *model.CommandAlias) error {
	db := database.GetDB()
	alias.ID = uuid.New().String()
	now := time.Now()
	alias.CreatedAt = now
	alias.UpdatedAt = now

	_, err := db.Exec(
		`INSERT INTO command_aliases (id, provider_id, alias, prompt_variant, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		alias.ID, alias.ProviderID, alias.Alias, alias.PromptVariant, alias.CreatedAt, alias.UpdatedAt,
	)
	return err
}

func (r *AliasRepository) GetByID(id string) (*model.CommandAlias, error) {
	db := database.GetDB()
	a, err := scanAlias(db.QueryRow(
		`SELECT `+aliasColumns+` FROM command_aliases WHERE id = ?`, id,
	).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AliasRepository) GetByAlias(alias string) (*model.CommandAlias, error) {
	db := database.GetDB()
	a, err := scanAlias(db.QueryRow(
		`SELECT `+aliasColumns+` FROM command_aliases WHERE alias = ?`, alias,
	).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AliasRepository) List() ([]*model.CommandAlias, error) {
	db := database.GetDB()
	rows, err := db.Query(`SELECT ` + aliasColumns + ` FROM command_aliases ORDER BY alias ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aliases []*model.CommandAlias
	for rows.Next() {
		a, err := scanAlias(rows.Scan)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

func (r *AliasRepository) ListByProvider(providerID string) ([]*model.CommandAlias, error) {
	db := database.GetDB()
	rows, err := db.Query(`SELECT `+aliasColumns+` FROM command_aliases WHERE provider_id = ? ORDER BY alias ASC`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aliases []*model.CommandAlias
	for rows.Next() {
		a, err := scanAlias(rows.Scan)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

func (r *AliasRepository) Update(alias *model.CommandAlias) error {
	db := database.GetDB()
	alias.UpdatedAt = time.Now()

	_, err := db.Exec(
		`UPDATE command_aliases SET provider_id = ?, alias = ?, prompt_variant = ?, updated_at = ? WHERE id = ?`,
		alias.ProviderID, alias.Alias, alias.PromptVariant, alias.UpdatedAt, alias.ID,
	)
	return err
}

func (r *AliasRepository) Delete(id string) error {
	db := database.GetDB()
	_, err := db.Exec(`DELETE FROM command_aliases WHERE id = ?`, id)
	return err
}
