package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"tokenforge/engine/internal/container/domain"
)

// PostgresTemplateRepository persists templates in the container_templates
// table. The token list and options travel together in one JSONB document.
type PostgresTemplateRepository struct {
	db *sql.DB
}

// NewPostgresTemplateRepository returns a template repository that uses the
// given db.
func NewPostgresTemplateRepository(db *sql.DB) *PostgresTemplateRepository {
	return &PostgresTemplateRepository{db: db}
}

// templateDoc is the JSONB document stored in the options column.
type templateDoc struct {
	Tokens  []domain.TokenTemplate `json:"tokens"`
	Options map[string]string      `json:"options,omitempty"`
}

// Create persists the template. The name is the primary key.
func (r *PostgresTemplateRepository) Create(ctx context.Context, tpl *domain.Template) error {
	doc, err := json.Marshal(templateDoc{Tokens: tpl.Tokens, Options: tpl.Options})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO container_templates (name, container_type, options, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		tpl.Name, tpl.ContainerType, doc, tpl.Default, tpl.CreatedAt, tpl.UpdatedAt,
	)
	return err
}

// GetByName returns the template, or nil if not found.
func (r *PostgresTemplateRepository) GetByName(ctx context.Context, name string) (*domain.Template, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT name, container_type, options, is_default, created_at, updated_at
		FROM container_templates WHERE name = $1`, name)
	tpl, err := scanTemplate(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return tpl, err
}

// List returns the templates for a container type, ordered by name. An empty
// containerType lists all templates.
func (r *PostgresTemplateRepository) List(ctx context.Context, containerType string) ([]*domain.Template, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, container_type, options, is_default, created_at, updated_at
		FROM container_templates
		WHERE $1 = '' OR container_type = $1
		ORDER BY name`, containerType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

// ClearDefault drops the default flag from all templates of the type.
func (r *PostgresTemplateRepository) ClearDefault(ctx context.Context, containerType string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE container_templates SET is_default = FALSE
		WHERE container_type = $1 AND is_default`, containerType)
	return err
}

// Delete removes the template.
func (r *PostgresTemplateRepository) Delete(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM container_templates WHERE name = $1`, name)
	return err
}

func scanTemplate(scan func(...any) error) (*domain.Template, error) {
	var (
		tpl domain.Template
		raw []byte
	)
	if err := scan(&tpl.Name, &tpl.ContainerType, &raw, &tpl.Default, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
		return nil, err
	}
	var doc templateDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	tpl.Tokens = doc.Tokens
	tpl.Options = doc.Options
	return &tpl, nil
}
