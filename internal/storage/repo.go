package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var ErrNotFound = errors.New("not found")

var providerColumns = []string{
	"id", "name", "category", "kind", "base_url", "enc_api_key", "enc_headers_json", "config_json", "position", "created_at",
}

func (s *Store) UpsertProviderInstance(ctx context.Context, p ProviderInstance) (int64, error) {
	if p.ConfigJSON == "" {
		p.ConfigJSON = "{}"
	}
	q := s.sql.Insert("provider_instances").
		Columns("name", "category", "kind", "base_url", "enc_api_key", "enc_headers_json", "config_json", "position").
		Values(p.Name, p.Category, p.Kind, p.BaseURL, p.EncAPIKey, p.EncHeadersJSON, p.ConfigJSON, p.Position).
		Suffix("ON CONFLICT(category, name) DO UPDATE SET kind=excluded.kind, base_url=excluded.base_url, enc_api_key=excluded.enc_api_key, enc_headers_json=excluded.enc_headers_json, config_json=excluded.config_json, position=excluded.position")

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build provider upsert query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return 0, fmt.Errorf("upsert provider: %w", err)
	}

	got, err := s.GetProviderByName(ctx, p.Category, p.Name)
	if err != nil {
		return 0, err
	}
	return got.ID, nil
}

func (s *Store) GetProviderByName(ctx context.Context, category, name string) (ProviderInstance, error) {
	q := s.sql.Select(providerColumns...).
		From("provider_instances").
		Where(sq.Eq{"category": category, "name": name})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return ProviderInstance{}, fmt.Errorf("build provider by name query: %w", err)
	}

	p, err := scanProvider(s.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProviderInstance{}, ErrNotFound
		}
		return ProviderInstance{}, fmt.Errorf("get provider by name: %w", err)
	}
	return p, nil
}

// ListProviders returns the providers of a category in catalog order.
func (s *Store) ListProviders(ctx context.Context, category string) ([]ProviderInstance, error) {
	q := s.sql.Select(providerColumns...).
		From("provider_instances").
		Where(sq.Eq{"category": category}).
		OrderBy("position ASC", "id ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list providers query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	out := make([]ProviderInstance, 0)
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provider rows: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteProviderByName(ctx context.Context, category, name string) error {
	p, err := s.GetProviderByName(ctx, category, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete provider: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []sq.DeleteBuilder{
		s.sql.Delete("models").Where(sq.Eq{"provider_instance_id": p.ID}),
		s.sql.Delete("provider_instances").Where(sq.Eq{"id": p.ID}),
	} {
		sqlStr, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build delete provider query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("delete provider: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete provider: %w", err)
	}
	return nil
}

func (s *Store) UpsertModel(ctx context.Context, m Model) error {
	q := s.sql.Insert("models").
		Columns("provider_instance_id", "name", "position").
		Values(m.ProviderInstanceID, m.Name, m.Position).
		Suffix("ON CONFLICT(provider_instance_id, name) DO UPDATE SET position=excluded.position")

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build model upsert query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("upsert model: %w", err)
	}
	return nil
}

func (s *Store) DeleteModel(ctx context.Context, providerID int64, name string) error {
	q := s.sql.Delete("models").Where(sq.Eq{"provider_instance_id": providerID, "name": name})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete model query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListModels returns models of the given providers keyed by provider id, each in catalog order.
func (s *Store) ListModels(ctx context.Context, providerIDs ...int64) (map[int64][]Model, error) {
	out := make(map[int64][]Model, len(providerIDs))
	if len(providerIDs) == 0 {
		return out, nil
	}
	q := s.sql.Select("id", "provider_instance_id", "name", "position", "created_at").
		From("models").
		Where(sq.Eq{"provider_instance_id": providerIDs}).
		OrderBy("position ASC", "id ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list models query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Model
		if err := rows.Scan(&m.ID, &m.ProviderInstanceID, &m.Name, &m.Position, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan model row: %w", err)
		}
		out[m.ProviderInstanceID] = append(out[m.ProviderInstanceID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model rows: %w", err)
	}
	return out, nil
}

// ListCatalog loads every provider of a category together with its models.
func (s *Store) ListCatalog(ctx context.Context, category string) ([]ProviderWithModels, error) {
	provs, err := s.ListProviders(ctx, category)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(provs))
	for _, p := range provs {
		ids = append(ids, p.ID)
	}
	models, err := s.ListModels(ctx, ids...)
	if err != nil {
		return nil, err
	}

	out := make([]ProviderWithModels, 0, len(provs))
	for _, p := range provs {
		out = append(out, ProviderWithModels{Provider: p, Models: models[p.ID]})
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (ProviderInstance, error) {
	var p ProviderInstance
	var encAPIKey, encHeaders sql.NullString
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Category,
		&p.Kind,
		&p.BaseURL,
		&encAPIKey,
		&encHeaders,
		&p.ConfigJSON,
		&p.Position,
		&p.CreatedAt,
	); err != nil {
		return ProviderInstance{}, err
	}
	if encAPIKey.Valid {
		p.EncAPIKey = &encAPIKey.String
	}
	if encHeaders.Valid {
		p.EncHeadersJSON = &encHeaders.String
	}
	return p, nil
}
