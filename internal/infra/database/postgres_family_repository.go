package database

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresFamilyRepository struct {
	db *sql.DB
}

func NewPostgresFamilyRepository(db *sql.DB) *PostgresFamilyRepository {
	return &PostgresFamilyRepository{db: db}
}

func (r *PostgresFamilyRepository) ListAll(ctx context.Context) ([]string, error) {
	query := `SELECT description FROM families ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing families: %w", err)
	}
	defer rows.Close()

	families := make([]string, 0)
	for rows.Next() {
		var description string
		if err := rows.Scan(&description); err != nil {
			return nil, fmt.Errorf("error scanning family: %w", err)
		}
		families = append(families, description)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating families: %w", err)
	}
	return families, nil
}
