package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/bank-ledger/internal/models"
)

// GetClient retrieves a client by id
func (t *pgTx) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	client := &models.Client{}
	query := `
		SELECT id, national_id, name, version
		FROM clients
		WHERE id = $1`
	err := t.tx.QueryRowContext(ctx, query, id).
		Scan(&client.ID, &client.NationalID, &client.Name, &client.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("client %d: %w", id, models.ErrClientNotFound)
	}
	if err != nil {
		return nil, storeFailure("failed to find client", err)
	}
	return client, nil
}

// ListClients returns every client ordered by id
func (t *pgTx) ListClients(ctx context.Context) ([]models.Client, error) {
	query := `
		SELECT id, national_id, name, version
		FROM clients
		ORDER BY id`
	rows, err := t.tx.QueryContext(ctx, query)
	if err != nil {
		return nil, storeFailure("failed to list clients", err)
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.NationalID, &c.Name, &c.Version); err != nil {
			return nil, storeFailure("failed to scan client", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure("failed to list clients", err)
	}
	return clients, nil
}

// InsertClient creates a new client and fills in its id
func (t *pgTx) InsertClient(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO clients (national_id, name, version)
		VALUES ($1, $2, $3)
		RETURNING id`
	err := t.tx.QueryRowContext(ctx, query, client.NationalID, client.Name, client.Version).
		Scan(&client.ID)
	if err != nil {
		return classify("failed to create client", err, nil)
	}
	return nil
}

// UpdateClient implements Tx
func (t *pgTx) UpdateClient(ctx context.Context, client *models.Client) error {
	query := `
		UPDATE clients
		SET national_id = $1, name = $2, version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version`
	err := t.tx.QueryRowContext(ctx, query, client.NationalID, client.Name, client.ID, client.Version).
		Scan(&client.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return t.checkVersioned(ctx, "clients", client.ID,
			fmt.Errorf("client %d: %w", client.ID, models.ErrClientNotFound))
	}
	if err != nil {
		return classify("failed to update client", err, nil)
	}
	return nil
}

// DeleteClient removes a client row. Owned accounts must be gone already.
func (t *pgTx) DeleteClient(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return storeFailure("failed to delete client", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeFailure("failed to delete client", err)
	}
	if n == 0 {
		return fmt.Errorf("client %d: %w", id, models.ErrClientNotFound)
	}
	return nil
}
