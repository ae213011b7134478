package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/Dan9191/bank-ledger/internal/repository"
)

// ClientUpdate changes the fields that are set
type ClientUpdate struct {
	ID              int64
	ExpectedVersion *int64
	NationalID      *string
	Name            *string
}

// GetClient returns a single client
func (s *Service) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	var client *models.Client
	err := s.read(ctx, "get_client", func(tx repository.Tx) error {
		var err error
		client, err = tx.GetClient(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ListClients returns every client
func (s *Service) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := s.read(ctx, "list_clients", func(tx repository.Tx) error {
		var err error
		clients, err = tx.ListClients(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debugf("Listed %d clients", len(clients))
	return clients, nil
}

// CreateClient registers a new client
func (s *Service) CreateClient(ctx context.Context, nationalID, name string) (*models.Client, error) {
	nationalID, name = strings.TrimSpace(nationalID), strings.TrimSpace(name)
	if nationalID == "" || name == "" {
		return nil, fmt.Errorf("%w: national id and name are required", models.ErrInvalidInput)
	}

	client := &models.Client{NationalID: nationalID, Name: name, Version: models.InitialVersion}
	err := s.write(ctx, "create_client", func(ctx context.Context, tx repository.Tx) error {
		return tx.InsertClient(ctx, client)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Client %d registered", client.ID)
	return client, nil
}

// UpdateClient changes the national id and/or name of a client
func (s *Service) UpdateClient(ctx context.Context, in ClientUpdate) (*models.Client, error) {
	if in.NationalID != nil && strings.TrimSpace(*in.NationalID) == "" {
		return nil, fmt.Errorf("%w: national id is empty", models.ErrInvalidInput)
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name is empty", models.ErrInvalidInput)
	}

	var client *models.Client
	err := s.write(ctx, "update_client", func(ctx context.Context, tx repository.Tx) error {
		var err error
		if client, err = tx.GetClient(ctx, in.ID); err != nil {
			return err
		}
		if err := checkVersion("client", client.ID, client.Version, in.ExpectedVersion); err != nil {
			return err
		}
		if in.NationalID != nil {
			client.NationalID = strings.TrimSpace(*in.NationalID)
		}
		if in.Name != nil {
			client.Name = strings.TrimSpace(*in.Name)
		}
		return tx.UpdateClient(ctx, client)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Client %d updated to version %d", client.ID, client.Version)
	return client, nil
}

// DeleteClient removes a client together with its accounts. Every owned
// account must hold a zero balance, otherwise nothing is removed.
func (s *Service) DeleteClient(ctx context.Context, id int64) (*models.Client, []models.Account, error) {
	var (
		client   *models.Client
		accounts []models.Account
	)
	err := s.write(ctx, "delete_client", func(ctx context.Context, tx repository.Tx) error {
		var err error
		if client, err = tx.GetClient(ctx, id); err != nil {
			return err
		}
		if accounts, err = tx.ListAccounts(ctx, models.AccountFilter{OwnerID: id}); err != nil {
			return err
		}
		for _, a := range accounts {
			if a.Balance != 0 {
				return fmt.Errorf("client %d: account %d holds %d: %w", id, a.ID, a.Balance, models.ErrNonZeroBalance)
			}
		}
		for _, a := range accounts {
			if err := tx.DeleteAccount(ctx, a.ID); err != nil {
				return err
			}
		}
		return tx.DeleteClient(ctx, id)
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Infof("Client %d deleted with %d accounts", id, len(accounts))
	return client, accounts, nil
}
