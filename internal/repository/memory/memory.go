// Package memory provides an in-memory repository.Store. Write transactions
// work on a private copy of the state that replaces the shared state only on
// commit, so a failed or panicking transaction leaves nothing behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/Dan9191/bank-ledger/internal/repository"
)

type state struct {
	clients  map[int64]models.Client
	accounts map[int64]models.Account
	txns     map[int64]models.Transaction

	clientSeq, accountSeq, txnSeq int64
}

func newState() *state {
	return &state{
		clients:  make(map[int64]models.Client),
		accounts: make(map[int64]models.Account),
		txns:     make(map[int64]models.Transaction),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.txns {
		c.txns[k] = v
	}
	c.clientSeq, c.accountSeq, c.txnSeq = s.clientSeq, s.accountSeq, s.txnSeq
	return c
}

// Store implements repository.Store in process memory
type Store struct {
	mu sync.RWMutex
	st *state
}

// New creates an empty store
func New() *Store {
	return &Store{st: newState()}
}

// WithTx implements repository.Store
func (s *Store) WithTx(ctx context.Context, fn func(repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %w", models.ErrStoreFailure, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// ReadTx implements repository.Store
func (s *Store) ReadTx(ctx context.Context, fn func(repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %w", models.ErrStoreFailure, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&tx{st: s.st, readOnly: true})
}

type tx struct {
	st       *state
	readOnly bool
}

func (t *tx) writable() error {
	if t.readOnly {
		return fmt.Errorf("write in read-only transaction: %w", models.ErrStoreFailure)
	}
	return nil
}

func (t *tx) GetClient(_ context.Context, id int64) (*models.Client, error) {
	c, ok := t.st.clients[id]
	if !ok {
		return nil, fmt.Errorf("client %d: %w", id, models.ErrClientNotFound)
	}
	return &c, nil
}

func (t *tx) ListClients(_ context.Context) ([]models.Client, error) {
	out := make([]models.Client, 0, len(t.st.clients))
	for _, c := range t.st.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) nationalIDTaken(nationalID string, except int64) bool {
	for _, c := range t.st.clients {
		if c.NationalID == nationalID && c.ID != except {
			return true
		}
	}
	return false
}

func (t *tx) InsertClient(_ context.Context, client *models.Client) error {
	if err := t.writable(); err != nil {
		return err
	}
	if t.nationalIDTaken(client.NationalID, 0) {
		return fmt.Errorf("failed to create client: %w: national id %s", models.ErrDuplicate, client.NationalID)
	}
	t.st.clientSeq++
	client.ID = t.st.clientSeq
	t.st.clients[client.ID] = *client
	return nil
}

func (t *tx) UpdateClient(_ context.Context, client *models.Client) error {
	if err := t.writable(); err != nil {
		return err
	}
	cur, ok := t.st.clients[client.ID]
	if !ok {
		return fmt.Errorf("client %d: %w", client.ID, models.ErrClientNotFound)
	}
	if cur.Version != client.Version {
		return fmt.Errorf("clients %d: %w", client.ID, models.ErrVersionConflict)
	}
	if t.nationalIDTaken(client.NationalID, client.ID) {
		return fmt.Errorf("failed to update client: %w: national id %s", models.ErrDuplicate, client.NationalID)
	}
	client.Version++
	t.st.clients[client.ID] = *client
	return nil
}

func (t *tx) DeleteClient(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.clients[id]; !ok {
		return fmt.Errorf("client %d: %w", id, models.ErrClientNotFound)
	}
	for _, a := range t.st.accounts {
		if a.OwnerID == id {
			return fmt.Errorf("failed to delete client: %w: account %d still references client %d",
				models.ErrStoreFailure, a.ID, id)
		}
	}
	delete(t.st.clients, id)
	return nil
}

func (t *tx) GetAccount(_ context.Context, id int64) (*models.Account, error) {
	a, ok := t.st.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, models.ErrAccountNotFound)
	}
	return &a, nil
}

func (t *tx) ListAccounts(_ context.Context, filter models.AccountFilter) ([]models.Account, error) {
	out := make([]models.Account, 0, len(t.st.accounts))
	for _, a := range t.st.accounts {
		if filter.OwnerID != 0 && a.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) InsertAccount(_ context.Context, account *models.Account) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.clients[account.OwnerID]; !ok {
		return fmt.Errorf("failed to create account: client %d: %w", account.OwnerID, models.ErrClientNotFound)
	}
	t.st.accountSeq++
	account.ID = t.st.accountSeq
	t.st.accounts[account.ID] = *account
	return nil
}

func (t *tx) UpdateAccount(_ context.Context, account *models.Account) error {
	if err := t.writable(); err != nil {
		return err
	}
	cur, ok := t.st.accounts[account.ID]
	if !ok {
		return fmt.Errorf("account %d: %w", account.ID, models.ErrAccountNotFound)
	}
	if cur.Version != account.Version {
		return fmt.Errorf("accounts %d: %w", account.ID, models.ErrVersionConflict)
	}
	if _, ok := t.st.clients[account.OwnerID]; !ok {
		return fmt.Errorf("failed to update account: client %d: %w", account.OwnerID, models.ErrClientNotFound)
	}
	account.Version++
	t.st.accounts[account.ID] = *account
	return nil
}

// DeleteAccount clears references from ledger entries the way ON DELETE SET NULL does
func (t *tx) DeleteAccount(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.accounts[id]; !ok {
		return fmt.Errorf("account %d: %w", id, models.ErrAccountNotFound)
	}
	delete(t.st.accounts, id)
	for k, txn := range t.st.txns {
		if txn.PayerID != nil && *txn.PayerID == id {
			txn.PayerID = nil
		}
		if txn.ReceiverID != nil && *txn.ReceiverID == id {
			txn.ReceiverID = nil
		}
		t.st.txns[k] = txn
	}
	return nil
}

func (t *tx) GetTransaction(_ context.Context, id int64) (*models.Transaction, error) {
	txn, ok := t.st.txns[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", id, models.ErrTransactionNotFound)
	}
	return &txn, nil
}

func (t *tx) ownerName(accountID *int64) string {
	if accountID == nil {
		return ""
	}
	a, ok := t.st.accounts[*accountID]
	if !ok {
		return ""
	}
	return t.st.clients[a.OwnerID].Name
}

func (t *tx) ListTransactions(_ context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	out := make([]models.Transaction, 0, len(t.st.txns))
	for _, txn := range t.st.txns {
		if filter.AccountID != 0 && !txn.Involves(filter.AccountID) {
			continue
		}
		if filter.Kind != "" && txn.Kind != filter.Kind {
			continue
		}
		if filter.OwnerName != "" &&
			t.ownerName(txn.PayerID) != filter.OwnerName &&
			t.ownerName(txn.ReceiverID) != filter.OwnerName {
			continue
		}
		out = append(out, txn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) InsertTransaction(_ context.Context, txn *models.Transaction) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, id := range []*int64{txn.PayerID, txn.ReceiverID} {
		if id == nil {
			continue
		}
		if _, ok := t.st.accounts[*id]; !ok {
			return fmt.Errorf("failed to create transaction: account %d: %w", *id, models.ErrAccountNotFound)
		}
	}
	t.st.txnSeq++
	txn.ID = t.st.txnSeq
	t.st.txns[txn.ID] = *txn
	return nil
}

func (t *tx) DeleteTransaction(_ context.Context, id int64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.txns[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, models.ErrTransactionNotFound)
	}
	delete(t.st.txns, id)
	return nil
}
