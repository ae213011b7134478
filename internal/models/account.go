package models

// Account holds a balance in minor currency units
type Account struct {
	ID           int64  `json:"id"`
	OwnerID      int64  `json:"owner_id"`
	Balance      int64  `json:"balance"`
	PasswordHash string `json:"-"` // Not serialized
	Version      int64  `json:"version"`
}

// InitialVersion is the version assigned to freshly inserted clients and accounts
const InitialVersion int64 = 1

// AccountFilter narrows account listings. Zero values match everything.
type AccountFilter struct {
	OwnerID int64
}
