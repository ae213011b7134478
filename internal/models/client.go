package models

// Client represents an account holder
type Client struct {
	ID         int64  `json:"id"`
	NationalID string `json:"national_id"`
	Name       string `json:"name"`
	Version    int64  `json:"version"`
}
