package models

import (
	"spactl/internal/storage"
)

// TokenKey is the durable storage key holding the raw session token
const TokenKey = "auth_token"

// TokenStore reads and writes the session token in durable storage.
// Durable storage is the single source of truth for whether a credential exists.
type TokenStore struct {
	storage storage.Storage
}

func NewTokenStore(s storage.Storage) *TokenStore {
	if s == nil {
		s = storage.Noop{}
	}
	return &TokenStore{storage: s}
}

func (ts *TokenStore) SaveToken(token string) error {
	return ts.storage.SetItem(TokenKey, token)
}

// GetToken returns "" when no token is stored
func (ts *TokenStore) GetToken() (string, error) {
	token, ok, err := ts.storage.GetItem(TokenKey)
	if err != nil || !ok {
		return "", err
	}
	return token, nil
}

func (ts *TokenStore) ClearToken() error {
	return ts.storage.RemoveItem(TokenKey)
}
