package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements TokenStore using an environment variable.
// Read-only, mainly for CI and scripted runs.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based token store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(token *Token) error {
	return ErrStoreUnavailable
}

// Retrieve gets the token from the environment
func (e *EnvironmentStore) Retrieve() (*Token, error) {
	accessToken := os.Getenv("VKDUMP_ACCESS_TOKEN")
	if accessToken == "" {
		return nil, ErrTokenNotFound
	}

	return &Token{
		AccessToken:  accessToken,
		LastModified: time.Now(),
	}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete() error {
	return ErrStoreUnavailable
}

// Exists checks if the environment token is set
func (e *EnvironmentStore) Exists() bool {
	return os.Getenv("VKDUMP_ACCESS_TOKEN") != ""
}
