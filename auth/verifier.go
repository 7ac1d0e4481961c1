package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ammiranda/forest_service/config"
	"github.com/ammiranda/forest_service/models"

	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier checks a username and password
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (Principal, error)
}

type account struct {
	hash []byte
	role Role
}

// StaticVerifier checks credentials against a fixed table of bcrypt hashes
type StaticVerifier struct {
	mu       sync.RWMutex
	accounts map[string]account
}

// NewStaticVerifier parses a table in the form "name:bcrypt-hash:Role,...".
// An empty table in development falls back to admin/admin and user/user.
func NewStaticVerifier(table string, env config.Environment) (*StaticVerifier, error) {
	v := &StaticVerifier{accounts: make(map[string]account)}

	table = strings.TrimSpace(table)
	if table == "" {
		if env != config.Development {
			return nil, fmt.Errorf("no users configured for %s", env)
		}
		if err := v.AddUser("admin", "admin", RoleAdmin); err != nil {
			return nil, err
		}
		if err := v.AddUser("user", "user", RoleReader); err != nil {
			return nil, err
		}
		return v, nil
	}

	for _, entry := range strings.Split(table, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		// bcrypt hashes contain '$' but never ':'
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed user entry %q", entry)
		}
		role, err := ParseRole(parts[2])
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", parts[0], err)
		}
		if _, err := bcrypt.Cost([]byte(parts[1])); err != nil {
			return nil, fmt.Errorf("user %q: invalid bcrypt hash: %w", parts[0], err)
		}
		v.accounts[parts[0]] = account{hash: []byte(parts[1]), role: role}
	}
	if len(v.accounts) == 0 {
		return nil, fmt.Errorf("user table contains no entries")
	}
	return v, nil
}

// AddUser hashes password and registers the account
func (v *StaticVerifier) AddUser(username, password string, role Role) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password for %q: %w", username, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.accounts[username] = account{hash: hash, role: role}
	return nil
}

// Verify returns the principal for valid credentials or models.ErrUnauthorized
func (v *StaticVerifier) Verify(ctx context.Context, username, password string) (Principal, error) {
	v.mu.RLock()
	acct, ok := v.accounts[username]
	v.mu.RUnlock()
	if !ok {
		return Principal{}, models.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return Principal{}, models.ErrUnauthorized
	}
	return Principal{Username: username, Role: acct.role}, nil
}
