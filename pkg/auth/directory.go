package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Lockout policy. After maxFailedLogins consecutive failures the account
// is locked for lockoutWindow; a successful login resets the counter.
const (
	maxFailedLogins = 5
	lockoutWindow   = 15 * time.Minute
)

var (
	// ErrInvalidCredentials is returned when the username or password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned while a lockout window is in effect.
	ErrAccountLocked = errors.New("account locked")

	// ErrAccountDisabled is returned for disabled accounts.
	ErrAccountDisabled = errors.New("account disabled")
)

// Directory is an in-memory user directory with credential verification
// and failed-login lockout.
type Directory struct {
	mu    sync.RWMutex
	users map[string]*User // keyed by username
	now   func() time.Time
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithDirectoryClock overrides the time source. Used in tests.
func WithDirectoryClock(now func() time.Time) DirectoryOption {
	return func(d *Directory) { d.now = now }
}

// NewDirectory creates an empty user directory.
func NewDirectory(opts ...DirectoryOption) *Directory {
	d := &Directory{
		users: make(map[string]*User),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddUser registers a new account with the given plaintext password.
func (d *Directory) AddUser(username, password string, role Role) (*User, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role: %q", role)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.users[username]; exists {
		return nil, fmt.Errorf("user %q already exists", username)
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Status:       AccountActive,
		CreatedAt:    d.now(),
	}
	d.users[username] = u

	out := *u
	return &out, nil
}

// Lookup returns the account for a username, or nil if unknown.
func (d *Directory) Lookup(username string) *User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[username]
	if !ok {
		return nil
	}
	out := *u
	return &out
}

// Authenticate verifies a username and password. Failed attempts are
// counted per account; too many in a row lock the account out.
func (d *Directory) Authenticate(username, password string) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[username]
	if !ok {
		// Burn a hash comparison so unknown users cost the same as
		// wrong passwords.
		VerifyPassword("$2a$10$000000000000000000000uGyUvPeUMCGyBDrcgXC1gqrCBNvMYSPi", password)
		return nil, ErrInvalidCredentials
	}

	now := d.now()
	if u.Status == AccountDisabled {
		return nil, ErrAccountDisabled
	}
	if u.Locked(now) {
		return nil, fmt.Errorf("%w until %s", ErrAccountLocked, u.LockedUntil.Format(time.RFC3339))
	}

	if !VerifyPassword(u.PasswordHash, password) {
		u.FailedLogins++
		if u.FailedLogins >= maxFailedLogins {
			u.LockedUntil = now.Add(lockoutWindow)
			u.FailedLogins = 0
			slog.Warn("account locked after repeated failed logins",
				"username", username,
				"locked_until", u.LockedUntil)
		}
		return nil, ErrInvalidCredentials
	}

	u.FailedLogins = 0
	u.LockedUntil = time.Time{}

	out := *u
	return &out, nil
}

// Disable marks an account as disabled.
func (d *Directory) Disable(username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[username]
	if !ok {
		return fmt.Errorf("user %q not found", username)
	}
	u.Status = AccountDisabled
	return nil
}
