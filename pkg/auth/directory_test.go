package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory_AddAndAuthenticate(t *testing.T) {
	d := NewDirectory()

	u, err := d.AddUser("alice", "s3cret", RoleAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, RoleAdmin, u.Role)
	assert.Equal(t, AccountActive, u.Status)

	got, err := d.Authenticate("alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestDirectory_DuplicateUsernameRejected(t *testing.T) {
	d := NewDirectory()

	_, err := d.AddUser("alice", "one", RoleUser)
	require.NoError(t, err)

	_, err = d.AddUser("alice", "two", RoleUser)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestDirectory_WrongPassword(t *testing.T) {
	d := NewDirectory()
	_, err := d.AddUser("alice", "s3cret", RoleUser)
	require.NoError(t, err)

	_, err = d.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDirectory_UnknownUser(t *testing.T) {
	d := NewDirectory()

	_, err := d.Authenticate("nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDirectory_LockoutAfterRepeatedFailures(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	d := NewDirectory(WithDirectoryClock(clock))

	_, err := d.AddUser("alice", "s3cret", RoleUser)
	require.NoError(t, err)

	for i := 0; i < maxFailedLogins; i++ {
		_, err = d.Authenticate("alice", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Even the correct password is refused while locked.
	_, err = d.Authenticate("alice", "s3cret")
	assert.ErrorIs(t, err, ErrAccountLocked)

	// After the lockout window passes the account works again.
	now = now.Add(lockoutWindow + time.Second)
	got, err := d.Authenticate("alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestDirectory_SuccessResetsFailureCount(t *testing.T) {
	d := NewDirectory()
	_, err := d.AddUser("alice", "s3cret", RoleUser)
	require.NoError(t, err)

	for i := 0; i < maxFailedLogins-1; i++ {
		_, _ = d.Authenticate("alice", "wrong")
	}

	_, err = d.Authenticate("alice", "s3cret")
	require.NoError(t, err)

	// The counter reset, so one more failure does not lock.
	_, err = d.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = d.Authenticate("alice", "s3cret")
	require.NoError(t, err)
}

func TestDirectory_DisabledAccount(t *testing.T) {
	d := NewDirectory()
	_, err := d.AddUser("alice", "s3cret", RoleUser)
	require.NoError(t, err)

	require.NoError(t, d.Disable("alice"))

	_, err = d.Authenticate("alice", "s3cret")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestHashPassword_EmptyRejected(t *testing.T) {
	_, err := HashPassword("")
	require.Error(t, err)
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hash, "hunter2"))
	assert.False(t, VerifyPassword(hash, "hunter3"))
	assert.False(t, VerifyPassword("not-a-hash", "hunter2"))
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleGuest.Valid())
	assert.False(t, Role("superuser").Valid())
}
