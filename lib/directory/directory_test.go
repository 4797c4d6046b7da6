package directory

import (
	"context"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevedore-sh/stevedore/lib/backend"
)

func testDirectory(readOnly bool) *Directory {
	return New(Config{
		URL:          "ldap://directory:389",
		BindDN:       "cn=admin,dc=example,dc=org",
		BindPassword: "secret",
		UserBaseDN:   "ou=users,dc=example,dc=org",
		GroupBaseDN:  "ou=groups,dc=example,dc=org",
		ReadOnly:     readOnly,
	})
}

func TestUserDN(t *testing.T) {
	d := testDirectory(false)
	assert.Equal(t, "uid=alice,ou=users,dc=example,dc=org", d.userDN("alice"))
	// DN-special characters in the RDN value must be escaped.
	assert.Equal(t, `uid=a\,b,ou=users,dc=example,dc=org`, d.userDN("a,b"))
}

func TestGroupDN(t *testing.T) {
	d := testDirectory(false)
	assert.Equal(t, "cn=researchers,ou=groups,dc=example,dc=org", d.groupDN("researchers"))
}

func TestUserFilterEscapes(t *testing.T) {
	assert.Equal(t, "(&(objectClass=posixAccount)(uid=alice))", userFilter("alice"))
	assert.Equal(t, `(&(objectClass=posixAccount)(uid=a\2ab))`, userFilter("a*b"))
}

func TestUserFromEntry(t *testing.T) {
	entry := ldap.NewEntry("uid=alice,ou=users,dc=example,dc=org", map[string][]string{
		"uid":           {"alice"},
		"uidNumber":     {"2500"},
		"gidNumber":     {"2500"},
		"homeDirectory": {"/home/alice"},
	})

	user, err := userFromEntry(entry)
	require.NoError(t, err)
	assert.Equal(t, backend.User{
		Username: "alice",
		UID:      2500,
		GID:      2500,
		HomeDir:  "/home/alice",
	}, user)
}

func TestUserFromEntryMalformedUID(t *testing.T) {
	entry := ldap.NewEntry("uid=bob,ou=users,dc=example,dc=org", map[string][]string{
		"uid":       {"bob"},
		"uidNumber": {"not-a-number"},
		"gidNumber": {"2500"},
	})

	_, err := userFromEntry(entry)
	require.ErrorIs(t, err, backend.ErrBackend)
}

func TestGroupFromEntry(t *testing.T) {
	entry := ldap.NewEntry("cn=researchers,ou=groups,dc=example,dc=org", map[string][]string{
		"cn":        {"researchers"},
		"gidNumber": {"3000"},
		"memberUid": {"alice", "bob"},
	})

	group, err := groupFromEntry(entry)
	require.NoError(t, err)
	assert.Equal(t, "researchers", group.Name)
	assert.Equal(t, 3000, group.GID)
	assert.Equal(t, []string{"alice", "bob"}, group.Members)
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		code uint16
		want error
	}{
		{"no such object", ldap.LDAPResultNoSuchObject, backend.ErrUserNotFound},
		{"already exists", ldap.LDAPResultEntryAlreadyExists, backend.ErrAlreadyExists},
		{"invalid credentials", ldap.LDAPResultInvalidCredentials, backend.ErrAuthFailed},
		{"unwilling to perform", ldap.LDAPResultUnwillingToPerform, backend.ErrReadOnly},
		{"other", ldap.LDAPResultOperationsError, backend.ErrBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translate(ldap.NewError(tt.code, assert.AnError), backend.ErrUserNotFound)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.NoError(t, translate(nil, backend.ErrUserNotFound))
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	d := testDirectory(true)
	ctx := context.Background()

	err := d.CreateUser(ctx, backend.User{Username: "alice"}, "pw")
	require.ErrorIs(t, err, backend.ErrReadOnly)

	err = d.DeleteGroup(ctx, "researchers")
	require.ErrorIs(t, err, backend.ErrReadOnly)

	err = d.SetUserPassword(ctx, "alice", "pw")
	require.ErrorIs(t, err, backend.ErrReadOnly)
}
