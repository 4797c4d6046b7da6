package directory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-ldap/ldap/v3"

	"github.com/stevedore-sh/stevedore/lib/backend"
)

var userAttributes = []string{"uid", "uidNumber", "gidNumber", "homeDirectory"}

func (d *Directory) userDN(username string) string {
	return fmt.Sprintf("uid=%s,%s", ldap.EscapeDN(username), d.cfg.UserBaseDN)
}

func userFilter(username string) string {
	return fmt.Sprintf("(&(objectClass=posixAccount)(uid=%s))", ldap.EscapeFilter(username))
}

func userFromEntry(entry *ldap.Entry) (backend.User, error) {
	uid, err := strconv.Atoi(entry.GetAttributeValue("uidNumber"))
	if err != nil {
		return backend.User{}, fmt.Errorf("%w: entry %s has malformed uidNumber", backend.ErrBackend, entry.DN)
	}
	gid, err := strconv.Atoi(entry.GetAttributeValue("gidNumber"))
	if err != nil {
		return backend.User{}, fmt.Errorf("%w: entry %s has malformed gidNumber", backend.ErrBackend, entry.DN)
	}
	return backend.User{
		Username: entry.GetAttributeValue("uid"),
		UID:      uid,
		GID:      gid,
		HomeDir:  entry.GetAttributeValue("homeDirectory"),
	}, nil
}

func (d *Directory) UserExists(ctx context.Context, username string) (bool, error) {
	user, err := d.GetUser(ctx, username)
	if errors.Is(err, backend.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

func (d *Directory) GetUser(ctx context.Context, username string) (*backend.User, error) {
	var user *backend.User
	err := d.withConn(ctx, func(conn *ldap.Conn) error {
		result, err := conn.Search(searchRequest(d.cfg.UserBaseDN, userFilter(username), userAttributes))
		if err != nil {
			return translate(err, backend.ErrUserNotFound)
		}
		if len(result.Entries) == 0 {
			return fmt.Errorf("%w: %s", backend.ErrUserNotFound, username)
		}
		found, err := userFromEntry(result.Entries[0])
		if err != nil {
			return err
		}
		user = &found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (d *Directory) ListUsers(ctx context.Context) ([]backend.User, error) {
	var users []backend.User
	err := d.withConn(ctx, func(conn *ldap.Conn) error {
		result, err := conn.Search(searchRequest(d.cfg.UserBaseDN, "(objectClass=posixAccount)", userAttributes))
		if err != nil {
			return translate(err, backend.ErrUserNotFound)
		}
		for _, entry := range result.Entries {
			user, err := userFromEntry(entry)
			if err != nil {
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (d *Directory) CreateUser(ctx context.Context, user backend.User, password string) error {
	if err := d.guardWrite(); err != nil {
		return err
	}
	return d.withConn(ctx, func(conn *ldap.Conn) error {
		add := ldap.NewAddRequest(d.userDN(user.Username), nil)
		add.Attribute("objectClass", []string{"top", "posixAccount", "shadowAccount"})
		add.Attribute("uid", []string{user.Username})
		add.Attribute("cn", []string{user.Username})
		add.Attribute("uidNumber", []string{strconv.Itoa(user.UID)})
		add.Attribute("gidNumber", []string{strconv.Itoa(user.GID)})
		add.Attribute("homeDirectory", []string{user.HomeDir})
		if err := conn.Add(add); err != nil {
			return translate(err, backend.ErrUserNotFound)
		}
		// Setting the password through the extended operation lets the
		// server apply its own hashing scheme.
		_, err := conn.PasswordModify(ldap.NewPasswordModifyRequest(d.userDN(user.Username), "", password))
		return translate(err, backend.ErrUserNotFound)
	})
}

func (d *Directory) SetUserPassword(ctx context.Context, username, password string) error {
	if err := d.guardWrite(); err != nil {
		return err
	}
	if err := d.requireUser(ctx, username); err != nil {
		return err
	}
	return d.withConn(ctx, func(conn *ldap.Conn) error {
		_, err := conn.PasswordModify(ldap.NewPasswordModifyRequest(d.userDN(username), "", password))
		return translate(err, backend.ErrUserNotFound)
	})
}

func (d *Directory) DeleteUser(ctx context.Context, username string) error {
	if err := d.guardWrite(); err != nil {
		return err
	}
	if err := d.requireUser(ctx, username); err != nil {
		return err
	}
	return d.withConn(ctx, func(conn *ldap.Conn) error {
		if err := conn.Del(ldap.NewDelRequest(d.userDN(username), nil)); err != nil {
			return translate(err, backend.ErrUserNotFound)
		}
		return nil
	})
}

// AuthenticateUser verifies credentials with a bind as the user itself.
func (d *Directory) AuthenticateUser(ctx context.Context, username, password string) error {
	if err := d.requireUser(ctx, username); err != nil {
		return err
	}
	conn, err := ldap.DialURL(d.cfg.URL)
	if err != nil {
		return backend.WrapConnection(err)
	}
	defer conn.Close()

	if err := conn.Bind(d.userDN(username), password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return fmt.Errorf("%w: invalid credentials for %s", backend.ErrAuthFailed, username)
		}
		return translate(err, backend.ErrUserNotFound)
	}
	return nil
}

func (d *Directory) requireUser(ctx context.Context, username string) error {
	exists, err := d.UserExists(ctx, username)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", backend.ErrUserNotFound, username)
	}
	return nil
}
