// Package directory implements the user and group contracts against an LDAP
// server holding posixAccount and posixGroup entries.
package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/stevedore-sh/stevedore/lib/backend"
)

type Config struct {
	// URL is the server address, e.g. "ldap://directory:389".
	URL string
	// BindDN and BindPassword authenticate the service account used for
	// everything except AuthenticateUser.
	BindDN       string
	BindPassword string
	// UserBaseDN and GroupBaseDN are the subtrees holding posixAccount and
	// posixGroup entries.
	UserBaseDN  string
	GroupBaseDN string
	// ReadOnly rejects every mutating operation without contacting the
	// server.
	ReadOnly bool
}

// Directory talks to the LDAP server. Connections are dialed per operation;
// the server is the source of truth and nothing is cached.
type Directory struct {
	cfg Config
}

var (
	_ backend.UserBackend  = (*Directory)(nil)
	_ backend.GroupBackend = (*Directory)(nil)
)

func New(cfg Config) *Directory {
	return &Directory{cfg: cfg}
}

// withConn dials, binds the service account, runs fn, and closes the
// connection. Dial and bind failures are connection errors, not lookup
// failures.
func (d *Directory) withConn(ctx context.Context, fn func(conn *ldap.Conn) error) error {
	conn, err := ldap.DialURL(d.cfg.URL)
	if err != nil {
		return backend.WrapConnection(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetTimeout(time.Until(deadline))
	}
	if err := conn.Bind(d.cfg.BindDN, d.cfg.BindPassword); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return fmt.Errorf("%w: service account bind rejected", backend.ErrAuthFailed)
		}
		return backend.WrapConnection(err)
	}
	return fn(conn)
}

// Health reports whether the server accepts the service account bind.
func (d *Directory) Health(ctx context.Context) backend.HealthStatus {
	err := d.withConn(ctx, func(conn *ldap.Conn) error { return nil })
	if err != nil {
		return backend.HealthError
	}
	return backend.HealthOK
}

func (d *Directory) guardWrite() error {
	if d.cfg.ReadOnly {
		return fmt.Errorf("%w: directory is read-only", backend.ErrReadOnly)
	}
	return nil
}

// translate maps an LDAP result code to the error taxonomy; notFound supplies
// the kind used for a missing entry.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject):
		return fmt.Errorf("%w: %w", notFound, err)
	case ldap.IsErrorWithCode(err, ldap.LDAPResultEntryAlreadyExists):
		return fmt.Errorf("%w: %w", backend.ErrAlreadyExists, err)
	case ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials):
		return fmt.Errorf("%w: %w", backend.ErrAuthFailed, err)
	case ldap.IsErrorWithCode(err, ldap.LDAPResultUnwillingToPerform):
		return fmt.Errorf("%w: %w", backend.ErrReadOnly, err)
	default:
		return backend.WrapBackend(err)
	}
}

func searchRequest(baseDN, filter string, attributes []string) *ldap.SearchRequest {
	return ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		attributes,
		nil,
	)
}
