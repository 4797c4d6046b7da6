package directory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-ldap/ldap/v3"
	"github.com/samber/lo"

	"github.com/stevedore-sh/stevedore/lib/backend"
)

var groupAttributes = []string{"cn", "gidNumber", "memberUid"}

func (d *Directory) groupDN(name string) string {
	return fmt.Sprintf("cn=%s,%s", ldap.EscapeDN(name), d.cfg.GroupBaseDN)
}

func groupFilter(name string) string {
	return fmt.Sprintf("(&(objectClass=posixGroup)(cn=%s))", ldap.EscapeFilter(name))
}

func groupFromEntry(entry *ldap.Entry) (backend.Group, error) {
	gid, err := strconv.Atoi(entry.GetAttributeValue("gidNumber"))
	if err != nil {
		return backend.Group{}, fmt.Errorf("%w: entry %s has malformed gidNumber", backend.ErrBackend, entry.DN)
	}
	return backend.Group{
		Name:    entry.GetAttributeValue("cn"),
		GID:     gid,
		Members: entry.GetAttributeValues("memberUid"),
	}, nil
}

func (d *Directory) GroupExists(ctx context.Context, name string) (bool, error) {
	group, err := d.GetGroup(ctx, name)
	if errors.Is(err, backend.ErrGroupNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return group != nil, nil
}

func (d *Directory) GetGroup(ctx context.Context, name string) (*backend.Group, error) {
	var group *backend.Group
	err := d.withConn(ctx, func(conn *ldap.Conn) error {
		result, err := conn.Search(searchRequest(d.cfg.GroupBaseDN, groupFilter(name), groupAttributes))
		if err != nil {
			return translate(err, backend.ErrGroupNotFound)
		}
		if len(result.Entries) == 0 {
			return fmt.Errorf("%w: %s", backend.ErrGroupNotFound, name)
		}
		found, err := groupFromEntry(result.Entries[0])
		if err != nil {
			return err
		}
		group = &found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (d *Directory) ListGroups(ctx context.Context) ([]backend.Group, error) {
	var groups []backend.Group
	err := d.withConn(ctx, func(conn *ldap.Conn) error {
		result, err := conn.Search(searchRequest(d.cfg.GroupBaseDN, "(objectClass=posixGroup)", groupAttributes))
		if err != nil {
			return translate(err, backend.ErrGroupNotFound)
		}
		for _, entry := range result.Entries {
			group, err := groupFromEntry(entry)
			if err != nil {
				return err
			}
			groups = append(groups, group)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (d *Directory) CreateGroup(ctx context.Context, group backend.Group) error {
	if err := d.guardWrite(); err != nil {
		return err
	}
	return d.withConn(ctx, func(conn *ldap.Conn) error {
		add := ldap.NewAddRequest(d.groupDN(group.Name), nil)
		add.Attribute("objectClass", []string{"top", "posixGroup"})
		add.Attribute("cn", []string{group.Name})
		add.Attribute("gidNumber", []string{strconv.Itoa(group.GID)})
		if len(group.Members) > 0 {
			add.Attribute("memberUid", group.Members)
		}
		if err := conn.Add(add); err != nil {
			return translate(err, backend.ErrGroupNotFound)
		}
		return nil
	})
}

func (d *Directory) DeleteGroup(ctx context.Context, name string) error {
	if err := d.guardWrite(); err != nil {
		return err
	}
	if err := d.requireGroup(ctx, name); err != nil {
		return err
	}
	return d.withConn(ctx, func(conn *ldap.Conn) error {
		if err := conn.Del(ldap.NewDelRequest(d.groupDN(name), nil)); err != nil {
			return translate(err, backend.ErrGroupNotFound)
		}
		return nil
	})
}

func (d *Directory) IsGroupMember(ctx context.Context, name, username string) (bool, error) {
	group, err := d.GetGroup(ctx, name)
	if err != nil {
		return false, err
	}
	return lo.Contains(group.Members, username), nil
}

func (d *Directory) AddGroupMember(ctx context.Context, name, username string) error {
	if err := d.guardWrite(); err != nil {
		return err
	}
	member, err := d.IsGroupMember(ctx, name, username)
	if err != nil {
		return err
	}
	if member {
		return nil
	}
	return d.withConn(ctx, func(conn *ldap.Conn) error {
		mod := ldap.NewModifyRequest(d.groupDN(name), nil)
		mod.Add("memberUid", []string{username})
		if err := conn.Modify(mod); err != nil {
			return translate(err, backend.ErrGroupNotFound)
		}
		return nil
	})
}

func (d *Directory) RemoveGroupMember(ctx context.Context, name, username string) error {
	if err := d.guardWrite(); err != nil {
		return err
	}
	member, err := d.IsGroupMember(ctx, name, username)
	if err != nil {
		return err
	}
	if !member {
		return nil
	}
	return d.withConn(ctx, func(conn *ldap.Conn) error {
		mod := ldap.NewModifyRequest(d.groupDN(name), nil)
		mod.Delete("memberUid", []string{username})
		if err := conn.Modify(mod); err != nil {
			return translate(err, backend.ErrGroupNotFound)
		}
		return nil
	})
}

func (d *Directory) requireGroup(ctx context.Context, name string) error {
	exists, err := d.GroupExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", backend.ErrGroupNotFound, name)
	}
	return nil
}
