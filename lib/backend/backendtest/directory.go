package backendtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/stevedore-sh/stevedore/lib/backend"
)

type fakeUser struct {
	user     backend.User
	password string
}

// FakeDirectory is an in-memory identity store implementing the user and
// group contracts.
type FakeDirectory struct {
	mu       sync.Mutex
	users    map[string]*fakeUser
	groups   map[string]*backend.Group
	readOnly bool
}

var (
	_ backend.UserBackend  = (*FakeDirectory)(nil)
	_ backend.GroupBackend = (*FakeDirectory)(nil)
)

func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{
		users:  map[string]*fakeUser{},
		groups: map[string]*backend.Group{},
	}
}

// SetReadOnly makes every mutating operation fail with ErrReadOnly.
func (d *FakeDirectory) SetReadOnly(readOnly bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readOnly = readOnly
}

func (d *FakeDirectory) Health(ctx context.Context) backend.HealthStatus {
	return backend.HealthOK
}

func (d *FakeDirectory) guardWrite() error {
	if d.readOnly {
		return fmt.Errorf("%w: directory is read-only", backend.ErrReadOnly)
	}
	return nil
}

func (d *FakeDirectory) UserExists(ctx context.Context, username string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.users[username]
	return ok, nil
}

func (d *FakeDirectory) GetUser(ctx context.Context, username string) (*backend.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrUserNotFound, username)
	}
	user := entry.user
	return &user, nil
}

func (d *FakeDirectory) ListUsers(ctx context.Context) ([]backend.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return lo.Map(lo.Values(d.users), func(entry *fakeUser, _ int) backend.User {
		return entry.user
	}), nil
}

func (d *FakeDirectory) CreateUser(ctx context.Context, user backend.User, password string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guardWrite(); err != nil {
		return err
	}
	if _, ok := d.users[user.Username]; ok {
		return fmt.Errorf("%w: %s", backend.ErrAlreadyExists, user.Username)
	}
	d.users[user.Username] = &fakeUser{user: user, password: password}
	return nil
}

func (d *FakeDirectory) SetUserPassword(ctx context.Context, username, password string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guardWrite(); err != nil {
		return err
	}
	entry, ok := d.users[username]
	if !ok {
		return fmt.Errorf("%w: %s", backend.ErrUserNotFound, username)
	}
	entry.password = password
	return nil
}

func (d *FakeDirectory) DeleteUser(ctx context.Context, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guardWrite(); err != nil {
		return err
	}
	if _, ok := d.users[username]; !ok {
		return fmt.Errorf("%w: %s", backend.ErrUserNotFound, username)
	}
	delete(d.users, username)
	return nil
}

func (d *FakeDirectory) AuthenticateUser(ctx context.Context, username, password string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.users[username]
	if !ok {
		return fmt.Errorf("%w: %s", backend.ErrUserNotFound, username)
	}
	if entry.password != password {
		return fmt.Errorf("%w: invalid credentials for %s", backend.ErrAuthFailed, username)
	}
	return nil
}

func (d *FakeDirectory) GroupExists(ctx context.Context, name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.groups[name]
	return ok, nil
}

func (d *FakeDirectory) GetGroup(ctx context.Context, name string) (*backend.Group, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	group, ok := d.groups[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrGroupNotFound, name)
	}
	copied := *group
	return &copied, nil
}

func (d *FakeDirectory) ListGroups(ctx context.Context) ([]backend.Group, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return lo.Map(lo.Values(d.groups), func(group *backend.Group, _ int) backend.Group {
		return *group
	}), nil
}

func (d *FakeDirectory) CreateGroup(ctx context.Context, group backend.Group) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guardWrite(); err != nil {
		return err
	}
	if _, ok := d.groups[group.Name]; ok {
		return fmt.Errorf("%w: %s", backend.ErrAlreadyExists, group.Name)
	}
	copied := group
	d.groups[group.Name] = &copied
	return nil
}

func (d *FakeDirectory) DeleteGroup(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guardWrite(); err != nil {
		return err
	}
	if _, ok := d.groups[name]; !ok {
		return fmt.Errorf("%w: %s", backend.ErrGroupNotFound, name)
	}
	delete(d.groups, name)
	return nil
}

func (d *FakeDirectory) IsGroupMember(ctx context.Context, name, username string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	group, ok := d.groups[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", backend.ErrGroupNotFound, name)
	}
	return lo.Contains(group.Members, username), nil
}

func (d *FakeDirectory) AddGroupMember(ctx context.Context, name, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guardWrite(); err != nil {
		return err
	}
	group, ok := d.groups[name]
	if !ok {
		return fmt.Errorf("%w: %s", backend.ErrGroupNotFound, name)
	}
	if !lo.Contains(group.Members, username) {
		group.Members = append(group.Members, username)
	}
	return nil
}

func (d *FakeDirectory) RemoveGroupMember(ctx context.Context, name, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.guardWrite(); err != nil {
		return err
	}
	group, ok := d.groups[name]
	if !ok {
		return fmt.Errorf("%w: %s", backend.ErrGroupNotFound, name)
	}
	group.Members = lo.Without(group.Members, username)
	return nil
}
