// Package memory implements repository.Store in process memory. It backs
// local development when no database is configured and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/mail-service/internal/domain"
	"github.com/spec-kit/mail-service/internal/repository"
)

type state struct {
	users      map[int64]domain.User
	messages   map[int64]domain.Message
	nextUserID int64
	nextMsgID  int64
}

func (s *state) clone() *state {
	c := &state{
		users:      make(map[int64]domain.User, len(s.users)),
		messages:   make(map[int64]domain.Message, len(s.messages)),
		nextUserID: s.nextUserID,
		nextMsgID:  s.nextMsgID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.messages {
		c.messages[k] = v
	}
	return c
}

// Store is a repository.Store whose transactions are serialized and applied
// atomically on commit.
type Store struct {
	mu    *sync.RWMutex
	txMu  *sync.Mutex
	data  *state
	inTx  bool
	now   func() time.Time
	fault func(op string) error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		mu:   &sync.RWMutex{},
		txMu: &sync.Mutex{},
		data: &state{users: map[int64]domain.User{}, messages: map[int64]domain.Message{}},
		now:  time.Now,
	}
}

// SetClock overrides the creation timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// FailOn makes every operation named op ("users.create", "messages.delete", ...)
// return the error produced by fn. Passing nil clears it.
func (s *Store) FailOn(fn func(op string) error) {
	s.fault = fn
}

func (s *Store) check(op string) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op)
}

// Users returns the user repository backed by the committed state.
func (s *Store) Users() repository.UserRepository {
	return &userRepo{s}
}

// Messages returns the message repository backed by the committed state.
func (s *Store) Messages() repository.MessageRepository {
	return &messageRepo{s}
}

// WithinTx runs fn against a private copy and publishes it only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	tx := &Store{mu: &sync.RWMutex{}, txMu: &sync.Mutex{}, data: snapshot, inTx: true, now: s.now, fault: s.fault}
	if err := fn(tx); err != nil {
		return err
	}
	if err := s.check("commit"); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
	return nil
}

func (s *Store) read(fn func(d *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

// write applies fn directly; outside a transaction it behaves like autocommit.
func (s *Store) write(fn func(d *state) error) error {
	if !s.inTx {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	if err := r.s.check("users.create"); err != nil {
		return err
	}
	return r.s.write(func(d *state) error {
		for _, u := range d.users {
			if u.Username == user.Username {
				return &repository.DuplicateError{Field: "username"}
			}
			if u.Email == user.Email {
				return &repository.DuplicateError{Field: "email"}
			}
		}
		d.nextUserID++
		user.ID = d.nextUserID
		user.CreatedAt = r.s.now()
		d.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	if err := r.s.check("users.update_password"); err != nil {
		return err
	}
	return r.s.write(func(d *state) error {
		u, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		u.PasswordHash = passwordHash
		d.users[id] = u
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *userRepo) find(match func(domain.User) bool) (*domain.User, error) {
	if err := r.s.check("users.get"); err != nil {
		return nil, err
	}
	var found *domain.User
	r.s.read(func(d *state) {
		for _, u := range d.users {
			if match(u) {
				u := u
				found = &u
				return
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *userRepo) List(_ context.Context) ([]domain.User, error) {
	if err := r.s.check("users.list"); err != nil {
		return nil, err
	}
	users := []domain.User{}
	r.s.read(func(d *state) {
		for _, u := range d.users {
			users = append(users, u)
		}
	})
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

type messageRepo struct{ s *Store }

func (r *messageRepo) Create(_ context.Context, msg *domain.Message) error {
	if err := r.s.check("messages.create"); err != nil {
		return err
	}
	return r.s.write(func(d *state) error {
		if _, ok := d.users[msg.SenderID]; !ok {
			return repository.ErrNotFound
		}
		if _, ok := d.users[msg.RecipientID]; !ok {
			return repository.ErrNotFound
		}
		d.nextMsgID++
		msg.ID = d.nextMsgID
		msg.CreatedAt = r.s.now()
		d.messages[msg.ID] = *msg
		return nil
	})
}

func (r *messageRepo) GetByID(_ context.Context, id int64) (*domain.Message, error) {
	if err := r.s.check("messages.get"); err != nil {
		return nil, err
	}
	var found *domain.Message
	r.s.read(func(d *state) {
		if m, ok := d.messages[id]; ok {
			found = &m
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

// GetByIDForUpdate needs no row lock; transactions are already serialized.
func (r *messageRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Message, error) {
	return r.GetByID(ctx, id)
}

func (r *messageRepo) UpdateFlags(_ context.Context, msg *domain.Message) error {
	if err := r.s.check("messages.update"); err != nil {
		return err
	}
	return r.s.write(func(d *state) error {
		m, ok := d.messages[msg.ID]
		if !ok {
			return repository.ErrNotFound
		}
		m.IsArchived = msg.IsArchived
		m.IsRead = msg.IsRead
		d.messages[msg.ID] = m
		return nil
	})
}

func (r *messageRepo) Delete(_ context.Context, id int64) error {
	if err := r.s.check("messages.delete"); err != nil {
		return err
	}
	return r.s.write(func(d *state) error {
		if _, ok := d.messages[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.messages, id)
		return nil
	})
}

func (r *messageRepo) List(_ context.Context, filter domain.MessageFilter) ([]domain.Message, error) {
	if err := r.s.check("messages.list"); err != nil {
		return nil, err
	}
	result := []domain.Message{}
	r.s.read(func(d *state) {
		for _, m := range d.messages {
			m := m
			if filter.Matches(&m) {
				result = append(result, m)
			}
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

var _ repository.Store = (*Store)(nil)
