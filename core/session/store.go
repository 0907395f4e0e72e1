package session

import (
	"context"
	"sync"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
)

// Store owns the Session of one client: every read and write of the authorization
// context goes through it. Writes are mirrored to the client's local storage.
type Store struct {
	storage  Storage
	clientID string

	initOnce sync.Once
	initErr  error

	mu      sync.RWMutex
	current Session
}

func NewStore(storage Storage, clientID string) (*Store, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(storage, "storage"),
		vala.StringNotEmpty(clientID, "clientID"),
	).Check(); err != nil {
		return nil, err
	}
	return &Store{storage: storage, clientID: clientID}, nil
}

// ClientID returns the identifier of the client owning this Store.
func (s *Store) ClientID() string { return s.clientID }

// Init rehydrates the Session from local storage. Only the first call reads the storage.
func (s *Store) Init(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.load(ctx)
	})
	return s.initErr
}

func (s *Store) load(ctx context.Context) error {
	var sess Session
	for key, dst := range map[string]*string{
		KeyToken:     &sess.Token,
		KeyStudentID: &sess.StudentID,
		KeyEmail:     &sess.Email,
	} {
		val, err := s.storage.GetItem(ctx, s.clientID, key)
		if err != nil {
			if errors.Cause(err) == ErrNoItem {
				continue
			}
			return errors.Wrapf(err, "reading %q", key)
		}
		*dst = val
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	return nil
}

// Session returns a copy of the current Session.
func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the current token; "" when absent.
func (s *Store) Token() string {
	return s.Session().Token
}

// SetToken replaces the Session and persists it. An empty token clears the Session.
func (s *Store) SetToken(ctx context.Context, token, studentID, email string) error {
	if token == "" {
		return s.Clear(ctx)
	}

	for _, item := range [][2]string{
		{KeyToken, token},
		{KeyStudentID, studentID},
		{KeyEmail, email},
	} {
		if err := s.storage.SetItem(ctx, s.clientID, item[0], item[1]); err != nil {
			// never leave a token next to another student's id or email
			s.discard(ctx)
			return errors.Wrapf(err, "writing %q", item[0])
		}
	}

	s.mu.Lock()
	s.current = Session{Token: token, StudentID: studentID, Email: email}
	s.mu.Unlock()
	return nil
}

// discard forgets the Session after a failed write. Removal errors are ignored: the write error is reported.
func (s *Store) discard(ctx context.Context) {
	s.mu.Lock()
	s.current = Session{}
	s.mu.Unlock()

	for _, key := range []string{KeyToken, KeyStudentID, KeyEmail} {
		_ = s.storage.RemoveItem(ctx, s.clientID, key)
	}
}

// SetEmail updates the mirrored email of an authenticated Session.
func (s *Store) SetEmail(ctx context.Context, email string) error {
	if !s.Session().IsAuthenticated() {
		return nil
	}
	if err := s.storage.SetItem(ctx, s.clientID, KeyEmail, email); err != nil {
		return errors.Wrapf(err, "writing %q", KeyEmail)
	}

	s.mu.Lock()
	s.current.Email = email
	s.mu.Unlock()
	return nil
}

// Clear empties the Session and removes every mirrored key, legacy ones included.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = Session{}
	s.mu.Unlock()

	keys := append([]string{KeyToken, KeyStudentID, KeyEmail}, LegacyKeys...)
	for _, key := range keys {
		if err := s.storage.RemoveItem(ctx, s.clientID, key); err != nil {
			return errors.Wrapf(err, "removing %q", key)
		}
	}
	return nil
}

// Manager opens the Store of each client on a shared Storage.
type Manager struct {
	storage Storage
}

func NewManager(storage Storage) *Manager {
	return &Manager{storage: storage}
}

// Open returns the initialized Store of clientID.
func (m *Manager) Open(ctx context.Context, clientID string) (*Store, error) {
	store, err := NewStore(m.storage, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "creating session store")
	}
	if err = store.Init(ctx); err != nil {
		return nil, errors.Wrap(err, "initializing session store")
	}
	return store, nil
}
