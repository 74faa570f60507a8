// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authtest provides an in-memory credential store for tests and
// local development.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authkit/internal/auth"
)

// Store holds users, tokens and sessions in memory behind one mutex, so
// every repository operation is atomic with respect to the others.
// Users are never deleted, so cascades are not modelled.
type Store struct {
	mu       sync.Mutex
	users    map[ulid.ULID]*auth.User
	tokens   map[ulid.ULID]*auth.Token
	sessions map[ulid.ULID]*auth.Session
	failures map[string]error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:    make(map[ulid.ULID]*auth.User),
		tokens:   make(map[ulid.ULID]*auth.Token),
		sessions: make(map[ulid.ULID]*auth.Session),
		failures: make(map[string]error),
	}
}

// Fail makes every call to the named operation return err until cleared
// with a nil err. Names are "<repo>.<Method>", e.g. "tokens.DeleteFor".
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// failure must be called with mu held.
func (s *Store) failure(op string) error {
	return s.failures[op]
}

// Users returns the UserRepository view.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Tokens returns the TokenRepository view.
func (s *Store) Tokens() *TokenRepo { return &TokenRepo{s: s} }

// Sessions returns the SessionRepository view.
func (s *Store) Sessions() *SessionRepo { return &SessionRepo{s: s} }

// TokensFor returns copies of every token held by a user.
func (s *Store) TokensFor(userID ulid.ULID) []auth.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auth.Token
	for _, t := range s.tokens {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out
}

// SessionsFor returns copies of every session held by a user.
func (s *Store) SessionsFor(userID ulid.ULID) []auth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auth.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, *sess)
		}
	}
	return out
}

// PutToken stores a token as-is, bypassing supersession. Tests use it to
// plant expired tokens.
func (s *Store) PutToken(t *auth.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tokens[t.ID] = &cp
}

// UserRepo implements auth.UserRepository.
type UserRepo struct{ s *Store }

// TokenRepo implements auth.TokenRepository.
type TokenRepo struct{ s *Store }

// SessionRepo implements auth.SessionRepository.
type SessionRepo struct{ s *Store }

var (
	_ auth.UserRepository    = (*UserRepo)(nil)
	_ auth.TokenRepository   = (*TokenRepo)(nil)
	_ auth.SessionRepository = (*SessionRepo)(nil)
)

func userNotFound(field string, value any) error {
	return oops.Code("USER_NOT_FOUND").With(field, value).Wrap(auth.ErrNotFound)
}

// Create stores a new user.
func (r *UserRepo) Create(_ context.Context, user *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("users.Create"); err != nil {
		return err
	}
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return oops.Code("USER_EMAIL_EXISTS").With("email", user.Email).Wrap(auth.ErrConflict)
		}
	}
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, userNotFound("user_id", id.String())
	}
	cp := *u
	return &cp, nil
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("users.GetByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, userNotFound("email", email)
}

// UpdatePassword replaces a user's digest.
func (r *UserRepo) UpdatePassword(_ context.Context, id ulid.ULID, hashedPassword string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("users.UpdatePassword"); err != nil {
		return err
	}
	u, ok := r.s.users[id]
	if !ok {
		return userNotFound("user_id", id.String())
	}
	u.HashedPassword = hashedPassword
	u.UpdatedAt = time.Now()
	return nil
}

func tokenNotFound() error {
	return oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// GetByHash retrieves a token by hash and type.
func (r *TokenRepo) GetByHash(_ context.Context, hash string, typ auth.TokenType) (*auth.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("tokens.GetByHash"); err != nil {
		return nil, err
	}
	for _, t := range r.s.tokens {
		if t.HashedToken == hash && t.Type == typ {
			cp := *t
			return &cp, nil
		}
	}
	return nil, tokenNotFound()
}

// Create supersedes the user's tokens of the same type and stores token.
func (r *TokenRepo) Create(_ context.Context, token *auth.Token) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("tokens.Create"); err != nil {
		return err
	}
	if _, ok := r.s.users[token.UserID]; !ok {
		return userNotFound("user_id", token.UserID.String())
	}
	for _, t := range r.s.tokens {
		if t.HashedToken == token.HashedToken {
			return oops.Code("TOKEN_CREATE_FAILED").
				With("operation", "insert token").
				With("user_id", token.UserID.String()).
				Errorf("duplicate token hash")
		}
	}
	for id, t := range r.s.tokens {
		if t.UserID == token.UserID && t.Type == token.Type {
			delete(r.s.tokens, id)
		}
	}
	cp := *token
	r.s.tokens[token.ID] = &cp
	return nil
}

// Consume removes and returns the matching token.
func (r *TokenRepo) Consume(_ context.Context, hash string, typ auth.TokenType) (*auth.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("tokens.Consume"); err != nil {
		return nil, err
	}
	for id, t := range r.s.tokens {
		if t.HashedToken == hash && t.Type == typ {
			delete(r.s.tokens, id)
			return t, nil
		}
	}
	return nil, tokenNotFound()
}

// Delete removes a token by ID.
func (r *TokenRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("tokens.Delete"); err != nil {
		return err
	}
	delete(r.s.tokens, id)
	return nil
}

// DeleteFor removes every token of a user and type.
func (r *TokenRepo) DeleteFor(_ context.Context, userID ulid.ULID, typ auth.TokenType) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("tokens.DeleteFor"); err != nil {
		return 0, err
	}
	var n int64
	for id, t := range r.s.tokens {
		if t.UserID == userID && t.Type == typ {
			delete(r.s.tokens, id)
			n++
		}
	}
	return n, nil
}

// CountFor counts a user's tokens.
func (r *TokenRepo) CountFor(_ context.Context, userID ulid.ULID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("tokens.CountFor"); err != nil {
		return 0, err
	}
	n := 0
	for _, t := range r.s.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

// DeleteExpired removes tokens expiring at or before the given time.
func (r *TokenRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("tokens.DeleteExpired"); err != nil {
		return 0, err
	}
	var n int64
	for id, t := range r.s.tokens {
		if !t.ExpiresAt.After(before) {
			delete(r.s.tokens, id)
			n++
		}
	}
	return n, nil
}

// Create stores a session.
func (r *SessionRepo) Create(_ context.Context, session *auth.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.Create"); err != nil {
		return err
	}
	cp := *session
	r.s.sessions[session.ID] = &cp
	return nil
}

// GetByTokenHash retrieves a session by token hash.
func (r *SessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.GetByTokenHash"); err != nil {
		return nil, err
	}
	for _, sess := range r.s.sessions {
		if sess.TokenHash == tokenHash {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// DeleteByTokenHash removes a session by token hash.
func (r *SessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.DeleteByTokenHash"); err != nil {
		return err
	}
	for id, sess := range r.s.sessions {
		if sess.TokenHash == tokenHash {
			delete(r.s.sessions, id)
		}
	}
	return nil
}

// DeleteByUser removes every session of a user.
func (r *SessionRepo) DeleteByUser(_ context.Context, userID ulid.ULID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.DeleteByUser"); err != nil {
		return 0, err
	}
	var n int64
	for id, sess := range r.s.sessions {
		if sess.UserID == userID {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}

// DeleteExpired removes sessions expiring at or before the given time.
func (r *SessionRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("sessions.DeleteExpired"); err != nil {
		return 0, err
	}
	var n int64
	for id, sess := range r.s.sessions {
		if !sess.ExpiresAt.After(before) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}
