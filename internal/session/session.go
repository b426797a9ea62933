// Package session keeps per-browser state (the signed-in email and the cart
// id) in a signed cookie.
package session

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const (
	CookieName = "e_store_session"

	keyUserEmail = "user_email"
	keyCartID    = "cart_id"
)

type Store struct {
	store *sessions.CookieStore
}

func NewStore(secret []byte, maxAge time.Duration, secure bool) *Store {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(store.Options.MaxAge)
	return &Store{store: store}
}

// Load returns the session attached to r. A missing or tampered cookie
// yields a fresh, empty session.
func (s *Store) Load(r *http.Request) *Session {
	sess, err := s.store.Get(r, CookieName)
	if err != nil || sess == nil {
		sess = sessions.NewSession(s.store, CookieName)
		opts := *s.store.Options
		sess.Options = &opts
		sess.IsNew = true
	}
	return &Session{sess: sess}
}

type Session struct {
	sess  *sessions.Session
	dirty bool
}

func (s *Session) UserEmail() string {
	v, _ := s.sess.Values[keyUserEmail].(string)
	return v
}

func (s *Session) SetUserEmail(email string) {
	s.sess.Values[keyUserEmail] = email
	s.dirty = true
}

func (s *Session) CartID() string {
	v, _ := s.sess.Values[keyCartID].(string)
	return v
}

func (s *Session) SetCartID(id string) {
	s.sess.Values[keyCartID] = id
	s.dirty = true
}

// Clear drops every value, signing the user out and detaching the cart.
func (s *Session) Clear() {
	for k := range s.sess.Values {
		delete(s.sess.Values, k)
	}
	s.dirty = true
}

// Dirty reports whether the session changed since it was loaded.
func (s *Session) Dirty() bool {
	return s.dirty
}

// Save writes the cookie. It must run before the response body is written.
func (s *Session) Save(r *http.Request, w http.ResponseWriter) error {
	if err := s.sess.Save(r, w); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
