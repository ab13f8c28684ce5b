package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Store keeps live sessions server-side with TTL expiry. Clients hold only a
// signed token naming the session ID; question IDs and scratch fields never
// leave the server, which keeps the client-side state tiny.
type Store struct {
	sessions *cache.Cache
	secret   []byte
	ttl      time.Duration
}

func NewStore(secret []byte, ttl time.Duration) *Store {
	return &Store{
		sessions: cache.New(ttl, 10*time.Minute),
		secret:   secret,
		ttl:      ttl,
	}
}

// Put registers the session (assigning its ID) and returns the signed token
// the client presents on subsequent requests.
func (st *Store) Put(sess *Session) (string, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	st.sessions.Set(sess.ID, sess, st.ttl)

	claims := jwt.MapClaims{
		"sid": sess.ID,
		"exp": time.Now().Add(st.ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(st.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Get resolves a token back to its live session. Any token failure —
// malformed, bad signature, expired, or a session evicted server-side — is
// reported as ErrNoActiveSession; the caller just starts a new quiz.
func (st *Store) Get(token string) (*Session, error) {
	id, err := st.parseToken(token)
	if err != nil {
		return nil, ErrNoActiveSession
	}
	value, ok := st.sessions.Get(id)
	if !ok {
		return nil, ErrNoActiveSession
	}
	sess := value.(*Session)
	// Sliding expiry: activity keeps the session alive.
	st.sessions.Set(id, sess, st.ttl)
	return sess, nil
}

// Delete drops the session named by the token, if any.
func (st *Store) Delete(token string) {
	if id, err := st.parseToken(token); err == nil {
		st.sessions.Delete(id)
	}
}

func (st *Store) parseToken(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("empty token")
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return st.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("invalid session token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}
	id, ok := claims["sid"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("missing sid claim")
	}
	return id, nil
}
