package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

const sessionName = "member_session"

// Sessions live for one hour from creation or refresh. The TTL is
// refreshed only when the session is saved (login/signup), not on
// arbitrary requests.
const sessionTTL = time.Hour

const sessionKeyPrefix = "session:"

// Session value keys.
const (
	sessionKeyUsername      = "username"
	sessionKeyAuthenticated = "authenticated"
)

// SessionRecord is the server-side session state stored in Redis, keyed
// by the opaque token carried in the client cookie.
type SessionRecord struct {
	Username      string    `json:"username"`
	Authenticated bool      `json:"authenticated"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// RedisSessionStore implements gorilla sessions.Store with all session
// state held in a shared Redis instance, so multiple web processes see
// the same sessions and nothing survives in-process between requests.
// The cookie carries only an opaque random token, encoded under the
// session secret; missing, expired, or undecodable tokens all resolve to
// a fresh anonymous session.
type RedisSessionStore struct {
	client  *redis.Client
	codecs  []securecookie.Codec
	options sessions.Options
}

// NewRedisSessionStore wires a session store over the given Redis client
// with cookie policy from cfg.
func NewRedisSessionStore(client *redis.Client, cfg Config) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		codecs: securecookie.CodecsFromPairs([]byte(cfg.SessionKey)),
		options: sessions.Options{
			Path:     "/",
			MaxAge:   int(sessionTTL.Seconds()),
			HttpOnly: true,
			Secure:   cfg.CookieSecure,
			SameSite: sameSiteFromString(cfg.CookieSameSite),
		},
	}
}

// Get returns the cached session for this request, creating it on first use.
func (s *RedisSessionStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session referenced by the request cookie. A request
// without a resolvable session yields a fresh anonymous one with
// IsNew=true; only a Redis failure is reported as an error.
func (s *RedisSessionStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := s.options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	var token string
	if err := securecookie.DecodeMulti(name, c.Value, &token, s.codecs...); err != nil {
		// Tampered or stale cookie reads as no session at all.
		return session, nil
	}
	rec, err := s.load(r.Context(), token)
	if err != nil {
		return session, err
	}
	if rec == nil {
		return session, nil
	}

	session.ID = token
	session.IsNew = false
	session.Values[sessionKeyUsername] = rec.Username
	session.Values[sessionKeyAuthenticated] = rec.Authenticated
	return session, nil
}

// Save persists the session to Redis and writes the token cookie. A
// negative MaxAge destroys the record and clears the cookie; destroying
// an already-absent session succeeds, while a Redis failure does not.
func (s *RedisSessionStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.client.Del(r.Context(), sessionKeyPrefix+session.ID).Err(); err != nil {
				return fmt.Errorf("destroy session: %w", err)
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		token, err := newSessionToken()
		if err != nil {
			return fmt.Errorf("issue session token: %w", err)
		}
		session.ID = token
	}

	ttl := time.Duration(session.Options.MaxAge) * time.Second
	rec := recordFromValues(session.Values)
	rec.ExpiresAt = time.Now().Add(ttl)
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(r.Context(), sessionKeyPrefix+session.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("encode session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

func (s *RedisSessionStore) load(ctx context.Context, token string) (*SessionRecord, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt record is indistinguishable from an absent one to callers.
		return nil, nil
	}
	// Redis TTL is authoritative; the stored expiry is a second guard
	// against clock drift between processes.
	if !rec.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	return &rec, nil
}

func recordFromValues(values map[interface{}]interface{}) SessionRecord {
	var rec SessionRecord
	if v, ok := values[sessionKeyUsername].(string); ok {
		rec.Username = v
	}
	if v, ok := values[sessionKeyAuthenticated].(bool); ok {
		rec.Authenticated = v
	}
	return rec
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func sameSiteFromString(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
