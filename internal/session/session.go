// package session keeps each browser's [models.UserSession] between requests.
//
// The cookie backend signs the token pair into the cookie itself. The redis backend only
// puts a random session id in the (signed) cookie and keeps the tokens server-side.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/sessions"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyExpiry       = "expiry"
	keyState        = "state"
	keySessionID    = "sid"

	redisKeyPrefix = "moodmix:session:"
)

// Store loads and persists the per-browser session.
//
// Load never returns a nil session: an unreadable cookie yields an empty session together with
// an error wrapping [shared.ErrSessionUnusable].
type Store interface {
	Load(r *http.Request) (*models.UserSession, error)
	Save(w http.ResponseWriter, r *http.Request, s *models.UserSession) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

// New builds the store selected by cfg.Backend.
func New(cfg shared.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case "", "cookie":
		return NewCookieStore(cfg)
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return NewRedisStore(cfg, rdb)
	default:
		return nil, fmt.Errorf("%w: unknown session backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

func newGorillaStore(cfg shared.SessionConfig) (*sessions.CookieStore, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: session secret is empty", shared.ErrInvalidConfig)
	}

	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	// Sets the cookie attribute and the codec's timestamp check together.
	store.MaxAge(cfg.MaxAge)
	return store, nil
}

func cookieName(cfg shared.SessionConfig) string {
	if cfg.Name == "" {
		return "moodmix_session"
	}
	return cfg.Name
}

// CookieStore keeps the whole session in a signed cookie.
type CookieStore struct {
	name  string
	store *sessions.CookieStore
}

// NewCookieStore signs session cookies with cfg.Secret. Cookies older than cfg.MaxAge seconds are rejected.
func NewCookieStore(cfg shared.SessionConfig) (*CookieStore, error) {
	store, err := newGorillaStore(cfg)
	if err != nil {
		return nil, err
	}
	return &CookieStore{name: cookieName(cfg), store: store}, nil
}

// Load decodes the session cookie. An unreadable cookie yields an empty session and [shared.ErrSessionUnusable].
func (c *CookieStore) Load(r *http.Request) (*models.UserSession, error) {
	sess, err := c.store.Get(r, c.name)
	if err != nil {
		return &models.UserSession{}, fmt.Errorf("%w: %v", shared.ErrSessionUnusable, err)
	}
	return fromValues(sess.Values), nil
}

// Save writes s into the session cookie.
func (c *CookieStore) Save(w http.ResponseWriter, r *http.Request, s *models.UserSession) error {
	sess, _ := c.store.Get(r, c.name)
	toValues(sess.Values, s)
	return sess.Save(r, w)
}

// Clear expires the session cookie.
func (c *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := c.store.Get(r, c.name)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// RedisStore keeps the session as JSON under a random id; the cookie carries only the id.
type RedisStore struct {
	name  string
	ttl   time.Duration
	rdb   *redis.Client
	store *sessions.CookieStore
}

// NewRedisStore uses rdb for session data. Entries expire after cfg.MaxAge seconds, or never when it is 0.
func NewRedisStore(cfg shared.SessionConfig, rdb *redis.Client) (*RedisStore, error) {
	store, err := newGorillaStore(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisStore{
		name:  cookieName(cfg),
		ttl:   time.Duration(cfg.MaxAge) * time.Second,
		rdb:   rdb,
		store: store,
	}, nil
}

func (s *RedisStore) sessionID(r *http.Request) (*sessions.Session, string, error) {
	sess, err := s.store.Get(r, s.name)
	id, _ := sess.Values[keySessionID].(string)
	return sess, id, err
}

// Load fetches the session named by the cookie's id. A missing or expired entry is an empty session.
func (s *RedisStore) Load(r *http.Request) (*models.UserSession, error) {
	_, id, err := s.sessionID(r)
	if err != nil {
		return &models.UserSession{}, fmt.Errorf("%w: %v", shared.ErrSessionUnusable, err)
	}
	if id == "" {
		return &models.UserSession{}, nil
	}

	data, err := s.rdb.Get(r.Context(), redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return &models.UserSession{}, nil
	}
	if err != nil {
		return &models.UserSession{}, fmt.Errorf("%w: %v", shared.ErrSessionUnusable, err)
	}

	var us models.UserSession
	if err := json.Unmarshal(data, &us); err != nil {
		return &models.UserSession{}, fmt.Errorf("%w: %v", shared.ErrSessionUnusable, err)
	}
	return &us, nil
}

// Save stores us under the cookie's id, assigning a new id when the request has none.
func (s *RedisStore) Save(w http.ResponseWriter, r *http.Request, us *models.UserSession) error {
	sess, id, _ := s.sessionID(r)
	if id == "" {
		id = shared.GenerateID()
		sess.Values = map[any]any{keySessionID: id}
	}

	data, err := json.Marshal(us)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.rdb.Set(r.Context(), redisKeyPrefix+id, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return sess.Save(r, w)
}

// Clear deletes the stored session and expires the cookie.
func (s *RedisStore) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, id, _ := s.sessionID(r)
	if id != "" {
		if err := s.rdb.Del(r.Context(), redisKeyPrefix+id).Err(); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Expiry travels as unix seconds so the cookie codec needs no registered types.
func toValues(v map[any]any, s *models.UserSession) {
	set := func(key, val string) {
		if val == "" {
			delete(v, key)
			return
		}
		v[key] = val
	}
	set(keyAccessToken, s.AccessToken)
	set(keyRefreshToken, s.RefreshToken)
	set(keyState, s.State)

	if s.Expiry.IsZero() {
		delete(v, keyExpiry)
	} else {
		v[keyExpiry] = s.Expiry.Unix()
	}
}

func fromValues(v map[any]any) *models.UserSession {
	s := &models.UserSession{}
	s.AccessToken, _ = v[keyAccessToken].(string)
	s.RefreshToken, _ = v[keyRefreshToken].(string)
	s.State, _ = v[keyState].(string)
	if exp, ok := v[keyExpiry].(int64); ok {
		s.Expiry = time.Unix(exp, 0)
	}
	return s
}
