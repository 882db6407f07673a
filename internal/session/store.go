package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/campuspass/checkin-server-go/internal/model"
	redisclient "github.com/campuspass/checkin-server-go/internal/redis"
	"github.com/campuspass/checkin-server-go/internal/util"
)

var (
	// ErrNotFound is returned when no record exists for the id. Callers
	// treat it the same as ErrExpired: a revoked session and one that was
	// never issued are indistinguishable to clients.
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// EventPublisher delivers domain events to a user's open real-time channels.
// Delivery is best effort: the store logs publish failures and moves on.
type EventPublisher interface {
	PublishToUser(ctx context.Context, userID string, eventType string, data any) error
}

// Config bounds session lifetimes. Renewals extend expiry by the base TTL
// but never past IssuedAt + MaxLifetime.
type Config struct {
	TTL         time.Duration
	RememberTTL time.Duration
	MaxLifetime time.Duration
}

// Store keeps session records in Redis, keyed by the SHA-256 hash of the
// plaintext session id. Record expiry rides on the Redis key TTL, with a
// per-user SET index for revoke-all.
type Store struct {
	redis     *redisclient.Client
	publisher EventPublisher
	cfg       Config
}

func NewStore(redisClient *redisclient.Client, publisher EventPublisher, cfg Config) *Store {
	return &Store{
		redis:     redisClient,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Create issues a new session for the user. The returned Session carries the
// plaintext id; it is the only time the id exists outside the client.
func (s *Store) Create(ctx context.Context, userID uuid.UUID, admin *model.AdminSnapshot, rememberMe bool, meta model.SessionMeta) (*model.Session, error) {
	id, err := util.GenerateSessionID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	ttl := s.cfg.TTL
	if rememberMe {
		ttl = s.cfg.RememberTTL
	}

	now := time.Now().UTC()
	sess := &model.Session{
		ID:         id,
		UserID:     userID,
		Admin:      admin,
		RememberMe: rememberMe,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
		LastSeenAt: now,
		IP:         meta.IP,
		Device:     meta.Device,
	}

	idHash := util.HashSessionID(id)
	if err := s.write(ctx, idHash, sess, ttl); err != nil {
		return nil, err
	}

	if err := s.redis.SAdd(ctx, redisclient.UserSessionsKey(userID.String()), idHash).Err(); err != nil {
		log.Warn().Err(err).Str("userId", userID.String()).Msg("failed to index session for user")
	}

	s.publish(ctx, userID.String(), "session_created", map[string]any{
		"expiresAt": sess.ExpiresAt.Format(time.RFC3339),
		"device":    sess.Device,
	})

	log.Info().
		Str("sessionId", util.MaskSessionID(id)).
		Str("userId", userID.String()).
		Bool("rememberMe", rememberMe).
		Time("expiresAt", sess.ExpiresAt).
		Msg("session created")

	return sess, nil
}

// Get resolves a plaintext session id. Expired records are evicted on read;
// Redis TTL usually beats us to it, but the record's own expires_at is
// authoritative.
func (s *Store) Get(ctx context.Context, id string) (*model.Session, error) {
	idHash := util.HashSessionID(id)
	data, err := s.redis.Get(ctx, redisclient.SessionKey(idHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	if time.Now().After(sess.ExpiresAt) {
		s.evict(ctx, idHash, sess.UserID.String())
		return nil, ErrExpired
	}

	sess.ID = id
	return &sess, nil
}

// Renew extends the session's expiry by its base TTL, bounded by the maximum
// lifetime measured from issuance.
func (s *Store) Renew(ctx context.Context, id string) (*model.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ttl := s.cfg.TTL
	if sess.RememberMe {
		ttl = s.cfg.RememberTTL
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	if ceiling := sess.IssuedAt.Add(s.cfg.MaxLifetime); expiresAt.After(ceiling) {
		expiresAt = ceiling
	}
	if !expiresAt.After(now) {
		return nil, ErrExpired
	}

	sess.ExpiresAt = expiresAt
	sess.LastSeenAt = now

	idHash := util.HashSessionID(id)
	if err := s.write(ctx, idHash, sess, time.Until(expiresAt)); err != nil {
		return nil, err
	}

	log.Debug().
		Str("sessionId", util.MaskSessionID(id)).
		Time("expiresAt", expiresAt).
		Msg("session renewed")

	return sess, nil
}

// UpdateAdminSnapshot refreshes the role snapshot on a live session, used
// when privilege-sensitive routes re-validate the role against the database.
func (s *Store) UpdateAdminSnapshot(ctx context.Context, id string, admin *model.AdminSnapshot) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.Admin = admin
	return s.write(ctx, util.HashSessionID(id), sess, time.Until(sess.ExpiresAt))
}

// Revoke deletes the session and notifies the user's open channels.
// Idempotent: revoking an absent session is not an error.
func (s *Store) Revoke(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) {
		return nil
	}
	if err != nil {
		return err
	}

	idHash := util.HashSessionID(id)
	s.evict(ctx, idHash, sess.UserID.String())

	s.publish(ctx, sess.UserID.String(), "force_logout", map[string]any{
		"reason": "session_revoked",
	})

	log.Info().
		Str("sessionId", util.MaskSessionID(id)).
		Str("userId", sess.UserID.String()).
		Msg("session revoked")

	return nil
}

// RevokeAll deletes every session belonging to the user and emits a single
// force_logout event. Used for administrative force-logout.
func (s *Store) RevokeAll(ctx context.Context, userID uuid.UUID) (int, error) {
	indexKey := redisclient.UserSessionsKey(userID.String())
	hashes, err := s.redis.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list user sessions: %w", err)
	}

	revoked := 0
	for _, idHash := range hashes {
		n, err := s.redis.Del(ctx, redisclient.SessionKey(idHash)).Result()
		if err != nil {
			log.Warn().Err(err).Str("userId", userID.String()).Msg("failed to delete session record")
			continue
		}
		revoked += int(n)
	}
	if err := s.redis.Del(ctx, indexKey).Err(); err != nil {
		log.Warn().Err(err).Str("userId", userID.String()).Msg("failed to drop session index")
	}

	s.publish(ctx, userID.String(), "force_logout", map[string]any{
		"reason": "all_sessions_revoked",
	})

	log.Info().
		Str("userId", userID.String()).
		Int("revoked", revoked).
		Msg("all sessions revoked for user")

	return revoked, nil
}

// Sweep prunes index members whose session records have already expired out
// of Redis. Records themselves expire via key TTL; only the per-user SET
// needs periodic attention. Safe to run concurrently with reads and writes.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	var pruned int64
	iter := s.redis.Scan(ctx, 0, redisclient.UserSessionsKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()
		hashes, err := s.redis.SMembers(ctx, indexKey).Result()
		if err != nil {
			log.Warn().Err(err).Str("key", indexKey).Msg("sweep: failed to read session index")
			continue
		}
		for _, idHash := range hashes {
			exists, err := s.redis.Exists(ctx, redisclient.SessionKey(idHash)).Result()
			if err != nil {
				continue
			}
			if exists == 0 {
				if err := s.redis.SRem(ctx, indexKey, idHash).Err(); err == nil {
					pruned++
				}
			}
		}
	}
	if err := iter.Err(); err != nil {
		return pruned, fmt.Errorf("sweep sessions: %w", err)
	}
	return pruned, nil
}

func (s *Store) write(ctx context.Context, idHash string, sess *model.Session, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrExpired
	}

	// The plaintext id never touches Redis.
	record := *sess
	record.ID = ""

	data, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, redisclient.SessionKey(idHash), data, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *Store) evict(ctx context.Context, idHash, userID string) {
	if err := s.redis.Del(ctx, redisclient.SessionKey(idHash)).Err(); err != nil {
		log.Warn().Err(err).Msg("failed to delete session record")
	}
	if err := s.redis.SRem(ctx, redisclient.UserSessionsKey(userID), idHash).Err(); err != nil {
		log.Warn().Err(err).Msg("failed to unindex session record")
	}
}

func (s *Store) publish(ctx context.Context, userID, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishToUser(ctx, userID, eventType, data); err != nil {
		log.Warn().Err(err).Str("userId", userID).Str("event", eventType).Msg("failed to publish session event")
	}
}
