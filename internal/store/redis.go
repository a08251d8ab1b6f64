package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/ashureev/boothsim/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix         = "session:"
	traineeKeyPrefix         = "trainee:"
	scoreKeyPrefix           = "score:"
	traineeSessionsKeyPrefix = "trainee_sessions:"

	defaultRedisTTL = 24 * time.Hour
)

// RedisStore implements Repository on Redis. Every record is a JSON document
// with a TTL, so expiry is handled by Redis itself.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return NewRedisWithClient(client, opts.TTL, logger), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

// GetTrainee retrieves a trainee by ID.
func (s *RedisStore) GetTrainee(ctx context.Context, traineeID string) (*domain.Trainee, error) {
	var t domain.Trainee
	found, err := s.getJSON(ctx, traineeKeyPrefix+traineeID, &t)
	if err != nil || !found {
		return nil, err
	}
	return &t, nil
}

// UpsertTrainee creates or updates a trainee record.
func (s *RedisStore) UpsertTrainee(ctx context.Context, t *domain.Trainee) error {
	return s.setJSON(ctx, traineeKeyPrefix+t.TraineeID, t)
}

// CreateSession stores a new session with Version 1.
func (s *RedisStore) CreateSession(ctx context.Context, session *domain.Session) error {
	session.Version = 1
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	setKey := traineeSessionsKeyPrefix + session.TraineeID
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKeyPrefix+session.ID, data, s.ttl)
		pipe.SAdd(ctx, setKey, session.ID)
		pipe.Expire(ctx, setKey, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session %s: %w", session.ID, err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *RedisStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	found, err := s.getJSON(ctx, sessionKeyPrefix+sessionID, &session)
	if err != nil || !found {
		return nil, err
	}
	return &session, nil
}

// UpdateSession replaces a session using WATCH/MULTI/EXEC on its key.
func (s *RedisStore) UpdateSession(ctx context.Context, session *domain.Session) error {
	key := sessionKeyPrefix + session.ID
	next := *session

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var stored domain.Session
		if err := json.Unmarshal(val, &stored); err != nil {
			return fmt.Errorf("decode stored session: %w", err)
		}
		if stored.Version != session.Version {
			return ErrVersionConflict
		}

		next.Version = session.Version + 1
		data, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			pipe.Expire(ctx, traineeSessionsKeyPrefix+session.TraineeID, s.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		session.Version = next.Version
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("update session %s: %w", session.ID, ErrVersionConflict)
	default:
		return fmt.Errorf("update session %s: %w", session.ID, err)
	}
}

// ListSessions returns a trainee's sessions, newest first. Members whose
// session key already expired are pruned from the index.
func (s *RedisStore) ListSessions(ctx context.Context, traineeID string) ([]*domain.Session, error) {
	setKey := traineeSessionsKeyPrefix + traineeID
	ids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list session ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKeyPrefix + id
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	var sessions []*domain.Session
	var stale []any
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var session domain.Session
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", ids[i], err)
		}
		sessions = append(sessions, &session)
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, setKey, stale...).Err(); err != nil {
			s.logger.Warn("failed to prune expired session ids", "trainee_id", traineeID, "error", err)
		}
	}
	slices.SortFunc(sessions, func(a, b *domain.Session) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return sessions, nil
}

// DeleteExpiredSessions prunes index entries for sessions Redis has already
// expired. The ttl argument is ignored because key TTLs govern expiry.
func (s *RedisStore) DeleteExpiredSessions(ctx context.Context, _ time.Duration) (int64, error) {
	var pruned int64
	iter := s.client.Scan(ctx, 0, traineeSessionsKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		traineeID := strings.TrimPrefix(iter.Val(), traineeSessionsKeyPrefix)
		before, err := s.client.SCard(ctx, iter.Val()).Result()
		if err != nil {
			return pruned, fmt.Errorf("count sessions for %s: %w", traineeID, err)
		}
		if _, err := s.ListSessions(ctx, traineeID); err != nil {
			return pruned, err
		}
		after, err := s.client.SCard(ctx, iter.Val()).Result()
		if err != nil {
			return pruned, fmt.Errorf("count sessions for %s: %w", traineeID, err)
		}
		pruned += before - after
	}
	if err := iter.Err(); err != nil {
		return pruned, fmt.Errorf("scan session indexes: %w", err)
	}
	return pruned, nil
}

// SaveScore records the score for a session once using SET NX.
func (s *RedisStore) SaveScore(ctx context.Context, score *domain.ScoreRecord) error {
	data, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("encode score: %w", err)
	}
	ok, err := s.client.SetNX(ctx, scoreKeyPrefix+score.SessionID, data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("save score for %s: %w", score.SessionID, err)
	}
	if !ok {
		return fmt.Errorf("save score for %s: %w", score.SessionID, ErrScoreExists)
	}
	return nil
}

// GetScore retrieves the score for a session.
func (s *RedisStore) GetScore(ctx context.Context, sessionID string) (*domain.ScoreRecord, error) {
	var score domain.ScoreRecord
	found, err := s.getJSON(ctx, scoreKeyPrefix+sessionID, &score)
	if err != nil || !found {
		return nil, err
	}
	return &score, nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
