package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	applogger "SignalGate/pkg/logger"
)

// RedisStateStore keeps one JSON snapshot per asset-pool in a single hash.
type RedisStateStore struct {
	client redis.Cmdable
	key    string
	l      *applogger.Logger
}

func NewRedisStateStore(client redis.Cmdable, prefix string, l *applogger.Logger) *RedisStateStore {
	if l == nil {
		l = applogger.Nop()
	}
	key := "admission"
	if prefix != "" {
		key = prefix + ":admission"
	}
	return &RedisStateStore{client: client, key: key, l: l}
}

func (s *RedisStateStore) SaveState(ctx context.Context, st models.AdmissionState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, st.Pool, b).Err(); err != nil {
		return fmt.Errorf("save state %s: %w", st.Pool, err)
	}
	return nil
}

// LoadStates returns every stored snapshot sorted by pool. Undecodable entries are skipped.
func (s *RedisStateStore) LoadStates(ctx context.Context) ([]models.AdmissionState, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load states: %w", err)
	}
	out := make([]models.AdmissionState, 0, len(raw))
	for pool, v := range raw {
		var st models.AdmissionState
		if err := json.Unmarshal([]byte(v), &st); err != nil {
			s.l.Warn("skipping undecodable admission state", applogger.String("pool", pool), applogger.Error(err))
			continue
		}
		st.Pool = pool
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pool < out[j].Pool })
	return out, nil
}

var _ domrepo.StateStore = (*RedisStateStore)(nil)
