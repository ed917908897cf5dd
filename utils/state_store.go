package utils

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	oauthStatePrefix = "oauth:state:"
	defaultStateTTL  = 10 * time.Minute
)

var (
	stateStore   = map[string]time.Time{}
	stateStoreMu sync.Mutex
)

// NewState issues a random OAuth state token and stores it for ttl.
func NewState(ttl time.Duration) string {
	state := uuid.NewString()
	SaveState(state, ttl)
	return state
}

// SaveState stores an OAuth state token with TTL to mitigate CSRF.
func SaveState(state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, oauthStatePrefix+state, "1", ttl).Err(); err == nil {
			return
		}
	}
	// In-memory fallback is single-instance only
	now := time.Now()
	stateStoreMu.Lock()
	for k, exp := range stateStore {
		if now.After(exp) {
			delete(stateStore, k)
		}
	}
	stateStore[state] = now.Add(ttl)
	stateStoreMu.Unlock()
}

// ConsumeState validates and removes a state token. A state can be consumed once.
func ConsumeState(state string) bool {
	if state == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := rc.GetDel(ctx, oauthStatePrefix+state).Result(); err == nil {
			return v != ""
		}
	}
	stateStoreMu.Lock()
	exp, ok := stateStore[state]
	if ok {
		delete(stateStore, state)
	}
	stateStoreMu.Unlock()
	return ok && time.Now().Before(exp)
}
