package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sooksun/tablebooking/internal/logger"
)

const holdKeyPrefix = "table_hold:"

// Locks holds tables in Redis while a reservation request is in flight.
// A hold is keyed by table id and valued with an owner token, so only the
// request that took a hold can release it. Holds expire on their own in case
// a request dies mid-create; the database CAS still protects correctness.
type Locks struct {
	Client  *redis.Client
	HoldTTL time.Duration
	Logger  *logger.Logger
}

func NewLocks(client *redis.Client, holdTTL time.Duration, log *logger.Logger) *Locks {
	if holdTTL <= 0 {
		holdTTL = 2 * time.Minute
	}
	return &Locks{Client: client, HoldTTL: holdTTL, Logger: log}
}

func holdKey(tableID int) string {
	return fmt.Sprintf("%s%d", holdKeyPrefix, tableID)
}

// TableIDFromKey extracts the table id from an expired hold key, for the
// keyspace notification subscriber. Returns false for unrelated keys.
func TableIDFromKey(key string) (int, bool) {
	var id int
	n, err := fmt.Sscanf(key, holdKeyPrefix+"%d", &id)
	if err != nil || n != 1 {
		return 0, false
	}
	return id, true
}

// HoldTable takes a hold on one table. Returns false when someone else
// already holds it.
func (l *Locks) HoldTable(ctx context.Context, tableID int, owner string) (bool, error) {
	return l.Client.SetNX(ctx, holdKey(tableID), owner, l.HoldTTL).Result()
}

// ReleaseTable drops a hold, but only if owner still owns it.
func (l *Locks) ReleaseTable(ctx context.Context, tableID int, owner string) error {
	key := holdKey(tableID)
	val, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // expired or already released
	}
	if err != nil {
		return err
	}
	if val == owner {
		_, err = l.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// HoldTables takes holds on every table or none.
func (l *Locks) HoldTables(ctx context.Context, tableIDs []int, owner string) (bool, error) {
	held := []int{}
	for _, tableID := range tableIDs {
		ok, err := l.HoldTable(ctx, tableID, owner)
		if err != nil || !ok {
			for _, h := range held {
				if relErr := l.ReleaseTable(ctx, h, owner); relErr != nil && l.Logger != nil {
					l.Logger.Warn("LOCK", fmt.Sprintf("rollback release table %d: %v", h, relErr))
				}
			}
			return false, err
		}
		held = append(held, tableID)
	}
	return true, nil
}

// ReleaseTables drops every hold, returning the first error seen.
func (l *Locks) ReleaseTables(ctx context.Context, tableIDs []int, owner string) error {
	var firstErr error
	for _, tableID := range tableIDs {
		if err := l.ReleaseTable(ctx, tableID, owner); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
