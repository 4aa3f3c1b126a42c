// internal/realtime/presence.go
// Redis-backed presence shared across horizontally scaled instances. The
// in-process registry is only a local cache of this state: when a user is
// connected to another instance, events are forwarded over a per-instance
// pub/sub channel instead of being dropped.

package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const presenceKeyPrefix = "presence:user:"

// envelope carries a forwarded event to the instance owning the connection
type envelope struct {
	UserID  int64     `json:"user_id"`
	Message WSMessage `json:"message"`
}

// Presence tracks which instance each connected user is on
type Presence struct {
	rdb        *redis.Client
	instanceID string
	ttl        time.Duration

	deliver func(userID int64, msg WSMessage) bool

	trackedMux sync.Mutex
	tracked    map[int64]bool
}

func NewPresence(rdb *redis.Client, ttl time.Duration) *Presence {
	return &Presence{
		rdb:        rdb,
		instanceID: uuid.NewString(),
		ttl:        ttl,
		tracked:    make(map[int64]bool),
	}
}

// BindLocalDelivery wires the hub's local delivery path for forwarded events
func (p *Presence) BindLocalDelivery(deliver func(userID int64, msg WSMessage) bool) {
	p.deliver = deliver
}

// Track claims the user for this instance
func (p *Presence) Track(ctx context.Context, userID int64) {
	p.trackedMux.Lock()
	p.tracked[userID] = true
	p.trackedMux.Unlock()

	if err := p.rdb.Set(ctx, presenceKey(userID), p.instanceID, p.ttl).Err(); err != nil {
		log.Printf("presence: failed to track user %d: %v", userID, err)
	}
}

// Untrack releases the claim, but only while this instance still holds it
func (p *Presence) Untrack(ctx context.Context, userID int64) {
	p.trackedMux.Lock()
	delete(p.tracked, userID)
	p.trackedMux.Unlock()

	// Compare-and-delete so a reconnect on another instance is not clobbered
	script := redis.NewScript(`
        if redis.call("get", KEYS[1]) == ARGV[1] then
            return redis.call("del", KEYS[1])
        end
        return 0
    `)
	if err := script.Run(ctx, p.rdb, []string{presenceKey(userID)}, p.instanceID).Err(); err != nil && err != redis.Nil {
		log.Printf("presence: failed to untrack user %d: %v", userID, err)
	}
}

// Forward publishes the event to the instance currently owning the user's
// connection. Returns false when the user is not online anywhere.
func (p *Presence) Forward(ctx context.Context, userID int64, msg WSMessage) bool {
	instanceID, err := p.rdb.Get(ctx, presenceKey(userID)).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		log.Printf("presence: lookup failed for user %d: %v", userID, err)
		return false
	}
	if instanceID == p.instanceID {
		// Stale claim for this instance; the local map already said offline
		return false
	}

	payload, err := json.Marshal(envelope{UserID: userID, Message: msg})
	if err != nil {
		return false
	}

	if err := p.rdb.Publish(ctx, channelFor(instanceID), payload).Err(); err != nil {
		log.Printf("presence: forward to %s failed: %v", instanceID, err)
		return false
	}

	return true
}

// Listen consumes forwarded events for this instance and refreshes presence
// claims until the context is cancelled.
func (p *Presence) Listen(ctx context.Context) {
	sub := p.rdb.Subscribe(ctx, channelFor(p.instanceID))
	defer sub.Close()

	refresh := time.NewTicker(p.ttl / 3)
	defer refresh.Stop()

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			p.handleForwarded(msg.Payload)

		case <-refresh.C:
			p.refreshClaims(ctx)

		case <-ctx.Done():
			return
		}
	}
}

func (p *Presence) handleForwarded(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		log.Printf("presence: malformed forwarded event: %v", err)
		return
	}

	if p.deliver == nil || !p.deliver(env.UserID, env.Message) {
		// The user disconnected between lookup and delivery; drop it
		log.Printf("presence: forwarded event for offline user %d dropped", env.UserID)
	}
}

func (p *Presence) refreshClaims(ctx context.Context) {
	p.trackedMux.Lock()
	ids := make([]int64, 0, len(p.tracked))
	for id := range p.tracked {
		ids = append(ids, id)
	}
	p.trackedMux.Unlock()

	for _, id := range ids {
		if err := p.rdb.Expire(ctx, presenceKey(id), p.ttl).Err(); err != nil {
			log.Printf("presence: refresh failed for user %d: %v", id, err)
		}
	}
}

func presenceKey(userID int64) string {
	return fmt.Sprintf("%s%d", presenceKeyPrefix, userID)
}

func channelFor(instanceID string) string {
	return "realtime:notify:" + instanceID
}
