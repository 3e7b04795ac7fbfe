package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"fmt"
	"hash/fnv"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const defaultShards = 32

type Set map[domain.ConnectionID]struct{}

// connection carries its own lock. Lock order is connection.mu, then a group shard.
type connection struct {
	mu     sync.Mutex
	userID uuid.UUID
	groups map[domain.GroupID]struct{}
	gone   bool
}

type connectionShard struct {
	mu    sync.RWMutex
	conns map[domain.ConnectionID]*connection
}

type groupShard struct {
	mu      sync.RWMutex
	members map[domain.GroupID]Set
}

// Registry is the only owner of live connection state.
// Connections and groups are spread over hash shards so that unrelated
// connections never contend on the same lock.
type Registry struct {
	connShards  []connectionShard
	groupShards []groupShard
	count       atomic.Int64
}

func NewRegistry(shards int) *Registry {
	if shards <= 0 {
		shards = defaultShards
	}
	r := &Registry{
		connShards:  make([]connectionShard, shards),
		groupShards: make([]groupShard, shards),
	}
	for i := range shards {
		r.connShards[i].conns = make(map[domain.ConnectionID]*connection)
		r.groupShards[i].members = make(map[domain.GroupID]Set)
	}
	return r
}

// Connect registers a live connection and subscribes it to its user's group.
// Connecting an already known connection ID is a no-op.
func (r *Registry) Connect(connID domain.ConnectionID, userID uuid.UUID) {
	c := &connection{userID: userID, groups: make(map[domain.GroupID]struct{})}
	c.mu.Lock()
	defer c.mu.Unlock()

	shard := r.connShard(connID)
	shard.mu.Lock()
	if _, exists := shard.conns[connID]; exists {
		shard.mu.Unlock()
		return
	}
	shard.conns[connID] = c
	shard.mu.Unlock()

	r.count.Add(1)
	observability.ActiveConnections.Inc()

	userGroup := domain.UserGroup(userID)
	c.groups[userGroup] = struct{}{}
	r.addMember(userGroup, connID)
}

// Disconnect removes the connection and every one of its memberships.
// Disconnecting an unknown connection is a no-op.
func (r *Registry) Disconnect(connID domain.ConnectionID) {
	shard := r.connShard(connID)
	shard.mu.Lock()
	c, ok := shard.conns[connID]
	delete(shard.conns, connID)
	shard.mu.Unlock()
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gone = true
	for group := range c.groups {
		r.removeMember(group, connID)
	}
	c.groups = nil

	r.count.Add(-1)
	observability.ActiveConnections.Dec()
}

// Join subscribes a connection to a group. Joining twice is a no-op.
func (r *Registry) Join(connID domain.ConnectionID, group domain.GroupID) error {
	c, ok := r.get(connID)
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrConnectionNotFound, connID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gone {
		return fmt.Errorf("%w: %s", errors.ErrConnectionNotFound, connID)
	}
	if _, member := c.groups[group]; member {
		return nil
	}
	c.groups[group] = struct{}{}
	r.addMember(group, connID)
	return nil
}

// Leave unsubscribes a connection from a group. Leaving a group the
// connection is not part of is a no-op.
func (r *Registry) Leave(connID domain.ConnectionID, group domain.GroupID) error {
	c, ok := r.get(connID)
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrConnectionNotFound, connID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gone {
		return fmt.Errorf("%w: %s", errors.ErrConnectionNotFound, connID)
	}
	if _, member := c.groups[group]; !member {
		return nil
	}
	delete(c.groups, group)
	r.removeMember(group, connID)
	return nil
}

// MembersOf returns a snapshot of the group. Later changes to the group
// never affect a snapshot already handed out.
func (r *Registry) MembersOf(group domain.GroupID) []domain.ConnectionID {
	shard := r.groupShard(group)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	return lo.Keys(shard.members[group])
}

// Lookup returns a copy of the connection state.
func (r *Registry) Lookup(connID domain.ConnectionID) (domain.Connection, bool) {
	c, ok := r.get(connID)
	if !ok {
		return domain.Connection{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gone {
		return domain.Connection{}, false
	}
	groups := lo.Keys(c.groups)
	slices.Sort(groups)
	return domain.Connection{ID: connID, UserID: c.userID, Groups: groups}, true
}

// ConnectionsOf returns every live connection of a user.
func (r *Registry) ConnectionsOf(userID uuid.UUID) []domain.ConnectionID {
	return r.MembersOf(domain.UserGroup(userID))
}

func (r *Registry) Count() int {
	return int(r.count.Load())
}

func (r *Registry) get(connID domain.ConnectionID) (*connection, bool) {
	shard := r.connShard(connID)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	c, ok := shard.conns[connID]
	return c, ok
}

func (r *Registry) addMember(group domain.GroupID, connID domain.ConnectionID) {
	shard := r.groupShard(group)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	members, ok := shard.members[group]
	if !ok {
		members = make(Set)
		shard.members[group] = members
	}
	members[connID] = struct{}{}
}

// removeMember drops empty groups so that the map does not grow forever.
func (r *Registry) removeMember(group domain.GroupID, connID domain.ConnectionID) {
	shard := r.groupShard(group)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	members, ok := shard.members[group]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(shard.members, group)
	}
}

func (r *Registry) connShard(connID domain.ConnectionID) *connectionShard {
	return &r.connShards[index(string(connID), len(r.connShards))]
}

func (r *Registry) groupShard(group domain.GroupID) *groupShard {
	return &r.groupShards[index(string(group), len(r.groupShards))]
}

func index(key string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}
