package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"github.com/stretchr/testify/require"
)

func newConnID() domain.ConnectionID {
	return domain.ConnectionID(xid.New().String())
}

func TestRegistry_Connect_Subscribes_User_Group(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(4)
	userID := uuid.New()
	connID := newConnID()

	// Given no connection is registered
	req.Zero(registry.Count())

	// When a connection comes in
	registry.Connect(connID, userID)

	// Then it is live and part of its user's group
	req.Equal(1, registry.Count())
	req.Equal([]domain.ConnectionID{connID}, registry.ConnectionsOf(userID))
	conn, ok := registry.Lookup(connID)
	req.True(ok)
	req.Equal(userID, conn.UserID)
	req.Equal([]domain.GroupID{domain.UserGroup(userID)}, conn.Groups)
}

func TestRegistry_Connect_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(4)
	userID := uuid.New()
	connID := newConnID()
	chat := domain.ChatGroup(uuid.New())

	registry.Connect(connID, userID)
	req.NoError(registry.Join(connID, chat))

	// When the same connection connects again
	registry.Connect(connID, uuid.New())

	// Then nothing changed
	req.Equal(1, registry.Count())
	conn, _ := registry.Lookup(connID)
	req.Equal(userID, conn.UserID)
	req.Contains(conn.Groups, chat)
}

func TestRegistry_Disconnect_Removes_Every_Membership(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(4)
	userID := uuid.New()
	connID := newConnID()
	chatA := domain.ChatGroup(uuid.New())
	chatB := domain.ChatGroup(uuid.New())

	// Given a connection in two chats
	registry.Connect(connID, userID)
	req.NoError(registry.Join(connID, chatA))
	req.NoError(registry.Join(connID, chatB))

	// When it disconnects twice
	registry.Disconnect(connID)
	registry.Disconnect(connID)

	// Then it is gone from every group
	req.Zero(registry.Count())
	req.Empty(registry.MembersOf(chatA))
	req.Empty(registry.MembersOf(chatB))
	req.Empty(registry.ConnectionsOf(userID))
	_, ok := registry.Lookup(connID)
	req.False(ok)
}

func TestRegistry_Join_Unknown_Connection_Fails(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(4)
	group := domain.ChatGroup(uuid.New())

	req.ErrorIs(registry.Join(newConnID(), group), errors.ErrConnectionNotFound)
	req.ErrorIs(registry.Leave(newConnID(), group), errors.ErrConnectionNotFound)
	req.Empty(registry.MembersOf(group))
}

func TestRegistry_Join_Leave_Are_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(4)
	connID := newConnID()
	group := domain.ChatGroup(uuid.New())
	registry.Connect(connID, uuid.New())

	req.NoError(registry.Join(connID, group))
	req.NoError(registry.Join(connID, group))
	req.Equal([]domain.ConnectionID{connID}, registry.MembersOf(group))

	req.NoError(registry.Leave(connID, group))
	req.NoError(registry.Leave(connID, group))
	req.Empty(registry.MembersOf(group))
}

func TestRegistry_MembersOf_Returns_A_Snapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(4)
	group := domain.ChatGroup(uuid.New())
	first, second := newConnID(), newConnID()
	registry.Connect(first, uuid.New())
	registry.Connect(second, uuid.New())
	req.NoError(registry.Join(first, group))

	snapshot := registry.MembersOf(group)
	req.NoError(registry.Join(second, group))

	req.Equal([]domain.ConnectionID{first}, snapshot)
	req.ElementsMatch([]domain.ConnectionID{first, second}, registry.MembersOf(group))
}

func TestRegistry_Concurrent_Storm(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(8)
	groups := []domain.GroupID{
		domain.ChatGroup(uuid.New()),
		domain.ChatGroup(uuid.New()),
		domain.ChatGroup(uuid.New()),
	}
	const connections = 200

	// When many connections connect, join, leave and disconnect at the same time
	var wg sync.WaitGroup
	for i := range connections {
		wg.Add(1)
		go func() {
			defer wg.Done()
			connID := domain.ConnectionID(fmt.Sprintf("conn-%d", i))
			registry.Connect(connID, uuid.New())
			for _, g := range groups {
				_ = registry.Join(connID, g)
				_ = registry.MembersOf(g)
			}
			_ = registry.Leave(connID, groups[i%len(groups)])
			if i%2 == 0 {
				registry.Disconnect(connID)
			}
		}()
	}
	wg.Wait()

	// Then only odd connections are left, each in two groups
	req.Equal(connections/2, registry.Count())
	total := 0
	for _, g := range groups {
		total += len(registry.MembersOf(g))
	}
	req.Equal(connections, total)
}
