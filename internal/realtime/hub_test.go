package realtime

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, conn *Conn) Event {
	t.Helper()
	select {
	case ev := <-conn.Events():
		return ev
	default:
		t.Fatal("expected a buffered event")
		return Event{}
	}
}

func TestPublishReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub()
	lead := snowflake.ID(1)
	a, b, outsider := hub.Connect(), hub.Connect(), hub.Connect()
	hub.Join(lead, a)
	hub.Join(lead, b)
	hub.Join(2, outsider)

	delivered := hub.Publish(lead, Event{Name: EventNewMessage, Data: "hi"})
	assert.Equal(t, 2, delivered)
	assert.Equal(t, EventNewMessage, receive(t, a).Name)
	assert.Equal(t, EventNewMessage, receive(t, b).Name)
	assert.Empty(t, outsider.Events())
}

func TestJoinIsIdempotent(t *testing.T) {
	hub := NewHub()
	conn := hub.Connect()
	hub.Join(1, conn)
	hub.Join(1, conn)

	assert.Equal(t, 1, hub.RoomSize(1))
	assert.Equal(t, 1, hub.Publish(1, Event{Name: EventNewMessage}))
}

func TestEmptyRoomIsDeleted(t *testing.T) {
	hub := NewHub()
	conn := hub.Connect()
	hub.Join(1, conn)
	hub.Leave(1, conn)

	hub.mu.RLock()
	_, ok := hub.rooms[1]
	hub.mu.RUnlock()
	assert.False(t, ok)
	assert.Zero(t, hub.Publish(1, Event{Name: EventNewMessage}))
}

func TestDisconnectLeavesAllRooms(t *testing.T) {
	hub := NewHub()
	conn := hub.Connect()
	other := hub.Connect()
	hub.Join(1, conn)
	hub.Join(2, conn)
	hub.Join(2, other)
	require.Len(t, conn.Rooms(), 2)

	hub.Disconnect(conn)

	assert.Empty(t, conn.Rooms())
	assert.Zero(t, hub.RoomSize(1))
	assert.Equal(t, 1, hub.RoomSize(2))
	select {
	case <-conn.Done():
	default:
		t.Fatal("expected connection to be released")
	}
}

func TestSlowSubscriberMissesEvents(t *testing.T) {
	hub := NewHub()
	conn := hub.Connect()
	hub.Join(1, conn)

	for i := 0; i < DefaultSubscriberBuffer; i++ {
		require.Equal(t, 1, hub.Publish(1, Event{Name: EventNewMessage}))
	}
	assert.Zero(t, hub.Publish(1, Event{Name: EventNewMessage}))
	assert.Len(t, conn.Events(), DefaultSubscriberBuffer)
}

func TestCloseReleasesEveryConnection(t *testing.T) {
	hub := NewHub()
	a, b := hub.Connect(), hub.Connect()
	hub.Join(1, a)
	hub.Join(1, b)

	hub.Close()

	for _, conn := range []*Conn{a, b} {
		select {
		case <-conn.Done():
		default:
			t.Fatal("expected connection to be released")
		}
	}
	assert.Zero(t, hub.RoomSize(1))
}
