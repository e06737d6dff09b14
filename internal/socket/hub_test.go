package socket

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type HubSuite struct {
	suite.Suite
	hub *Hub
}

func (s *HubSuite) SetupTest() {
	s.hub = NewHub()
}

func TestHubSuite(t *testing.T) {
	suite.Run(t, new(HubSuite))
}

func (s *HubSuite) newClient(userID string) *Client {
	return &Client{
		ID:     "conn-" + userID,
		UserID: userID,
		Hub:    s.hub,
		Send:   make(chan []byte, 8),
		Rooms:  make(map[string]bool),
	}
}

func (s *HubSuite) TestRegistration() {
	a := s.newClient("user-a")
	b := s.newClient("user-b")
	s.hub.registerClient(a)
	s.hub.registerClient(b)

	s.Equal(2, s.hub.ConnectedClientCount())
	s.True(s.hub.IsUserOnline("user-a"))
	s.False(s.hub.IsUserOnline("user-c"))

	s.hub.unregisterClient(a)
	s.Equal(1, s.hub.ConnectedClientCount())
	s.False(s.hub.IsUserOnline("user-a"))

	s.Run("unregister closes the send channel exactly once", func() {
		_, open := <-a.Send
		s.False(open)
		s.NotPanics(func() { s.hub.unregisterClient(a) })
	})
}

func (s *HubSuite) TestMultipleSessionsPerUser() {
	first := s.newClient("user-a")
	second := s.newClient("user-a")
	second.ID = "conn-user-a-2"
	s.hub.registerClient(first)
	s.hub.registerClient(second)

	s.hub.unregisterClient(first)
	s.True(s.hub.IsUserOnline("user-a"), "online until the last session closes")

	s.hub.unregisterClient(second)
	s.False(s.hub.IsUserOnline("user-a"))
}

func (s *HubSuite) TestRooms() {
	a := s.newClient("user-a")
	b := s.newClient("user-b")
	s.hub.registerClient(a)
	s.hub.registerClient(b)

	s.hub.JoinRoom(a, "team:t1")
	s.hub.JoinRoom(b, "team:t1")
	s.Equal(2, s.hub.RoomClientCount("team:t1"))

	s.Run("room broadcast reaches subscribers", func() {
		s.hub.broadcastToRoom(&RoomMessage{Room: "team:t1", Message: []byte("hi")})
		s.Equal([]byte("hi"), <-a.Send)
		s.Equal([]byte("hi"), <-b.Send)
	})

	s.Run("the exclude field skips the sender's sessions", func() {
		s.hub.broadcastToRoom(&RoomMessage{Room: "team:t1", Message: []byte("hi"), Exclude: "user-a"})
		s.Equal([]byte("hi"), <-b.Send)
		s.Empty(a.Send)
	})

	s.Run("leaving stops delivery", func() {
		s.hub.LeaveRoom(b, "team:t1")
		s.Equal(1, s.hub.RoomClientCount("team:t1"))

		s.hub.broadcastToRoom(&RoomMessage{Room: "team:t1", Message: []byte("bye")})
		s.Equal([]byte("bye"), <-a.Send)
		s.Empty(b.Send)
	})

	s.Run("disconnect clears room membership", func() {
		s.hub.unregisterClient(a)
		s.Zero(s.hub.RoomClientCount("team:t1"))
	})
}

func (s *HubSuite) TestDirectDelivery() {
	a := s.newClient("user-a")
	other := s.newClient("user-b")
	s.hub.registerClient(a)
	s.hub.registerClient(other)

	s.hub.sendToUser(&DirectMessage{UserID: "user-a", Message: []byte("for you")})
	s.Equal([]byte("for you"), <-a.Send)
	s.Empty(other.Send)
}

func TestSplitRoom(t *testing.T) {
	cases := []struct {
		room        string
		channelType string
		channelID   string
		ok          bool
	}{
		{"team:abc", "team", "abc", true},
		{"task:id:with:colons", "task", "id:with:colons", true},
		{"team:", "", "", false},
		{":abc", "", "", false},
		{"noseparator", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		channelType, channelID, ok := splitRoom(tc.room)
		if ok != tc.ok || channelType != tc.channelType || channelID != tc.channelID {
			t.Errorf("splitRoom(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.room, channelType, channelID, ok, tc.channelType, tc.channelID, tc.ok)
		}
	}
}
