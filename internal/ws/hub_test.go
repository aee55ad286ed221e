package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHubBroadcastReachesOnlyItsParty(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	a := &Client{Hub: hub, Send: make(chan []byte, 1), PartyCode: "party-a"}
	b := &Client{Hub: hub, Send: make(chan []byte, 1), PartyCode: "party-b"}
	hub.register <- a
	hub.register <- b

	hub.BroadcastWSMessage(WSMessage{EventType: EventPlaylistUpdated, Party: "party-a"})

	select {
	case payload := <-a.Send:
		var msg WSMessage
		assert.NoError(t, json.Unmarshal(payload, &msg))
		assert.Equal(t, EventPlaylistUpdated, msg.EventType)
		assert.Equal(t, "party-a", msg.Party)
	case <-time.After(time.Second):
		t.Fatal("Клиент комнаты не получил событие")
	}

	select {
	case <-b.Send:
		t.Fatal("Событие ушло в чужую комнату")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{Hub: hub, Send: make(chan []byte, 1), PartyCode: "party-c"}
	hub.register <- client
	hub.unregister <- client

	select {
	case _, ok := <-client.Send:
		assert.False(t, ok, "Канал Send должен быть закрыт")
	case <-time.After(time.Second):
		t.Fatal("Канал Send не закрылся после отключения")
	}
}
