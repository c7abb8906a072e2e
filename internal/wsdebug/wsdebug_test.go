package wsdebug

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hangarwatch/aerofuse/internal/snapshot"
	"github.com/hangarwatch/aerofuse/pkg/logger"
)

func TestHubBroadcastsSnapshotToConnectedClient(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	hub := NewHub(log)
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// give the hub's register goroutine a moment to process before we
	// broadcast, since registration happens asynchronously.
	time.Sleep(20 * time.Millisecond)

	hub.Broadcast(&snapshot.Snapshot{Timestamp: 42})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msg.Type != "snapshot" || msg.Data == nil || msg.Data.Timestamp != 42 {
		t.Fatalf("unexpected message: %+v", msg)
	}
}
