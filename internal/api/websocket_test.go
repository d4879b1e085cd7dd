package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/music-gateway/internal/infrastructure/influxdb"
	"github.com/nerrad567/music-gateway/internal/infrastructure/logging"
)

func connectWebSocket(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) string {
	t.Helper()
	//nolint:errcheck // Test deadline
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(data)
}

// event decodes a push frame into its single event name and payload.
func event(t *testing.T, frame string) (string, json.RawMessage) {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(frame), &m); err != nil {
		t.Fatalf("frame is not JSON: %q", frame)
	}
	for k, v := range m {
		return k, v
	}
	t.Fatalf("empty frame")
	return "", nil
}

func TestWebSocketWelcome(t *testing.T) {
	srv := testServer(t, newFakeBackend(nil), 3)
	ws := connectWebSocket(t, srv)

	if got := readFrame(t, ws); got != Banner {
		t.Fatalf("first frame = %q, want banner", got)
	}

	name, payload := event(t, readFrame(t, ws))
	var states []audioState
	if err := json.Unmarshal(payload, &states); name != eventAudio || err != nil || len(states) != 3 {
		t.Fatalf("second frame = %s %s", name, payload)
	}
	if states[0].Mode != "stop" || states[2].PlayerID != 3 || states[0].AudioType != audioTypeFile {
		t.Errorf("states = %+v", states)
	}

	name, payload = event(t, readFrame(t, ws))
	if name != eventAudioSync || string(payload) != `[{"players":[1]},{"players":[2]},{"players":[3]}]` {
		t.Errorf("third frame = %s %s", name, payload)
	}

	for i := 1; i <= 3; i++ {
		name, payload = event(t, readFrame(t, ws))
		var slots []roomFavSlot
		if err := json.Unmarshal(payload, &slots); name != eventRoomFav || err != nil || slots[0].PlayerID != i {
			t.Errorf("roomfav frame %d = %s %s", i, name, payload)
		}
	}
}

func TestWebSocketRoomFavFrameUsesSpacedKey(t *testing.T) {
	frame, err := eventFrame(eventRoomFav, []roomFavSlot{{PlayerID: 2, PlayingSlot: 1000003}})
	if err != nil {
		t.Fatalf("eventFrame() error: %v", err)
	}
	want := `{"roomfav_event":[{"playerid":2,"playing slot":1000003}]}`
	if string(frame) != want {
		t.Errorf("frame = %s, want %s", frame, want)
	}
}

func TestWebSocketCommandReply(t *testing.T) {
	srv := testServer(t, newFakeBackend(nil), 1)
	ws := connectWebSocket(t, srv)

	// Banner, audio, sync and one roomfav frame.
	for i := 0; i < 4; i++ {
		readFrame(t, ws)
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte("audio/cfg/getkey")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		frame := readFrame(t, ws)
		if strings.Contains(frame, `"getkey_result"`) {
			if !strings.Contains(frame, `"command": "audio/cfg/getkey"`) {
				t.Errorf("reply = %s", frame)
			}
			return
		}
	}
	t.Fatal("no reply to command frame")
}

func TestRoomFavPlayPushesOnlyThatZone(t *testing.T) {
	backend := newFakeBackend(map[string]string{
		"GET /zone/2/favorites/0": `{"items": [
			{"id": "fav-0", "title": "F0"},
			{"id": "fav-1", "title": "F1"},
			{"id": "fav-2", "title": "F2"},
			{"id": "fav-3", "title": "F3"},
			{"id": "fav-4", "title": "F4"}
		], "total": 5}`,
		"POST /zone/2/play/fav-3": `{"track": {"id": "fav-3", "title": "F3", "duration": 180000}, "player": {"mode": "play", "time": 0}}`,
	})
	srv := testServer(t, backend, 3)
	ws := connectWebSocket(t, srv)

	// Banner, audio, sync and three roomfav frames.
	for i := 0; i < 6; i++ {
		readFrame(t, ws)
	}

	env := dispatch(t, srv, "audio/2/roomfav/play/4")
	if _, ok := env["getplayersdetails_result"]; !ok {
		t.Fatalf("reply = %v", env)
	}
	if !backend.called("POST /zone/2/play/fav-3") {
		t.Fatalf("calls = %v", backend.calls)
	}

	var sawSlot, sawPlaying bool
	deadline := time.Now().Add(2 * time.Second)
	for !(sawSlot && sawPlaying) && time.Now().Before(deadline) {
		name, payload := event(t, readFrame(t, ws))

		var refs []struct {
			PlayerID    int    `json:"playerid"`
			PlayingSlot int    `json:"playing slot"`
			Mode        string `json:"mode"`
		}
		if err := json.Unmarshal(payload, &refs); err != nil {
			t.Fatalf("%s payload: %v", name, err)
		}
		for _, r := range refs {
			if r.PlayerID != 2 {
				t.Errorf("%s for zone %d", name, r.PlayerID)
			}
			switch name {
			case eventRoomFav:
				if r.PlayingSlot == 1000003 {
					sawSlot = true
				}
			case eventAudio:
				if r.Mode == "play" {
					sawPlaying = true
				}
			}
		}
	}
	if !sawSlot || !sawPlaying {
		t.Errorf("slot event = %v, playing state = %v", sawSlot, sawPlaying)
	}
}

type fakeMirror struct {
	mu        sync.Mutex
	published map[int][]byte
	points    []influxdb.Playback
	done      chan struct{}
}

func (m *fakeMirror) PublishZoneState(zoneID int, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[zoneID] = payload
	return nil
}

func (m *fakeMirror) IsConnected() bool { return true }

func (m *fakeMirror) WriteZonePlayback(p influxdb.Playback) {
	m.mu.Lock()
	m.points = append(m.points, p)
	m.mu.Unlock()
	select {
	case m.done <- struct{}{}:
	default:
	}
}

func TestStateChangesReachMirror(t *testing.T) {
	fake := &fakeMirror{published: make(map[int][]byte), done: make(chan struct{}, 1)}

	srv, err := New(Deps{
		Config:    testConfig(2),
		Logger:    logging.Discard(),
		Gateway:   newFakeBackend(map[string]string{"POST /zone/2/volume/70": ""}),
		Mirror:    fake,
		Telemetry: fake,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer srv.Close()
	go srv.mirror.run(srv.ctx)

	dispatch(t, srv, "audio/2/volume/70")

	select {
	case <-fake.done:
	case <-time.After(2 * time.Second):
		t.Fatal("no playback point written")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()

	var st audioState
	if err := json.Unmarshal(fake.published[2], &st); err != nil {
		t.Fatalf("published state: %v", err)
	}
	if st.PlayerID != 2 || st.Volume != 70 {
		t.Errorf("published = %+v", st)
	}
	if p := fake.points[0]; p.ZoneID != 2 || p.Volume != 70 || p.Mode != "stop" {
		t.Errorf("point = %+v", p)
	}
}

func TestHubDropsWhenClientBufferFull(t *testing.T) {
	hub := NewHub(testConfig(1).WebSocket, logging.Discard())
	client := &WSClient{id: "c", hub: hub, send: make(chan []byte, 1)}
	hub.Register(client)

	hub.Broadcast([]byte("one"))
	hub.Broadcast([]byte("two"))

	if got := string(<-client.send); got != "one" {
		t.Errorf("first frame = %q", got)
	}
	select {
	case extra := <-client.send:
		t.Errorf("unexpected frame %q", extra)
	default:
	}

	hub.Unregister(client)
	hub.Unregister(client)
	hub.Broadcast([]byte("after close"))
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d", hub.ClientCount())
	}
}
