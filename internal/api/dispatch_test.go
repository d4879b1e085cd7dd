package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nerrad567/music-gateway/internal/audit"
	"github.com/nerrad567/music-gateway/internal/infrastructure/database"
	"github.com/nerrad567/music-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/music-gateway/internal/itemid"
	"github.com/nerrad567/music-gateway/migrations"
)

func compact(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		t.Fatalf("Compact(%s): %v", raw, err)
	}
	return buf.String()
}

type listReply struct {
	ID         int        `json:"id"`
	TotalItems int        `json:"totalitems"`
	Start      int        `json:"start"`
	Items      []listItem `json:"items"`
}

func TestEnvelopeLayout(t *testing.T) {
	got, err := envelope("getkey", "audio/cfg/getkey", []publicKey{{}})
	if err != nil {
		t.Fatalf("envelope() error: %v", err)
	}

	want := `{
  "getkey_result": [
    {
      "pubkey": ""
    }
  ],
  "command": "audio/cfg/getkey"
}`
	if string(got) != want {
		t.Errorf("envelope() =\n%s\nwant\n%s", got, want)
	}
}

func TestEnvelopeDoesNotEscapeHTML(t *testing.T) {
	got, err := envelope("x", "audio/cfg/a&b", map[string]string{"name": "<Rock & Roll>"})
	if err != nil {
		t.Fatalf("envelope() error: %v", err)
	}
	if !strings.Contains(string(got), "<Rock & Roll>") || !strings.Contains(string(got), `"audio/cfg/a&b"`) {
		t.Errorf("envelope() escaped HTML:\n%s", got)
	}
}

func TestUnknownCommandRepliesNull(t *testing.T) {
	srv := testServer(t, newFakeBackend(nil), 1)

	reply, err := srv.Dispatch(context.Background(), "audio/1/bogus/42", SourceHTTP)
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	want := "{\n  \"bogus_result\": null,\n  \"command\": \"audio/1/bogus/42\"\n}"
	if string(reply) != want {
		t.Errorf("reply =\n%s\nwant\n%s", reply, want)
	}
}

func TestRejectedCommandsReplyNull(t *testing.T) {
	srv := testServer(t, newFakeBackend(nil), 2)

	tests := []struct {
		raw string
		key string
	}{
		{"audio/9/pause", "pause_result"},
		{"audio/1/favoriteplay/!!!", "favoriteplay_result"},
		{"audio/1/roomfav/play/0", "play_result"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			env := dispatch(t, srv, tt.raw)
			got, ok := env[tt.key]
			if !ok {
				t.Fatalf("missing %s in %v", tt.key, env)
			}
			if string(got) != "null" {
				t.Errorf("%s = %s, want null", tt.key, got)
			}
		})
	}
}

func TestFixedPayloads(t *testing.T) {
	srv := testServer(t, newFakeBackend(nil), 1)

	tests := []struct {
		raw  string
		key  string
		want string
	}{
		{"audio/cfg/getkey", "getkey_result", `[{"pubkey":""}]`},
		{"audio/cfg/getradios", "getradios_result", `[]`},
		{"audio/cfg/getavailableservices", "getavailableservices_result", `[]`},
		{"audio/cfg/getsyncedplayers", "getsyncedplayers_result", `[]`},
		{"audio/cfg/scanstatus", "scanstatus_result", `[{"scanning":0}]`},
		{"audio/1/on", "on_result", `[]`},
		{"audio/cfg/mac", "mac_result", `[{"macaddress":"50:4f:94:ff:1b:b3"}]`},
		{"audio/cfg/getroomfavs/0/0/10", "getroomfavs_result", `[]`},
		{"audio/0/getqueue/0/10", "getqueue_result", `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			env := dispatch(t, srv, tt.raw)
			got, ok := env[tt.key]
			if !ok {
				t.Fatalf("missing %s in %v", tt.key, env)
			}
			if c := compact(t, got); c != tt.want {
				t.Errorf("%s = %s, want %s", tt.key, c, tt.want)
			}
		})
	}
}

func TestGetMasterIsBareString(t *testing.T) {
	srv := testServer(t, newFakeBackend(nil), 1)

	reply, err := srv.Dispatch(context.Background(), "audio/cfg/getmaster", SourceHTTP)
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if string(reply) != `"audio/cfg/getmaster"` {
		t.Errorf("reply = %s", reply)
	}
}

func TestIAmAMiniserver(t *testing.T) {
	srv := testServer(t, newFakeBackend(nil), 1)

	env := dispatch(t, srv, "audio/cfg/iamaminiserverdone/192.168.1.7")
	got := compact(t, env["iamamusicserver_result"])
	if got != `{"iamamusicserver":"i love miniservers!"}` {
		t.Errorf("iamamusicserver_result = %s", got)
	}
	if host := srv.MiniserverHost(); host != "192.168.1.7" {
		t.Errorf("MiniserverHost() = %q", host)
	}
}

func TestConfigAll(t *testing.T) {
	srv := testServer(t, newFakeBackend(nil), 3)

	env := dispatch(t, srv, "audio/cfg/all")
	var result []configAll
	if err := json.Unmarshal(env["configall_result"], &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("len = %d", len(result))
	}
	cfg := result[0]
	if cfg.MaxPlayers != 3 || len(cfg.Players) != 3 {
		t.Errorf("players = %d/%d", cfg.MaxPlayers, len(cfg.Players))
	}
	if cfg.Hostname != "loxberry-music-server-7091" || cfg.MACAddress != "50:4f:94:ff:1b:b3" {
		t.Errorf("identity = %q %q", cfg.Hostname, cfg.MACAddress)
	}
	p := cfg.Players[2]
	if p.PlayerID != 3 || p.Name != "Zone 3" || p.InternalName != "zone-3" || p.DefaultVolume != 50 {
		t.Errorf("player = %+v", p)
	}
}

func TestEqualizer(t *testing.T) {
	backend := newFakeBackend(map[string]string{
		"GET /zone/1/equalizer": `[1, 2, 3, 4, 5, 6, 7, 8, 9, 10]`,
		"PUT /zone/1/equalizer": "",
	})
	srv := testServer(t, backend, 1)

	t.Run("zone 0 is flat", func(t *testing.T) {
		reply, err := srv.Dispatch(context.Background(), "audio/cfg/equalizer/0", SourceHTTP)
		if err != nil {
			t.Fatalf("Dispatch() error: %v", err)
		}
		for _, want := range []string{`"playerid": 0`, `"B0": 0.0`, `"B9": 0.0`} {
			if !strings.Contains(string(reply), want) {
				t.Errorf("reply missing %s:\n%s", want, reply)
			}
		}
	})

	t.Run("get", func(t *testing.T) {
		reply, err := srv.Dispatch(context.Background(), "audio/cfg/equalizer/1", SourceHTTP)
		if err != nil {
			t.Fatalf("Dispatch() error: %v", err)
		}
		for _, want := range []string{`"B0": 1.0`, `"B9": 10.0`} {
			if !strings.Contains(string(reply), want) {
				t.Errorf("reply missing %s:\n%s", want, reply)
			}
		}
	})

	t.Run("set pads missing bands", func(t *testing.T) {
		reply, err := srv.Dispatch(context.Background(), "audio/cfg/equalizer/1/1,2.5,-3", SourceHTTP)
		if err != nil {
			t.Fatalf("Dispatch() error: %v", err)
		}
		for _, want := range []string{`"B1": 2.5`, `"B2": -3.0`, `"B9": 0.0`} {
			if !strings.Contains(string(reply), want) {
				t.Errorf("reply missing %s:\n%s", want, reply)
			}
		}
		if !backend.called("PUT /zone/1/equalizer") {
			t.Error("equalizer not stored on the backend")
		}
	})
}

func TestZoneCommandsAnswerWithPlayersDetails(t *testing.T) {
	backend := newFakeBackend(nil)
	srv := testServer(t, backend, 2)

	env := dispatch(t, srv, "audio/2/repeat/3")
	if string(env["command"]) != `"audio/cfg/getplayersdetails"` {
		t.Errorf("command = %s", env["command"])
	}
	var states []audioState
	if err := json.Unmarshal(env["getplayersdetails_result"], &states); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("len = %d", len(states))
	}
	if states[1].PlRepeat != 3 {
		t.Errorf("plrepeat = %d, want 3", states[1].PlRepeat)
	}
	if !backend.called("POST /zone/2/repeat/1") {
		t.Errorf("calls = %v", backend.calls)
	}
}

func TestControllerArgumentMapping(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want string
	}{
		{"repeat all", []string{"audio/1/repeat/1"}, "POST /zone/1/repeat/2"},
		{"repeat off", []string{"audio/1/repeat/0"}, "POST /zone/1/repeat/0"},
		{"shuffle on", []string{"audio/1/shuffle/1"}, "POST /zone/1/shuffle/1"},
		{"absolute volume", []string{"audio/1/volume/40"}, "POST /zone/1/volume/40"},
		{"relative volume", []string{"audio/1/volume/40", "audio/1/volume/-5"}, "POST /zone/1/volume/35"},
		{"position in seconds", []string{"audio/1/position/42"}, "POST /zone/1/time/42000"},
		{"play when stopped", []string{"audio/1/play"}, "POST /zone/1/play"},
		{"queueminus at start", []string{"audio/1/queueminus"}, "POST /zone/1/previous"},
		{"queueplus", []string{"audio/1/queueplus"}, "POST /zone/1/next"},
		{"alarm uses zone volume", []string{"audio/1/bell"}, "POST /zone/1/alarm/bell/50"},
		{"off stops", []string{"audio/1/off"}, "POST /zone/1/stop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend(nil)
			srv := testServer(t, backend, 1)
			for _, raw := range tt.raw {
				dispatch(t, srv, raw)
			}
			if !backend.called(tt.want) {
				t.Errorf("calls = %v, want %s", backend.calls, tt.want)
			}
		})
	}
}

func TestPlayTokenUsesOrdinalAsSlot(t *testing.T) {
	backend := newFakeBackend(map[string]string{
		"POST /zone/1/play/lib-7": `{"track": {"id": "lib-7", "title": "Seven", "duration": 61500}, "player": {"mode": "play", "time": 0}}`,
	})
	srv := testServer(t, backend, 1)

	token := itemid.Encode("lib-7", itemid.CategoryLibrary.Base()+7)
	env := dispatch(t, srv, "audio/1/library/play/"+token)

	var states []audioState
	if err := json.Unmarshal(env["getplayersdetails_result"], &states); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	st := states[0]
	if st.Mode != "play" || st.Title != "Seven" || st.Duration != 62 {
		t.Errorf("state = %+v", st)
	}
	z, _ := srv.Zones().Get(1)
	if got := z.State().FavoriteID; got != itemid.CategoryLibrary.Base()+7 {
		t.Errorf("FavoriteID = %d", got)
	}
}

func TestGetFavoritesNegativeStartKeepsOrdinalsInCategory(t *testing.T) {
	backend := newFakeBackend(map[string]string{
		"GET /favorites/0": `{"items": [{"id": "a", "title": "A"}, {"id": "b", "title": "B"}], "total": 2}`,
	})
	srv := testServer(t, backend, 1)

	env := dispatch(t, srv, "audio/cfg/getfavorites/-5/10")
	var result []listReply
	if err := json.Unmarshal(env["getfavorites_result"], &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(result) != 1 || result[0].Start != 0 || len(result[0].Items) != 2 {
		t.Fatalf("result = %+v", result)
	}
	for i, item := range result[0].Items {
		if item.Slot != i+1 {
			t.Errorf("item %d slot = %d, want %d", i, item.Slot, i+1)
		}
		id, err := itemid.Parse(item.ID)
		if err != nil {
			t.Fatalf("Parse(%q): %v", item.ID, err)
		}
		if id.Category != itemid.CategoryGlobalFavorite || id.Ordinal() != itemid.CategoryGlobalFavorite.Base()+i {
			t.Errorf("item %d id = %+v, want global favorite ordinal %d", i, id, itemid.CategoryGlobalFavorite.Base()+i)
		}
	}
}

func TestGetRoomFavsSkipsEmptySlots(t *testing.T) {
	backend := newFakeBackend(map[string]string{
		"GET /zone/1/favorites/0": `{"items": [{"id": "a", "title": "A"}, null, {"id": "c", "title": "C"}], "total": 3}`,
	})
	srv := testServer(t, backend, 1)

	env := dispatch(t, srv, "audio/cfg/getroomfavs/1/0/10")
	var result []listReply
	if err := json.Unmarshal(env["getroomfavs_result"], &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(result) != 1 || result[0].ID != 1 || result[0].TotalItems != 2 {
		t.Fatalf("result = %+v", result)
	}
	items := result[0].Items
	if len(items) != 2 || items[1].Slot != 3 || items[1].Type != itemTypeZoneFavorite {
		t.Errorf("items = %+v", items)
	}
	_, ordinal, err := itemid.Decode(items[1].ID)
	if err != nil || ordinal != itemid.CategoryZoneFavorite.Base()+2 {
		t.Errorf("ordinal = %d, err = %v", ordinal, err)
	}
}

func TestGetQueueFallsBackToCurrentTrack(t *testing.T) {
	backend := newFakeBackend(map[string]string{
		"GET /zone/1/state":   `{"track": {"id": "t-1", "title": "Song", "duration": 200000, "image": "http://img/t"}, "player": {"mode": "pause", "time": 1000}}`,
		"GET /zone/1/queue/0": `{"items": [], "total": 0}`,
	})
	srv := testServer(t, backend, 1)
	z, _ := srv.Zones().Get(1)
	if err := z.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}

	env := dispatch(t, srv, "audio/1/getqueue/0/50")
	var result []listReply
	if err := json.Unmarshal(env["getqueue_result"], &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(result) != 1 || result[0].TotalItems != 1 || len(result[0].Items) != 1 {
		t.Fatalf("result = %+v", result)
	}
	item := result[0].Items[0]
	if item.Name != "Song" || item.CoverURL != "http://img/t" || item.Type != itemTypeQueue {
		t.Errorf("item = %+v", item)
	}
	id, ordinal, err := itemid.Decode(item.ID)
	if err != nil || id != "t-1" || ordinal != 0 {
		t.Errorf("decoded = (%q, %d, %v)", id, ordinal, err)
	}

	env = dispatch(t, srv, "audio/1/getqueue/5/50")
	if err := json.Unmarshal(env["getqueue_result"], &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result[0].TotalItems != 1 || len(result[0].Items) != 0 {
		t.Errorf("offset page = %+v", result[0])
	}
}

func TestInputs(t *testing.T) {
	backend := newFakeBackend(map[string]string{
		"GET /inputs/0": `{"items": [{"id": "in-a", "title": "Line", "image": "turntable"}, {"id": "in-b", "title": "Phono", "image": "http://img/p"}], "total": 2}`,
		"PUT /inputs/1": "",
	})
	srv := testServer(t, backend, 1)

	env := dispatch(t, srv, "audio/cfg/getinputs")
	var inputs []inputItem
	if err := json.Unmarshal(env["getinputs_result"], &inputs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("len = %d", len(inputs))
	}
	if inputs[0].IconType != 8 || inputs[0].CoverURL != "" {
		t.Errorf("icon input = %+v", inputs[0])
	}
	if inputs[1].IconType != 0 || inputs[1].CoverURL != "http://img/p" || !inputs[1].Enabled {
		t.Errorf("cover input = %+v", inputs[1])
	}

	env = dispatch(t, srv, "audio/cfg/input/"+inputs[1].ID+"/rename/Record%20Player")
	if compact(t, env["rename_result"]) != `[]` {
		t.Errorf("rename reply = %v", env)
	}
	if !backend.called("PUT /inputs/1") {
		t.Errorf("calls = %v", backend.calls)
	}
}

func TestPlaylistCreateAppends(t *testing.T) {
	backend := newFakeBackend(map[string]string{
		"GET /playlists/0":  `{"items": [{"id": "p1", "title": "P1"}], "total": 1}`,
		"POST /playlists/1": "",
	})
	srv := testServer(t, backend, 1)

	env := dispatch(t, srv, "audio/cfg/playlist/create/Road%20Trip")
	if compact(t, env["create_result"]) != `[]` {
		t.Errorf("reply = %v", env)
	}
	if !backend.called("POST /playlists/1") {
		t.Errorf("calls = %v", backend.calls)
	}
}

func TestHandleMQTTCommand(t *testing.T) {
	backend := newFakeBackend(nil)
	srv := testServer(t, backend, 2)

	if err := srv.HandleMQTTCommand(2, []byte("pause")); err != nil {
		t.Fatalf("relative command: %v", err)
	}
	if !backend.called("POST /zone/2/pause") {
		t.Errorf("calls = %v", backend.calls)
	}

	if err := srv.HandleMQTTCommand(2, []byte("audio/1/pause")); !errors.Is(err, ErrZoneMismatch) {
		t.Errorf("mismatched zone error = %v", err)
	}
	if err := srv.HandleMQTTCommand(1, []byte("audio/cfg/getkey")); !errors.Is(err, ErrNotZoneCommand) {
		t.Errorf("config command error = %v", err)
	}
	if err := srv.HandleMQTTCommand(1, []byte("  ")); !errors.Is(err, ErrNotZoneCommand) {
		t.Errorf("empty payload error = %v", err)
	}
}

func TestCommandJournal(t *testing.T) {
	db, err := database.Open(database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}

	srv, err := New(Deps{
		Config:  testConfig(2),
		Logger:  logging.Discard(),
		Gateway: newFakeBackend(nil),
		Journal: audit.NewSQLiteRepository(db.DB),
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer srv.Close()

	dispatch(t, srv, "audio/cfg/getkey")
	dispatch(t, srv, "audio/1/bogus")
	dispatch(t, srv, "audio/2/pause")

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/commands?zone=2")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Commands []audit.Entry `json:"commands"`
		Count    int           `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The pause had no backend: it is answered but journaled as an error.
	if body.Count != 1 || body.Commands[0].Command != "audio/2/pause" || body.Commands[0].Outcome != audit.OutcomeError {
		t.Errorf("zone 2 journal = %+v", body)
	}

	all, err := audit.NewSQLiteRepository(db.DB).List(context.Background(), audit.Filter{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("entries = %d, want 3", len(all))
	}
	if all[1].Command != "audio/1/bogus" || all[1].Outcome != audit.OutcomeUnknown || all[1].Kind != "unknown" {
		t.Errorf("unknown command entry = %+v", all[1])
	}
	if all[2].Outcome != audit.OutcomeOK || all[2].Source != SourceHTTP {
		t.Errorf("oldest = %+v", all[2])
	}

	bad, err := http.Get(ts.URL + "/api/v1/commands?limit=abc")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", bad.StatusCode)
	}
}
