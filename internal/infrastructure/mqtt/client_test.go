package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/music-gateway/internal/infrastructure/config"
)

// testConfig points at a local broker. Tests that need one skip when it is
// not reachable.
func testConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS:         1,
		TopicPrefix: "musicgateway-test",
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func connectOrSkip(t *testing.T, clientID string) *Client {
	t.Helper()
	client, err := Connect(testConfig(clientID))
	if err != nil {
		t.Skipf("MQTT broker not available: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "mg"}

	if got := topics.ZoneState(3); got != "mg/zone/3/state" {
		t.Errorf("ZoneState(3) = %q", got)
	}
	if got := topics.ZoneCommand(12); got != "mg/zone/12/command" {
		t.Errorf("ZoneCommand(12) = %q", got)
	}
	if got := topics.ZoneCommands(); got != "mg/zone/+/command" {
		t.Errorf("ZoneCommands() = %q", got)
	}
	if got := topics.SystemStatus(); got != "mg/system/status" {
		t.Errorf("SystemStatus() = %q", got)
	}
}

func TestParseZoneCommand(t *testing.T) {
	topics := Topics{Prefix: "mg"}
	tests := []struct {
		topic string
		id    int
		ok    bool
	}{
		{"mg/zone/3/command", 3, true},
		{"mg/zone/20/command", 20, true},
		{"mg/zone/0/command", 0, false},
		{"mg/zone/x/command", 0, false},
		{"mg/zone/3/state", 0, false},
		{"other/zone/3/command", 0, false},
		{"mg/zone/3/extra/command", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			id, ok := topics.ParseZoneCommand(tt.topic)
			if id != tt.id || ok != tt.ok {
				t.Errorf("ParseZoneCommand(%q) = %d, %v; want %d, %v", tt.topic, id, ok, tt.id, tt.ok)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig("opts")
	cfg.Auth = config.MQTTAuthConfig{Username: "user", Password: "secret"}
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "opts" || opts.Username != "user" || opts.Password != "secret" {
		t.Errorf("identity = %q/%q/%q", opts.ClientID, opts.Username, opts.Password)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config not applied")
	}
	if opts.MaxReconnectInterval != 5*time.Second {
		t.Errorf("MaxReconnectInterval = %v", opts.MaxReconnectInterval)
	}

	configureLWT(opts, Topics{Prefix: "mg"}, "opts")
	if !opts.WillEnabled || opts.WillTopic != "mg/system/status" || !opts.WillRetained {
		t.Errorf("will = %v %q %v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
}

func TestBuildStatusPayload(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	var got statusPayload
	if err := json.Unmarshal(buildStatusPayload("offline", "mg", "graceful_shutdown", now), &got); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	want := statusPayload{Status: "offline", ClientID: "mg", Reason: "graceful_shutdown", Timestamp: "2026-10-19T12:00:00Z"}
	if got != want {
		t.Errorf("payload = %+v, want %+v", got, want)
	}
}

func TestConnectInvalidBroker(t *testing.T) {
	cfg := testConfig("invalid")
	cfg.Broker.Port = 19999

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestPublishValidation(t *testing.T) {
	c := &Client{subscriptions: map[string]subscription{}}

	if err := c.Publish("", nil, 0, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
	if err := c.Publish("t", nil, 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos error = %v", err)
	}
	if err := c.Publish("t", make([]byte, maxPayloadSize+1), 0, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("oversize error = %v", err)
	}
	if err := c.Publish("t", []byte("x"), 0, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v", err)
	}
	if err := c.Subscribe("t", 0, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestZoneCommandRoundTrip(t *testing.T) {
	client := connectOrSkip(t, "musicgateway-test-roundtrip")

	var mu sync.Mutex
	got := make(chan string, 1)
	err := client.SubscribeZoneCommands(func(zoneID int, payload []byte) error {
		mu.Lock()
		defer mu.Unlock()
		if zoneID == 4 {
			got <- string(payload)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("SubscribeZoneCommands() error = %v", err)
	}
	if client.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d", client.SubscriptionCount())
	}

	if err := client.Publish(client.Topics().ZoneCommand(4), []byte("audio/4/pause"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case payload := <-got:
		if payload != "audio/4/pause" {
			t.Errorf("payload = %q", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for command")
	}

	if err := client.PublishZoneState(4, []byte(`{"playerid":4}`)); err != nil {
		t.Errorf("PublishZoneState() error = %v", err)
	}
}
