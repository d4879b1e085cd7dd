// Package influxdb records zone playback telemetry in InfluxDB 2.x.
//
// Each debounced zone state broadcast becomes one zone_playback point.
// Writes are batched by the client library and never block the caller;
// losing telemetry never affects zone behaviour.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteZonePlayback(influxdb.Playback{ZoneID: 3, Mode: "play", Volume: 40})
package influxdb
