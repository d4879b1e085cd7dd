package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// measurementZonePlayback holds one point per zone state broadcast.
const measurementZonePlayback = "zone_playback"

// Playback is a zone's playback state at one instant.
type Playback struct {
	ZoneID      int
	Mode        string
	Volume      int
	TimeSeconds float64
	At          time.Time
}

// WriteZonePlayback queues a zone_playback point (tags zone_id and mode;
// fields volume, time_s and playing). The write is batched and
// non-blocking; failures surface through SetOnError.
func (c *Client) WriteZonePlayback(p Playback) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(playbackPoint(p))
}

func playbackPoint(p Playback) *write.Point {
	at := p.At
	if at.IsZero() {
		at = time.Now()
	}
	return write.NewPoint(
		measurementZonePlayback,
		map[string]string{
			"zone_id": strconv.Itoa(p.ZoneID),
			"mode":    p.Mode,
		},
		map[string]any{
			"volume":  p.Volume,
			"time_s":  p.TimeSeconds,
			"playing": p.Mode == "play",
		},
		at,
	)
}
