package api

import (
	"context"
	"time"

	"github.com/nerrad567/music-gateway/internal/infrastructure/influxdb"
	"github.com/nerrad567/music-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/music-gateway/internal/zone"
)

// Push event names.
const (
	eventAudio          = "audio_event"
	eventAudioSync      = "audio_sync_event"
	eventAudioQueue     = "audio_queue_event"
	eventRoomFav        = "roomfav_event"
	eventRoomFavChanged = "roomfavchanged_event"
)

type roomFavSlot struct {
	PlayerID    int `json:"playerid"`
	PlayingSlot int `json:"playing slot"`
}

type syncGroup struct {
	Players []int `json:"players"`
}

// ZoneStateChanged broadcasts the zone's state and hands it to the mirror.
func (s *Server) ZoneStateChanged(id int) {
	z, err := s.zones.Get(id)
	if err != nil {
		return
	}
	st := z.State()
	s.broadcast(eventAudio, []audioState{renderAudioState(st)})
	if s.mirror != nil {
		s.mirror.enqueue(st)
	}
}

// ZoneQueueChanged tells controllers to refetch the zone's queue.
func (s *Server) ZoneQueueChanged(id int) {
	s.broadcast(eventAudioQueue, []playerRef{{PlayerID: id}})
}

// ZoneFavoriteChanged broadcasts which favorite slot the zone is playing.
func (s *Server) ZoneFavoriteChanged(id int) {
	z, err := s.zones.Get(id)
	if err != nil {
		return
	}
	s.broadcast(eventRoomFav, []roomFavSlot{{PlayerID: id, PlayingSlot: z.State().FavoriteID}})
}

// roomFavsChanged tells controllers the zone's favorite list was edited.
func (s *Server) roomFavsChanged(id int) {
	s.broadcast(eventRoomFavChanged, []playerRef{{PlayerID: id}})
}

func (s *Server) broadcast(name string, payload any) {
	frame, err := eventFrame(name, payload)
	if err != nil {
		s.logger.Error("encoding push event", "event", name, "error", err)
		return
	}
	s.hub.Broadcast(frame)
}

// welcomeFrames is what a new push connection receives before any
// broadcast: the banner, every zone's state, the sync groups and one
// favorite-slot frame per zone.
func (s *Server) welcomeFrames() [][]byte {
	zones := s.zones.All()
	frames := make([][]byte, 0, len(zones)+3)
	frames = append(frames, []byte(Banner))

	states := make([]audioState, 0, len(zones))
	groups := make([]syncGroup, 0, len(zones))
	for i, z := range zones {
		states = append(states, renderAudioState(z.State()))
		groups = append(groups, syncGroup{Players: []int{i + 1}})
	}
	if frame, err := eventFrame(eventAudio, states); err == nil {
		frames = append(frames, frame)
	}
	if frame, err := eventFrame(eventAudioSync, groups); err == nil {
		frames = append(frames, frame)
	}
	for _, z := range zones {
		frame, err := eventFrame(eventRoomFav, []roomFavSlot{{PlayerID: z.ID(), PlayingSlot: z.State().FavoriteID}})
		if err == nil {
			frames = append(frames, frame)
		}
	}
	return frames
}

var _ zone.Notifier = (*Server)(nil)

// mirrorQueueSize bounds the states waiting for MQTT and InfluxDB.
const mirrorQueueSize = 256

// mirror copies zone state broadcasts to the MQTT state topics and to
// InfluxDB off the broadcast path.
type mirror struct {
	bus       StateMirror
	telemetry PlaybackRecorder
	logger    *logging.Logger
	states    chan zone.State
}

func newMirror(bus StateMirror, telemetry PlaybackRecorder, logger *logging.Logger) *mirror {
	return &mirror{
		bus:       bus,
		telemetry: telemetry,
		logger:    logger,
		states:    make(chan zone.State, mirrorQueueSize),
	}
}

// enqueue never blocks; a full queue drops the state.
func (m *mirror) enqueue(st zone.State) {
	select {
	case m.states <- st:
	default:
		m.logger.Debug("mirror queue full, dropping zone state", "zone_id", st.ID)
	}
}

func (m *mirror) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-m.states:
			m.publish(st)
		}
	}
}

func (m *mirror) publish(st zone.State) {
	if m.bus != nil && m.bus.IsConnected() {
		payload, err := marshal(renderAudioState(st))
		if err == nil {
			err = m.bus.PublishZoneState(st.ID, payload)
		}
		if err != nil {
			m.logger.Warn("publishing zone state", "zone_id", st.ID, "error", err)
		}
	}

	if m.telemetry != nil {
		m.telemetry.WriteZonePlayback(influxdb.Playback{
			ZoneID:      st.ID,
			Mode:        string(st.Mode),
			Volume:      st.Volume,
			TimeSeconds: float64(st.Time) / 1000,
			At:          time.Now(),
		})
	}
}
