package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/music-gateway/internal/audit"
	"github.com/nerrad567/music-gateway/internal/command"
	"github.com/nerrad567/music-gateway/internal/itemid"
	"github.com/nerrad567/music-gateway/internal/zone"
)

// Command sources recorded in the journal.
const (
	SourceHTTP      = "http"
	SourceWebSocket = "websocket"
	SourceMQTT      = "mqtt"
)

// journalTimeout bounds a single journal write.
const journalTimeout = 2 * time.Second

var (
	// ErrZoneMismatch is returned when an MQTT command addresses a zone
	// other than the one in its topic.
	ErrZoneMismatch = errors.New("api: command zone does not match topic")

	// ErrNotZoneCommand is returned when an MQTT command is not a zone
	// command.
	ErrNotZoneCommand = errors.New("api: not a zone command")

	// errInvalidSlot rejects favorite slots below 1.
	errInvalidSlot = errors.New("favorite slot must be at least 1")
)

// call is one command in flight.
type call struct {
	command.Command
	source string

	// opErr is the first backend failure. The controller still gets its
	// reply; the failure only shows up in logs and the journal.
	opErr error
}

func (c *call) fail(err error) {
	if err != nil && c.opErr == nil {
		c.opErr = err
	}
}

type handlerFunc func(s *Server, ctx context.Context, c *call) ([]byte, error)

var handlers = map[command.Kind]handlerFunc{
	command.KindConfigAll:         (*Server).handleConfigAll,
	command.KindEqualizer:         (*Server).handleEqualizer,
	command.KindFavoritesAddPath:  (*Server).handleFavoritesAddPath,
	command.KindGetFavorites:      (*Server).handleGetFavorites,
	command.KindGetInputs:         (*Server).handleGetInputs,
	command.KindGetKey:            (*Server).handleGetKey,
	command.KindGetMediaFolder:    (*Server).handleGetMediaFolder,
	command.KindGetMaster:         (*Server).handleGetMaster,
	command.KindGetPlayersDetails: (*Server).handleGetPlayersDetails,
	command.KindGetPlaylists:      (*Server).handleGetPlaylists,
	command.KindGetRadios:         (*Server).handleEmptyList,
	command.KindGetRoomFavs:       (*Server).handleGetRoomFavs,
	command.KindGetServices:       (*Server).handleEmptyList,
	command.KindGetSyncedPlayers:  (*Server).handleEmptyList,
	command.KindIAmAMiniserver:    (*Server).handleIAmAMiniserver,
	command.KindInputRename:       (*Server).handleInputRename,
	command.KindInputType:         (*Server).handleInputType,
	command.KindMac:               (*Server).handleMac,
	command.KindPlaylistCreate:    (*Server).handlePlaylistCreate,
	command.KindScanStatus:        (*Server).handleScanStatus,

	command.KindAlarm:           (*Server).handleAlarm,
	command.KindFavoritePlay:    (*Server).handlePlayToken,
	command.KindGetQueue:        (*Server).handleGetQueue,
	command.KindIdentifySource:  (*Server).handleIdentifySource,
	command.KindLibraryPlay:     (*Server).handlePlayToken,
	command.KindLineIn:          (*Server).handlePlayToken,
	command.KindOff:             (*Server).handleOff,
	command.KindOn:              (*Server).handleEmptyList,
	command.KindPause:           (*Server).handlePause,
	command.KindPlay:            (*Server).handlePlay,
	command.KindPlaylistPlay:    (*Server).handlePlayToken,
	command.KindPosition:        (*Server).handlePosition,
	command.KindQueueMinus:      (*Server).handleQueueMinus,
	command.KindQueuePlus:       (*Server).handleQueuePlus,
	command.KindRepeat:          (*Server).handleRepeat,
	command.KindRoomFavDelete:   (*Server).handleRoomFavDelete,
	command.KindRoomFavPlay:     (*Server).handleRoomFavPlay,
	command.KindRoomFavSavePath: (*Server).handleRoomFavSavePath,
	command.KindServicePlay:     (*Server).handlePlayToken,
	command.KindShuffle:         (*Server).handleShuffle,
	command.KindVolume:          (*Server).handleVolume,
}

// Dispatch executes one raw command and returns the reply. A non-nil error
// means the reply could not be produced at all and maps to HTTP 500.
func (s *Server) Dispatch(ctx context.Context, raw, source string) ([]byte, error) {
	start := time.Now()
	c := &call{Command: command.Parse(raw), source: source}

	reply, outcome, err := s.execute(ctx, c)

	s.record(ctx, c, outcome, time.Since(start))
	return reply, err
}

func (s *Server) execute(ctx context.Context, c *call) ([]byte, string, error) {
	h, ok := handlers[c.Kind]
	if !ok {
		s.logger.Warn("unknown command", "command", c.Path, "source", c.source)
		reply, err := envelope(c.FallbackName(), c.Path, nil)
		return reply, audit.OutcomeUnknown, err
	}

	reply, err := h(s, ctx, c)
	switch {
	case err == nil:
	case errors.Is(err, zone.ErrZoneNotFound),
		errors.Is(err, itemid.ErrMalformed),
		errors.Is(err, errInvalidSlot):
		s.logger.Warn("rejected command", "command", c.Path, "source", c.source, "error", err)
		reply, err = envelope(c.FallbackName(), c.Path, nil)
		return reply, audit.OutcomeError, err
	default:
		s.logger.Error("command failed", "command", c.Path, "source", c.source, "error", err)
		return nil, audit.OutcomeError, err
	}

	if c.opErr != nil {
		s.logger.Warn("command completed with backend failure",
			"command", c.Path,
			"source", c.source,
			"error", c.opErr,
		)
		return reply, audit.OutcomeError, nil
	}
	return reply, audit.OutcomeOK, nil
}

// record writes the journal entry. Journal failures never affect the reply.
func (s *Server) record(ctx context.Context, c *call, outcome string, elapsed time.Duration) {
	if s.journal == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()

	entry := &audit.Entry{
		Command:    c.Path,
		Kind:       c.Kind.String(),
		ZoneID:     c.Zone,
		Source:     c.source,
		Outcome:    outcome,
		DurationMS: elapsed.Milliseconds(),
	}
	if err := s.journal.Create(ctx, entry); err != nil {
		s.logger.Warn("recording command", "command", c.Path, "error", err)
	}
}

// HandleMQTTCommand executes a command received on a zone's command topic.
// The payload is either a full command path or one relative to the zone,
// such as "volume/+5".
func (s *Server) HandleMQTTCommand(zoneID int, payload []byte) error {
	raw := strings.TrimSpace(string(payload))
	if raw == "" {
		return fmt.Errorf("%w: empty payload", ErrNotZoneCommand)
	}
	if !strings.HasPrefix(raw, "audio/") && !strings.Contains(raw, "/audio/") {
		raw = fmt.Sprintf("audio/%d/%s", zoneID, strings.TrimPrefix(raw, "/"))
	}

	cmd := command.Parse(raw)
	if !cmd.IsZoneCommand() {
		return fmt.Errorf("%w: %s", ErrNotZoneCommand, raw)
	}
	if cmd.Zone != zoneID {
		return fmt.Errorf("%w: topic zone %d, command zone %d", ErrZoneMismatch, zoneID, cmd.Zone)
	}

	if _, err := s.Dispatch(s.ctx, raw, SourceMQTT); err != nil {
		return fmt.Errorf("dispatching %s: %w", raw, err)
	}
	return nil
}

// answer replies under the command's own fallback name, the way the
// controller expects for commands without a dedicated result.
func answer(c *call, payload any) ([]byte, error) {
	return envelope(c.FallbackName(), c.Path, payload)
}
