package zone

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/music-gateway/internal/gateway"
	"github.com/nerrad567/music-gateway/internal/musiclist"
)

// Default timings.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultDebounce     = 25 * time.Millisecond
	defaultVolume       = 50

	// timeDriftTolerance is how far (ms) a reported position may differ
	// from the extrapolated one before it counts as a change.
	timeDriftTolerance = 1500
)

// Logger is the logging interface used by zones.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Notifier receives zone change notifications. Implementations must not
// block; they are called from timer goroutines and command paths.
type Notifier interface {
	ZoneStateChanged(id int)
	ZoneQueueChanged(id int)
	ZoneFavoriteChanged(id int)
}

type noopNotifier struct{}

func (noopNotifier) ZoneStateChanged(int)    {}
func (noopNotifier) ZoneQueueChanged(int)    {}
func (noopNotifier) ZoneFavoriteChanged(int) {}

// Options configures a Zone.
type Options struct {
	PollInterval time.Duration
	Debounce     time.Duration

	// DiscardStaleResponses drops a backend answer when another command
	// was issued on the zone while it was in flight.
	DiscardStaleResponses bool

	Logger   Logger
	Notifier Notifier

	// Clock overrides time.Now.
	Clock func() time.Time
}

// Snapshot is an immutable copy of a zone's restorable state, taken before
// every command and restored verbatim when the backend rejects it.
type Snapshot struct {
	player     Player
	track      Track
	power      Power
	favoriteID int
	updated    time.Time
}

// Zone is one independently controllable audio output.
//
// Safe for concurrent use. The zone mutex is never held across a backend
// call, so commands on the same zone may be in flight together.
type Zone struct {
	id           int
	caller       gateway.Caller
	logger       Logger
	notifier     Notifier
	now          func() time.Time
	pollInterval time.Duration
	discardStale bool

	favorites *musiclist.List
	queue     *musiclist.List

	stateEvents    *debouncer
	favoriteEvents *debouncer

	mu         sync.Mutex
	player     Player
	track      Track
	power      Power
	favoriteID int
	updated    time.Time
	seq        uint64
	pollTimer  *time.Timer
	pollGen    uint64
	closed     bool
}

// New creates zone id. No backend call is made until the first command or
// Refresh.
func New(id int, caller gateway.Caller, opts Options) *Zone {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	z := &Zone{
		id:           id,
		caller:       caller,
		logger:       opts.Logger,
		notifier:     opts.Notifier,
		now:          opts.Clock,
		pollInterval: opts.PollInterval,
		discardStale: opts.DiscardStaleResponses,
		player: Player{
			Mode:   ModeStop,
			Volume: defaultVolume,
		},
		power: PowerOn,
	}
	z.favorites = musiclist.New(caller, z.path("/favorites"))
	z.queue = musiclist.New(caller, z.path("/queue"))
	z.favorites.SetLogger(opts.Logger)
	z.queue.SetLogger(opts.Logger)
	z.stateEvents = newDebouncer(opts.Debounce, func() { z.notifier.ZoneStateChanged(z.id) })
	z.favoriteEvents = newDebouncer(opts.Debounce, func() { z.notifier.ZoneFavoriteChanged(z.id) })
	return z
}

// ID returns the zone number.
func (z *Zone) ID() int { return z.id }

// Favorites returns the zone's favorites list.
func (z *Zone) Favorites() *musiclist.List { return z.favorites }

// Queue returns the zone's play queue.
func (z *Zone) Queue() *musiclist.List { return z.queue }

func (z *Zone) path(suffix string) string {
	return "/zone/" + strconv.Itoa(z.id) + suffix
}

// State returns the current rendered state.
func (z *Zone) State() State {
	z.mu.Lock()
	defer z.mu.Unlock()

	return State{
		ID:         z.id,
		Track:      z.track,
		Mode:       z.player.Mode,
		Time:       z.timeLocked(z.now()),
		Volume:     z.player.Volume,
		Repeat:     z.player.Repeat,
		Shuffle:    z.player.Shuffle,
		Power:      z.power,
		FavoriteID: z.favoriteID,
	}
}

// Mode returns the current player mode.
func (z *Zone) Mode() Mode {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.player.Mode
}

// Time returns the extrapolated playback position in milliseconds, never
// beyond the track duration.
func (z *Zone) Time() int64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.timeLocked(z.now())
}

// Volume returns the current volume.
func (z *Zone) Volume() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.player.Volume
}

func (z *Zone) timeLocked(now time.Time) int64 {
	t := z.player.Time
	if z.player.Mode == ModePlay && !z.updated.IsZero() {
		if elapsed := now.Sub(z.updated).Milliseconds(); elapsed > 0 {
			t += elapsed
		}
	}
	if t > z.track.Duration {
		t = z.track.Duration
	}
	if t < 0 {
		t = 0
	}
	return t
}

// setModeLocked folds elapsed play time into Player.Time before switching,
// so time is never counted twice across transitions.
func (z *Zone) setModeLocked(mode Mode, now time.Time) {
	z.player.Time = z.timeLocked(now)
	z.player.Mode = mode
	z.updated = now
	if mode != ModeStop {
		z.power = PowerOn
	}
	z.syncPollLocked()
	z.stateEvents.Trigger()
}

func (z *Zone) snapshotLocked() Snapshot {
	return Snapshot{
		player:     z.player,
		track:      z.track,
		power:      z.power,
		favoriteID: z.favoriteID,
		updated:    z.updated,
	}
}

// restoreLocked puts s back. A favorite slot that changed optimistically is
// announced again so controllers learn the restored value.
func (z *Zone) restoreLocked(s Snapshot) {
	if z.favoriteID != s.favoriteID {
		z.favoriteEvents.Trigger()
	}
	z.player = s.player
	z.track = s.track
	z.power = s.power
	z.favoriteID = s.favoriteID
	z.updated = s.updated
	z.syncPollLocked()
}

// operation describes one zone command.
//
// apply performs the optimistic mutation under the zone lock and returns
// the backend path suffix and body. fallback runs under the lock when the
// backend gave no authoritative answer.
//
// Fallback table:
//
//	play, resume, seek, next, previous  buffer -> play
//	alarm                               pause  -> play
//	stop, power off                     stop   -> stop
//	pause                               pause  -> pause
//	volume, repeat, shuffle             mode unchanged
type operation struct {
	name     string
	apply    func(now time.Time) (path string, body any)
	fallback func(now time.Time)
}

func (z *Zone) execute(ctx context.Context, op operation) error {
	z.mu.Lock()
	snap := z.snapshotLocked()
	z.seq++
	seq := z.seq
	path, body := op.apply(z.now())
	z.stateEvents.Trigger()
	z.mu.Unlock()

	var resp stateResponse
	err := z.caller.Call(ctx, http.MethodPost, z.path(path), body, &resp)

	z.mu.Lock()
	queueChanged := false
	switch {
	case z.discardStale && seq != z.seq:
		z.logger.Debug("discarding superseded zone response", "zone_id", z.id, "command", op.name)
	case err == nil:
		queueChanged = z.applyLocked(resp)
	case gateway.IsBackend(err):
		z.logger.Warn("backend rejected zone command, rolling back", "zone_id", z.id, "command", op.name, "error", err)
		z.restoreLocked(snap)
		z.stateEvents.Trigger()
	default:
		z.logger.Warn("no answer for zone command, applying fallback", "zone_id", z.id, "command", op.name, "error", err)
		if op.fallback != nil {
			op.fallback(z.now())
		}
		z.stateEvents.Trigger()
	}
	z.mu.Unlock()

	if queueChanged {
		z.notifier.ZoneQueueChanged(z.id)
	}
	if err != nil {
		return fmt.Errorf("zone %d %s: %w", z.id, op.name, err)
	}
	return nil
}

// applyLocked merges an authoritative backend answer. A state event is
// triggered only when something a controller renders actually changed. It
// reports whether the track changed.
func (z *Zone) applyLocked(resp stateResponse) bool {
	now := z.now()
	before := z.player
	before.Time = z.timeLocked(now)
	power := z.power

	var track Track
	if resp.Track != nil {
		track = *resp.Track
	}
	trackChanged := track != z.track
	z.track = track

	if p := resp.Player; p != nil {
		if p.Mode.Valid() && p.Mode != z.player.Mode {
			z.setModeLocked(p.Mode, now)
		}
		z.player.Time = before.Time
		if p.Time != nil {
			z.player.Time = int64(*p.Time)
		}
		if p.Volume != nil {
			z.player.Volume = clampVolume(int(*p.Volume))
		}
		if p.Repeat != nil && *p.Repeat >= int(RepeatOff) && *p.Repeat <= int(RepeatAll) {
			z.player.Repeat = Repeat(*p.Repeat)
		}
		if p.Shuffle != nil {
			z.player.Shuffle = bool(*p.Shuffle)
		}
		z.updated = now
	}

	after := z.player
	drift := after.Time - before.Time
	if drift < 0 {
		drift = -drift
	}
	after.Time, before.Time = 0, 0
	if trackChanged || after != before || z.power != power || drift > timeDriftTolerance {
		z.stateEvents.Trigger()
	}
	return trackChanged
}

// Refresh fetches the authoritative zone state and merges it. Errors leave
// local state untouched.
func (z *Zone) Refresh(ctx context.Context) error {
	z.mu.Lock()
	seq := z.seq
	z.mu.Unlock()

	var resp stateResponse
	if err := z.caller.Call(ctx, http.MethodGet, z.path("/state"), nil, &resp); err != nil {
		return fmt.Errorf("zone %d state: %w", z.id, err)
	}

	z.mu.Lock()
	queueChanged := false
	if z.discardStale && seq != z.seq {
		z.logger.Debug("discarding state poll overtaken by a command", "zone_id", z.id)
	} else {
		queueChanged = z.applyLocked(resp)
	}
	z.mu.Unlock()

	if queueChanged {
		z.notifier.ZoneQueueChanged(z.id)
	}
	return nil
}

// Close stops the poll timer and pending notifications.
func (z *Zone) Close() {
	z.mu.Lock()
	z.closed = true
	z.stopPollLocked()
	z.mu.Unlock()

	z.stateEvents.Stop()
	z.favoriteEvents.Stop()
}

func clampVolume(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
