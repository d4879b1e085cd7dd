package zone

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nerrad567/music-gateway/internal/gateway"
)

// ErrInvalidEqualizer is returned when the backend equalizer reply is not
// exactly BandCount numbers.
var ErrInvalidEqualizer = errors.New("zone: invalid equalizer reply")

// Play starts id on the zone, or resumes the backend's current item when id
// is empty. originSlot is the ordinal of the list item that started
// playback; it is reported in favorite-slot events.
func (z *Zone) Play(ctx context.Context, id string, originSlot int) error {
	return z.execute(ctx, operation{
		name: "play",
		apply: func(now time.Time) (string, any) {
			z.favoriteID = originSlot
			z.favoriteEvents.Trigger()
			z.track = Track{}
			z.player.Time = 0
			z.setModeLocked(ModeBuffer, now)
			if id == "" {
				return "/play", nil
			}
			return "/play/" + url.PathEscape(id), nil
		},
		fallback: z.settle(ModePlay),
	})
}

// Pause pauses playback.
func (z *Zone) Pause(ctx context.Context) error {
	return z.execute(ctx, operation{
		name: "pause",
		apply: func(now time.Time) (string, any) {
			z.setModeLocked(ModePause, now)
			return "/pause", nil
		},
		// No fallback: an unanswered pause stays paused.
	})
}

// Resume continues playback from the current position.
func (z *Zone) Resume(ctx context.Context) error {
	return z.execute(ctx, operation{
		name: "resume",
		apply: func(now time.Time) (string, any) {
			z.setModeLocked(ModeBuffer, now)
			return "/resume", nil
		},
		fallback: z.settle(ModePlay),
	})
}

// Stop stops playback.
func (z *Zone) Stop(ctx context.Context) error {
	return z.execute(ctx, operation{
		name: "stop",
		apply: func(now time.Time) (string, any) {
			z.setModeLocked(ModeStop, now)
			return "/stop", nil
		},
		fallback: z.settle(ModeStop),
	})
}

// PowerOff marks the zone off and stops it. Any later non-stop mode turns
// it back on.
func (z *Zone) PowerOff(ctx context.Context) error {
	z.mu.Lock()
	z.power = PowerOff
	z.stateEvents.Trigger()
	z.mu.Unlock()

	return z.Stop(ctx)
}

// Seek moves playback to ms.
func (z *Zone) Seek(ctx context.Context, ms int64) error {
	if ms < 0 {
		ms = 0
	}
	return z.execute(ctx, operation{
		name: "time",
		apply: func(now time.Time) (string, any) {
			z.player.Time = ms
			z.updated = now
			z.setModeLocked(ModeBuffer, now)
			return "/time/" + strconv.FormatInt(ms, 10), nil
		},
		fallback: func(now time.Time) {
			z.setModeLocked(ModePlay, now)
			z.player.Time = ms
			z.updated = now
		},
	})
}

// SetVolume sets the volume to v, or changes it by v when relative.
// The result is clamped to 0..100.
func (z *Zone) SetVolume(ctx context.Context, v int, relative bool) error {
	return z.execute(ctx, operation{
		name: "volume",
		apply: func(time.Time) (string, any) {
			if relative {
				v += z.player.Volume
			}
			z.player.Volume = clampVolume(v)
			return "/volume/" + strconv.Itoa(z.player.Volume), nil
		},
	})
}

// SetRepeat sets the repeat mode; RepeatCycle advances off -> one -> all.
func (z *Zone) SetRepeat(ctx context.Context, r Repeat) error {
	return z.execute(ctx, operation{
		name: "repeat",
		apply: func(time.Time) (string, any) {
			if r < RepeatOff || r > RepeatAll {
				r = (z.player.Repeat + 1) % 3
			}
			z.player.Repeat = r
			return "/repeat/" + strconv.Itoa(int(r)), nil
		},
	})
}

// SetShuffle enables, disables or toggles shuffle.
func (z *Zone) SetShuffle(ctx context.Context, s Shuffle) error {
	return z.execute(ctx, operation{
		name: "shuffle",
		apply: func(time.Time) (string, any) {
			switch s {
			case ShuffleOff:
				z.player.Shuffle = false
			case ShuffleOn:
				z.player.Shuffle = true
			default:
				z.player.Shuffle = !z.player.Shuffle
			}
			if z.player.Shuffle {
				return "/shuffle/1", nil
			}
			return "/shuffle/0", nil
		},
	})
}

// Next skips to the next queue item.
func (z *Zone) Next(ctx context.Context) error {
	return z.skip(ctx, "next")
}

// Previous skips to the previous queue item.
func (z *Zone) Previous(ctx context.Context) error {
	return z.skip(ctx, "previous")
}

func (z *Zone) skip(ctx context.Context, name string) error {
	return z.execute(ctx, operation{
		name: name,
		apply: func(now time.Time) (string, any) {
			z.track = Track{}
			z.player.Time = 0
			z.setModeLocked(ModeBuffer, now)
			return "/" + name, nil
		},
		fallback: z.settle(ModePlay),
	})
}

// Alarm plays an alarm of the given kind (general, bell, fire, clock) at
// volume. The zone pauses until the backend answers.
func (z *Zone) Alarm(ctx context.Context, kind string, volume int) error {
	return z.execute(ctx, operation{
		name: "alarm",
		apply: func(now time.Time) (string, any) {
			z.setModeLocked(ModePause, now)
			return "/alarm/" + url.PathEscape(kind) + "/" + strconv.Itoa(clampVolume(volume)), nil
		},
		fallback: z.settle(ModePlay),
	})
}

func (z *Zone) settle(mode Mode) func(time.Time) {
	return func(now time.Time) {
		z.setModeLocked(mode, now)
	}
}

// Equalizer returns the zone's equalizer bands. On any failure it returns
// flat bands together with the error.
func (z *Zone) Equalizer(ctx context.Context) (Bands, error) {
	var raw []float64
	if err := z.caller.Call(ctx, http.MethodGet, z.path("/equalizer"), nil, &raw); err != nil {
		return Bands{}, fmt.Errorf("zone %d equalizer: %w", z.id, err)
	}
	if len(raw) != BandCount {
		return Bands{}, fmt.Errorf("%w: zone %d sent %d bands", ErrInvalidEqualizer, z.id, len(raw))
	}

	var bands Bands
	copy(bands[:], raw)
	return bands, nil
}

// SetEqualizer stores bands on the backend. It returns the backend's bands
// when the reply carries exactly BandCount values, otherwise the requested
// ones.
func (z *Zone) SetEqualizer(ctx context.Context, bands Bands) (Bands, error) {
	var raw []float64
	err := z.caller.Call(ctx, http.MethodPut, z.path("/equalizer"), bands, &raw)
	switch {
	case errors.Is(err, gateway.ErrParse):
		z.logger.Debug("equalizer stored without a readable reply", "zone_id", z.id, "error", err)
		return bands, nil
	case err != nil:
		return bands, fmt.Errorf("zone %d set equalizer: %w", z.id, err)
	case len(raw) != BandCount:
		return bands, nil
	}

	var stored Bands
	copy(stored[:], raw)
	return stored, nil
}
