package zone

import (
	"context"
	"time"
)

// syncPollLocked keeps exactly one poll timer armed while the zone is not
// stopped, and none while it is. The generation counter invalidates a timer
// that already fired but has not yet taken the lock.
func (z *Zone) syncPollLocked() {
	if z.closed {
		return
	}

	active := z.player.Mode != ModeStop
	switch {
	case active && z.pollTimer == nil:
		z.pollGen++
		gen := z.pollGen
		z.pollTimer = time.AfterFunc(z.pollInterval, func() { z.poll(gen) })
	case !active && z.pollTimer != nil:
		z.stopPollLocked()
	}
}

func (z *Zone) stopPollLocked() {
	if z.pollTimer != nil {
		z.pollTimer.Stop()
		z.pollTimer = nil
	}
	z.pollGen++
}

func (z *Zone) poll(gen uint64) {
	z.mu.Lock()
	if z.closed || gen != z.pollGen {
		z.mu.Unlock()
		return
	}
	z.pollTimer = nil
	z.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), z.pollInterval)
	defer cancel()

	if err := z.Refresh(ctx); err != nil {
		z.logger.Debug("zone state poll failed", "zone_id", z.id, "error", err)
	}

	z.mu.Lock()
	z.syncPollLocked()
	z.mu.Unlock()
}

// polling reports whether a poll timer is armed.
func (z *Zone) polling() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.pollTimer != nil
}
