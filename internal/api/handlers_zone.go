package api

import (
	"context"
	"fmt"

	"github.com/nerrad567/music-gateway/internal/gateway"
	"github.com/nerrad567/music-gateway/internal/itemid"
	"github.com/nerrad567/music-gateway/internal/musiclist"
	"github.com/nerrad567/music-gateway/internal/zone"
)

// playersDetailsPath is the path zone commands answer under.
const playersDetailsPath = "audio/cfg/getplayersdetails"

// restartThreshold is how far into a track queueminus restarts it instead
// of going back.
const restartThreshold = 3000 // milliseconds

func (s *Server) audioStates() []audioState {
	zones := s.zones.All()
	states := make([]audioState, 0, len(zones))
	for _, z := range zones {
		states = append(states, renderAudioState(z.State()))
	}
	return states
}

// playersDetails is the reply to every zone command once it has settled.
func (s *Server) playersDetails() ([]byte, error) {
	return envelope("getplayersdetails", playersDetailsPath, s.audioStates())
}

// zoneCommand runs op on the command's zone and answers with the players
// details. Backend failures are recorded on the call, not returned.
func (s *Server) zoneCommand(c *call, op func(z *zone.Zone) error) ([]byte, error) {
	z, err := s.zones.Get(c.Zone)
	if err != nil {
		return nil, err
	}
	c.fail(op(z))
	return s.playersDetails()
}

func (s *Server) handleAlarm(ctx context.Context, c *call) ([]byte, error) {
	return s.zoneCommand(c, func(z *zone.Zone) error {
		volume := z.Volume()
		if c.HasValue {
			volume = c.Value
		}
		return z.Alarm(ctx, c.AlarmKind, volume)
	})
}

// handlePlayToken plays the item behind the command's token. The token's
// ordinal becomes the zone's playing slot.
func (s *Server) handlePlayToken(ctx context.Context, c *call) ([]byte, error) {
	backendID, ordinal, err := itemid.Decode(c.Token)
	if err != nil {
		return nil, err
	}
	return s.zoneCommand(c, func(z *zone.Zone) error {
		return z.Play(ctx, backendID, ordinal)
	})
}

// handleGetQueue lists the zone's queue. An empty queue is reported as a
// single item, the current track.
func (s *Server) handleGetQueue(ctx context.Context, c *call) ([]byte, error) {
	if c.Zone <= 0 {
		return envelope("getqueue", c.Path, []any{})
	}
	z, err := s.zones.Get(c.Zone)
	if err != nil {
		return nil, err
	}

	page := z.Queue().Get(ctx, c.Start, c.Length)
	if page.Total == 0 {
		page.Total = 1
		page.Items = []*musiclist.Item{}
		if c.Start == 0 {
			track := z.State().Track
			page.Items = append(page.Items, &musiclist.Item{
				ID:    track.ID,
				Title: track.Title,
				Image: track.Image,
			})
		}
	}

	zoneID := c.Zone
	return envelope("getqueue", c.Path, []listResult{{
		ID:         &zoneID,
		TotalItems: page.Total,
		Start:      c.Start,
		Items:      s.convertItems(page.Items, itemTypeQueue, 0, c.Start),
	}})
}

func (s *Server) handleIdentifySource(_ context.Context, c *call) ([]byte, error) {
	z, err := s.zones.Get(c.Zone)
	if err != nil {
		return nil, err
	}
	return envelope("identifysource", c.Path, []audioState{renderAudioState(z.State())})
}

func (s *Server) handleOff(ctx context.Context, c *call) ([]byte, error) {
	return s.zoneCommand(c, func(z *zone.Zone) error {
		return z.PowerOff(ctx)
	})
}

func (s *Server) handlePause(ctx context.Context, c *call) ([]byte, error) {
	return s.zoneCommand(c, func(z *zone.Zone) error {
		return z.Pause(ctx)
	})
}

// handlePlay starts the backend's current item on a stopped zone and
// resumes otherwise.
func (s *Server) handlePlay(ctx context.Context, c *call) ([]byte, error) {
	return s.zoneCommand(c, func(z *zone.Zone) error {
		if z.Mode() == zone.ModeStop {
			return z.Play(ctx, "", 0)
		}
		return z.Resume(ctx)
	})
}

func (s *Server) handlePosition(ctx context.Context, c *call) ([]byte, error) {
	return s.zoneCommand(c, func(z *zone.Zone) error {
		return z.Seek(ctx, int64(c.Value)*1000)
	})
}

func (s *Server) handleQueueMinus(ctx context.Context, c *call) ([]byte, error) {
	return s.zoneCommand(c, func(z *zone.Zone) error {
		if z.Time() < restartThreshold {
			return z.Previous(ctx)
		}
		return z.Seek(ctx, 0)
	})
}

func (s *Server) handleQueuePlus(ctx context.Context, c *call) ([]byte, error) {
	return s.zoneCommand(c, func(z *zone.Zone) error {
		return z.Next(ctx)
	})
}

func (s *Server) handleRepeat(ctx context.Context, c *call) ([]byte, error) {
	return s.zoneCommand(c, func(z *zone.Zone) error {
		r, ok := repeatFromController[c.Value]
		if !ok {
			r = zone.RepeatCycle
		}
		return z.SetRepeat(ctx, r)
	})
}

func (s *Server) handleShuffle(ctx context.Context, c *call) ([]byte, error) {
	return s.zoneCommand(c, func(z *zone.Zone) error {
		switch c.Value {
		case 0:
			return z.SetShuffle(ctx, zone.ShuffleOff)
		case 1:
			return z.SetShuffle(ctx, zone.ShuffleOn)
		default:
			return z.SetShuffle(ctx, zone.ShuffleToggle)
		}
	})
}

func (s *Server) handleVolume(ctx context.Context, c *call) ([]byte, error) {
	return s.zoneCommand(c, func(z *zone.Zone) error {
		return z.SetVolume(ctx, c.Value, c.Relative)
	})
}

// favoriteSlot resolves the command's 1-based slot to a list position.
func favoriteSlot(c *call) (int, error) {
	if c.Position < 1 {
		return 0, fmt.Errorf("%w: got %d", errInvalidSlot, c.Position)
	}
	return c.Position - 1, nil
}

func (s *Server) handleRoomFavDelete(ctx context.Context, c *call) ([]byte, error) {
	position, err := favoriteSlot(c)
	if err != nil {
		return nil, err
	}
	z, err := s.zones.Get(c.Zone)
	if err != nil {
		return nil, err
	}

	c.fail(z.Favorites().Delete(ctx, position, 1))
	s.roomFavsChanged(z.ID())
	return answer(c, []any{})
}

// handleRoomFavPlay plays the zone favorite in the given slot and announces
// the new playing slot right away.
func (s *Server) handleRoomFavPlay(ctx context.Context, c *call) ([]byte, error) {
	position, err := favoriteSlot(c)
	if err != nil {
		return nil, err
	}
	z, err := s.zones.Get(c.Zone)
	if err != nil {
		return nil, err
	}

	page := z.Favorites().Get(ctx, position, 1)
	if len(page.Items) == 0 || page.Items[0] == nil {
		s.logger.Warn("no favorite in slot", "zone_id", z.ID(), "slot", c.Position)
		return s.playersDetails()
	}

	backendID := page.Items[0].ID.String()
	c.fail(z.Play(ctx, backendID, itemid.CategoryZoneFavorite.Base()+position))
	s.ZoneFavoriteChanged(z.ID())
	return s.playersDetails()
}

// handleRoomFavSavePath stores the item behind the token in the given slot,
// keeping the image it was served with.
func (s *Server) handleRoomFavSavePath(ctx context.Context, c *call) ([]byte, error) {
	position, err := favoriteSlot(c)
	if err != nil {
		return nil, err
	}
	backendID, _, err := itemid.Decode(c.Token)
	if err != nil {
		return nil, err
	}
	z, err := s.zones.Get(c.Zone)
	if err != nil {
		return nil, err
	}

	c.fail(z.Favorites().Replace(ctx, position, &musiclist.Item{
		ID:    gateway.ID(backendID),
		Title: c.Title,
		Image: s.imageFor(backendID),
	}))
	s.roomFavsChanged(z.ID())
	return answer(c, []any{})
}
