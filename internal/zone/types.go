package zone

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/music-gateway/internal/gateway"
)

// Mode is the player mode of a zone.
type Mode string

// Player modes. ModeBuffer is transient: it is set optimistically while a
// track-changing command is in flight and is always replaced once the
// backend answers or the fallback applies.
const (
	ModeStop   Mode = "stop"
	ModePause  Mode = "pause"
	ModeBuffer Mode = "buffer"
	ModePlay   Mode = "play"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeStop, ModePause, ModeBuffer, ModePlay:
		return true
	}
	return false
}

// Repeat is the repeat setting as understood by the backend.
type Repeat int

// Repeat values. RepeatCycle is only a command argument: it advances to the
// next value.
const (
	RepeatOff   Repeat = 0
	RepeatOne   Repeat = 1
	RepeatAll   Repeat = 2
	RepeatCycle Repeat = -1
)

// Shuffle is a shuffle command argument.
type Shuffle int

// Shuffle arguments.
const (
	ShuffleOff    Shuffle = 0
	ShuffleOn     Shuffle = 1
	ShuffleToggle Shuffle = -1
)

// Power is the zone power state.
type Power string

// Power states.
const (
	PowerOn  Power = "on"
	PowerOff Power = "off"
)

// BandCount is the number of equalizer bands.
const BandCount = 10

// Bands holds equalizer gains.
type Bands [BandCount]float64

// Track is the item a zone is playing. It is always replaced as a whole.
type Track struct {
	ID       gateway.ID `json:"id"`
	Title    string     `json:"title"`
	Album    string     `json:"album"`
	Artist   string     `json:"artist"`
	Duration int64      `json:"duration"` // milliseconds
	Image    string     `json:"image"`
}

// Player holds the mutable player fields.
type Player struct {
	Mode    Mode
	Time    int64 // milliseconds, as of the zone's last update
	Volume  int
	Repeat  Repeat
	Shuffle bool
}

// State is a rendered view of a zone at one instant. Time is extrapolated.
type State struct {
	ID         int
	Track      Track
	Mode       Mode
	Time       int64
	Volume     int
	Repeat     Repeat
	Shuffle    bool
	Power      Power
	FavoriteID int
}

// stateResponse is the backend's answer to zone commands and state polls.
type stateResponse struct {
	Track  *Track          `json:"track"`
	Player *playerResponse `json:"player"`
}

type playerResponse struct {
	Mode    Mode      `json:"mode"`
	Time    *float64  `json:"time"`
	Volume  *float64  `json:"volume"`
	Repeat  *int      `json:"repeat"`
	Shuffle *flexBool `json:"shuffle"`
}

// flexBool decodes true/false, 0/1 and "0"/"1".
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.Trim(bytes.TrimSpace(data), `"`)) {
	case "true", "1":
		*b = true
	case "false", "0", "null", "":
		*b = false
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("zone: invalid boolean %s", data)
		}
		*b = f != 0
	}
	return nil
}
