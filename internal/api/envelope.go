package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/nerrad567/music-gateway/internal/itemid"
	"github.com/nerrad567/music-gateway/internal/musiclist"
	"github.com/nerrad567/music-gateway/internal/zone"
)

// Item types understood by the controller.
const (
	itemTypeQueue          = 2
	itemTypeLibrary        = 2
	itemTypePlaylist       = 3
	itemTypeZoneFavorite   = 4
	itemTypeGlobalFavorite = 5
)

// audioTypeFile is the only audio type the gateway reports.
const audioTypeFile = 2

// marshal encodes v as compact JSON without HTML escaping.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// envelope renders a command reply:
//
//	{
//	  "<name>_result": <payload>,
//	  "command": "<path>"
//	}
func envelope(name, path string, payload any) ([]byte, error) {
	result, err := marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s result: %w", name, err)
	}
	key, err := marshal(name + "_result")
	if err != nil {
		return nil, fmt.Errorf("encoding result key: %w", err)
	}
	cmd, err := marshal(path)
	if err != nil {
		return nil, fmt.Errorf("encoding command path: %w", err)
	}

	var compact bytes.Buffer
	compact.WriteByte('{')
	compact.Write(key)
	compact.WriteByte(':')
	compact.Write(result)
	compact.WriteString(`,"command":`)
	compact.Write(cmd)
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("indenting %s reply: %w", name, err)
	}
	return out.Bytes(), nil
}

// eventFrame renders a push event {"<name>": payload} as compact JSON.
func eventFrame(name string, payload any) ([]byte, error) {
	key, err := marshal(name)
	if err != nil {
		return nil, err
	}
	body, err := marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", name, err)
	}
	frame := make([]byte, 0, len(key)+len(body)+3)
	frame = append(frame, '{')
	frame = append(frame, key...)
	frame = append(frame, ':')
	frame = append(frame, body...)
	frame = append(frame, '}')
	return frame, nil
}

type playerRef struct {
	PlayerID int `json:"playerid"`
}

// audioState is the controller's view of one zone.
type audioState struct {
	PlayerID  int         `json:"playerid"`
	Album     string      `json:"album"`
	Artist    string      `json:"artist"`
	AudioPath string      `json:"audiopath"`
	AudioType int         `json:"audiotype"`
	CoverURL  string      `json:"coverurl"`
	Duration  int64       `json:"duration"`
	Mode      string      `json:"mode"`
	Players   []playerRef `json:"players"`
	PlRepeat  int         `json:"plrepeat"`
	PlShuffle int         `json:"plshuffle"`
	Power     string      `json:"power"`
	Station   string      `json:"station"`
	Time      float64     `json:"time"`
	Title     string      `json:"title"`
	Volume    int         `json:"volume"`
}

// repeatToController maps backend repeat values to the controller's.
var repeatToController = map[zone.Repeat]int{
	zone.RepeatOff: 0,
	zone.RepeatAll: 1,
	zone.RepeatOne: 3,
}

// repeatFromController maps controller repeat arguments to backend values.
// Anything else cycles.
var repeatFromController = map[int]zone.Repeat{
	0: zone.RepeatOff,
	1: zone.RepeatAll,
	3: zone.RepeatOne,
}

func renderAudioState(st zone.State) audioState {
	mode := st.Mode
	duration := int64(math.Ceil(float64(st.Track.Duration) / 1000))
	if mode == zone.ModeBuffer {
		mode = zone.ModePlay
		duration = 0
	}

	audioPath := ""
	if st.Track.ID != "" {
		audioPath = itemid.Encode(st.Track.ID.String(), 0)
	}

	shuffle := 0
	if st.Shuffle {
		shuffle = 1
	}

	power := st.Power
	if power == "" {
		power = zone.PowerOn
	}

	return audioState{
		PlayerID:  st.ID,
		Album:     st.Track.Album,
		Artist:    st.Track.Artist,
		AudioPath: audioPath,
		AudioType: audioTypeFile,
		CoverURL:  st.Track.Image,
		Duration:  duration,
		Mode:      string(mode),
		Players:   []playerRef{{PlayerID: st.ID}},
		PlRepeat:  repeatToController[st.Repeat],
		PlShuffle: shuffle,
		Power:     string(power),
		Station:   "",
		Time:      float64(st.Time) / 1000,
		Title:     st.Track.Title,
		Volume:    st.Volume,
	}
}

// listItem is one entry of a list reply. Empty slots carry only type,
// slot, qindex, isAnEmptySlot and an empty name.
type listItem struct {
	Type          int    `json:"type"`
	Slot          int    `json:"slot"`
	QIndex        int    `json:"qindex"`
	IsAnEmptySlot bool   `json:"isAnEmptySlot,omitempty"`
	AudioPath     string `json:"audiopath,omitempty"`
	CoverURL      string `json:"coverurl,omitempty"`
	ID            string `json:"id,omitempty"`
	Name          string `json:"name"`
}

// convertItems renders a page starting at start. Every served item's image
// is remembered so it can be reused when the item is saved as a favorite.
func (s *Server) convertItems(items []*musiclist.Item, itemType, base, start int) []listItem {
	out := make([]listItem, 0, len(items))
	for i, item := range items {
		slot := start + i + 1
		if item == nil {
			out = append(out, listItem{
				Type:          itemType,
				Slot:          slot,
				QIndex:        slot,
				IsAnEmptySlot: true,
			})
			continue
		}

		s.rememberImage(item.ID.String(), item.Image)
		token := itemid.Encode(item.ID.String(), base+start+i)
		out = append(out, listItem{
			Type:      itemType,
			Slot:      slot,
			QIndex:    slot,
			AudioPath: token,
			CoverURL:  item.Image,
			ID:        token,
			Name:      item.Title,
		})
	}
	return out
}

// equalizerBands renders gains as {"B0": 0.0, ...}. The controller needs
// a decimal point even for whole numbers.
type equalizerBands zone.Bands

func (b equalizerBands) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		fmt.Fprintf(&buf, `"B%d":%s`, i, strconv.FormatFloat(v, 'f', 1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// macAddress derives a stable MAC from the listen port.
func macAddress(port int) string {
	return fmt.Sprintf("50:4f:94:ff:%02x:%02x", (port>>8)&0xff, port&0xff)
}
