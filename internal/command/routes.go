package command

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Route is one entry of the ordered route table.
type Route struct {
	Kind    Kind
	Pattern *regexp.Regexp

	// fill extracts arguments from the normalised path segments, where
	// seg[0] is "audio".
	fill func(c *Command, seg []string)
}

var routes = []Route{
	{KindConfigAll, re(`^audio/cfg/all(?:/|$)`), nil},
	{KindEqualizer, re(`^audio/cfg/equalizer/`), fillEqualizer},
	{KindFavoritesAddPath, re(`^audio/cfg/favorites/addpath/`), func(c *Command, seg []string) {
		c.Title = unescape(at(seg, len(seg)-2))
		c.Token = at(seg, len(seg)-1)
	}},
	{KindGetFavorites, re(`^audio/cfg/getfavorites/`), func(c *Command, seg []string) {
		c.Start, c.Length = offset(seg, 3), offset(seg, 4)
	}},
	{KindGetInputs, re(`^audio/cfg/getinputs(?:/|$)`), nil},
	{KindGetKey, re(`^audio/cfg/getkey(?:/|$)`), nil},
	{KindGetMediaFolder, re(`^audio/cfg/getmediafolder(?:/|$)`), func(c *Command, seg []string) {
		c.RequestID, c.Start, c.Length = num(seg, 3), offset(seg, 4), offset(seg, 5)
	}},
	{KindGetMaster, re(`^audio/cfg/get(?:paired)?master(?:/|$)`), nil},
	{KindGetPlayersDetails, re(`^audio/cfg/getplayersdetails(?:/|$)`), nil},
	{KindGetPlaylists, re(`^audio/cfg/getplaylists2/lms(?:/|$)`), func(c *Command, seg []string) {
		c.RequestID, c.Start, c.Length = num(seg, 5), offset(seg, 6), offset(seg, 7)
	}},
	{KindGetRadios, re(`^audio/cfg/getradios(?:/|$)`), nil},
	{KindGetRoomFavs, re(`^audio/cfg/getroomfavs/`), func(c *Command, seg []string) {
		c.Zone, c.Start, c.Length = num(seg, 3), offset(seg, 4), offset(seg, 5)
	}},
	{KindGetServices, re(`^audio/cfg/get(?:available)?services(?:/|$)`), nil},
	{KindGetSyncedPlayers, re(`^audio/cfg/getsyncedplayers(?:/|$)`), nil},
	{KindIAmAMiniserver, re(`^audio/cfg/iamaminiserver(?:done)?/`), func(c *Command, seg []string) {
		c.Host = at(seg, len(seg)-1)
	}},
	{KindInputRename, re(`^audio/cfg/input/[^/]+/rename/`), func(c *Command, seg []string) {
		c.Token, c.Title = at(seg, 3), unescape(at(seg, 5))
	}},
	{KindInputType, re(`^audio/cfg/input/[^/]+/type/`), func(c *Command, seg []string) {
		c.Token = at(seg, 3)
		c.Value, c.HasValue = num(seg, 5), true
	}},
	{KindMac, re(`^audio/cfg/mac(?:/|$)`), nil},
	{KindPlaylistCreate, re(`^audio/cfg/playlist/create(?:/|$)`), func(c *Command, seg []string) {
		c.Title = unescape(at(seg, len(seg)-1))
	}},
	{KindScanStatus, re(`^audio/cfg/scanstatus(?:/|$)`), nil},

	{KindAlarm, re(`^audio/\d+/(?:(?:fire)?alarm|bell|wecker)(?:/|$)`), func(c *Command, seg []string) {
		c.AlarmKind = alarmKinds[at(seg, 2)]
		if v := at(seg, 3); v != "" {
			c.Value, c.HasValue = num(seg, 3), true
		}
	}},
	{KindFavoritePlay, re(`^audio/\d+/favoriteplay(?:/|$)`), tokenAt(3)},
	{KindGetQueue, re(`^audio/\d+/getqueue(?:/|$)`), func(c *Command, seg []string) {
		c.Start, c.Length = offset(seg, 3), offset(seg, 4)
	}},
	{KindIdentifySource, re(`^audio/\d+/identifysource(?:/|$)`), nil},
	{KindLibraryPlay, re(`^audio/\d+/library/play(?:/|$)`), tokenAt(4)},
	{KindLineIn, re(`^audio/\d+/linein`), func(c *Command, seg []string) {
		c.Token = strings.TrimPrefix(at(seg, 2), "linein")
	}},
	{KindOff, re(`^audio/\d+/off(?:/|$)`), nil},
	{KindOn, re(`^audio/\d+/on(?:/|$)`), nil},
	{KindPause, re(`^audio/\d+/pause(?:/|$)`), nil},
	{KindPlay, re(`^audio/\d+/(?:play|resume)(?:/|$)`), nil},
	{KindPlaylistPlay, re(`^audio/\d+/playlist/`), tokenAt(4)},
	{KindPosition, re(`^audio/\d+/position/\d+(?:/|$)`), valueAt(3)},
	{KindQueueMinus, re(`^audio/\d+/queueminus(?:/|$)`), nil},
	{KindQueuePlus, re(`^audio/\d+/queueplus(?:/|$)`), nil},
	{KindRepeat, re(`^audio/\d+/repeat/\d+(?:/|$)`), valueAt(3)},
	{KindRoomFavDelete, re(`^audio/\d+/roomfav/delete/\d+(?:/|$)`), func(c *Command, seg []string) {
		c.Position = num(seg, 4)
	}},
	{KindRoomFavPlay, re(`^audio/\d+/roomfav/play/\d+(?:/|$)`), func(c *Command, seg []string) {
		c.Position = num(seg, 4)
	}},
	{KindRoomFavSavePath, re(`^audio/\d+/roomfav/savepath/\d+/`), func(c *Command, seg []string) {
		c.Position, c.Token, c.Title = num(seg, 4), at(seg, 5), unescape(at(seg, 6))
	}},
	{KindServicePlay, re(`^audio/\d+/serviceplay/`), tokenAt(5)},
	{KindShuffle, re(`^audio/\d+/shuffle/\d+(?:/|$)`), valueAt(3)},
	{KindVolume, re(`^audio/\d+/volume/[+-]?\d+(?:/|$)`), func(c *Command, seg []string) {
		v := at(seg, 3)
		c.Relative = strings.HasPrefix(v, "+") || strings.HasPrefix(v, "-")
		c.Value, c.HasValue = num(seg, 3), true
	}},
}

var alarmKinds = map[string]string{
	"alarm":     "general",
	"bell":      "bell",
	"firealarm": "fire",
	"wecker":    "clock",
}

// Routes returns a copy of the route table in match order.
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

func re(pattern string) *regexp.Regexp {
	return regexp.MustCompile(pattern)
}

func fillEqualizer(c *Command, seg []string) {
	c.Zone = num(seg, 3)
	raw := at(seg, 4)
	if raw == "" {
		return
	}
	fields := strings.Split(raw, ",")
	c.Bands = make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err == nil {
			c.Bands[i] = v
		}
	}
}

func tokenAt(i int) func(*Command, []string) {
	return func(c *Command, seg []string) { c.Token = at(seg, i) }
}

func valueAt(i int) func(*Command, []string) {
	return func(c *Command, seg []string) { c.Value, c.HasValue = num(seg, i), true }
}

func at(seg []string, i int) string {
	if i < 0 || i >= len(seg) {
		return ""
	}
	return seg[i]
}

// num parses segment i as an integer; missing or malformed segments are 0.
func num(seg []string, i int) int {
	n, err := strconv.Atoi(at(seg, i))
	if err != nil {
		return 0
	}
	return n
}

// offset parses segment i as a list offset or length; negatives become 0.
func offset(seg []string, i int) int {
	return max(num(seg, i), 0)
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
