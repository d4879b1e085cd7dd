// Package command parses controller command paths into typed commands.
//
// Commands arrive as slash-separated paths over HTTP or the push channel,
// for example "audio/3/volume/+5" or "audio/cfg/getfavorites/0/50". Parse
// matches the path against an ordered route table; the first matching route
// wins. Several patterns overlap on purpose (play vs library/play), so the
// order in Routes is part of the protocol.
package command

import (
	"net/url"
	"strings"
)

// Kind identifies a parsed command.
type Kind int

// Command kinds, in route table order.
const (
	KindUnknown Kind = iota
	KindConfigAll
	KindEqualizer
	KindFavoritesAddPath
	KindGetFavorites
	KindGetInputs
	KindGetKey
	KindGetMediaFolder
	KindGetMaster
	KindGetPlayersDetails
	KindGetPlaylists
	KindGetRadios
	KindGetRoomFavs
	KindGetServices
	KindGetSyncedPlayers
	KindIAmAMiniserver
	KindInputRename
	KindInputType
	KindMac
	KindPlaylistCreate
	KindScanStatus
	KindAlarm
	KindFavoritePlay
	KindGetQueue
	KindIdentifySource
	KindLibraryPlay
	KindLineIn
	KindOff
	KindOn
	KindPause
	KindPlay
	KindPlaylistPlay
	KindPosition
	KindQueueMinus
	KindQueuePlus
	KindRepeat
	KindRoomFavDelete
	KindRoomFavPlay
	KindRoomFavSavePath
	KindServicePlay
	KindShuffle
	KindVolume
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindConfigAll:         "configall",
	KindEqualizer:         "equalizer",
	KindFavoritesAddPath:  "favorites_addpath",
	KindGetFavorites:      "getfavorites",
	KindGetInputs:         "getinputs",
	KindGetKey:            "getkey",
	KindGetMediaFolder:    "getmediafolder",
	KindGetMaster:         "getmaster",
	KindGetPlayersDetails: "getplayersdetails",
	KindGetPlaylists:      "getplaylists2",
	KindGetRadios:         "getradios",
	KindGetRoomFavs:       "getroomfavs",
	KindGetServices:       "getservices",
	KindGetSyncedPlayers:  "getsyncedplayers",
	KindIAmAMiniserver:    "iamaminiserver",
	KindInputRename:       "input_rename",
	KindInputType:         "input_type",
	KindMac:               "mac",
	KindPlaylistCreate:    "playlist_create",
	KindScanStatus:        "scanstatus",
	KindAlarm:             "alarm",
	KindFavoritePlay:      "favoriteplay",
	KindGetQueue:          "getqueue",
	KindIdentifySource:    "identifysource",
	KindLibraryPlay:       "library_play",
	KindLineIn:            "linein",
	KindOff:               "off",
	KindOn:                "on",
	KindPause:             "pause",
	KindPlay:              "play",
	KindPlaylistPlay:      "playlist_play",
	KindPosition:          "position",
	KindQueueMinus:        "queueminus",
	KindQueuePlus:         "queueplus",
	KindRepeat:            "repeat",
	KindRoomFavDelete:     "roomfav_delete",
	KindRoomFavPlay:       "roomfav_play",
	KindRoomFavSavePath:   "roomfav_savepath",
	KindServicePlay:       "serviceplay",
	KindShuffle:           "shuffle",
	KindVolume:            "volume",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Command is a parsed controller command. Only the fields relevant to Kind
// are set.
type Command struct {
	Kind Kind

	// Path is the raw command without its query string. Responses echo it.
	Path  string
	Query url.Values

	Zone      int
	Start     int
	Length    int
	RequestID int
	Position  int // 1-based slot for room favorite commands

	Token     string // opaque item token
	Title     string // unescaped
	Host      string
	AlarmKind string

	Value    int
	HasValue bool
	Relative bool // Value is a signed delta

	Bands []float64 // nil when the equalizer is only queried
}

// IsZoneCommand reports whether the command addresses a single zone.
func (c Command) IsZoneCommand() bool {
	return c.Kind >= KindAlarm
}

// FallbackName returns the last path segment that starts with a lowercase
// letter. Unknown and no-op commands are answered under this name.
func (c Command) FallbackName() string {
	parts := strings.Split(c.Path, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := parts[i]; p != "" && p[0] >= 'a' && p[0] <= 'z' {
			return p
		}
	}
	return "unknown"
}
