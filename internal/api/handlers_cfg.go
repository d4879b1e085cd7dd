package api

import (
	"context"
	"math"
	"strconv"

	"github.com/nerrad567/music-gateway/internal/gateway"
	"github.com/nerrad567/music-gateway/internal/itemid"
	"github.com/nerrad567/music-gateway/internal/musiclist"
	"github.com/nerrad567/music-gateway/internal/zone"
)

// allItems asks a list for everything it has.
const allItems = math.MaxInt32

// inputIcons are the controller's input icon names, indexed by icon type.
var inputIcons = []string{
	"line-in",
	"cd-player",
	"computer",
	"i-mac",
	"i-pod",
	"mobile",
	"radio",
	"tv",
	"turntable",
}

func inputIconType(image string) (int, bool) {
	for i, name := range inputIcons {
		if name == image {
			return i, true
		}
	}
	return 0, false
}

type configPlayer struct {
	PlayerID      int         `json:"playerid"`
	Players       []playerRef `json:"players"`
	ClientType    int         `json:"clienttype"`
	DefaultVolume int         `json:"default_volume"`
	Enabled       bool        `json:"enabled"`
	InternalName  string      `json:"internalname"`
	MaxVolume     int         `json:"max_volume"`
	Name          string      `json:"name"`
	UPnPMode      int         `json:"upnpmode"`
	UPnPPreDelay  int         `json:"upnppredelay"`
}

type configAll struct {
	AirPlay      bool           `json:"airplay"`
	DNS          string         `json:"dns"`
	ErrorTTS     bool           `json:"errortts"`
	Gateway      string         `json:"gateway"`
	Hostname     string         `json:"hostname"`
	IP           string         `json:"ip"`
	Language     string         `json:"language"`
	LastConfig   string         `json:"lastconfig"`
	MACAddress   string         `json:"macaddress"`
	Mask         string         `json:"mask"`
	Master       bool           `json:"master"`
	MaxPlayers   int            `json:"maxplayers"`
	NTP          string         `json:"ntp"`
	UPnPLicences int            `json:"upnplicences"`
	UseTrigger   bool           `json:"usetrigger"`
	Players      []configPlayer `json:"players"`
}

func (s *Server) handleConfigAll(_ context.Context, c *call) ([]byte, error) {
	zones := s.zones.All()
	players := make([]configPlayer, 0, len(zones))
	for _, z := range zones {
		id := z.ID()
		players = append(players, configPlayer{
			PlayerID:      id,
			Players:       []playerRef{{PlayerID: id}},
			DefaultVolume: z.Volume(),
			Enabled:       true,
			InternalName:  "zone-" + strconv.Itoa(id),
			MaxVolume:     100,
			Name:          "Zone " + strconv.Itoa(id),
		})
	}

	return envelope("configall", c.Path, []configAll{{
		DNS:        "8.8.8.8",
		Gateway:    "0.0.0.0",
		Hostname:   "loxberry-music-server-" + strconv.Itoa(s.cfg.Server.Port),
		IP:         "0.255.255.255",
		Language:   "en",
		MACAddress: macAddress(s.cfg.Server.Port),
		Mask:       "255.255.255.255",
		Master:     true,
		MaxPlayers: len(zones),
		NTP:        "0.europe.pool.ntp.org",
		Players:    players,
	}})
}

type equalizerResult struct {
	PlayerID  int            `json:"playerid"`
	Equalizer equalizerBands `json:"equalizer"`
}

// handleEqualizer reads the bands, or sets them when the command carries
// values. Zone 0 and failed reads report flat bands.
func (s *Server) handleEqualizer(ctx context.Context, c *call) ([]byte, error) {
	var bands zone.Bands

	if c.Zone > 0 {
		z, err := s.zones.Get(c.Zone)
		if err != nil {
			return nil, err
		}

		if c.Bands == nil {
			bands, err = z.Equalizer(ctx)
		} else {
			var want zone.Bands
			copy(want[:], c.Bands)
			bands, err = z.SetEqualizer(ctx, want)
		}
		c.fail(err)
	}

	return envelope("equalizer", c.Path, []equalizerResult{{
		PlayerID:  c.Zone,
		Equalizer: equalizerBands(bands),
	}})
}

// handleFavoritesAddPath appends the item to the global favorites.
func (s *Server) handleFavoritesAddPath(ctx context.Context, c *call) ([]byte, error) {
	backendID, _, err := itemid.Decode(c.Token)
	if err != nil {
		return nil, err
	}

	total := s.favorites.Get(ctx, 0, 0).Total
	c.fail(s.favorites.Insert(ctx, total, &musiclist.Item{
		ID:    gateway.ID(backendID),
		Title: c.Title,
		Image: s.imageFor(backendID),
	}))
	return answer(c, []any{})
}

type listResult struct {
	ID         *int       `json:"id,omitempty"`
	TotalItems int        `json:"totalitems"`
	Start      int        `json:"start"`
	Items      []listItem `json:"items"`
}

func (s *Server) handleGetFavorites(ctx context.Context, c *call) ([]byte, error) {
	page := s.favorites.Get(ctx, c.Start, c.Length)
	return envelope("getfavorites", c.Path, []listResult{{
		TotalItems: page.Total,
		Start:      c.Start,
		Items:      s.convertItems(page.Items, itemTypeGlobalFavorite, itemid.CategoryGlobalFavorite.Base(), c.Start),
	}})
}

type inputItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	CoverURL string `json:"coverurl,omitempty"`
	IconType int    `json:"icontype"`
	Enabled  bool   `json:"enabled"`
}

// handleGetInputs lists every input. An input whose image is an icon name
// is reported with that icon instead of a cover.
func (s *Server) handleGetInputs(ctx context.Context, c *call) ([]byte, error) {
	page := s.inputs.Get(ctx, 0, allItems)

	inputs := make([]inputItem, 0, len(page.Items))
	for i, item := range page.Items {
		if item == nil {
			continue
		}
		in := inputItem{
			ID:      itemid.Encode(item.ID.String(), itemid.CategoryInput.Base()+i),
			Name:    item.Title,
			Enabled: true,
		}
		if icon, ok := inputIconType(item.Image); ok {
			in.IconType = icon
		} else {
			in.CoverURL = item.Image
		}
		inputs = append(inputs, in)
	}
	return envelope("getinputs", c.Path, inputs)
}

type publicKey struct {
	PubKey string `json:"pubkey"`
}

func (s *Server) handleGetKey(_ context.Context, c *call) ([]byte, error) {
	return answer(c, []publicKey{{}})
}

func (s *Server) handleGetMediaFolder(ctx context.Context, c *call) ([]byte, error) {
	page := s.library.Get(ctx, c.Start, c.Length)
	requestID := c.RequestID
	return envelope("getmediafolder", c.Path, []listResult{{
		ID:         &requestID,
		TotalItems: page.Total,
		Start:      c.Start,
		Items:      s.convertItems(page.Items, itemTypeLibrary, itemid.CategoryLibrary.Base(), c.Start),
	}})
}

// handleGetMaster answers with the command path as a bare JSON string.
func (s *Server) handleGetMaster(_ context.Context, c *call) ([]byte, error) {
	return marshal(c.Path)
}

func (s *Server) handleGetPlayersDetails(_ context.Context, c *call) ([]byte, error) {
	return envelope("getplayersdetails", c.Path, s.audioStates())
}

func (s *Server) handleGetPlaylists(ctx context.Context, c *call) ([]byte, error) {
	page := s.playlists.Get(ctx, c.Start, c.Length)
	requestID := c.RequestID
	return envelope("getplaylists2", c.Path, []listResult{{
		ID:         &requestID,
		TotalItems: page.Total,
		Start:      c.Start,
		Items:      s.convertItems(page.Items, itemTypePlaylist, itemid.CategoryPlaylist.Base(), c.Start),
	}})
}

func (s *Server) handleEmptyList(_ context.Context, c *call) ([]byte, error) {
	return answer(c, []any{})
}

// handleGetRoomFavs lists a zone's favorites without empty slots.
func (s *Server) handleGetRoomFavs(ctx context.Context, c *call) ([]byte, error) {
	if c.Zone <= 0 {
		return envelope("getroomfavs", c.Path, []any{})
	}
	z, err := s.zones.Get(c.Zone)
	if err != nil {
		return nil, err
	}

	page := z.Favorites().Get(ctx, c.Start, c.Length)
	converted := s.convertItems(page.Items, itemTypeZoneFavorite, itemid.CategoryZoneFavorite.Base(), c.Start)
	items := converted[:0]
	for _, item := range converted {
		if !item.IsAnEmptySlot {
			items = append(items, item)
		}
	}

	zoneID := c.Zone
	return envelope("getroomfavs", c.Path, []listResult{{
		ID:         &zoneID,
		TotalItems: len(items),
		Start:      c.Start,
		Items:      items,
	}})
}

func (s *Server) handleIAmAMiniserver(_ context.Context, c *call) ([]byte, error) {
	s.miniserverMu.Lock()
	s.miniserver = c.Host
	s.miniserverMu.Unlock()
	s.logger.Info("controller announced itself", "host", c.Host)

	return envelope("iamamusicserver", c.Path, map[string]string{
		"iamamusicserver": "i love miniservers!",
	})
}

// inputAt returns a copy of the input behind token, and its position.
func (s *Server) inputAt(ctx context.Context, token string) (*musiclist.Item, int, error) {
	_, ordinal, err := itemid.Decode(token)
	if err != nil {
		return nil, 0, err
	}
	position := ordinal % itemid.BlockSize

	page := s.inputs.Get(ctx, position, 1)
	if len(page.Items) == 0 || page.Items[0] == nil {
		return nil, position, nil
	}
	item := *page.Items[0]
	return &item, position, nil
}

func (s *Server) handleInputRename(ctx context.Context, c *call) ([]byte, error) {
	item, position, err := s.inputAt(ctx, c.Token)
	if err != nil {
		return nil, err
	}
	if item == nil {
		s.logger.Warn("input not found", "position", position)
		return answer(c, []any{})
	}

	item.Title = c.Title
	c.fail(s.inputs.Replace(ctx, position, item))
	return answer(c, []any{})
}

func (s *Server) handleInputType(ctx context.Context, c *call) ([]byte, error) {
	if c.Value < 0 || c.Value >= len(inputIcons) {
		s.logger.Warn("unknown input icon type", "icon", c.Value)
		return answer(c, []any{})
	}

	item, position, err := s.inputAt(ctx, c.Token)
	if err != nil {
		return nil, err
	}
	if item == nil {
		s.logger.Warn("input not found", "position", position)
		return answer(c, []any{})
	}

	item.Image = inputIcons[c.Value]
	c.fail(s.inputs.Replace(ctx, position, item))
	return answer(c, []any{})
}

type macResult struct {
	MACAddress string `json:"macaddress"`
}

func (s *Server) handleMac(_ context.Context, c *call) ([]byte, error) {
	return envelope("mac", c.Path, []macResult{{MACAddress: macAddress(s.cfg.Server.Port)}})
}

// handlePlaylistCreate appends an empty playlist; the backend assigns the id.
func (s *Server) handlePlaylistCreate(ctx context.Context, c *call) ([]byte, error) {
	total := s.playlists.Get(ctx, 0, 0).Total
	c.fail(s.playlists.Insert(ctx, total, &musiclist.Item{Title: c.Title}))
	return answer(c, []any{})
}

type scanStatus struct {
	Scanning int `json:"scanning"`
}

func (s *Server) handleScanStatus(_ context.Context, c *call) ([]byte, error) {
	return answer(c, []scanStatus{{}})
}
