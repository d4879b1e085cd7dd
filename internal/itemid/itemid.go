// Package itemid encodes a backend item identity plus its category and
// position into a single URL-safe token.
//
// The controller protocol carries exactly one opaque string per list item.
// Tokens let every later command recover the backend id, the list category
// and the slot the item was shown in, without a server-side lookup table.
//
// # Encoding (version 1)
//
//	token = base64url_nopad("1:" + decimal(ordinal) + ":" + backendID)
//
// The ordinal is category base + position. Decode also accepts the legacy
// form, base64url of the JSON array [backendID, ordinal].
package itemid

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// BlockSize separates category bases. Positions within a category are
// always smaller than BlockSize.
const BlockSize = 1_000_000

// Category identifies which list an item was served from.
type Category int

// Categories in ordinal order. CategoryNone covers ordinals below the first
// base, used for the current track.
const (
	CategoryNone           Category = 0
	CategoryZoneFavorite   Category = 1
	CategoryGlobalFavorite Category = 2
	CategoryPlaylist       Category = 3
	CategoryLibrary        Category = 4
	CategoryInput          Category = 5
)

// Base returns the first ordinal of the category.
func (c Category) Base() int {
	return int(c) * BlockSize
}

func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryZoneFavorite:
		return "zone-favorite"
	case CategoryGlobalFavorite:
		return "global-favorite"
	case CategoryPlaylist:
		return "playlist"
	case CategoryLibrary:
		return "library"
	case CategoryInput:
		return "input"
	default:
		return "category(" + strconv.Itoa(int(c)) + ")"
	}
}

const version = "1"

// ErrMalformed is returned when a token cannot be decoded.
var ErrMalformed = errors.New("itemid: malformed token")

// ID is the decoded form of a token.
type ID struct {
	Category  Category
	BackendID string
	Position  int
}

// New builds an ID from a backend id and an ordinal.
func New(backendID string, ordinal int) ID {
	return ID{
		Category:  Category(ordinal / BlockSize),
		BackendID: backendID,
		Position:  ordinal % BlockSize,
	}
}

// Ordinal returns Category.Base() + Position.
func (id ID) Ordinal() int {
	return id.Category.Base() + id.Position
}

// Token encodes the ID.
func (id ID) Token() string {
	return Encode(id.BackendID, id.Ordinal())
}

// Encode returns the token for (backendID, ordinal).
func Encode(backendID string, ordinal int) string {
	raw := version + ":" + strconv.Itoa(ordinal) + ":" + backendID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode recovers (backendID, ordinal) from a token produced by Encode or by
// the legacy JSON-array encoding.
func Decode(token string) (string, int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if len(raw) > 0 && raw[0] == '[' {
		return decodeLegacy(raw)
	}

	ver, rest, ok := strings.Cut(string(raw), ":")
	if !ok || ver != version {
		return "", 0, fmt.Errorf("%w: unsupported version %q", ErrMalformed, ver)
	}
	ord, backendID, ok := strings.Cut(rest, ":")
	if !ok {
		return "", 0, fmt.Errorf("%w: missing ordinal separator", ErrMalformed)
	}
	ordinal, err := strconv.Atoi(ord)
	if err != nil || ordinal < 0 {
		return "", 0, fmt.Errorf("%w: bad ordinal %q", ErrMalformed, ord)
	}
	return backendID, ordinal, nil
}

// Parse decodes a token into an ID.
func Parse(token string) (ID, error) {
	backendID, ordinal, err := Decode(token)
	if err != nil {
		return ID{}, err
	}
	return New(backendID, ordinal), nil
}

func decodeLegacy(raw []byte) (string, int, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return "", 0, fmt.Errorf("%w: legacy token is not a pair", ErrMalformed)
	}

	var backendID string
	first := bytes.TrimSpace(pair[0])
	switch {
	case len(first) > 0 && first[0] == '"':
		if err := json.Unmarshal(first, &backendID); err != nil {
			return "", 0, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	default:
		var n json.Number
		if err := json.Unmarshal(first, &n); err != nil {
			return "", 0, fmt.Errorf("%w: legacy id must be string or number", ErrMalformed)
		}
		backendID = n.String()
	}

	var ordinal int
	if err := json.Unmarshal(pair[1], &ordinal); err != nil || ordinal < 0 {
		return "", 0, fmt.Errorf("%w: legacy ordinal", ErrMalformed)
	}
	return backendID, ordinal, nil
}
