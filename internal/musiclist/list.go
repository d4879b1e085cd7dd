// Package musiclist mirrors a remote paginated collection.
//
// A List fetches pages lazily from the backend as callers ask for ranges,
// keeps them in order, and drops everything from a mutation point onward
// whenever the collection is changed through it. It never patches the
// mirror: the backend may reorder or renumber items in ways the adapter
// cannot predict.
//
// Remote contract, relative to the list path:
//
//	GET    {path}/{offset}           -> {"items": [...], "total": n}
//	POST   {path}/{position}         body: items to insert
//	PUT    {path}/{position}         body: items to replace
//	DELETE {path}/{position}/{length}
package musiclist

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/nerrad567/music-gateway/internal/gateway"
)

// Unknown is the total reported before the first successful fetch.
const Unknown = -1

// Logger is the logging interface used by lists.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Item is one entry of a remote collection.
type Item struct {
	ID    gateway.ID `json:"id"`
	Title string     `json:"title"`
	Image string     `json:"image,omitempty"`
}

// Page is the result of Get.
type Page struct {
	Total int
	Items []*Item
}

type remotePage struct {
	Items []*Item `json:"items"`
	Total int     `json:"total"`
}

// List is a lazy, invalidate-on-write mirror of one remote collection.
//
// All remote calls for a list are serialised: the mutex is held for the
// whole fetch chain so mirror writes never interleave.
type List struct {
	path   string
	caller gateway.Caller
	logger Logger

	mu    sync.Mutex
	total int
	items []*Item
}

// New creates an empty list mirroring the collection at path.
func New(caller gateway.Caller, path string) *List {
	return &List{
		path:   path,
		caller: caller,
		logger: noopLogger{},
		total:  Unknown,
	}
}

// SetLogger sets the logger used for fetch and mutation failures.
func (l *List) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	l.logger = logger
}

// Path returns the remote collection path.
func (l *List) Path() string {
	return l.path
}

// Get returns items [start, start+length) and the authoritative total,
// fetching missing pages first. A length of 0 still ensures the first
// page is known, so Get(0, 0) is the way to learn the total.
//
// A failed fetch yields an empty page with total 0; the failure is logged
// and the list stays unknown so the next call retries.
func (l *List) Get(ctx context.Context, start, length int) Page {
	if start < 0 {
		start = 0
	}
	span := length
	if span < 1 {
		span = 1
	}
	end := start + span

	l.mu.Lock()
	defer l.mu.Unlock()

	for l.total == Unknown || (len(l.items) < l.total && len(l.items) < end) {
		offset := len(l.items)

		var page remotePage
		err := l.caller.Call(ctx, http.MethodGet, l.path+"/"+strconv.Itoa(offset), nil, &page)
		if err != nil {
			l.logger.Warn("could not fetch list page", "path", l.path, "offset", offset, "error", err)
			return Page{Total: 0}
		}

		l.items = append(l.items[:offset], page.Items...)
		l.total = page.Total
		if page.Total < 0 {
			l.total = 0
		}

		if len(page.Items) == 0 {
			// A short answer would otherwise be retried forever.
			break
		}
	}

	return Page{
		Total: l.total,
		Items: l.slice(start, end),
	}
}

// slice copies the mirror range [start, end) clipped to what is known.
// Caller must hold l.mu.
func (l *List) slice(start, end int) []*Item {
	if end > len(l.items) {
		end = len(l.items)
	}
	if start >= end {
		return []*Item{}
	}
	out := make([]*Item, end-start)
	copy(out, l.items[start:end])
	return out
}

// Insert adds items at position on the backend and invalidates the mirror
// from position onward.
func (l *List) Insert(ctx context.Context, position int, items ...*Item) error {
	return l.mutate(ctx, http.MethodPost, l.path+"/"+strconv.Itoa(position), items, position)
}

// Replace overwrites items starting at position on the backend and
// invalidates the mirror from position onward.
func (l *List) Replace(ctx context.Context, position int, items ...*Item) error {
	return l.mutate(ctx, http.MethodPut, l.path+"/"+strconv.Itoa(position), items, position)
}

// Delete removes length items at position on the backend and invalidates
// the mirror from position onward.
func (l *List) Delete(ctx context.Context, position, length int) error {
	path := l.path + "/" + strconv.Itoa(position) + "/" + strconv.Itoa(length)
	return l.mutate(ctx, http.MethodDelete, path, nil, position)
}

func (l *List) mutate(ctx context.Context, method, path string, body any, position int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.caller.Call(ctx, method, path, body, nil)
	if err != nil {
		l.logger.Warn("list mutation failed", "path", path, "method", method, "error", err)
	}

	// The backend may have applied part of the change even on error.
	l.resetLocked(position)
	return err
}

// Reset drops the mirror from position onward and marks the total unknown.
func (l *List) Reset(position int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetLocked(position)
}

func (l *List) resetLocked(position int) {
	if position < 0 {
		position = 0
	}
	if position < len(l.items) {
		clear(l.items[position:])
		l.items = l.items[:position]
	}
	l.total = Unknown
}

// Cached reports how many leading items are mirrored and the known total.
func (l *List) Cached() (mirrored, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items), l.total
}
