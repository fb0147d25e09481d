// Package router dispatches browsing operations to whichever backend owns
// the current location and tracks per-pane navigation state: history,
// and — for device locations — the object-ID ancestry stack that makes
// "up" computable without a parent lookup from the protocol.
package router

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/twopane/twopane/internal/events"
	"github.com/twopane/twopane/internal/localfs"
	"github.com/twopane/twopane/internal/logging"
	"github.com/twopane/twopane/internal/models"
	"github.com/twopane/twopane/internal/mtp"
)

// navState is one history position: the locator plus the ancestry stack
// that was live when it was current. Restoring a device position without
// its ancestry would break "up" after going back.
type navState struct {
	loc      models.Locator
	ancestry []uint32
}

func (s navState) clone() navState {
	return navState{loc: s.loc, ancestry: append([]uint32(nil), s.ancestry...)}
}

// Router resolves browsing calls against the local or device backend and
// owns one pane's navigation context.
type Router struct {
	mu   sync.Mutex
	conn *mtp.Connection
	bus  *events.EventBus
	log  *logging.Logger
	opts localfs.ListOptions

	cur     navState
	back    []navState
	forward []navState

	// gen stamps navigation requests. A listing whose generation is no
	// longer current when it completes is discarded, not applied.
	gen atomic.Uint64
}

// New creates a router browsing through conn for device locations. The
// initial location is start (usually the user home directory).
func New(conn *mtp.Connection, bus *events.EventBus, log *logging.Logger, start models.Locator, opts localfs.ListOptions) *Router {
	if log == nil {
		log = logging.Nop()
	}
	return &Router{
		conn: conn,
		bus:  bus,
		log:  log,
		opts: opts,
		cur:  navState{loc: start},
	}
}

// Current returns the locator being browsed.
func (r *Router) Current() models.Locator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cur.loc
}

// Generation returns the stamp of the most recent navigation request.
func (r *Router) Generation() uint64 {
	return r.gen.Load()
}

// CanGoBack reports whether history allows going back.
func (r *Router) CanGoBack() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.back) > 0
}

// CanGoForward reports whether history allows going forward.
func (r *Router) CanGoForward() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.forward) > 0
}

// Entries lists the given location synchronously through the owning
// backend. Device listings go through the connection's mutual-exclusion
// boundary; local listings run unrestricted.
func (r *Router) Entries(loc models.Locator) ([]models.Entry, error) {
	if loc.IsLocal() {
		return localfs.List(loc.Path, r.opts)
	}
	// Browsing a device folder means listing the objects whose parent is
	// the folder's own object ID (RootObjectID at a storage root).
	return r.conn.ListChildren(loc.StorageID, loc.ObjectID)
}

// Navigate moves the pane to loc, pushing the old position onto the back
// stack and clearing forward history (browser semantics). Entering a device
// folder from its direct parent pushes the parent onto the ancestry stack;
// any other device jump starts a fresh ancestry; local locations clear it.
// The listing itself runs asynchronously; the returned generation stamps
// the eventual ListingEvent.
func (r *Router) Navigate(loc models.Locator) uint64 {
	r.mu.Lock()
	prev := r.cur.clone()
	r.back = append(r.back, prev)
	r.forward = nil
	r.cur = navState{loc: loc, ancestry: nextAncestry(prev, loc)}
	r.mu.Unlock()

	return r.startListing(loc)
}

// nextAncestry computes the ancestry stack for a navigation from prev to loc.
func nextAncestry(prev navState, loc models.Locator) []uint32 {
	if !loc.IsDevice() {
		return nil // switching to local clears device ancestry
	}
	sameGraph := prev.loc.IsDevice() &&
		prev.loc.DeviceID == loc.DeviceID &&
		prev.loc.StorageID == loc.StorageID
	if sameGraph && loc.ParentObjectID == prev.loc.ObjectID {
		// Descending one level: remember where we came from.
		return append(append([]uint32(nil), prev.ancestry...), prev.loc.ObjectID)
	}
	// Storage root or an arbitrary jump: ancestry restarts.
	return nil
}

// NavigateUp moves to the parent location. For local paths this is the
// containing directory (no-op at the filesystem root). For device paths it
// pops the ancestry stack; with an empty stack the pane is at a storage
// root and the call is a no-op.
func (r *Router) NavigateUp() uint64 {
	r.mu.Lock()
	cur := r.cur

	if cur.loc.IsLocal() {
		parent := filepath.Dir(cur.loc.Path)
		if parent == cur.loc.Path {
			r.mu.Unlock()
			return r.gen.Load()
		}
		r.mu.Unlock()
		return r.Navigate(models.LocalLocator(parent))
	}

	if len(cur.ancestry) == 0 {
		// Already at a storage root: nothing above it to show.
		r.mu.Unlock()
		return r.gen.Load()
	}

	parentID := cur.ancestry[len(cur.ancestry)-1]
	rest := cur.ancestry[:len(cur.ancestry)-1]
	grandparent := models.RootObjectID
	if len(rest) > 0 {
		grandparent = rest[len(rest)-1]
	}

	r.back = append(r.back, cur.clone())
	r.forward = nil
	r.cur = navState{
		loc:      models.DeviceLocator(cur.loc.DeviceID, cur.loc.StorageID, parentID, grandparent),
		ancestry: append([]uint32(nil), rest...),
	}
	loc := r.cur.loc
	r.mu.Unlock()

	return r.startListing(loc)
}

// GoBack moves to the previous history position.
func (r *Router) GoBack() uint64 {
	r.mu.Lock()
	if len(r.back) == 0 {
		r.mu.Unlock()
		return r.gen.Load()
	}
	r.forward = append(r.forward, r.cur.clone())
	r.cur = r.back[len(r.back)-1]
	r.back = r.back[:len(r.back)-1]
	loc := r.cur.loc
	r.mu.Unlock()

	return r.startListing(loc)
}

// GoForward moves to the next history position.
func (r *Router) GoForward() uint64 {
	r.mu.Lock()
	if len(r.forward) == 0 {
		r.mu.Unlock()
		return r.gen.Load()
	}
	r.back = append(r.back, r.cur.clone())
	r.cur = r.forward[len(r.forward)-1]
	r.forward = r.forward[:len(r.forward)-1]
	loc := r.cur.loc
	r.mu.Unlock()

	return r.startListing(loc)
}

// Refresh re-lists the current location without touching history.
func (r *Router) Refresh() uint64 {
	return r.startListing(r.Current())
}

// startListing bumps the generation and lists loc on a fresh goroutine.
// The result is published only if the generation is still current when the
// listing completes; superseded results are discarded.
func (r *Router) startListing(loc models.Locator) uint64 {
	gen := r.gen.Add(1)
	go r.completeListing(gen, loc)
	return gen
}

// completeListing performs the blocking listing for one navigation request
// and publishes the result unless a newer request superseded it meanwhile.
func (r *Router) completeListing(gen uint64, loc models.Locator) {
	entries, err := r.Entries(loc)
	if r.gen.Load() != gen {
		r.log.Debug().Uint64("generation", gen).Msg("discarding superseded listing")
		return
	}
	r.publishListing(gen, loc, entries, err)
}

func (r *Router) publishListing(gen uint64, loc models.Locator, entries []models.Entry, err error) {
	if r.bus == nil {
		return
	}
	if err != nil {
		r.bus.Publish(&events.ListingEvent{
			BaseEvent:  events.Base(events.EventListingError),
			Generation: gen,
			Location:   loc.String(),
			Error:      err,
		})
		return
	}
	r.bus.Publish(&events.ListingEvent{
		BaseEvent:  events.Base(events.EventListingChanged),
		Generation: gen,
		Location:   loc.String(),
		Count:      len(entries),
	})
}

// Ancestry returns a copy of the device ancestry stack, for display and
// tests. Empty for local locations.
func (r *Router) Ancestry() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint32(nil), r.cur.ancestry...)
}
