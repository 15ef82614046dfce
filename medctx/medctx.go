// Package medctx replaces spec.md §3's process-wide `globals` with an
// explicit, immutable-after-construction context object threaded through
// every open/read call (the redesign spec.md §9 calls for in place of
// mutex-guarded global state).
package medctx

import (
	"sync"

	"github.com/MEDFormat/MEDC-sub000/config"
	"github.com/MEDFormat/MEDC-sub000/metrics"
)

// Context holds everything spec.md's `globals` would have held:
// password/crypto tables (built once, lazily, by the packages that need
// them — crc32x's table construction is already idempotent and
// mutex-guarded on its own), timezone data, the reference channel
// handle, and now a Metrics bundle and OpenOptions. Unlike spec.md's
// globals, a Context is scoped to one caller's use of the library rather
// than the process: multiple sessions in the same process can use
// independent Contexts, or share one.
type Context struct {
	Options OpenOptions
	Metrics *metrics.Metrics

	mu              sync.RWMutex
	referenceChannel ReferenceChannel
}

// OpenOptions is re-exported from config so callers only need to import
// medctx for the common case.
type OpenOptions = config.OpenOptions

// ReferenceChannel is the weak back-reference spec.md §3 describes: "the
// reference channel (time/sample number anchor) is a weak back-reference
// stored in process-wide state; it is always also owned by the Session
// that contains it." Here it is just a name the Session tree resolves
// against, not a pointer — avoiding any risk of the Context outliving
// the Session it references.
type ReferenceChannel struct {
	SessionUID uint64
	ChannelName string
}

// New constructs a Context with the given options and a Metrics bundle
// under the "med" namespace. The bundle is not registered with any
// registry; call Context.Metrics.Register to register it.
func New(opts OpenOptions) *Context {
	return &Context{
		Options: opts,
		Metrics: metrics.New("med"),
	}
}

// SetReferenceChannel records the session's time/sample anchor channel.
// Safe for concurrent use; spec.md's globals required the same
// mutex-guarded-first-touch discipline this method provides directly.
func (c *Context) SetReferenceChannel(rc ReferenceChannel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.referenceChannel = rc
}

// ReferenceChannel returns the current reference channel.
func (c *Context) ReferenceChannel() ReferenceChannel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.referenceChannel
}
