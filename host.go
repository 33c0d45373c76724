package markup

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/alnah/go-trustedmarkup/internal/pipeline"
)

// HostState is a host's position in its render lifecycle.
type HostState int

// Host lifecycle states, in the order an update moves through them.
const (
	StateIdle HostState = iota
	StateInjected
	StatePortalsScanned
	StatePortalsMounted
	StateClosed
)

func (s HostState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInjected:
		return "injected"
	case StatePortalsScanned:
		return "portals-scanned"
	case StatePortalsMounted:
		return "portals-mounted"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("HostState(%d)", int(s))
}

// maxPortalDepth bounds how deep portals may nest placeholders in their output.
const maxPortalDepth = 8

// mount is a live portal attached to one placeholder key. parent is the key of
// the mount whose output holds the placeholder, empty at the top level.
type mount struct {
	props  Props
	portal Portal
	parent string
}

// Host owns the portals mounted for one view of changing content. Each Update
// re-renders the unit, keeps portals whose placeholder is still present,
// creates portals for new placeholders and releases the ones that vanished.
// Close releases everything; after Close, Update fails with ErrHostClosed.
type Host struct {
	r      *Renderer
	mu     sync.Mutex
	closed atomic.Bool
	state  HostState
	mounts map[string]*mount
}

// NewHost creates an idle host bound to r.
func (r *Renderer) NewHost() *Host {
	return &Host{r: r, mounts: make(map[string]*mount)}
}

// State returns the host's current lifecycle state.
func (h *Host) State() HostState {
	if h.closed.Load() {
		return StateClosed
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Mounted returns the props of every live portal, sorted by element id.
func (h *Host) Mounted() []Props {
	h.mu.Lock()
	defer h.mu.Unlock()
	props := make([]Props, 0, len(h.mounts))
	for _, m := range h.mounts {
		props = append(props, m.props)
	}
	sort.Slice(props, func(i, j int) bool {
		if props[i].ID != props[j].ID {
			return props[i].ID < props[j].ID
		}
		return props[i].Type < props[j].Type
	})
	return props
}

// Update renders unit and reconciles the host's portals with the placeholders
// found in the output. A Close or context cancellation that lands while the
// update runs aborts it before any portal is created.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (h *Host) Update(ctx context.Context, unit Unit) (result *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("internal error: %v", rec)
		}
	}()

	if h.closed.Load() {
		return nil, ErrHostClosed
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed.Load() {
		return nil, ErrHostClosed
	}

	h.r.metrics.renders.WithLabelValues(encodingLabel(unit.Encoding)).Inc()

	prepared, scan, err := h.r.prepare(ctx, unit)
	if err != nil {
		return nil, err
	}
	result = &Result{Encoding: unit.Encoding}

	if !scan {
		h.state = StateInjected
		_ = h.reconcile(ctx, "", nil)
		h.state = StatePortalsMounted
		result.HTML = prepared
		return result, nil
	}

	doc, err := pipeline.ParseDocument(unit.Class, prepared)
	if err != nil {
		return nil, err
	}
	h.state = StateInjected

	if h.r.hasPortal(TypeTable) {
		doc.WrapTables()
	}
	placeholders := doc.Scan(h.r.hasPortal)
	h.state = StatePortalsScanned

	if err := h.abortErr(ctx); err != nil {
		return nil, err
	}

	if err := h.mountAll(ctx, doc, "", placeholders, 0, result); err != nil {
		return nil, err
	}
	h.state = StatePortalsMounted

	out, err := doc.Render()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTMLParse, err)
	}
	result.HTML = out
	return result, nil
}

// mountAll reconciles the placeholders found under parent, mounts their
// portals and then descends into each portal's output, so nested placeholders
// are handled in document order. A placeholder removed by an enclosing portal
// is never scanned and holds no mount. Must be called with h.mu held.
func (h *Host) mountAll(ctx context.Context, doc *pipeline.Document, parent string, placeholders []*pipeline.Placeholder, depth int, result *Result) error {
	if err := h.reconcile(ctx, parent, placeholders); err != nil {
		return err
	}

	for _, ph := range placeholders {
		key := ph.Props.Key()
		sealed := false
		if m, ok := h.mounts[key]; ok {
			if err := doc.Mount(ph, m.portal); err != nil {
				h.r.metrics.mountFailures.WithLabelValues(ph.Props.Type).Inc()
				h.r.logger.Warn("portal render failed",
					"type", ph.Props.Type, "id", ph.Props.ID, "error", err)
			} else {
				result.Mounted = append(result.Mounted, ph.Props)
				s, ok := m.portal.(pipeline.Sealed)
				sealed = ok && s.Sealed()
			}
		}

		var nested []*pipeline.Placeholder
		if !sealed {
			nested = doc.ScanWithin(ph, h.r.hasPortal)
		}
		if depth+1 >= maxPortalDepth {
			if len(nested) > 0 {
				h.r.logger.Warn("portal nesting too deep, leaving placeholders unmounted",
					"type", ph.Props.Type, "id", ph.Props.ID, "depth", depth+1)
			}
			nested = nil
		}
		if err := h.mountAll(ctx, doc, key, nested, depth+1, result); err != nil {
			return err
		}
	}
	return nil
}

// reconcile releases the portals under parent whose placeholder is gone and
// creates portals for new placeholders. It stops creating portals once the host
// is closed or ctx is done. Must be called with h.mu held.
func (h *Host) reconcile(ctx context.Context, parent string, placeholders []*pipeline.Placeholder) error {
	live := make(map[string]bool, len(placeholders))
	for _, ph := range placeholders {
		live[ph.Props.Key()] = true
	}
	for key, m := range h.mounts {
		if m.parent == parent && !live[key] {
			h.release(key, m)
		}
	}

	for _, ph := range placeholders {
		key := ph.Props.Key()
		if m, ok := h.mounts[key]; ok {
			// The placeholder may have moved out of another portal's output.
			m.parent = parent
			continue
		}
		if err := h.abortErr(ctx); err != nil {
			return err
		}
		fn, ok := h.r.portals[ph.Props.Type]
		if !ok {
			// Scan only returns registered types.
			continue
		}
		portal, err := fn(ctx, ph.Props)
		if err != nil || portal == nil {
			if err == nil {
				err = fmt.Errorf("portal for %q returned nil", ph.Props.Type)
			}
			h.r.metrics.mountFailures.WithLabelValues(ph.Props.Type).Inc()
			h.r.logger.Warn("portal mount failed",
				"type", ph.Props.Type, "id", ph.Props.ID, "error", err)
			continue
		}
		h.mounts[key] = &mount{props: ph.Props, portal: portal, parent: parent}
		h.r.metrics.mounts.WithLabelValues(ph.Props.Type).Inc()
		h.r.metrics.activePortals.Inc()
	}
	return nil
}

// release removes the mount for key along with every mount nested in its output.
func (h *Host) release(key string, m *mount) {
	delete(h.mounts, key)
	for k, child := range h.mounts {
		if child.parent == key {
			h.release(k, child)
		}
	}
	m.portal.Release()
	h.r.metrics.releases.WithLabelValues(m.props.Type).Inc()
	h.r.metrics.activePortals.Dec()
}

// abortErr reports whether the update must stop before mounting.
func (h *Host) abortErr(ctx context.Context) error {
	if h.closed.Load() {
		return ErrHostClosed
	}
	return ctx.Err()
}

// Close releases every mounted portal. Close is idempotent.
func (h *Host) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, m := range h.mounts {
		h.release(key, m)
	}
	h.state = StateClosed
	return nil
}
