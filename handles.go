package quadbatch

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// ownership records which release path a handle entry takes.
type ownership uint8

const (
	// ownedDirect entries hold a plain proxy reference.
	ownedDirect ownership = iota
	// pendingRead entries hold a pending read.
	pendingRead
	// released entries have fired their release path.
	released
)

type handleEntry struct {
	proxy  *TextureProxy
	filter Filter
	own    ownership
}

func (e *handleEntry) release() {
	switch e.own {
	case ownedDirect:
		e.proxy.Unref()
	case pendingRead:
		e.proxy.CompletedRead()
	default:
		panic(fmt.Sprintf("quadbatch: %v released twice", e.proxy))
	}
	e.own = released
}

// ResourceHandleSet holds the textures of one batch with their filters.
//
// A single texture is stored inline. The first time a second texture is
// added, storage switches to a heap slice with room for the batch's
// texture limit, so later merges do not reallocate.
type ResourceHandleSet struct {
	inline [1]handleEntry
	heap   []handleEntry
}

// newHandleSet creates a set holding one directly owned entry. The set
// takes a new reference on p.
func newHandleSet(p *TextureProxy, f Filter) ResourceHandleSet {
	p.Ref()
	return ResourceHandleSet{inline: [1]handleEntry{{proxy: p, filter: f, own: ownedDirect}}}
}

func (s *ResourceHandleSet) entries() []handleEntry {
	if s.heap != nil {
		return s.heap
	}
	return s.inline[:]
}

// Len returns the number of textures.
func (s *ResourceHandleSet) Len() int {
	if s.heap != nil {
		return len(s.heap)
	}
	return 1
}

// IsInline reports whether the set still uses inline storage.
func (s *ResourceHandleSet) IsInline() bool { return s.heap == nil }

// At returns texture i and its filter.
func (s *ResourceHandleSet) At(i int) (*TextureProxy, Filter) {
	e := &s.entries()[i]
	return e.proxy, e.filter
}

// IndexOf returns the slot holding p, or -1.
func (s *ResourceHandleSet) IndexOf(p *TextureProxy) int {
	for i, e := range s.entries() {
		if e.proxy.ID() == p.ID() {
			return i
		}
	}
	return -1
}

// Append adds p with filter f and returns its slot. When finalized is true
// the set takes a pending read on p, otherwise a plain reference. capacity
// sizes the heap storage on the first growth.
func (s *ResourceHandleSet) Append(p *TextureProxy, f Filter, finalized bool, capacity int) int {
	e := handleEntry{proxy: p, filter: f}
	if finalized {
		p.AddPendingRead()
		e.own = pendingRead
	} else {
		p.Ref()
		e.own = ownedDirect
	}
	if s.heap == nil {
		s.heap = make([]handleEntry, 1, max(capacity, 2))
		s.heap[0] = s.inline[0]
		s.inline[0] = handleEntry{}
	}
	s.heap = append(s.heap, e)
	return len(s.heap) - 1
}

// InstantiateAll instantiates every texture, stopping at the first failure.
// Textures instantiated before the failure stay instantiated.
func (s *ResourceHandleSet) InstantiateAll(rp ResourceProvider) error {
	for _, e := range s.entries() {
		if err := e.proxy.Instantiate(rp); err != nil {
			return err
		}
	}
	return nil
}

// Finalize converts every directly owned entry into a pending read.
func (s *ResourceHandleSet) Finalize() {
	es := s.entries()
	for i := range es {
		if es[i].own != ownedDirect {
			continue
		}
		es[i].proxy.AddPendingRead()
		es[i].proxy.Unref()
		es[i].own = pendingRead
	}
}

// Release fires the release path of every entry exactly once.
func (s *ResourceHandleSet) Release() {
	es := s.entries()
	for i := range es {
		es[i].release()
	}
}

// Visit calls fn for each texture in slot order.
func (s *ResourceHandleSet) Visit(fn func(*TextureProxy, Filter)) {
	for _, e := range s.entries() {
		fn(e.proxy, e.filter)
	}
}

// mergePlan maps the slots of an absorbed set onto a receiving set.
type mergePlan struct {
	// remap[i] is the receiver slot for absorbed slot i.
	remap []int
	// added lists the absorbed slots that need new receiver slots.
	added []int
}

// planMerge works out how that's textures fold into s without modifying
// either set. It fails when a shared texture is sampled with different
// filters, when the union exceeds limit, when a new texture's format
// differs from the receiver's first texture, or when an instantiated
// texture cannot be sampled as 2D.
func (s *ResourceHandleSet) planMerge(that *ResourceHandleSet, limit int) (mergePlan, bool) {
	theirs := that.entries()
	plan := mergePlan{remap: make([]int, len(theirs))}
	next := s.Len()
	for i, e := range theirs {
		if j := s.IndexOf(e.proxy); j >= 0 {
			if _, f := s.At(j); f != e.filter {
				return mergePlan{}, false
			}
			plan.remap[i] = j
			continue
		}
		plan.remap[i] = next
		plan.added = append(plan.added, i)
		next++
	}
	if next > limit {
		return mergePlan{}, false
	}

	first, _ := s.At(0)
	for _, e := range theirs {
		if e.proxy.Format() != first.Format() {
			return mergePlan{}, false
		}
		if tex := e.proxy.Peek(); tex != nil && tex.ViewDimension() != gputypes.TextureViewDimension2D {
			return mergePlan{}, false
		}
	}
	return plan, true
}

// apply adopts the textures listed in plan.added.
func (s *ResourceHandleSet) apply(that *ResourceHandleSet, plan mergePlan, finalized bool, capacity int) {
	for _, i := range plan.added {
		p, f := that.At(i)
		s.Append(p, f, finalized, capacity)
	}
}
