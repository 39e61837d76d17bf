package reference

import "sync/atomic"

// ---------------------------------------------------------------------------
// Revision timeline
// ---------------------------------------------------------------------------

// Revision is a point on the global revision timeline. Revisions only ever
// move forward; a snapshot taken at one point can later be compared against a
// tag's current value to decide staleness in O(1).
type Revision uint64

const (
	// ConstRevision marks state that can never change.
	ConstRevision Revision = 0

	// InitialRevision is the timeline value before any mutation.
	InitialRevision Revision = 1
)

// timeline is the global revision counter. Rendering is single-writer per
// pass, but tags may be dirtied from host callbacks, so the counter itself
// is atomic.
var timeline atomic.Uint64

func init() {
	timeline.Store(uint64(InitialRevision))
}

// CurrentRevision returns the present value of the global timeline.
func CurrentRevision() Revision {
	return Revision(timeline.Load())
}

// bump advances the timeline and returns the new revision.
func bump() Revision {
	return Revision(timeline.Add(1))
}

// ---------------------------------------------------------------------------
// Tags
// ---------------------------------------------------------------------------

// Tag summarizes "when was this last changed" as a revision. A tag's value
// strictly increases whenever the referenced state changes, never decreases.
type Tag interface {
	// Value returns the revision at which the underlying state last changed.
	Value() Revision
}

// Validate reports whether the state behind tag is unchanged since snapshot.
func Validate(tag Tag, snapshot Revision) bool {
	return snapshot >= tag.Value()
}

// IsConst reports whether tag belongs to state that can never change.
func IsConst(tag Tag) bool {
	return tag.Value() == ConstRevision
}

// constTag is the tag of state that never changes.
type constTag struct{}

func (constTag) Value() Revision { return ConstRevision }

// ConstTag returns the shared tag for immutable state.
func ConstTag() Tag { return sharedConstTag }

var sharedConstTag = constTag{}

// DirtyableTag is the mutable leaf of the tag graph. Dirtying it advances
// the global timeline and records the new revision.
type DirtyableTag struct {
	revision Revision
}

// NewDirtyableTag returns a tag whose state is considered changed at the
// initial revision.
func NewDirtyableTag() *DirtyableTag {
	return &DirtyableTag{revision: InitialRevision}
}

// Value returns the revision of the most recent Dirty call.
func (t *DirtyableTag) Value() Revision { return t.revision }

// Dirty marks the underlying state as changed now.
func (t *DirtyableTag) Dirty() {
	t.revision = bump()
}

// unionTag derives from two or more member tags; it is as new as its newest
// member.
type unionTag struct {
	tags []Tag
}

func (t *unionTag) Value() Revision {
	max := ConstRevision
	for _, tag := range t.tags {
		if v := tag.Value(); v > max {
			max = v
		}
	}
	return max
}

// Combine folds any number of tags into one. Constant members are dropped;
// zero remaining members collapse to the const tag and a single member is
// returned unchanged.
func Combine(tags ...Tag) Tag {
	live := make([]Tag, 0, len(tags))
	for _, tag := range tags {
		if tag == nil || tag == sharedConstTag {
			continue
		}
		live = append(live, tag)
	}
	switch len(live) {
	case 0:
		return sharedConstTag
	case 1:
		return live[0]
	default:
		return &unionTag{tags: live}
	}
}
