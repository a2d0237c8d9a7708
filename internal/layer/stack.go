package layer

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"

	"github.com/gogpu/paint/internal/blend"
	pimage "github.com/gogpu/paint/internal/image"
)

// Errors returned by Stack mutations.
var (
	// ErrIndex is returned for an index outside the stack.
	ErrIndex = errors.New("layer: index out of range")

	// ErrNotGroup is returned when a group operation targets a pixel layer.
	ErrNotGroup = errors.New("layer: not a group")

	// ErrSiblings is returned when grouped layers do not share a parent.
	ErrSiblings = errors.New("layer: layers do not share a parent")

	// ErrInvalidStack is returned when restored layers break the stack invariants.
	ErrInvalidStack = errors.New("layer: invalid stack")
)

// Options configures a Stack.
type Options struct {
	// Logger receives invariant violations. Nil discards.
	Logger *slog.Logger
	// Debug panics on invariant violations instead of logging them.
	Debug bool
}

// Stack is the ordered list of layers of one canvas.
//
// Index 0 is the bottom of the stack. A group is followed by its
// descendants: the contiguous run of layers after it with greater depth.
// Exactly one layer is active unless the stack is empty, in which case
// Active returns -1.
//
// A Stack is owned by the paint thread and is not safe for concurrent use.
type Stack struct {
	width, height int
	layers        []*Layer
	active        int

	rev    uint64
	damage image.Rectangle

	log   *slog.Logger
	debug bool
}

// NewStack creates an empty stack for a width×height canvas.
func NewStack(width, height int, opts Options) *Stack {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Stack{
		width:  width,
		height: height,
		active: -1,
		log:    log,
		debug:  opts.Debug,
	}
}

// Restore builds a stack from previously saved layers. Pixel layers must
// match the canvas size.
func Restore(width, height int, layers []Layer, active int, opts Options) (*Stack, error) {
	s := NewStack(width, height, opts)
	for i := range layers {
		l := layers[i]
		if l.IsGroup() {
			l.Pixels = nil
		} else if l.Pixels == nil || l.Pixels.Width() != width || l.Pixels.Height() != height ||
			l.Pixels.Format() != pimage.FormatRGBAPremul {
			return nil, fmt.Errorf("%w: layer %d %q has no matching pixel buffer", ErrInvalidStack, i, l.Name)
		}
		s.layers = append(s.layers, &l)
	}
	switch {
	case len(s.layers) == 0:
		s.active = -1
	case active < 0 || active >= len(s.layers):
		s.active = 0
	default:
		s.active = active
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	s.touch(s.bounds())
	return s, nil
}

// Width returns the canvas width.
func (s *Stack) Width() int { return s.width }

// Height returns the canvas height.
func (s *Stack) Height() int { return s.height }

// Len returns the number of layers.
func (s *Stack) Len() int { return len(s.layers) }

// Layer returns a copy of the layer at i.
func (s *Stack) Layer(i int) (Layer, bool) {
	if !s.valid(i) {
		return Layer{}, false
	}
	return *s.layers[i], true
}

// Layers returns copies of all layers, bottom first.
func (s *Stack) Layers() []Layer {
	out := make([]Layer, len(s.layers))
	for i, l := range s.layers {
		out[i] = *l
	}
	return out
}

// Active returns the active index, or -1 when the stack is empty.
func (s *Stack) Active() int { return s.active }

// SetActive makes i the active layer.
func (s *Stack) SetActive(i int) error {
	if !s.valid(i) {
		return fmt.Errorf("%w: %d", ErrIndex, i)
	}
	s.active = i
	return nil
}

// ActivePixels returns the pixel buffer drawing should target, or nil when
// the active layer is a group or the stack is empty.
func (s *Stack) ActivePixels() *pimage.ImageBuf {
	if !s.valid(s.active) {
		return nil
	}
	return s.layers[s.active].Pixels
}

// Revision increases on every change, including pixel damage.
func (s *Stack) Revision() uint64 { return s.rev }

// MarkDirty records that pixels inside r changed.
func (s *Stack) MarkDirty(r image.Rectangle) {
	s.touch(r.Intersect(s.bounds()))
}

// TakeDamage returns the union of all changed areas since the last call.
func (s *Stack) TakeDamage() image.Rectangle {
	d := s.damage
	s.damage = image.Rectangle{}
	return d
}

// Add inserts a new layer at index at (0..Len) and makes it active.
//
// The layer becomes a sibling of the layer currently at that index. At the
// top of the stack it joins the parent of the topmost layer, or becomes the
// first child when the topmost layer is a group.
func (s *Stack) Add(kind Kind, at int, name string) (int, error) {
	if at < 0 || at > len(s.layers) {
		return -1, fmt.Errorf("%w: %d", ErrIndex, at)
	}
	l := s.newLayer(kind, name)
	l.Depth = depthAt(s.layers, at)
	s.layers = slices.Insert(s.layers, at, l)
	s.active = at
	s.changed(s.bounds())
	return at, nil
}

// AddAbove inserts a new layer directly above the active layer (above its
// whole subtree for a group) as its sibling, and makes it active.
func (s *Stack) AddAbove(kind Kind, name string) int {
	l := s.newLayer(kind, name)
	at := 0
	if s.valid(s.active) {
		at = s.subtreeEnd(s.active)
		l.Depth = s.layers[s.active].Depth
	}
	s.layers = slices.Insert(s.layers, at, l)
	s.active = at
	s.changed(s.bounds())
	return at
}

// Remove deletes the layer at i together with all its descendants.
func (s *Stack) Remove(i int) error {
	if !s.valid(i) {
		return fmt.Errorf("%w: %d", ErrIndex, i)
	}
	end := s.subtreeEnd(i)
	n := end - i
	s.layers = slices.Delete(s.layers, i, end)
	switch {
	case len(s.layers) == 0:
		s.active = -1
	case s.active >= end:
		s.active -= n
	case s.active >= i:
		s.active = min(i, len(s.layers)-1)
	}
	s.changed(s.bounds())
	return nil
}

// Move relocates the layer at from, with its subtree, so that it starts at
// index to of the stack as it looks once the subtree has been taken out.
// Depths are adjusted to the destination the same way Add chooses them.
func (s *Stack) Move(from, to int) error {
	if !s.valid(from) {
		return fmt.Errorf("%w: %d", ErrIndex, from)
	}
	end := s.subtreeEnd(from)
	sub := slices.Clone(s.layers[from:end])
	rest := slices.Concat(s.layers[:from], s.layers[end:])
	if to < 0 || to > len(rest) {
		return fmt.Errorf("%w: %d", ErrIndex, to)
	}

	activeOff := -1
	if s.active >= from && s.active < end {
		activeOff = s.active - from
	}
	var activeLayer *Layer
	if activeOff < 0 && s.valid(s.active) {
		activeLayer = s.layers[s.active]
	}

	delta := depthAt(rest, to) - sub[0].Depth
	for _, l := range sub {
		l.Depth += delta
	}
	s.layers = slices.Insert(rest, to, sub...)

	if activeOff >= 0 {
		s.active = to + activeOff
	} else if activeLayer != nil {
		s.active = slices.Index(s.layers, activeLayer)
	}
	s.changed(s.bounds())
	return nil
}

// Duplicate copies the layer at i, with its subtree and pixels, directly
// above it. The copy becomes active.
func (s *Stack) Duplicate(i int) (int, error) {
	if !s.valid(i) {
		return -1, fmt.Errorf("%w: %d", ErrIndex, i)
	}
	end := s.subtreeEnd(i)
	dup := make([]*Layer, 0, end-i)
	for _, l := range s.layers[i:end] {
		dup = append(dup, l.clone())
	}
	dup[0].Name += " copy"
	s.layers = slices.Insert(s.layers, end, dup...)
	s.active = end
	s.changed(s.bounds())
	return end, nil
}

// Group wraps the given sibling layers, with their subtrees, into a new
// group placed where the topmost of them was. The group becomes active.
func (s *Stack) Group(indices []int, name string) (int, error) {
	if len(indices) == 0 {
		return -1, fmt.Errorf("%w: nothing to group", ErrIndex)
	}
	idx := slices.Clone(indices)
	slices.Sort(idx)
	idx = slices.Compact(idx)
	for _, i := range idx {
		if !s.valid(i) {
			return -1, fmt.Errorf("%w: %d", ErrIndex, i)
		}
	}
	parent := s.Parent(idx[0])
	depth := s.layers[idx[0]].Depth
	for _, i := range idx[1:] {
		if s.Parent(i) != parent || s.layers[i].Depth != depth {
			return -1, ErrSiblings
		}
	}

	var moved []*Layer
	removedBelowTop := 0
	top := idx[len(idx)-1]
	keep := make([]*Layer, 0, len(s.layers))
	inSel := make([]bool, len(s.layers))
	for _, i := range idx {
		for j := i; j < s.subtreeEnd(i); j++ {
			inSel[j] = true
		}
	}
	for j, l := range s.layers {
		if inSel[j] {
			moved = append(moved, l)
			if j < top {
				removedBelowTop++
			}
			continue
		}
		keep = append(keep, l)
	}

	g := s.newLayer(KindGroup, name)
	g.Depth = depth
	for _, l := range moved {
		l.Depth++
	}
	at := top - removedBelowTop
	s.layers = slices.Insert(keep, at, append([]*Layer{g}, moved...)...)
	s.active = at
	s.changed(s.bounds())
	return at, nil
}

// Ungroup removes the group at i and lifts its children one level.
// The first former child, if any, becomes active.
func (s *Stack) Ungroup(i int) error {
	if !s.valid(i) {
		return fmt.Errorf("%w: %d", ErrIndex, i)
	}
	if !s.layers[i].IsGroup() {
		return ErrNotGroup
	}
	end := s.subtreeEnd(i)
	for _, l := range s.layers[i+1 : end] {
		l.Depth--
	}
	var activeLayer *Layer
	if s.active != i && s.valid(s.active) {
		activeLayer = s.layers[s.active]
	}
	s.layers = slices.Delete(s.layers, i, i+1)
	switch {
	case len(s.layers) == 0:
		s.active = -1
	case activeLayer != nil:
		s.active = slices.Index(s.layers, activeLayer)
	default:
		s.active = min(i, len(s.layers)-1)
	}
	s.changed(s.bounds())
	return nil
}

// SetName renames the layer at i.
func (s *Stack) SetName(i int, name string) error {
	return s.set(i, false, func(l *Layer) { l.Name = name })
}

// SetVisible shows or hides the layer at i.
func (s *Stack) SetVisible(i int, v bool) error {
	return s.set(i, true, func(l *Layer) { l.Visible = v })
}

// SetOpacity sets the opacity of the layer at i, clamped to [0, 1].
func (s *Stack) SetOpacity(i int, opacity float64) error {
	if opacity != opacity {
		opacity = 0
	}
	return s.set(i, true, func(l *Layer) { l.Opacity = max(0, min(opacity, 1)) })
}

// SetMode sets the blend mode of the layer at i. Unknown modes become Normal.
func (s *Stack) SetMode(i int, m blend.Mode) error {
	if !m.IsValid() {
		m = blend.Normal
	}
	return s.set(i, true, func(l *Layer) { l.Mode = m })
}

// SetAlphaLock sets the alpha lock of the layer at i.
func (s *Stack) SetAlphaLock(i int, v bool) error {
	return s.set(i, false, func(l *Layer) { l.AlphaLock = v })
}

// SetLocked sets the edit lock of the layer at i.
func (s *Stack) SetLocked(i int, v bool) error {
	return s.set(i, false, func(l *Layer) { l.Locked = v })
}

// SetClipped clips the layer at i to its clip base.
func (s *Stack) SetClipped(i int, v bool) error {
	return s.set(i, true, func(l *Layer) { l.Clipped = v })
}

// SetExpanded expands or collapses the group at i.
func (s *Stack) SetExpanded(i int, v bool) error {
	if s.valid(i) && !s.layers[i].IsGroup() {
		return ErrNotGroup
	}
	return s.set(i, false, func(l *Layer) { l.Expanded = v })
}

// SetPrivate excludes the layer at i from snapshots.
func (s *Stack) SetPrivate(i int, v bool) error {
	return s.set(i, false, func(l *Layer) { l.Private = v })
}

// Parent returns the index of the group containing i, or -1 for top level
// layers and invalid indices.
func (s *Stack) Parent(i int) int {
	if !s.valid(i) {
		return -1
	}
	d := s.layers[i].Depth
	for j := i - 1; j >= 0; j-- {
		if s.layers[j].Depth < d {
			return j
		}
	}
	return -1
}

// Children returns the indices of the direct children of i, bottom first.
// Passing -1 returns the top level layers.
func (s *Stack) Children(i int) []int {
	start, end, depth := 0, len(s.layers), 0
	if i >= 0 {
		if !s.valid(i) || !s.layers[i].IsGroup() {
			return nil
		}
		start, end, depth = i+1, s.subtreeEnd(i), s.layers[i].Depth+1
	}
	var out []int
	for j := start; j < end; j++ {
		if s.layers[j].Depth == depth {
			out = append(out, j)
		}
	}
	return out
}

// SubtreeEnd returns the index just past the last descendant of i.
func (s *Stack) SubtreeEnd(i int) int {
	if !s.valid(i) {
		return i
	}
	return s.subtreeEnd(i)
}

// ClipBase returns the index of the nearest visible non-clipped sibling
// below the clipped layer at i, or -1 when i is not clipped or has no such
// sibling. This is the layer the compositor clips i to.
func (s *Stack) ClipBase(i int) int {
	if !s.valid(i) || !s.layers[i].Clipped {
		return -1
	}
	d := s.layers[i].Depth
	for j := i - 1; j >= 0; j-- {
		l := s.layers[j]
		if l.Depth < d {
			return -1
		}
		if l.Depth == d && !l.Clipped && l.Visible {
			return j
		}
	}
	return -1
}

// Snapshot returns deep copies of all non-private layers. Descendants of a
// private group are left out with it.
func (s *Stack) Snapshot() []Layer {
	var out []Layer
	for i := 0; i < len(s.layers); {
		l := s.layers[i]
		if l.Private {
			i = s.subtreeEnd(i)
			continue
		}
		out = append(out, *l.clone())
		i++
	}
	return out
}

func (s *Stack) newLayer(kind Kind, name string) *Layer {
	l := &Layer{
		Name:     name,
		Kind:     kind,
		Visible:  true,
		Opacity:  1,
		Mode:     blend.Normal,
		Expanded: true,
	}
	if kind == KindNormal {
		l.Pixels = pimage.MustNew(s.width, s.height, pimage.FormatRGBAPremul)
	}
	return l
}

func (s *Stack) set(i int, affectsPixels bool, fn func(*Layer)) error {
	if !s.valid(i) {
		return fmt.Errorf("%w: %d", ErrIndex, i)
	}
	fn(s.layers[i])
	if affectsPixels {
		s.changed(s.bounds())
	} else {
		s.changed(image.Rectangle{})
	}
	return nil
}

func (s *Stack) valid(i int) bool { return i >= 0 && i < len(s.layers) }

func (s *Stack) bounds() image.Rectangle { return image.Rect(0, 0, s.width, s.height) }

func (s *Stack) subtreeEnd(i int) int {
	d := s.layers[i].Depth
	j := i + 1
	for j < len(s.layers) && s.layers[j].Depth > d {
		j++
	}
	return j
}

func (s *Stack) touch(r image.Rectangle) {
	s.rev++
	if !r.Empty() {
		s.damage = s.damage.Union(r)
	}
}

// changed records a structural mutation and verifies the invariants.
func (s *Stack) changed(r image.Rectangle) {
	s.touch(r)
	if err := s.validate(); err != nil {
		if s.debug {
			panic(err)
		}
		s.log.Warn("layer: invariant violated", "err", err)
	}
}

// depthAt returns the depth a layer inserted at index at of ls receives.
func depthAt(ls []*Layer, at int) int {
	if at < len(ls) {
		return ls[at].Depth
	}
	if at == 0 {
		return 0
	}
	prev := ls[at-1]
	if prev.IsGroup() {
		return prev.Depth + 1
	}
	return prev.Depth
}

func (s *Stack) validate() error {
	for i, l := range s.layers {
		switch {
		case i == 0 && l.Depth != 0:
			return fmt.Errorf("%w: bottom layer has depth %d", ErrInvalidStack, l.Depth)
		case l.Depth < 0:
			return fmt.Errorf("%w: layer %d has negative depth", ErrInvalidStack, i)
		case i > 0 && l.Depth > s.layers[i-1].Depth+1:
			return fmt.Errorf("%w: layer %d skips a level", ErrInvalidStack, i)
		case i > 0 && l.Depth == s.layers[i-1].Depth+1 && !s.layers[i-1].IsGroup():
			return fmt.Errorf("%w: layer %d is nested under a pixel layer", ErrInvalidStack, i)
		case l.IsGroup() && l.Pixels != nil:
			return fmt.Errorf("%w: group %d has pixels", ErrInvalidStack, i)
		case !l.IsGroup() && l.Pixels == nil:
			return fmt.Errorf("%w: layer %d has no pixels", ErrInvalidStack, i)
		}
	}
	if len(s.layers) == 0 && s.active != -1 || len(s.layers) > 0 && !s.valid(s.active) {
		return fmt.Errorf("%w: active index %d", ErrInvalidStack, s.active)
	}
	return nil
}
