// Package layer implements the layer stack: an ordered, depth indented list
// of pixel layers and groups.
package layer

import (
	"github.com/gogpu/paint/internal/blend"
	pimage "github.com/gogpu/paint/internal/image"
)

// Kind distinguishes pixel layers from groups.
type Kind uint8

const (
	// KindNormal layers own a pixel buffer.
	KindNormal Kind = iota
	// KindGroup layers own no pixels; their children follow them in the stack.
	KindGroup
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Layer is one entry of a Stack.
//
// Values returned by Stack are copies; change a layer through the Stack
// setters so that revisions and damage stay accurate. Pixels is shared
// with the stack and may be drawn into directly by the paint thread.
type Layer struct {
	Name      string
	Kind      Kind
	Visible   bool
	Locked    bool
	AlphaLock bool
	// Clipped restricts the layer to the alpha of its clip base.
	Clipped bool
	Opacity float64
	Mode    blend.Mode
	// Expanded is presentation state for groups and has no effect on pixels.
	Expanded bool
	// Depth is the nesting level; top level layers have depth 0.
	Depth int
	// Private layers are left out of snapshots.
	Private bool
	// Pixels is nil for groups.
	Pixels *pimage.ImageBuf
}

// IsGroup reports whether l is a group.
func (l *Layer) IsGroup() bool { return l.Kind == KindGroup }

func (l *Layer) clone() *Layer {
	c := *l
	if l.Pixels != nil {
		c.Pixels = l.Pixels.Clone()
	}
	return &c
}
