package layer

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/paint/internal/blend"
)

// build returns a stack with the given kinds and depths, bottom first.
// Names are "L<index>".
func build(t *testing.T, defs ...entry) *Stack {
	t.Helper()
	ls := make([]Layer, len(defs))
	s := NewStack(4, 4, Options{})
	for i, e := range defs {
		l := s.newLayer(e.kind, "L"+string(rune('0'+i)))
		l.Depth = e.depth
		ls[i] = *l
	}
	r, err := Restore(4, 4, ls, 0, Options{Debug: true})
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	return r
}

type entry = struct {
	kind  Kind
	depth int
}

func names(s *Stack) []string {
	var out []string
	for _, l := range s.Layers() {
		out = append(out, l.Name)
	}
	return out
}

func depths(s *Stack) []int {
	var out []int
	for _, l := range s.Layers() {
		out = append(out, l.Depth)
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewStackEmpty(t *testing.T) {
	s := NewStack(8, 8, Options{Debug: true})
	if s.Len() != 0 || s.Active() != -1 {
		t.Errorf("empty stack Len() = %d, Active() = %d", s.Len(), s.Active())
	}
	if s.ActivePixels() != nil {
		t.Error("ActivePixels() on empty stack should be nil")
	}
}

func TestAdd(t *testing.T) {
	s := NewStack(8, 8, Options{Debug: true})
	i, err := s.Add(KindNormal, 0, "base")
	if err != nil || i != 0 {
		t.Fatalf("Add() = %d, %v", i, err)
	}
	l, _ := s.Layer(0)
	if !l.Visible || l.Opacity != 1 || l.Mode != blend.Normal || l.Pixels == nil {
		t.Errorf("new layer defaults = %+v", l)
	}
	if l.Pixels.Width() != 8 || l.Pixels.Height() != 8 {
		t.Errorf("pixels %dx%d, want 8x8", l.Pixels.Width(), l.Pixels.Height())
	}

	if _, err := s.Add(KindGroup, 1, "g"); err != nil {
		t.Fatal(err)
	}
	// Adding on top of a group nests the new layer inside it.
	if _, err := s.Add(KindNormal, 2, "child"); err != nil {
		t.Fatal(err)
	}
	if got := depths(s); !equalInts(got, []int{0, 0, 1}) {
		t.Errorf("depths = %v, want [0 0 1]", got)
	}
	if s.Active() != 2 {
		t.Errorf("Active() = %d, want 2", s.Active())
	}
	g, _ := s.Layer(1)
	if g.Pixels != nil {
		t.Error("group should have no pixels")
	}

	if _, err := s.Add(KindNormal, 5, "x"); !errors.Is(err, ErrIndex) {
		t.Errorf("Add(out of range) error = %v, want ErrIndex", err)
	}
}

func TestAddAbove(t *testing.T) {
	s := build(t, entry{KindNormal, 0}, entry{KindGroup, 0}, entry{KindNormal, 1}, entry{KindNormal, 0})
	if err := s.SetActive(1); err != nil {
		t.Fatal(err)
	}
	at := s.AddAbove(KindNormal, "new")
	if at != 3 {
		t.Errorf("AddAbove() = %d, want 3", at)
	}
	if got := names(s); !equalStrings(got, []string{"L0", "L1", "L2", "new", "L3"}) {
		t.Errorf("names = %v", got)
	}
	if got := depths(s); !equalInts(got, []int{0, 0, 1, 0, 0}) {
		t.Errorf("depths = %v", got)
	}

	e := NewStack(2, 2, Options{Debug: true})
	if at := e.AddAbove(KindNormal, "first"); at != 0 || e.Active() != 0 {
		t.Errorf("AddAbove() on empty = %d, active %d", at, e.Active())
	}
}

func TestRemove(t *testing.T) {
	tests := []struct {
		name       string
		active     int
		remove     int
		wantNames  []string
		wantActive int
	}{
		{"group takes children", 0, 1, []string{"L0", "L3"}, 0},
		{"active inside removed", 2, 1, []string{"L0", "L3"}, 1},
		{"active above shifts", 3, 1, []string{"L0", "L3"}, 1},
		{"leaf", 3, 2, []string{"L0", "L1", "L3"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := build(t, entry{KindNormal, 0}, entry{KindGroup, 0}, entry{KindNormal, 1}, entry{KindNormal, 0})
			_ = s.SetActive(tt.active)
			if err := s.Remove(tt.remove); err != nil {
				t.Fatal(err)
			}
			if got := names(s); !equalStrings(got, tt.wantNames) {
				t.Errorf("names = %v, want %v", got, tt.wantNames)
			}
			if s.Active() != tt.wantActive {
				t.Errorf("Active() = %d, want %d", s.Active(), tt.wantActive)
			}
		})
	}

	s := build(t, entry{KindNormal, 0})
	if err := s.Remove(0); err != nil {
		t.Fatal(err)
	}
	if s.Active() != -1 {
		t.Errorf("Active() after removing last = %d, want -1", s.Active())
	}
}

func TestMove(t *testing.T) {
	t.Run("into group", func(t *testing.T) {
		s := build(t, entry{KindNormal, 0}, entry{KindGroup, 0}, entry{KindNormal, 1})
		_ = s.SetActive(0)
		// After removing L0 the stack is [L1 L2]; index 2 is the top, after a child.
		if err := s.Move(0, 2); err != nil {
			t.Fatal(err)
		}
		if got := names(s); !equalStrings(got, []string{"L1", "L2", "L0"}) {
			t.Errorf("names = %v", got)
		}
		if got := depths(s); !equalInts(got, []int{0, 1, 1}) {
			t.Errorf("depths = %v", got)
		}
		if s.Active() != 2 {
			t.Errorf("Active() = %d, want 2", s.Active())
		}
	})
	t.Run("group with subtree", func(t *testing.T) {
		s := build(t, entry{KindNormal, 0}, entry{KindGroup, 0}, entry{KindNormal, 1}, entry{KindNormal, 0})
		_ = s.SetActive(3)
		if err := s.Move(1, 0); err != nil {
			t.Fatal(err)
		}
		if got := names(s); !equalStrings(got, []string{"L1", "L2", "L0", "L3"}) {
			t.Errorf("names = %v", got)
		}
		if got := depths(s); !equalInts(got, []int{0, 1, 0, 0}) {
			t.Errorf("depths = %v", got)
		}
		if s.Active() != 3 {
			t.Errorf("Active() = %d, want 3", s.Active())
		}
	})
	t.Run("out of range", func(t *testing.T) {
		s := build(t, entry{KindNormal, 0}, entry{KindNormal, 0})
		if err := s.Move(0, 3); !errors.Is(err, ErrIndex) {
			t.Errorf("Move() error = %v, want ErrIndex", err)
		}
	})
}

func TestDuplicate(t *testing.T) {
	s := build(t, entry{KindGroup, 0}, entry{KindNormal, 1}, entry{KindNormal, 0})
	src, _ := s.Layer(1)
	src.Pixels.SetRGBA(1, 1, 255, 0, 0, 255)

	at, err := s.Duplicate(0)
	if err != nil {
		t.Fatal(err)
	}
	if at != 2 {
		t.Errorf("Duplicate() = %d, want 2", at)
	}
	if got := names(s); !equalStrings(got, []string{"L0", "L1", "L0 copy", "L1", "L2"}) {
		t.Errorf("names = %v", got)
	}
	dup, _ := s.Layer(3)
	if dup.Pixels == src.Pixels {
		t.Fatal("duplicate shares pixels with source")
	}
	if !dup.Pixels.Equal(src.Pixels) {
		t.Error("duplicate pixels differ from source")
	}
	src.Pixels.SetRGBA(2, 2, 0, 255, 0, 255)
	if dup.Pixels.Equal(src.Pixels) {
		t.Error("duplicate follows later source edits")
	}
}

func TestGroupUngroup(t *testing.T) {
	s := build(t, entry{KindNormal, 0}, entry{KindNormal, 0}, entry{KindNormal, 0}, entry{KindNormal, 0})
	at, err := s.Group([]int{2, 0}, "g")
	if err != nil {
		t.Fatal(err)
	}
	if at != 1 {
		t.Errorf("Group() = %d, want 1", at)
	}
	if got := names(s); !equalStrings(got, []string{"L1", "g", "L0", "L2", "L3"}) {
		t.Errorf("names = %v", got)
	}
	if got := depths(s); !equalInts(got, []int{0, 0, 1, 1, 0}) {
		t.Errorf("depths = %v", got)
	}
	if got := s.Children(1); !equalInts(got, []int{2, 3}) {
		t.Errorf("Children(1) = %v", got)
	}
	if s.Parent(3) != 1 || s.Parent(4) != -1 {
		t.Errorf("Parent() = %d, %d", s.Parent(3), s.Parent(4))
	}

	if err := s.Ungroup(1); err != nil {
		t.Fatal(err)
	}
	if got := names(s); !equalStrings(got, []string{"L1", "L0", "L2", "L3"}) {
		t.Errorf("names after ungroup = %v", got)
	}
	if got := depths(s); !equalInts(got, []int{0, 0, 0, 0}) {
		t.Errorf("depths after ungroup = %v", got)
	}
	if err := s.Ungroup(0); !errors.Is(err, ErrNotGroup) {
		t.Errorf("Ungroup(pixel layer) error = %v, want ErrNotGroup", err)
	}
}

func TestGroupRejectsNonSiblings(t *testing.T) {
	s := build(t, entry{KindGroup, 0}, entry{KindNormal, 1}, entry{KindNormal, 0})
	if _, err := s.Group([]int{1, 2}, "g"); !errors.Is(err, ErrSiblings) {
		t.Errorf("Group() error = %v, want ErrSiblings", err)
	}
}

func TestClipBase(t *testing.T) {
	s := build(t,
		entry{KindNormal, 0}, // 0 base
		entry{KindNormal, 0}, // 1 clipped
		entry{KindGroup, 0},  // 2
		entry{KindNormal, 1}, // 3 clipped, first child: no base
		entry{KindNormal, 0}, // 4 clipped, base is the group
	)
	for _, i := range []int{1, 3, 4} {
		_ = s.SetClipped(i, true)
	}
	tests := []struct{ i, want int }{{0, -1}, {1, 0}, {3, -1}, {4, 2}}
	for _, tt := range tests {
		if got := s.ClipBase(tt.i); got != tt.want {
			t.Errorf("ClipBase(%d) = %d, want %d", tt.i, got, tt.want)
		}
	}
}

func TestClipBaseSkipsHidden(t *testing.T) {
	s := build(t,
		entry{KindNormal, 0}, // 0 visible base
		entry{KindNormal, 0}, // 1 hidden
		entry{KindNormal, 0}, // 2 clipped
	)
	_ = s.SetClipped(2, true)
	_ = s.SetVisible(1, false)
	if got := s.ClipBase(2); got != 0 {
		t.Errorf("ClipBase(2) = %d, want 0", got)
	}
	_ = s.SetVisible(0, false)
	if got := s.ClipBase(2); got != -1 {
		t.Errorf("ClipBase(2) with no visible base = %d, want -1", got)
	}
}

func TestRestoreKeepsActive(t *testing.T) {
	s := NewStack(8, 8, Options{})
	s.AddAbove(KindNormal, "a")
	s.AddAbove(KindNormal, "b")
	tests := []struct {
		name   string
		active int
		want   int
	}{
		{"in range", 1, 1},
		{"negative", -1, 0},
		{"past end", 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Restore(8, 8, s.Layers(), tt.active, Options{Debug: true})
			if err != nil {
				t.Fatalf("Restore() error = %v", err)
			}
			if r.Len() != 2 {
				t.Errorf("Len() = %d, want 2", r.Len())
			}
			if got := r.Active(); got != tt.want {
				t.Errorf("Active() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRestoreEmpty(t *testing.T) {
	r, err := Restore(4, 4, nil, 3, Options{})
	if err != nil {
		t.Fatalf("Restore(nil) error = %v", err)
	}
	if r.Active() != -1 {
		t.Errorf("Active() = %d, want -1", r.Active())
	}
}

func TestSnapshotExcludesPrivate(t *testing.T) {
	s := build(t, entry{KindNormal, 0}, entry{KindGroup, 0}, entry{KindNormal, 1}, entry{KindNormal, 0})
	_ = s.SetPrivate(1, true)
	snap := s.Snapshot()
	if len(snap) != 2 || snap[0].Name != "L0" || snap[1].Name != "L3" {
		t.Fatalf("Snapshot() names = %v", snap)
	}
	orig, _ := s.Layer(0)
	if snap[0].Pixels == orig.Pixels {
		t.Error("Snapshot() shares pixels")
	}
}

func TestSetters(t *testing.T) {
	s := build(t, entry{KindNormal, 0}, entry{KindGroup, 0})
	rev := s.Revision()
	_ = s.SetOpacity(0, 2)
	_ = s.SetMode(0, blend.Mode(200))
	l, _ := s.Layer(0)
	if l.Opacity != 1 {
		t.Errorf("Opacity = %v, want 1", l.Opacity)
	}
	if l.Mode != blend.Normal {
		t.Errorf("Mode = %v, want Normal", l.Mode)
	}
	if s.Revision() <= rev {
		t.Error("Revision() did not increase")
	}
	if err := s.SetExpanded(0, false); !errors.Is(err, ErrNotGroup) {
		t.Errorf("SetExpanded(pixel layer) error = %v", err)
	}
	if err := s.SetVisible(9, false); !errors.Is(err, ErrIndex) {
		t.Errorf("SetVisible(9) error = %v", err)
	}
}

func TestDamage(t *testing.T) {
	s := build(t, entry{KindNormal, 0})
	s.TakeDamage()
	s.MarkDirty(image.Rect(1, 1, 2, 2))
	s.MarkDirty(image.Rect(3, 3, 10, 10))
	if got, want := s.TakeDamage(), image.Rect(1, 1, 4, 4); got != want {
		t.Errorf("TakeDamage() = %v, want %v", got, want)
	}
	if got := s.TakeDamage(); !got.Empty() {
		t.Errorf("second TakeDamage() = %v, want empty", got)
	}
	_ = s.SetName(0, "renamed")
	if got := s.TakeDamage(); !got.Empty() {
		t.Errorf("rename damage = %v, want empty", got)
	}
}

func TestRestoreRejectsBadDepth(t *testing.T) {
	s := NewStack(4, 4, Options{})
	a := s.newLayer(KindNormal, "a")
	b := s.newLayer(KindNormal, "b")
	b.Depth = 1
	if _, err := Restore(4, 4, []Layer{*a, *b}, 0, Options{}); !errors.Is(err, ErrInvalidStack) {
		t.Errorf("Restore() error = %v, want ErrInvalidStack", err)
	}
}
