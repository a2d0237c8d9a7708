package paint

import "strings"

// Tool selects what pointer input does.
type Tool uint8

const (
	// ToolBrush paints dabs with the current profile.
	ToolBrush Tool = iota
	// ToolEraser removes paint with the current profile.
	ToolEraser
	// ToolLine draws a straight line from press to release.
	ToolLine
	// ToolRect draws a rectangle outline spanning press and release.
	ToolRect
	// ToolEllipse draws an ellipse outline inscribed in the dragged box.
	ToolEllipse
	// ToolLasso selects the polygon traced by the pointer.
	ToolLasso
	// ToolRectSelect selects the dragged box.
	ToolRectSelect
	// ToolTransform moves the active layer, or its selected pixels.
	ToolTransform
	// ToolHand pans the view.
	ToolHand

	toolCount
)

var toolNames = [toolCount]string{
	"brush", "eraser", "line", "rect", "ellipse", "lasso", "rect-select", "transform", "hand",
}

// String returns the tool name.
func (t Tool) String() string {
	if t < toolCount {
		return toolNames[t]
	}
	return "unknown"
}

// ParseTool returns the tool with the given name, case-insensitively.
func ParseTool(name string) (Tool, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range toolNames {
		if n == name {
			return Tool(i), true
		}
	}
	return ToolBrush, false
}

// paints reports whether the tool writes layer pixels.
func (t Tool) paints() bool {
	switch t {
	case ToolBrush, ToolEraser, ToolLine, ToolRect, ToolEllipse:
		return true
	}
	return false
}
