package paint

import "image"

// EventKind classifies engine notifications.
type EventKind uint8

const (
	// EventDamage reports composite pixels that changed; Rect is set.
	EventDamage EventKind = iota
	// EventLayers reports a change to the layer list or layer properties.
	EventLayers
	// EventSelection reports a selection change; Rect is the new bounds.
	EventSelection
	// EventTransform reports a transform starting or ending.
	EventTransform
	// EventCatalog reports a newly imported brush catalog.
	EventCatalog
	// EventConfig reports that a configuration was applied.
	EventConfig
	// EventTool reports a tool, brush or color change.
	EventTool
)

func (k EventKind) String() string {
	switch k {
	case EventDamage:
		return "damage"
	case EventLayers:
		return "layers"
	case EventSelection:
		return "selection"
	case EventTransform:
		return "transform"
	case EventCatalog:
		return "catalog"
	case EventConfig:
		return "config"
	case EventTool:
		return "tool"
	}
	return "unknown"
}

// Event is delivered to observers on the paint thread.
type Event struct {
	Kind EventKind
	Rect image.Rectangle
	// Layer is the active layer index after the change.
	Layer int
}
