package paint

import (
	"errors"

	"github.com/gogpu/paint/abr"
	"github.com/gogpu/paint/internal/brush"
	pimage "github.com/gogpu/paint/internal/image"
)

// Error kinds reported by the engine. Errors returned by Engine methods
// wrap one of these so callers can test with errors.Is.
var (
	// ErrOutOfRange reports a parameter that was clamped.
	ErrOutOfRange = brush.ErrOutOfRange

	// ErrInvalidBuffer reports an operation on a missing or mismatched
	// buffer, such as drawing while a group is the active layer.
	ErrInvalidBuffer = pimage.ErrInvalidBuffer

	// ErrMalformedArchive reports an unreadable brush archive. The wrapped
	// *abr.ParseError carries the byte offset.
	ErrMalformedArchive = abr.ErrMalformed

	// ErrCancelled reports a user cancellation.
	ErrCancelled = errors.New("paint: cancelled")

	// ErrBusy reports a command refused while a transform or pointer
	// gesture is in progress.
	ErrBusy = errors.New("paint: busy")

	// ErrLocked reports drawing or transforming a locked layer.
	ErrLocked = errors.New("paint: layer locked")
)
