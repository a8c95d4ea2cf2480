// Package viewport picks presentation wording from the viewport width.
package viewport

// DefaultBreakpoint is the width, in CSS pixels, below which a viewport
// is treated as narrow (touch) rather than wide (pointer).
const DefaultBreakpoint = 600

const (
	NarrowHint = "Touch and drag to reorder"
	WideHint   = "Drag thumbnails to reorder"
)

// Narrow reports whether width is below breakpoint. A non-positive
// breakpoint uses [DefaultBreakpoint].
func Narrow(width, breakpoint int) bool {
	if breakpoint <= 0 {
		breakpoint = DefaultBreakpoint
	}
	return width < breakpoint
}

// Hint returns the reorder hint for a viewport of the given width.
func Hint(width, breakpoint int) string {
	if Narrow(width, breakpoint) {
		return NarrowHint
	}
	return WideHint
}
