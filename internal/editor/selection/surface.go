package selection

// Surface abstracts the live rendering surface that owns the authoritative
// cursor state. The engine never assumes a specific implementation; a
// headless surface backs the test suite and the HTTP sessions.
type Surface interface {
	// Selection returns the current selection, or false when there is none.
	Selection() (Selection, bool)
	// SetSelection replaces the current selection.
	SetSelection(Selection)
	// ClearSelection discards the current selection.
	ClearSelection()
}

// Headless is an in-memory Surface.
type Headless struct {
	sel Selection
	set bool
}

// NewHeadless creates a headless surface with no selection.
func NewHeadless() *Headless {
	return &Headless{}
}

// Selection returns the stored selection.
func (h *Headless) Selection() (Selection, bool) {
	return h.sel, h.set
}

// SetSelection stores a selection.
func (h *Headless) SetSelection(s Selection) {
	h.sel = s
	h.set = true
}

// ClearSelection discards the stored selection.
func (h *Headless) ClearSelection() {
	h.sel = Selection{}
	h.set = false
}
