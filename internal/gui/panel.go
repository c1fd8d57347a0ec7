package gui

// Panel describes one named window. X and Y are the requested screen
// position; fyne cannot place top-level windows so they are only logged.
type Panel struct {
	Name        string
	Title       string
	X, Y        int
	Width       int
	Height      int
	Interactive bool
}

const (
	PanelOriginal    = "original"
	PanelMask        = "mask"
	PanelInverseMask = "mask_inverse"
	PanelKept        = "kept"
	PanelReplacement = "replacement"
	PanelResult      = "result"
)

// Layout is the set of panels a run shows, keyed by name.
type Layout map[string]Panel

// DefaultLayout returns the six panels of a run, each width x height.
func DefaultLayout(width, height int) Layout {
	panel := func(name, title string, x int, interactive bool) Panel {
		return Panel{
			Name:        name,
			Title:       title,
			X:           x,
			Y:           0,
			Width:       width,
			Height:      height,
			Interactive: interactive,
		}
	}

	return Layout{
		PanelOriginal:    panel(PanelOriginal, "Original", 0, false),
		PanelMask:        panel(PanelMask, "Mask", width, true),
		PanelInverseMask: panel(PanelInverseMask, "Inverse mask", width, false),
		PanelKept:        panel(PanelKept, "Kept", 2*width, false),
		PanelReplacement: panel(PanelReplacement, "Replacement", width, false),
		PanelResult:      panel(PanelResult, "Result", width, false),
	}
}
