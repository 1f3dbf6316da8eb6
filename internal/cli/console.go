package cli

import (
	"fmt"
	"io"

	"github.com/briangreenhill/mapty/internal/app"
	"github.com/briangreenhill/mapty/internal/workout"
)

// console renders list entries and alerts as text. Map and form calls
// have no terminal equivalent and are dropped.
type console struct {
	w     io.Writer
	quiet bool
}

func (c *console) views() app.Views {
	return app.Views{Map: c, Form: c, List: c, Notify: c}
}

func (c *console) Initialize(workout.Coords, int) {}
func (c *console) AddMarker(workout.Coords, workout.MarkerPopup) {}
func (c *console) SetView(workout.Coords, int, bool) {}
func (c *console) Show() {}
func (c *console) Hide() {}
func (c *console) ClearFields() {}
func (c *console) ToggleCadenceElevation() {}

func (c *console) RenderEntry(entry workout.ListEntry) {
	if c.quiet {
		return
	}
	fmt.Fprintln(c.w, entry.String())
}

func (c *console) Alert(message string) {
	fmt.Fprintf(c.w, "! %s\n", message)
}
