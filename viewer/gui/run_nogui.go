//go:build !gui

package gui

// Run needs the gui build tag.
func Run(*Game) error {
	return ErrNoGUI
}
