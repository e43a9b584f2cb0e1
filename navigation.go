package main

import tea "github.com/charmbracelet/bubbletea"

// handleNavigation pans the camera with the arrow keys, or resizes the
// selected nodes when alt is held. Shift doubles the step.
func (m *model) handleNavigation(key string) bool {
	step := m.cfg.Canvas.KeyPanStep * float64(getMoveSpeed(key))
	switch key {
	case "alt+left", "alt+shift+left":
		return m.ctrl.ResizeSelection(-step, 0)
	case "alt+right", "alt+shift+right":
		return m.ctrl.ResizeSelection(step, 0)
	case "alt+up", "alt+shift+up":
		return m.ctrl.ResizeSelection(0, -step)
	case "alt+down", "alt+shift+down":
		return m.ctrl.ResizeSelection(0, step)
	}
	return m.handlePan(key, step)
}

// handlePan moves the view; the canvas slides opposite to the key.
func (m *model) handlePan(key string, step float64) bool {
	switch key {
	case "left", "shift+left":
		m.ctrl.PanBy(Point{X: step})
	case "right", "shift+right":
		m.ctrl.PanBy(Point{X: -step})
	case "up", "shift+up":
		m.ctrl.PanBy(Point{Y: step})
	case "down", "shift+down":
		m.ctrl.PanBy(Point{Y: -step})
	default:
		return false
	}
	return true
}

func getMoveSpeed(key string) int {
	switch key {
	case "shift+left", "shift+right", "shift+up", "shift+down",
		"alt+shift+left", "alt+shift+right", "alt+shift+up", "alt+shift+down":
		return 2
	default:
		return 1
	}
}

func isNavigationKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyLeft, tea.KeyRight, tea.KeyUp, tea.KeyDown,
		tea.KeyShiftLeft, tea.KeyShiftRight, tea.KeyShiftUp, tea.KeyShiftDown:
		return true
	}
	return false
}
