package main

import (
	"context"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestModel(t *testing.T) (model, *memStore) {
	t.Helper()
	s, store := newTestSession(t)
	cfg := DefaultConfig()
	cfg.StartMenu = false
	cfg.SaveDirectory = t.TempDir()
	m := newModel(context.Background(), cfg, s, zap.NewNop())
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, store
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func mouse(action tea.MouseAction, x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: tea.MouseButtonLeft}
}

func TestModelResizeSetsViewport(t *testing.T) {
	m, _ := newTestModel(t)
	assert.Equal(t, Size{W: 1000, H: 780}, m.ctrl.Viewport())
}

func TestModelMouseDragMovesNode(t *testing.T) {
	m, _ := newTestModel(t)
	a := m.ctrl.Graph().CreateNode(0, 0)

	m = update(t, m, mouse(tea.MouseActionPress, 5, 2))
	assert.Equal(t, ModeDraggingNode, m.ctrl.Mode())
	m = update(t, m, mouse(tea.MouseActionMotion, 10, 3))
	m = update(t, m, mouse(tea.MouseActionRelease, 10, 3))

	got, _ := m.ctrl.Graph().Node(a.ID)
	assert.Equal(t, Point{50, 20}, got.Origin())
	assert.Contains(t, m.View(), "Mode: NORMAL")
}

func TestModelDoubleClickAndTitleEdit(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, mouse(tea.MouseActionPress, 20, 10))
	m = update(t, m, mouse(tea.MouseActionRelease, 20, 10))
	m = update(t, m, mouse(tea.MouseActionPress, 20, 10))
	require.Equal(t, 1, m.ctrl.Graph().NodeCount())
	id := m.ctrl.Selection()[0]
	n, _ := m.ctrl.Graph().Node(id)
	assert.Equal(t, Point{205, 210}, Centre(n))
	m = update(t, m, mouse(tea.MouseActionRelease, 20, 10))

	m = update(t, m, key(tea.KeyEnter))
	require.NotNil(t, m.overlay)
	assert.Equal(t, ModeEditing, m.ctrl.Mode())
	assert.Contains(t, m.View(), "Edit title")

	m = update(t, m, key(tea.KeyCtrlZ))
	assert.Equal(t, 1, m.ctrl.History().UndoDepth(), "undo is typed into the editor, not run")

	m = update(t, m, runes("!"))
	m = update(t, m, key(tea.KeyEnter))
	assert.Nil(t, m.overlay)
	n, _ = m.ctrl.Graph().Node(id)
	assert.Equal(t, defaultNodeTitle+"!", n.Title)
	assert.Equal(t, 2, m.ctrl.History().UndoDepth())
}

func TestModelEscapeCancelsEdit(t *testing.T) {
	m, _ := newTestModel(t)
	a := m.ctrl.Graph().CreateNode(0, 0)
	require.True(t, m.ctrl.BeginEdit(EditNodeDescription, a.ID))
	m = update(t, m, runes("x"))
	require.NotNil(t, m.overlay)

	m = update(t, m, runes("y"))
	m = update(t, m, key(tea.KeyEsc))
	assert.Nil(t, m.overlay)
	got, _ := m.ctrl.Graph().Node(a.ID)
	assert.Equal(t, "", got.Description)
}

func TestModelConfirmQuitWhenDirty(t *testing.T) {
	m, _ := newTestModel(t)

	next, cmd := m.Update(key(tea.KeyCtrlQ))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	m = next.(model)
	m.ctrl.CreateNodeAt(Point{10, 10})
	m = update(t, m, key(tea.KeyCtrlQ))
	assert.Equal(t, ScreenConfirm, m.screen)
	assert.Contains(t, m.View(), "Quit flowboard?")

	m = update(t, m, runes("n"))
	assert.Equal(t, ScreenCanvas, m.screen)

	m = update(t, m, key(tea.KeyCtrlQ))
	_, cmd = m.Update(runes("y"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelSaveFlow(t *testing.T) {
	m, store := newTestModel(t)
	m.ctrl.CreateNodeAt(Point{100, 100})

	m = update(t, m, key(tea.KeyCtrlS))
	require.Equal(t, ScreenFileInput, m.screen)
	m = update(t, m, runes("plan"))

	next, cmd := m.Update(key(tea.KeyEnter))
	m = next.(model)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Equal(t, ScreenCanvas, m.screen)

	msg := cmd()
	done, ok := msg.(saveDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	m = update(t, m, msg)
	defer m.closeWatcher()
	assert.False(t, m.busy)
	assert.False(t, m.ctrl.Dirty())
	assert.Equal(t, "plan", m.session.Name())
	assert.Contains(t, store.blobs, m.cfg.SavePath("plan"))
	assert.Contains(t, m.successMessage, "Saved")
}

func TestModelSaveKeepsOpenedPath(t *testing.T) {
	tests := []struct {
		name string
		path func(dir string) string
	}{
		{"inside save directory", func(dir string) string { return filepath.Join(dir, "diagram.flow") }},
		{"outside save directory", func(string) string { return "/elsewhere/diagram.flow" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store := newTestModel(t)
			path := tt.path(m.cfg.SaveDirectory)
			data, err := EncodeProject(Project{
				Meta:  ProjectMeta{Name: "Roadmap", Canvas: CanvasState{Zoom: 1}},
				Nodes: NodeMap{"a": testNode("a", 0, 0)},
			})
			require.NoError(t, err)
			store.blobs[path] = data

			open := m.openCmd(path)
			require.NotNil(t, open)
			m = update(t, m, open())
			defer m.closeWatcher()
			require.Equal(t, path, m.session.Path())
			require.Equal(t, "Roadmap", m.session.Name())
			m.ctrl.CreateNodeAt(Point{400, 400})

			m = update(t, m, key(tea.KeyCtrlS))
			require.NotNil(t, m.prompt)
			assert.Equal(t, path, m.prompt.Value())

			next, cmd := m.Update(key(tea.KeyEnter))
			m = next.(model)
			require.NotNil(t, cmd)
			m = update(t, m, cmd())

			assert.Equal(t, []string{"save " + path}, store.requests)
			assert.Equal(t, path, m.session.Path())
			assert.False(t, m.ctrl.Dirty())
		})
	}
}

func TestModelCancelledIOIsQuiet(t *testing.T) {
	m, _ := newTestModel(t)
	m.ctrl.CreateNodeAt(Point{100, 100})

	m = update(t, m, saveDoneMsg{job: SaveJob{Path: "/p/plan.flow"}, err: context.Canceled})
	assert.Empty(t, m.errorMessage)
	assert.True(t, m.ctrl.Dirty())
	assert.Empty(t, m.session.Path())

	m = update(t, m, exportDoneMsg{path: "/p/plan.png", err: context.DeadlineExceeded})
	assert.Empty(t, m.errorMessage)
	assert.Empty(t, m.successMessage)

	m = update(t, m, saveDoneMsg{job: SaveJob{Path: "/p/plan.flow"}, err: ErrInvalidProject})
	assert.Contains(t, m.errorMessage, "invalid project")
}

func TestModelStatusShowsHistory(t *testing.T) {
	m, _ := newTestModel(t)
	assert.NotContains(t, m.statusLine(), "undo")
	assert.NotContains(t, m.statusLine(), "redo")

	m.ctrl.CreateNodeAt(Point{100, 100})
	assert.Contains(t, m.statusLine(), "| undo |")

	m = update(t, m, key(tea.KeyCtrlZ))
	assert.Contains(t, m.statusLine(), "| redo")
	assert.NotContains(t, m.statusLine(), "undo")

	m.ctrl.CreateNodeAt(Point{100, 100})
	m.ctrl.CreateNodeAt(Point{300, 100})
	m = update(t, m, key(tea.KeyCtrlZ))
	assert.Contains(t, m.statusLine(), "| undo/redo")
}

func TestModelPromptEscapeReturns(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(t, m, key(tea.KeyCtrlE))
	require.Equal(t, ScreenFileInput, m.screen)
	m = update(t, m, key(tea.KeyEsc))
	assert.Equal(t, ScreenCanvas, m.screen)
	assert.Nil(t, m.prompt)
}

func TestModelExportEmptyCanvas(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(t, m, key(tea.KeyCtrlE))
	m = update(t, m, key(tea.KeyEnter))
	assert.Equal(t, "Nothing to export", m.errorMessage)
	assert.False(t, m.busy)
}

func TestModelOpenFailureKeepsCanvas(t *testing.T) {
	m, _ := newTestModel(t)
	m.ctrl.CreateNodeAt(Point{100, 100})

	m = update(t, m, openDoneMsg{path: "/x.flow", err: ErrInvalidProject})
	assert.Equal(t, 1, m.ctrl.Graph().NodeCount())
	assert.Contains(t, m.errorMessage, "invalid project")
}

func TestModelKeyboardCommands(t *testing.T) {
	m, _ := newTestModel(t)
	m.ctrl.CreateNodeAt(Point{100, 100})
	require.Len(t, m.ctrl.Selection(), 1)

	m = update(t, m, key(tea.KeyCtrlT))
	n, _ := m.ctrl.Graph().Node(m.ctrl.Selection()[0])
	assert.True(t, n.Collapsed)

	m = update(t, m, runes("+"))
	assert.InDelta(t, 1.1, m.ctrl.Camera().Scale, 1e-9)
	m = update(t, m, runes("0"))
	assert.Equal(t, 1.0, m.ctrl.Camera().Scale)

	before := m.ctrl.Camera()
	m = update(t, m, key(tea.KeyLeft))
	assert.Equal(t, before.X+defaultKeyPanStep, m.ctrl.Camera().X)

	m = update(t, m, key(tea.KeyDelete))
	assert.Equal(t, 0, m.ctrl.Graph().NodeCount())
	m = update(t, m, key(tea.KeyCtrlZ))
	assert.Equal(t, 1, m.ctrl.Graph().NodeCount())
	m = update(t, m, key(tea.KeyCtrlY))
	assert.Equal(t, 0, m.ctrl.Graph().NodeCount())
}

func TestModelHelpToggle(t *testing.T) {
	m, _ := newTestModel(t)
	m = update(t, m, runes("?"))
	assert.True(t, m.help)
	assert.Contains(t, m.View(), "flowboard help")

	m = update(t, m, mouse(tea.MouseActionPress, 5, 5))
	assert.Equal(t, 0, m.ctrl.Graph().NodeCount())

	m = update(t, m, key(tea.KeyEsc))
	assert.False(t, m.help)
}

func TestModelStartupScreen(t *testing.T) {
	s, _ := newTestSession(t)
	m := newModel(context.Background(), DefaultConfig(), s, zap.NewNop())
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	require.Equal(t, ScreenStartup, m.screen)

	m = update(t, m, recentLoadedMsg{items: []RecentProject{{Name: "alpha", FilePath: "/p/alpha.flow"}}})
	assert.Contains(t, m.View(), "alpha")

	m = update(t, m, runes("n"))
	assert.Equal(t, ScreenCanvas, m.screen)
}

func TestModelOpenOnStart(t *testing.T) {
	s, store := newTestSession(t)
	data, err := EncodeProject(Project{
		Meta:  ProjectMeta{Name: "boot", Canvas: CanvasState{Zoom: 1}},
		Nodes: NodeMap{"a": testNode("a", 0, 0)},
	})
	require.NoError(t, err)
	store.blobs["/p/boot.flow"] = data

	m := newModel(context.Background(), DefaultConfig(), s, zap.NewNop()).openOnStart("/p/boot.flow")
	assert.Equal(t, ScreenCanvas, m.screen)
	msg := m.Init()()
	m = update(t, m, msg)
	defer m.closeWatcher()

	assert.Equal(t, 1, m.ctrl.Graph().NodeCount())
	assert.Equal(t, "boot", m.session.Name())
	assert.False(t, m.busy)
}

func TestModelForeignFileChange(t *testing.T) {
	m, _ := newTestModel(t)
	m.watcher = &projectWatcher{path: "/p/plan.flow", events: make(chan fileChangedMsg, 1), stopCh: make(chan struct{})}

	m = update(t, m, fileChangedMsg{path: "/p/plan.flow"})
	assert.Contains(t, m.errorMessage, "changed on disk")

	m.errorMessage = ""
	m = update(t, m, fileChangedMsg{path: "/p/other.flow"})
	assert.Empty(t, m.errorMessage)
}
