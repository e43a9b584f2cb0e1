package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

type recentLoadedMsg struct {
	items []RecentProject
	err   error
}

type saveDoneMsg struct {
	job SaveJob
	err error
}

type openDoneMsg struct {
	path    string
	project Project
	err     error
}

type exportDoneMsg struct {
	path string
	err  error
}

var (
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
)

type model struct {
	ctx     context.Context
	cfg     Config
	logger  *zap.Logger
	session *Session
	ctrl    *Controller
	styles  GridStyles

	width  int
	height int

	screen     Screen
	returnTo   Screen
	help       bool
	helpScroll int

	overlay   *editOverlay
	overlayID string
	prompt    *filePrompt
	confirm   ConfirmAction

	recent      []RecentProject
	recentIndex int
	pendingOpen string

	busy           bool
	errorMessage   string
	successMessage string

	lastClickAt   time.Time
	lastClickCell [2]int

	watcher *projectWatcher
}

func newModel(ctx context.Context, cfg Config, session *Session, logger *zap.Logger) model {
	m := model{
		ctx:     ctx,
		cfg:     cfg,
		logger:  logger,
		session: session,
		ctrl:    session.Controller(),
		styles:  DefaultGridStyles(),
		screen:  ScreenCanvas,
	}
	if cfg.StartMenu {
		m.screen = ScreenStartup
	}
	return m
}

// openOnStart makes the first command load path instead of showing the
// start screen.
func (m model) openOnStart(path string) model {
	if path != "" {
		m.screen = ScreenCanvas
		m.busy = true
		m.returnTo = ScreenCanvas
		m.successMessage = "Opening " + projectName(path) + "…"
		m.pendingOpen = path
	}
	return m
}

func (m model) Init() tea.Cmd {
	if m.pendingOpen != "" {
		return m.openCmd(m.pendingOpen)
	}
	return m.loadRecentCmd()
}

func (m *model) loadRecentCmd() tea.Cmd {
	sess, ctx := m.session, m.ctx
	return func() tea.Msg {
		items, err := sess.Recent(ctx)
		return recentLoadedMsg{items: items, err: err}
	}
}

func (m *model) saveCmd(path string) tea.Cmd {
	job, ok, err := m.session.PrepareSave(path)
	if err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	if !ok {
		return nil
	}
	m.busy = true
	sess, ctx := m.session, m.ctx
	return func() tea.Msg {
		return saveDoneMsg{job: job, err: sess.WriteSave(ctx, job)}
	}
}

func (m *model) openCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	m.busy = true
	sess, ctx := m.session, m.ctx
	return func() tea.Msg {
		p, err := sess.ReadProject(ctx, path)
		return openDoneMsg{path: path, project: p, err: err}
	}
}

func (m *model) exportCmd(path string) tea.Cmd {
	job, ok, err := m.session.PrepareExport(path)
	if err != nil {
		if errors.Is(err, ErrEmptyCanvas) {
			m.errorMessage = "Nothing to export"
		} else {
			m.errorMessage = err.Error()
		}
		return nil
	}
	if !ok {
		return nil
	}
	m.busy = true
	sess, ctx := m.session, m.ctx
	return func() tea.Msg {
		return exportDoneMsg{path: job.Path, err: sess.WriteExport(ctx, job)}
	}
}

// watch follows path for outside modifications, replacing any previous
// watch.
func (m *model) watch(path string) tea.Cmd {
	if m.watcher != nil {
		if m.watcher.Path() == filepath.Clean(path) {
			return nil
		}
		m.watcher.Close()
		m.watcher = nil
	}
	w, err := newProjectWatcher(path, m.logger)
	if err != nil {
		m.logger.Warn("cannot watch project", zap.String("path", path), zap.Error(err))
		return nil
	}
	m.watcher = w
	return w.Next()
}

// ioFailed shows an I/O error. Cancelled work is not reported.
func (m *model) ioFailed(err error) {
	if IsCancelled(err) {
		return
	}
	m.errorMessage = err.Error()
}

func (m *model) closeWatcher() {
	if m.watcher != nil {
		m.watcher.Close()
		m.watcher = nil
	}
}

func (m model) canvasRows() int {
	rows := m.height - 1
	if panel := m.panel(); panel != "" {
		rows -= lipgloss.Height(panel)
	}
	if rows < 1 {
		rows = 1
	}
	return rows
}

// cellPoint maps a terminal cell to the screen point at its centre.
func (m model) cellPoint(x, y int) Point {
	cw, ch := m.cfg.Display.CellWidth, m.cfg.Display.CellHeight
	return Point{X: float64(x)*cw + cw/2, Y: float64(y)*ch + ch/2}
}

func (m *model) resize(w, h int) {
	m.width, m.height = w, h
	rows := h - 1
	if rows < 1 {
		rows = 1
	}
	m.ctrl.SetViewport(float64(w)*m.cfg.Display.CellWidth, float64(rows)*m.cfg.Display.CellHeight)
}

// syncOverlay opens or closes the text editor to match the controller.
func (m *model) syncOverlay() {
	e := m.ctrl.Editing()
	switch {
	case e == nil:
		m.overlay, m.overlayID = nil, ""
	case m.overlay == nil || m.overlayID != e.ID || m.overlay.target != e.Target:
		m.overlay = newEditOverlay(*e, m.width)
		m.overlayID = e.ID
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case recentLoadedMsg:
		if msg.err != nil {
			m.logger.Warn("recent projects unavailable", zap.Error(msg.err))
			return m, nil
		}
		m.recent = msg.items
		if m.recentIndex >= len(m.recent) {
			m.recentIndex = 0
		}
		if m.prompt != nil && m.prompt.op == FileOpOpen {
			m.prompt.recent = m.recent
		}
		return m, nil

	case saveDoneMsg:
		m.busy = false
		if err := m.session.CompleteSave(msg.job, msg.err); err != nil {
			m.ioFailed(err)
			return m, nil
		}
		m.successMessage = "Saved " + msg.job.Path
		return m, tea.Batch(m.watch(msg.job.Path), m.loadRecentCmd())

	case openDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.logger.Error("open failed", zap.String("path", msg.path), zap.Error(msg.err))
			m.ioFailed(msg.err)
			return m, nil
		}
		m.session.ApplyProject(msg.path, msg.project)
		m.syncOverlay()
		m.screen = ScreenCanvas
		m.successMessage = "Opened " + m.session.Name()
		return m, tea.Batch(m.watch(msg.path), m.loadRecentCmd())

	case exportDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.ioFailed(msg.err)
			return m, nil
		}
		m.successMessage = "Exported " + msg.path
		return m, nil

	case fileChangedMsg:
		if m.watcher == nil || msg.path != m.watcher.Path() {
			return m, nil
		}
		if !m.session.IsOwnWrite(msg.path, msg.at) {
			m.logger.Info("project changed on disk", zap.String("path", msg.path))
			m.errorMessage = "File changed on disk; saving will overwrite it"
		}
		return m, m.watcher.Next()

	case tea.MouseMsg:
		if m.busy || m.screen != ScreenCanvas || m.help {
			return m, nil
		}
		m.handleMouse(msg)
		m.syncOverlay()
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if m.help {
			return m.handleHelpKey(msg), nil
		}
		switch m.screen {
		case ScreenStartup:
			return m.handleStartupKey(msg)
		case ScreenFileInput:
			return m.handlePromptKey(msg)
		case ScreenConfirm:
			return m.handleConfirmKey(msg)
		}
		return m.handleCanvasKey(msg)
	}

	if m.overlay != nil {
		cmd := m.overlay.Update(msg)
		return m, cmd
	}
	if m.prompt != nil {
		cmd := m.prompt.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) handleMouse(msg tea.MouseMsg) {
	rows := m.canvasRows()
	inside := msg.Y >= 0 && msg.Y < rows && msg.X >= 0 && msg.X < m.width
	p := m.cellPoint(msg.X, msg.Y)

	switch {
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown:
		if inside && msg.Action == tea.MouseActionPress {
			m.ctrl.Wheel(p, msg.Button == tea.MouseButtonWheelUp)
		}

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if !inside {
			return
		}
		m.errorMessage, m.successMessage = "", ""
		now := time.Now()
		cellKey := [2]int{msg.X, msg.Y}
		window := time.Duration(m.cfg.Display.DoubleClickMilli) * time.Millisecond
		if cellKey == m.lastClickCell && now.Sub(m.lastClickAt) <= window {
			m.lastClickAt = time.Time{}
			m.ctrl.DoubleClick(p)
			return
		}
		m.lastClickAt, m.lastClickCell = now, cellKey
		m.ctrl.PointerDown(p, Modifiers{Toggle: msg.Ctrl || msg.Alt || msg.Shift})

	case msg.Action == tea.MouseActionMotion:
		if !inside {
			m.ctrl.PointerLeave()
			return
		}
		m.ctrl.PointerMove(p)

	case msg.Action == tea.MouseActionRelease:
		m.ctrl.PointerUp(p)
	}
}

func (m model) handleHelpKey(msg tea.KeyMsg) model {
	switch msg.String() {
	case "esc", "q", "?":
		m.help = false
		m.helpScroll = 0
	case "j", "down":
		if m.helpScroll < len(helpLines)-1 {
			m.helpScroll++
		}
	case "k", "up":
		if m.helpScroll > 0 {
			m.helpScroll--
		}
	}
	return m
}

func (m model) handleStartupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+q", "ctrl+c":
		return m, tea.Quit
	case "n":
		m.session.NewProject()
		m.screen = ScreenCanvas
		return m, nil
	case "o":
		return m.openPrompt(FileOpOpen, ScreenStartup)
	case "up", "k":
		if len(m.recent) > 0 {
			m.recentIndex = (m.recentIndex - 1 + len(m.recent)) % len(m.recent)
		}
	case "down", "j":
		if len(m.recent) > 0 {
			m.recentIndex = (m.recentIndex + 1) % len(m.recent)
		}
	case "enter":
		if m.recentIndex < len(m.recent) {
			m.errorMessage = ""
			cmd := m.openCmd(m.recent[m.recentIndex].FilePath)
			return m, cmd
		}
	}
	return m, nil
}

func (m model) openPrompt(op FileOperation, from Screen) (tea.Model, tea.Cmd) {
	initial := ""
	switch op {
	case FileOpSave:
		initial = m.session.Path()
	case FileOpExport:
		initial = m.session.Name()
	}
	m.prompt = newFilePrompt(op, initial, m.recent)
	m.returnTo = from
	m.screen = ScreenFileInput
	m.errorMessage = ""
	if op == FileOpOpen {
		return m, m.loadRecentCmd()
	}
	return m, nil
}

func (m model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompt = nil
		m.screen = m.returnTo
		m.errorMessage = ""
		return m, nil
	case tea.KeyEnter:
		p := m.prompt
		m.prompt = nil
		m.screen = m.returnTo
		value := p.Value()
		if value == "" {
			return m, nil
		}
		var cmd tea.Cmd
		switch p.op {
		case FileOpSave:
			path := m.cfg.SavePath(value)
			if value == m.session.Path() {
				path = value
			}
			cmd = m.saveCmd(path)
		case FileOpOpen:
			cmd = m.openCmd(m.cfg.SavePath(value))
		case FileOpExport:
			cmd = m.exportCmd(m.cfg.ImagePath(value))
		}
		return m, cmd
	}
	cmd := m.prompt.Update(msg)
	return m, cmd
}

// askConfirm runs action now, or asks first when there are unsaved
// changes and confirmations are on.
func (m model) askConfirm(action ConfirmAction) (tea.Model, tea.Cmd) {
	if m.cfg.Confirmations && m.ctrl.Dirty() {
		m.confirm = action
		m.returnTo = m.screen
		m.screen = ScreenConfirm
		return m, nil
	}
	return m.runConfirmed(action)
}

func (m model) runConfirmed(action ConfirmAction) (tea.Model, tea.Cmd) {
	switch action {
	case ConfirmQuit:
		return m, tea.Quit
	case ConfirmNewProject:
		m.session.NewProject()
		m.syncOverlay()
		m.closeWatcher()
		m.screen = ScreenCanvas
		m.successMessage = "New project"
		return m, nil
	case ConfirmOpenProject:
		return m.openPrompt(FileOpOpen, ScreenCanvas)
	}
	return m, nil
}

func (m model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.screen = m.returnTo
		return m.runConfirmed(m.confirm)
	case "n", "N", "esc":
		m.screen = m.returnTo
	}
	return m, nil
}

func (m model) handleCanvasKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.overlay != nil {
		return m.handleEditKey(msg)
	}
	m.errorMessage, m.successMessage = "", ""

	key := msg.String()
	switch key {
	case "ctrl+q":
		return m.askConfirm(ConfirmQuit)
	case "?":
		m.help = true
		return m, nil
	case "ctrl+s":
		return m.openPrompt(FileOpSave, ScreenCanvas)
	case "ctrl+o":
		return m.askConfirm(ConfirmOpenProject)
	case "ctrl+n":
		return m.askConfirm(ConfirmNewProject)
	case "ctrl+e":
		return m.openPrompt(FileOpExport, ScreenCanvas)
	case "ctrl+z":
		m.ctrl.Command(CmdUndo)
	case "ctrl+y", "ctrl+shift+z":
		m.ctrl.Command(CmdRedo)
	case "ctrl+c":
		if m.ctrl.Command(CmdCopy) {
			m.successMessage = fmt.Sprintf("Copied %d node(s)", len(m.ctrl.Selection()))
		}
	case "ctrl+v":
		m.ctrl.Command(CmdPaste)
	case "delete", "backspace":
		m.ctrl.Command(CmdDelete)
	case "esc":
		m.ctrl.Command(CmdEscape)
	case "ctrl+t":
		m.ctrl.Command(CmdToggleCollapse)
	case "enter":
		if sel := m.ctrl.Selection(); len(sel) == 1 {
			m.ctrl.BeginEdit(EditNodeTitle, sel[0])
		} else if id := m.ctrl.SelectedEdge(); id != "" {
			m.ctrl.BeginEdit(EditEdgeLabel, id)
		}
	case "+", "=":
		m.ctrl.ZoomCentre(true)
	case "-", "_":
		m.ctrl.ZoomCentre(false)
	case "0":
		m.ctrl.ResetZoom()
	case "f":
		m.ctrl.FitToContent()
	default:
		if isNavigationKey(msg) {
			m.handleNavigation(key)
		}
	}
	m.syncOverlay()
	return m, nil
}

func (m model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		m.ctrl.Command(CmdEscape)
		m.syncOverlay()
		return m, nil
	}
	if m.overlay.commits(msg) {
		m.ctrl.CommitEdit(m.overlay.Value())
		m.syncOverlay()
		return m, nil
	}
	cmd := m.overlay.Update(msg)
	m.ctrl.UpdateEditValue(m.overlay.Value())
	return m, cmd
}

// panel is the box drawn under the canvas: the text editor, the file
// prompt, or nothing.
func (m model) panel() string {
	switch {
	case m.screen == ScreenFileInput && m.prompt != nil:
		return m.prompt.View()
	case m.overlay != nil:
		return m.overlay.View()
	}
	return ""
}

func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.help {
		return m.helpView()
	}
	if m.screen == ScreenStartup {
		return m.startupView()
	}

	var b strings.Builder
	cw, ch := m.cfg.Display.CellWidth, m.cfg.Display.CellHeight
	rows := m.canvasRows()
	b.WriteString(RenderGrid(m.ctrl.Scene(), m.width, rows, cw, ch).View(m.styles))
	if panel := m.panel(); panel != "" {
		b.WriteString("\n")
		b.WriteString(panel)
	}
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return b.String()
}

func (m model) statusLine() string {
	var status string
	switch {
	case m.screen == ScreenConfirm:
		status = confirmMessage(m.confirm)
	case m.busy:
		status = "Working…"
	default:
		status = fmt.Sprintf("Mode: %s | %s | %d%% | %d nodes, %d edges",
			strings.ToUpper(m.ctrl.Mode().String()), m.session.Title(),
			int(math.Round(m.ctrl.Camera().Scale*100)),
			m.ctrl.Graph().NodeCount(), m.ctrl.Graph().EdgeCount())
		if h := m.ctrl.History(); h.CanUndo() || h.CanRedo() {
			status += " | " + historyHint(h.CanUndo(), h.CanRedo())
		}
		if n := len(m.ctrl.Selection()); n > 0 {
			status += fmt.Sprintf(" | %d selected", n)
		} else if m.ctrl.SelectedEdge() != "" {
			status += " | edge selected"
		}
	}
	line := statusStyle.Width(m.width).Render(status)
	switch {
	case m.errorMessage != "":
		line = statusStyle.Render(status+" | ") + errorStyle.Render("ERROR: "+m.errorMessage)
	case m.successMessage != "":
		line = statusStyle.Render(status+" | ") + successStyle.Render(m.successMessage)
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}

func historyHint(undo, redo bool) string {
	switch {
	case undo && redo:
		return "undo/redo"
	case undo:
		return "undo"
	case redo:
		return "redo"
	}
	return ""
}

func confirmMessage(a ConfirmAction) string {
	switch a {
	case ConfirmQuit:
		return "Quit flowboard? Unsaved changes will be lost. (y/n)"
	case ConfirmNewProject:
		return "Start a new project? Unsaved changes will be lost. (y/n)"
	case ConfirmOpenProject:
		return "Open another project? Unsaved changes will be lost. (y/n)"
	}
	return "Are you sure? (y/n)"
}

func (m model) startupView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("flowboard"))
	b.WriteString("\n\n")
	b.WriteString("  n  New project\n")
	b.WriteString("  o  Open project\n")
	b.WriteString("  q  Quit\n\n")
	if len(m.recent) == 0 {
		b.WriteString(hintStyle.Render("No recent projects"))
	} else {
		b.WriteString("Recent projects\n")
		for i, r := range m.recent {
			cursor := "  "
			if i == m.recentIndex {
				cursor = "> "
			}
			b.WriteString(fmt.Sprintf("%s%-24s %s\n", cursor, r.Name,
				hintStyle.Render("modified "+r.Modified.Format("2006-01-02 15:04")+" · created "+r.Created.Format("2006-01-02"))))
		}
		b.WriteString(hintStyle.Render("↑/↓ select · enter open"))
	}
	if m.errorMessage != "" {
		b.WriteString("\n\n" + errorStyle.Render("ERROR: "+m.errorMessage))
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, overlayStyle.Render(b.String()))
}

var helpLines = []string{
	"flowboard help",
	"==============",
	"",
	"Mouse:",
	"------",
	"  Click node              Select it",
	"  Ctrl/Alt/Shift+click    Add or remove a node from the selection",
	"  Drag node               Move it (and the rest of the selection)",
	"  Drag bottom-right       Resize a selected node",
	"  Drag from a ● handle    Draw a connection; release near another handle",
	"  Drag empty canvas       Pan",
	"  Wheel                   Zoom about the pointer",
	"  Double-click header     Edit title",
	"  Double-click body       Edit description",
	"  Double-click edge       Edit label",
	"  Double-click empty      New node",
	"",
	"Keyboard:",
	"---------",
	"  ←/↑/→/↓                 Pan (shift for faster)",
	"  Alt+←/↑/→/↓             Resize selected nodes",
	"  + / -                   Zoom in / out",
	"  0                       Reset zoom",
	"  f                       Fit all nodes",
	"  Enter                   Edit title of the selected node or edge label",
	"  Ctrl+T                  Collapse / expand selected nodes",
	"  Delete/Backspace        Delete selection",
	"  Ctrl+C / Ctrl+V         Copy / paste nodes",
	"  Ctrl+Z                  Undo",
	"  Ctrl+Y                  Redo",
	"  Esc                     Cancel or clear selection",
	"",
	"Editing:",
	"--------",
	"  Enter                   Save title or label; newline in descriptions",
	"  Alt+Enter / Ctrl+S      Save description",
	"  Esc                     Cancel",
	"",
	"Files:",
	"------",
	"  Ctrl+S                  Save",
	"  Ctrl+O                  Open",
	"  Ctrl+N                  New project",
	"  Ctrl+E                  Export image (.png, .svg or .txt)",
	"  Ctrl+Q                  Quit",
	"  ?                       Toggle this help screen",
}

func (m model) helpView() string {
	visibleHeight := m.height - 1
	if visibleHeight < 1 {
		visibleHeight = 1
	}
	startLine := m.helpScroll
	if startLine > len(helpLines)-visibleHeight {
		startLine = len(helpLines) - visibleHeight
	}
	if startLine < 0 {
		startLine = 0
	}
	endLine := startLine + visibleHeight
	if endLine > len(helpLines) {
		endLine = len(helpLines)
	}
	result := strings.Join(helpLines[startLine:endLine], "\n")
	return result + "\n" + statusStyle.Render(fmt.Sprintf("Help (%d-%d of %d lines) | j/k to scroll, Esc to close",
		startLine+1, endLine, len(helpLines)))
}
