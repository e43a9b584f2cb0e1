package main

import (
	"sort"

	"go.uber.org/zap"
)

// Controller is the interaction state machine over the canvas. It is the
// only writer of the graph, camera, history and selection, and records
// exactly one history entry per committed user action.
type Controller struct {
	cfg     CanvasConfig
	graph   *Graph
	camera  Camera
	history *History
	clip    Clipboard
	logger  *zap.Logger

	mode         Mode
	selected     map[string]struct{}
	selectedEdge string

	drag   *dragState
	resize *resizeState
	pan    *panState
	conn   *PendingConnection
	edit   *EditSession

	// Visual overrides while a gesture is in flight. The store is only
	// written when the gesture commits.
	posOverrides  map[string]Point
	sizeOverrides map[string]Size

	copied         []Node
	copiedCentroid Point
	pasteStagger   Point

	pointer       Point
	pointerInside bool
	viewport      Size

	dirty bool
}

type dragState struct {
	activeID          string
	grab              Point
	started           bool
	starts            map[string]Point
	collapseOnRelease bool
}

type resizeState struct {
	id    string
	grab  Point
	start Size
}

type panState struct {
	last Point
}

// PendingConnection is an in-progress connection drag.
type PendingConnection struct {
	SourceID string
	Source   HandlePoint
	Current  Point
	Snap     *HandleHit
}

// EditSession is an open inline text edit.
type EditSession struct {
	Target   EditTarget
	ID       string
	Original string
	Value    string
}

func NewController(cfg CanvasConfig, clip Clipboard, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		cfg:           cfg,
		graph:         NewGraph(cfg.nodeDefaults(), logger),
		camera:        NewCamera(),
		history:       NewHistory(cfg.HistoryDepth),
		clip:          clip,
		logger:        logger,
		selected:      map[string]struct{}{},
		posOverrides:  map[string]Point{},
		sizeOverrides: map[string]Size{},
	}
}

func (c *Controller) Graph() *Graph { return c.graph }
func (c *Controller) History() *History { return c.history }
func (c *Controller) Camera() Camera { return c.camera }
func (c *Controller) Mode() Mode { return c.mode }
func (c *Controller) Dirty() bool { return c.dirty }
func (c *Controller) MarkClean() { c.dirty = false }
func (c *Controller) SelectedEdge() string { return c.selectedEdge }

// Selection returns the selected node ids in z-order.
func (c *Controller) Selection() []string {
	ids := make([]string, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Controller) IsSelected(id string) bool {
	_, ok := c.selected[id]
	return ok
}

// Editing returns the open edit, or nil.
func (c *Controller) Editing() *EditSession {
	if c.edit == nil {
		return nil
	}
	e := *c.edit
	return &e
}

// Pending returns the in-progress connection, or nil.
func (c *Controller) Pending() *PendingConnection {
	if c.conn == nil {
		return nil
	}
	p := *c.conn
	return &p
}

// SetViewport records the screen size of the canvas region.
func (c *Controller) SetViewport(w, h float64) {
	c.viewport = Size{W: w, H: h}
}

func (c *Controller) Viewport() Size { return c.viewport }

// SetCamera overwrites the camera; used when restoring persisted state.
func (c *Controller) SetCamera(p CameraPatch) {
	c.camera = c.camera.SetPosition(p, c.cfg.zoomLimits())
}

// record pushes the pre-action state. Call it once per action, right
// before the first store mutation.
func (c *Controller) record() {
	nodes, edges := c.graph.state()
	c.history.PushState(nodes, edges)
}

func (c *Controller) canvasPoint(p Point) Point {
	return c.camera.ScreenToCanvas(p)
}

// screenRadius converts a radius in screen pixels to canvas units.
func (c *Controller) screenRadius(r float64) float64 {
	return r / c.camera.Scale
}

// visibleNodes returns the nodes as currently drawn, with in-flight
// overrides applied, in z-order.
func (c *Controller) visibleNodes() []Node {
	nodes := c.graph.Nodes()
	if len(c.posOverrides) == 0 && len(c.sizeOverrides) == 0 {
		return nodes
	}
	for i, n := range nodes {
		if p, ok := c.posOverrides[n.ID]; ok {
			nodes[i].X, nodes[i].Y = p.X, p.Y
		}
		if s, ok := c.sizeOverrides[n.ID]; ok {
			nodes[i].Width, nodes[i].Height = s.W, s.H
		}
	}
	return nodes
}

func nodeIndex(nodes []Node) NodeMap {
	m := make(NodeMap, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	return m
}

func (c *Controller) selectOnly(id string) {
	c.selected = map[string]struct{}{id: {}}
	c.selectedEdge = ""
}

func (c *Controller) ClearSelection() {
	c.selected = map[string]struct{}{}
	c.selectedEdge = ""
}

// pruneSelection drops ids that no longer exist.
func (c *Controller) pruneSelection() {
	for id := range c.selected {
		if _, ok := c.graph.Node(id); !ok {
			delete(c.selected, id)
		}
	}
	if c.selectedEdge != "" {
		if _, ok := c.graph.Edge(c.selectedEdge); !ok {
			c.selectedEdge = ""
		}
	}
}

// PointerDown handles a primary button press at screen point p.
func (c *Controller) PointerDown(p Point, mods Modifiers) {
	c.pointer, c.pointerInside = p, true
	if c.mode == ModeEditing {
		c.CommitEdit(c.edit.Value)
	}
	if c.mode != ModeIdle {
		c.cancelGesture()
	}

	cp := c.canvasPoint(p)
	nodes := c.visibleNodes()

	if h, ok := HandleAt(nodes, cp, c.screenRadius(c.cfg.HandleRadius)); ok {
		c.mode = ModeConnecting
		c.conn = &PendingConnection{SourceID: h.NodeID, Source: h, Current: cp}
		return
	}

	if n, ok := CornerAt(nodes, cp, c.screenRadius(c.cfg.HandleRadius)); ok && c.IsSelected(n.ID) {
		c.mode = ModeResizing
		c.resize = &resizeState{id: n.ID, grab: cp, start: Size{n.Width, n.Height}}
		return
	}

	if n, ok := NodeAt(nodes, cp); ok {
		c.pressNode(n, cp, mods)
		return
	}

	if e, ok := EdgeAt(c.graph.Edges(), nodeIndex(nodes), cp, c.screenRadius(c.cfg.EdgeSlop)); ok {
		c.selected = map[string]struct{}{}
		c.selectedEdge = e.ID
		return
	}

	c.ClearSelection()
	c.mode = ModePanning
	c.pan = &panState{last: p}
}

func (c *Controller) pressNode(n Node, cp Point, mods Modifiers) {
	collapse := false
	switch {
	case mods.Toggle:
		c.selectedEdge = ""
		if c.IsSelected(n.ID) {
			delete(c.selected, n.ID)
			return
		}
		c.selected[n.ID] = struct{}{}
	case c.IsSelected(n.ID) && len(c.selected) > 1:
		// Keep the group so it can be dragged; a plain click collapses it
		// on release.
		collapse = true
	default:
		c.selectOnly(n.ID)
	}
	c.mode = ModeDraggingNode
	c.drag = &dragState{
		activeID:          n.ID,
		grab:              cp.Sub(n.Origin()),
		collapseOnRelease: collapse,
	}
}

// PointerMove handles pointer motion at screen point p.
func (c *Controller) PointerMove(p Point) {
	c.pointer, c.pointerInside = p, true
	switch c.mode {
	case ModePanning:
		c.camera = c.camera.Pan(p.Sub(c.pan.last))
		c.pan.last = p
	case ModeDraggingNode:
		c.dragTo(c.canvasPoint(p))
	case ModeResizing:
		c.resizeTo(c.canvasPoint(p))
	case ModeConnecting:
		c.connectTo(c.canvasPoint(p))
	}
}

func (c *Controller) dragTo(cp Point) {
	d := c.drag
	if !d.started {
		d.started = true
		d.starts = map[string]Point{}
		for id := range c.selected {
			if n, ok := c.graph.Node(id); ok {
				d.starts[id] = n.Origin()
			}
		}
		if n, ok := c.graph.Node(d.activeID); ok {
			d.starts[d.activeID] = n.Origin()
		}
	}
	start, ok := d.starts[d.activeID]
	if !ok {
		c.cancelGesture()
		return
	}
	delta := cp.Sub(d.grab).Sub(start)
	for id, s := range d.starts {
		c.posOverrides[id] = s.Add(delta)
	}
}

func (c *Controller) resizeTo(cp Point) {
	r := c.resize
	d := cp.Sub(r.grab)
	w, h := c.graph.ClampSize(r.start.W+d.X, r.start.H+d.Y)
	c.sizeOverrides[r.id] = Size{w, h}
}

func (c *Controller) connectTo(cp Point) {
	c.conn.Current = cp
	c.conn.Snap = nil
	hit, ok := FindClosestHandleAcrossNodes(c.visibleNodes(), cp, c.conn.SourceID)
	if ok && Snapped(hit.Distance, c.cfg.SnapThreshold) {
		c.conn.Snap = &hit
	}
}

// PointerUp ends the active gesture at screen point p.
func (c *Controller) PointerUp(p Point) {
	c.pointer = p
	switch c.mode {
	case ModeDraggingNode:
		c.dragTo(c.canvasPoint(p))
		if c.drag == nil {
			return
		}
		c.finishDrag()
	case ModeResizing:
		c.resizeTo(c.canvasPoint(p))
		c.finishResize()
	case ModeConnecting:
		c.connectTo(c.canvasPoint(p))
		c.finishConnection()
	case ModePanning:
		c.pan = nil
	default:
		return
	}
	c.mode = ModeIdle
}

func (c *Controller) finishDrag() {
	d := c.drag
	c.drag = nil
	defer clear(c.posOverrides)
	if d == nil {
		return
	}
	if !d.started {
		if d.collapseOnRelease {
			c.selectOnly(d.activeID)
		}
		return
	}
	var moved []string
	for id, pos := range c.posOverrides {
		if n, ok := c.graph.Node(id); ok && n.Origin() != pos {
			moved = append(moved, id)
		}
	}
	if len(moved) == 0 {
		if d.collapseOnRelease {
			c.selectOnly(d.activeID)
		}
		return
	}
	c.record()
	for _, id := range moved {
		pos := c.posOverrides[id]
		c.graph.MoveNode(id, pos.X, pos.Y)
	}
	c.dirty = true
	c.logger.Debug("nodes moved", zap.Int("count", len(moved)))
}

func (c *Controller) finishResize() {
	r := c.resize
	c.resize = nil
	defer clear(c.sizeOverrides)
	s, ok := c.sizeOverrides[r.id]
	if !ok || s == r.start {
		return
	}
	if _, ok := c.graph.Node(r.id); !ok {
		return
	}
	c.record()
	c.graph.ResizeNode(r.id, s.W, s.H)
	c.dirty = true
}

func (c *Controller) finishConnection() {
	conn := c.conn
	c.conn = nil
	if conn.Snap == nil {
		return
	}
	target := conn.Snap.Handle.NodeID
	if !c.graph.CanConnect(conn.SourceID, target) {
		c.logger.Debug("connection rejected", zap.String("from", conn.SourceID), zap.String("to", target))
		return
	}
	c.record()
	if _, ok := c.graph.CreateEdge(conn.SourceID, target); ok {
		c.dirty = true
	}
}

// PointerLeave suspends panning when the pointer exits the canvas.
func (c *Controller) PointerLeave() {
	c.pointerInside = false
	if c.mode == ModePanning {
		c.pan = nil
		c.mode = ModeIdle
	}
}

// Wheel zooms one step about the screen point p.
func (c *Controller) Wheel(p Point, in bool) {
	c.pointer, c.pointerInside = p, true
	c.camera = c.camera.ZoomAt(p, in, c.cfg.zoomLimits())
}

// ZoomCentre zooms one step about the viewport centre.
func (c *Controller) ZoomCentre(in bool) {
	c.camera = c.camera.ZoomAt(c.viewportCentre(), in, c.cfg.zoomLimits())
}

// ResetZoom returns to scale 1 about the viewport centre.
func (c *Controller) ResetZoom() {
	c.camera = c.camera.ZoomTo(c.viewportCentre(), 1, c.cfg.zoomLimits())
}

// PanBy moves the camera by d screen pixels.
func (c *Controller) PanBy(d Point) {
	c.camera = c.camera.Pan(d)
}

// FitToContent frames every node in the viewport.
func (c *Controller) FitToContent() {
	lo, hi, ok := Bounds(c.graph.Nodes())
	if !ok {
		return
	}
	c.camera = c.camera.Fit(lo, hi, c.viewport, 40, c.cfg.zoomLimits())
}

func (c *Controller) viewportCentre() Point {
	return Point{c.viewport.W / 2, c.viewport.H / 2}
}

// DoubleClick opens an inline edit on the title, description or edge
// label under p, or creates a node centred on p over empty canvas.
func (c *Controller) DoubleClick(p Point) {
	c.pointer, c.pointerInside = p, true
	if c.mode == ModeEditing {
		c.CommitEdit(c.edit.Value)
	}
	if c.mode != ModeIdle {
		c.cancelGesture()
	}
	cp := c.canvasPoint(p)
	nodes := c.visibleNodes()
	if n, ok := NodeAt(nodes, cp); ok {
		c.selectOnly(n.ID)
		if n.Collapsed || InHeader(n, cp) {
			c.BeginEdit(EditNodeTitle, n.ID)
		} else {
			c.BeginEdit(EditNodeDescription, n.ID)
		}
		return
	}
	if e, ok := EdgeAt(c.graph.Edges(), nodeIndex(nodes), cp, c.screenRadius(c.cfg.EdgeSlop)); ok {
		c.selected = map[string]struct{}{}
		c.selectedEdge = e.ID
		c.BeginEdit(EditEdgeLabel, e.ID)
		return
	}
	c.CreateNodeAt(cp)
}

// CreateNodeAt adds a default node centred on the canvas point cp.
func (c *Controller) CreateNodeAt(cp Point) Node {
	c.record()
	n := c.graph.CreateNode(cp.X-c.cfg.NodeWidth/2, cp.Y-c.cfg.NodeHeight/2)
	c.selectOnly(n.ID)
	c.dirty = true
	return n
}

// BeginEdit opens an edit of target on id, seeded with the current value.
func (c *Controller) BeginEdit(target EditTarget, id string) bool {
	var value string
	switch target {
	case EditNodeTitle, EditNodeDescription:
		n, ok := c.graph.Node(id)
		if !ok {
			return false
		}
		value = n.Title
		if target == EditNodeDescription {
			value = n.Description
		}
	case EditEdgeLabel:
		e, ok := c.graph.Edge(id)
		if !ok {
			return false
		}
		value = e.Label
	}
	c.cancelGesture()
	c.edit = &EditSession{Target: target, ID: id, Original: value, Value: value}
	c.mode = ModeEditing
	return true
}

// UpdateEditValue tracks the overlay text so a focus loss can commit it.
func (c *Controller) UpdateEditValue(v string) {
	if c.edit != nil {
		c.edit.Value = v
	}
}

// CommitEdit writes v to the edited field. Unchanged values and vanished
// targets close the edit without a history entry.
func (c *Controller) CommitEdit(v string) bool {
	e := c.edit
	if e == nil {
		return false
	}
	c.edit = nil
	c.mode = ModeIdle
	if v == e.Original {
		return false
	}
	switch e.Target {
	case EditNodeTitle, EditNodeDescription:
		if _, ok := c.graph.Node(e.ID); !ok {
			return false
		}
		c.record()
		if e.Target == EditNodeTitle {
			c.graph.UpdateNode(e.ID, NodePatch{Title: &v})
		} else {
			c.graph.UpdateNode(e.ID, NodePatch{Description: &v})
		}
	case EditEdgeLabel:
		if _, ok := c.graph.Edge(e.ID); !ok {
			return false
		}
		c.record()
		c.graph.UpdateEdge(e.ID, EdgePatch{Label: &v})
	}
	c.dirty = true
	return true
}

func (c *Controller) CancelEdit() {
	if c.edit == nil {
		return
	}
	c.edit = nil
	c.mode = ModeIdle
}

// cancelGesture drops any in-flight drag, resize, pan or connection
// without touching the store.
func (c *Controller) cancelGesture() {
	c.drag = nil
	c.resize = nil
	c.pan = nil
	c.conn = nil
	clear(c.posOverrides)
	clear(c.sizeOverrides)
	if c.mode != ModeEditing {
		c.mode = ModeIdle
	}
}

// Command runs a keyboard command. While editing only Escape is honoured.
// Commands that change the graph end any pointer gesture first.
// It reports whether anything happened.
func (c *Controller) Command(cmd Command) bool {
	if c.mode == ModeEditing {
		if cmd == CmdEscape {
			c.CancelEdit()
			return true
		}
		return false
	}
	if c.mode != ModeIdle && cmd != CmdEscape && cmd != CmdCopy {
		c.cancelGesture()
	}
	switch cmd {
	case CmdEscape:
		if c.mode != ModeIdle {
			c.cancelGesture()
			return true
		}
		had := len(c.selected) > 0 || c.selectedEdge != ""
		c.ClearSelection()
		return had
	case CmdUndo:
		return c.Undo()
	case CmdRedo:
		return c.Redo()
	case CmdCopy:
		return c.Copy()
	case CmdPaste:
		return c.Paste()
	case CmdDelete:
		return c.DeleteSelection()
	case CmdToggleCollapse:
		return c.ToggleCollapseSelection()
	}
	return false
}

func (c *Controller) Undo() bool {
	c.cancelGesture()
	nodes, edges := c.graph.state()
	if !c.history.Undo(nodes, edges, c.graph.SetNodes, c.graph.SetEdges) {
		return false
	}
	c.pruneSelection()
	c.dirty = true
	return true
}

func (c *Controller) Redo() bool {
	c.cancelGesture()
	nodes, edges := c.graph.state()
	if !c.history.Redo(nodes, edges, c.graph.SetNodes, c.graph.SetEdges) {
		return false
	}
	c.pruneSelection()
	c.dirty = true
	return true
}

// Copy stores the selected nodes by value and resets the paste stagger.
// A text outline goes to the system clipboard as well.
func (c *Controller) Copy() bool {
	var nodes []Node
	for _, id := range c.Selection() {
		if n, ok := c.graph.Node(id); ok {
			nodes = append(nodes, n)
		}
	}
	if len(nodes) == 0 {
		return false
	}
	var sum Point
	for _, n := range nodes {
		sum = sum.Add(Centre(n))
	}
	c.copied = nodes
	c.copiedCentroid = sum.Mul(1 / float64(len(nodes)))
	c.pasteStagger = Point{}
	if c.clip != nil {
		if err := c.clip.WriteText(nodesOutline(nodes)); err != nil {
			c.logger.Warn("clipboard write failed", zap.Error(err))
		}
	}
	return true
}

// pasteTarget is the pointer when it is over the canvas, otherwise the
// viewport centre, in canvas space.
func (c *Controller) pasteTarget() Point {
	if c.pointerInside {
		return c.canvasPoint(c.pointer)
	}
	return c.canvasPoint(c.viewportCentre())
}

// Paste recreates the copied nodes around the paste target with fresh
// ids and no edges, selects them, and advances the stagger so repeated
// pastes cascade.
func (c *Controller) Paste() bool {
	if len(c.copied) == 0 {
		return c.pasteText()
	}
	offset := c.pasteTarget().Sub(c.copiedCentroid).Add(c.pasteStagger)
	c.record()
	c.selected = map[string]struct{}{}
	c.selectedEdge = ""
	for _, src := range c.copied {
		n := c.graph.CreateNode(src.X+offset.X, src.Y+offset.Y)
		c.graph.UpdateNode(n.ID, NodePatch{
			Width:       ptr(src.Width),
			Height:      ptr(src.Height),
			Title:       ptr(src.Title),
			Description: ptr(src.Description),
			Collapsed:   ptr(src.Collapsed),
			TitleColor:  ptr(src.TitleColor),
		})
		c.selected[n.ID] = struct{}{}
	}
	c.pasteStagger = c.pasteStagger.Add(Point{c.cfg.PasteStagger, c.cfg.PasteStagger})
	c.dirty = true
	return true
}

// pasteText turns system clipboard text into a single node.
func (c *Controller) pasteText() bool {
	if c.clip == nil {
		return false
	}
	text, err := c.clip.ReadText()
	if err != nil {
		c.logger.Warn("clipboard read failed", zap.Error(err))
		return false
	}
	title, desc := splitTitle(cleanClipboardText(text))
	if title == "" {
		return false
	}
	n := c.CreateNodeAt(c.pasteTarget())
	c.graph.UpdateNode(n.ID, NodePatch{Title: &title, Description: &desc})
	return true
}

// DeleteSelection removes the selected edge, or every selected node and
// its edges, as one action.
func (c *Controller) DeleteSelection() bool {
	if c.selectedEdge != "" {
		id := c.selectedEdge
		c.selectedEdge = ""
		if _, ok := c.graph.Edge(id); !ok {
			return false
		}
		c.record()
		c.graph.DeleteEdge(id)
		c.dirty = true
		return true
	}
	c.pruneSelection()
	ids := c.Selection()
	if len(ids) == 0 {
		return false
	}
	c.record()
	for _, id := range ids {
		c.graph.DeleteNode(id)
	}
	c.ClearSelection()
	c.dirty = true
	return true
}

// ToggleCollapseSelection flips collapsed on every selected node.
func (c *Controller) ToggleCollapseSelection() bool {
	c.pruneSelection()
	ids := c.Selection()
	if len(ids) == 0 {
		return false
	}
	c.record()
	for _, id := range ids {
		c.graph.ToggleCollapse(id)
	}
	c.dirty = true
	return true
}

// ResizeSelection grows or shrinks every selected node by (dw, dh).
func (c *Controller) ResizeSelection(dw, dh float64) bool {
	c.pruneSelection()
	var changed []Node
	for _, id := range c.Selection() {
		n, _ := c.graph.Node(id)
		w, h := c.graph.ClampSize(n.Width+dw, n.Height+dh)
		if w != n.Width || h != n.Height {
			n.Width, n.Height = w, h
			changed = append(changed, n)
		}
	}
	if len(changed) == 0 {
		return false
	}
	c.record()
	for _, n := range changed {
		c.graph.ResizeNode(n.ID, n.Width, n.Height)
	}
	c.dirty = true
	return true
}

// Load replaces the whole graph and camera, as when a project is opened.
// History and transient state are reset.
func (c *Controller) Load(nodes NodeMap, edges EdgeMap, cam CameraPatch) {
	c.CancelEdit()
	c.cancelGesture()
	c.graph.SetNodes(nodes)
	c.graph.SetEdges(edges)
	c.camera = NewCamera().SetPosition(cam, c.cfg.zoomLimits())
	c.history.Clear()
	c.ClearSelection()
	c.dirty = false
}

// SceneNode is a node as drawn.
type SceneNode struct {
	Node
	Selected bool
}

// SceneEdge is an edge with its resolved anchors.
type SceneEdge struct {
	Edge
	Start, End HandlePoint
	Selected   bool
}

// Scene is everything needed to draw the current visual state.
type Scene struct {
	Camera   Camera
	Viewport Size
	Nodes    []SceneNode
	Edges    []SceneEdge
	Pending  *PendingConnection
	Editing  *EditSession
}

// Scene resolves the drawable state, including in-flight drag positions.
func (c *Controller) Scene() Scene {
	nodes := c.visibleNodes()
	index := nodeIndex(nodes)
	s := Scene{
		Camera:   c.camera,
		Viewport: c.viewport,
		Nodes:    make([]SceneNode, 0, len(nodes)),
		Pending:  c.Pending(),
		Editing:  c.Editing(),
	}
	for _, n := range nodes {
		s.Nodes = append(s.Nodes, SceneNode{Node: n, Selected: c.IsSelected(n.ID)})
	}
	for _, e := range c.graph.Edges() {
		from, okFrom := index[e.From]
		to, okTo := index[e.To]
		if !okFrom || !okTo {
			continue
		}
		start, end := BestEdgeAnchorPair(from, to)
		s.Edges = append(s.Edges, SceneEdge{Edge: e, Start: start, End: end, Selected: e.ID == c.selectedEdge})
	}
	return s
}
