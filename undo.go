package main

// History keeps bounded undo and redo stacks of full graph snapshots.
// Entries record the state before an action, so one undo steps back one
// action.
type History struct {
	undoStack []Snapshot
	redoStack []Snapshot
	max       int
	applying  bool
}

func NewHistory(max int) *History {
	if max < 1 {
		max = defaultHistoryDepth
	}
	return &History{max: max}
}

// PushState records the pre-action state and clears the redo stack. It
// is a no-op while an undo or redo is being applied.
func (h *History) PushState(nodes NodeMap, edges EdgeMap) {
	if h.applying {
		return
	}
	h.undoStack = pushBounded(h.undoStack, Snapshot{Nodes: nodes.Clone(), Edges: edges.Clone()}, h.max)
	h.redoStack = nil
}

// Undo restores the most recent snapshot through the setters and moves
// the current state onto the redo stack. It returns false if there is
// nothing to undo.
func (h *History) Undo(nodes NodeMap, edges EdgeMap, applyNodes func(NodeMap), applyEdges func(EdgeMap)) bool {
	if len(h.undoStack) == 0 {
		return false
	}
	var snap Snapshot
	h.undoStack, snap = pop(h.undoStack)
	h.redoStack = pushBounded(h.redoStack, Snapshot{Nodes: nodes.Clone(), Edges: edges.Clone()}, h.max)
	h.apply(snap, applyNodes, applyEdges)
	return true
}

func (h *History) Redo(nodes NodeMap, edges EdgeMap, applyNodes func(NodeMap), applyEdges func(EdgeMap)) bool {
	if len(h.redoStack) == 0 {
		return false
	}
	var snap Snapshot
	h.redoStack, snap = pop(h.redoStack)
	h.undoStack = pushBounded(h.undoStack, Snapshot{Nodes: nodes.Clone(), Edges: edges.Clone()}, h.max)
	h.apply(snap, applyNodes, applyEdges)
	return true
}

func (h *History) apply(snap Snapshot, applyNodes func(NodeMap), applyEdges func(EdgeMap)) {
	h.applying = true
	defer func() { h.applying = false }()
	applyNodes(snap.Nodes.Clone())
	applyEdges(snap.Edges.Clone())
}

// Clear empties both stacks; a freshly loaded project has no history.
func (h *History) Clear() {
	h.undoStack = nil
	h.redoStack = nil
}

func (h *History) CanUndo() bool { return len(h.undoStack) > 0 }
func (h *History) CanRedo() bool { return len(h.redoStack) > 0 }
func (h *History) UndoDepth() int { return len(h.undoStack) }
func (h *History) RedoDepth() int { return len(h.redoStack) }

// pushBounded appends s, evicting the oldest entries beyond max.
func pushBounded(stack []Snapshot, s Snapshot, max int) []Snapshot {
	stack = append(stack, s)
	if over := len(stack) - max; over > 0 {
		copy(stack, stack[over:])
		for i := len(stack) - over; i < len(stack); i++ {
			stack[i] = Snapshot{}
		}
		stack = stack[:len(stack)-over]
	}
	return stack
}

func pop(stack []Snapshot) ([]Snapshot, Snapshot) {
	last := len(stack) - 1
	s := stack[last]
	stack[last] = Snapshot{}
	return stack[:last], s
}
