package main

// Mode is the interaction mode of the canvas controller. At most one
// non-idle mode is active at a time.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDraggingNode
	ModeResizing
	ModePanning
	ModeConnecting
	ModeEditing
)

func (m Mode) String() string {
	switch m {
	case ModeDraggingNode:
		return "MOVE"
	case ModeResizing:
		return "RESIZE"
	case ModePanning:
		return "PAN"
	case ModeConnecting:
		return "CONNECT"
	case ModeEditing:
		return "EDIT"
	default:
		return "NORMAL"
	}
}

// Side names one of the four handle positions on a node.
type Side int

const (
	SideTop Side = iota
	SideRight
	SideBottom
	SideLeft
)

var allSides = [4]Side{SideTop, SideRight, SideBottom, SideLeft}

func (s Side) String() string {
	switch s {
	case SideTop:
		return "top"
	case SideRight:
		return "right"
	case SideBottom:
		return "bottom"
	default:
		return "left"
	}
}

// EditTarget is the field an inline edit writes to.
type EditTarget int

const (
	EditNodeTitle EditTarget = iota
	EditNodeDescription
	EditEdgeLabel
)

func (t EditTarget) String() string {
	switch t {
	case EditNodeTitle:
		return "title"
	case EditNodeDescription:
		return "description"
	default:
		return "label"
	}
}

// Multiline reports whether the target accepts newlines.
func (t EditTarget) Multiline() bool {
	return t == EditNodeDescription
}

// Command is a keyboard command routed to the controller.
type Command int

const (
	CmdEscape Command = iota
	CmdUndo
	CmdRedo
	CmdCopy
	CmdPaste
	CmdDelete
	CmdToggleCollapse
)

// Screen is the top-level view of the terminal program.
type Screen int

const (
	ScreenStartup Screen = iota
	ScreenCanvas
	ScreenFileInput
	ScreenConfirm
)

type FileOperation int

const (
	FileOpSave FileOperation = iota
	FileOpOpen
	FileOpExport
)

type ConfirmAction int

const (
	ConfirmQuit ConfirmAction = iota
	ConfirmNewProject
	ConfirmOpenProject
)

const (
	defaultNodeWidth    = 220
	defaultNodeHeight   = 140
	defaultMinWidth     = 100
	defaultMinHeight    = 60
	defaultNodeTitle    = "New Node"
	collapsedHeight     = 40
	headerHeight        = 40
	SnapThreshold       = 30
	defaultHandleRadius = 12
	defaultEdgeSlop     = 8
	defaultMinScale     = 0.1
	defaultMaxScale     = 3.0
	defaultZoomStep     = 0.1
	defaultHistoryDepth = 50
	defaultPasteStagger = 20
	defaultKeyPanStep   = 40
	recentProjectsLimit = 5
	projectExt          = ".flow"
	untitledName        = "Untitled"
)
