package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidProject marks a project file whose structure is unusable.
var ErrInvalidProject = errors.New("invalid project")

// CanvasState is the persisted camera.
type CanvasState struct {
	Zoom float64 `json:"zoom"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type ProjectMeta struct {
	Name    string      `json:"name"`
	Created string      `json:"created"`
	Canvas  CanvasState `json:"canvas"`
}

// Project is the persisted document.
type Project struct {
	Meta  ProjectMeta `json:"meta"`
	Nodes NodeMap     `json:"nodes" validate:"dive"`
	Edges EdgeMap     `json:"edges" validate:"dive"`
}

// DecodeReport lists what loading repaired.
type DecodeReport struct {
	PrunedEdges int
	RekeyedIDs  int
}

var validate = validator.New()

// NewProject returns an empty project created at now.
func NewProject(name string, now time.Time) Project {
	return Project{
		Meta: ProjectMeta{
			Name:    name,
			Created: now.UTC().Format(time.RFC3339),
			Canvas:  CanvasState{Zoom: 1},
		},
		Nodes: NodeMap{},
		Edges: EdgeMap{},
	}
}

func (p Project) cameraPatch() CameraPatch {
	return CameraPatch{X: ptr(p.Meta.Canvas.X), Y: ptr(p.Meta.Canvas.Y), Scale: ptr(p.Meta.Canvas.Zoom)}
}

func EncodeProject(p Project) ([]byte, error) {
	if p.Nodes == nil {
		p.Nodes = NodeMap{}
	}
	if p.Edges == nil {
		p.Edges = EdgeMap{}
	}
	return json.MarshalIndent(p, "", "  ")
}

// DecodeProject parses a project file. A missing name falls back to
// fallbackName and a missing zoom to 1. Map keys win over embedded ids,
// and edges that are self-loops, duplicates, or point at missing nodes
// are dropped so the loaded graph satisfies the store's invariants.
func DecodeProject(data []byte, fallbackName string) (Project, DecodeReport, error) {
	var (
		p   Project
		rep DecodeReport
	)
	if err := json.Unmarshal(data, &p); err != nil {
		return Project{}, rep, fmt.Errorf("%w: %v", ErrInvalidProject, err)
	}
	if p.Nodes == nil {
		p.Nodes = NodeMap{}
	}
	if p.Edges == nil {
		p.Edges = EdgeMap{}
	}
	for key, n := range p.Nodes {
		if n.ID != key {
			n.ID = key
			p.Nodes[key] = n
			rep.RekeyedIDs++
		}
	}
	for key, e := range p.Edges {
		if e.ID != key {
			e.ID = key
			p.Edges[key] = e
			rep.RekeyedIDs++
		}
	}
	if err := validate.Struct(p); err != nil {
		return Project{}, rep, fmt.Errorf("%w: %v", ErrInvalidProject, err)
	}

	seen := map[[2]string]bool{}
	for _, e := range p.Edges.Sorted() {
		_, okFrom := p.Nodes[e.From]
		_, okTo := p.Nodes[e.To]
		pair := [2]string{e.From, e.To}
		if e.To < e.From {
			pair = [2]string{e.To, e.From}
		}
		if !okFrom || !okTo || e.From == e.To || seen[pair] {
			delete(p.Edges, e.ID)
			rep.PrunedEdges++
			continue
		}
		seen[pair] = true
	}

	if strings.TrimSpace(p.Meta.Name) == "" {
		p.Meta.Name = fallbackName
	}
	if p.Meta.Canvas.Zoom <= 0 {
		p.Meta.Canvas.Zoom = 1
	}
	return p, rep, nil
}

// projectName is the display name derived from a file path.
func projectName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
