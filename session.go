package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ownWriteWindow is how long after our own save a change event on the
// same file is attributed to that save.
const ownWriteWindow = 2 * time.Second

// Session ties the controller to a file on disk: the open path, the
// project metadata, and the save/open/export flows. Each flow has a
// prepare step and a complete step that run on the UI goroutine, with the
// blocking store call between them, so the terminal program can run the
// I/O in a command.
type Session struct {
	ctrl   *Controller
	store  FileStore
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	path string
	meta ProjectMeta

	mu        sync.Mutex
	savedPath string
	savedAt   time.Time
}

func NewSession(ctrl *Controller, store FileStore, cfg Config, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{ctrl: ctrl, store: store, cfg: cfg, logger: logger, now: time.Now}
	s.meta = NewProject(untitledName, s.now()).Meta
	return s
}

func (s *Session) Controller() *Controller { return s.ctrl }
func (s *Session) Path() string { return s.path }
func (s *Session) Name() string { return s.meta.Name }

// Title is the project name with a marker when there are unsaved changes.
func (s *Session) Title() string {
	if s.ctrl.Dirty() {
		return s.meta.Name + " *"
	}
	return s.meta.Name
}

// NewProject discards the canvas and starts an untitled project.
func (s *Session) NewProject() {
	s.ctrl.Load(NodeMap{}, EdgeMap{}, CameraPatch{})
	s.path = ""
	s.meta = NewProject(untitledName, s.now()).Meta
	s.logger.Info("new project")
}

// SaveJob is a project ready to be written.
type SaveJob struct {
	Path string
	Data []byte
	Meta ProjectMeta
}

// PrepareSave encodes the current canvas for path. An empty path means
// the user cancelled and yields ok == false.
func (s *Session) PrepareSave(path string) (job SaveJob, ok bool, err error) {
	if path == "" {
		return SaveJob{}, false, nil
	}
	meta := s.meta
	meta.Name = projectName(path)
	if meta.Created == "" {
		meta.Created = s.now().UTC().Format(time.RFC3339)
	}
	cam := s.ctrl.Camera()
	meta.Canvas = CanvasState{Zoom: cam.Scale, X: cam.X, Y: cam.Y}

	nodes, edges := s.ctrl.Graph().state()
	data, err := EncodeProject(Project{Meta: meta, Nodes: nodes, Edges: edges})
	if err != nil {
		return SaveJob{}, false, fmt.Errorf("encode project: %w", err)
	}
	return SaveJob{Path: path, Data: data, Meta: meta}, true, nil
}

// WriteSave performs the blocking write of a prepared save.
func (s *Session) WriteSave(ctx context.Context, job SaveJob) error {
	s.noteOwnWrite(job.Path)
	if err := s.store.SaveProjectBlob(ctx, job.Path, job.Data); err != nil {
		return fmt.Errorf("save %s: %w", job.Path, err)
	}
	s.noteOwnWrite(job.Path)
	return nil
}

// CompleteSave adopts the saved file on success. On failure the canvas
// stays dirty.
func (s *Session) CompleteSave(job SaveJob, err error) error {
	if IsCancelled(err) {
		s.logger.Info("save cancelled", zap.String("path", job.Path))
		return err
	}
	if err != nil {
		s.logger.Error("save failed", zap.String("path", job.Path), zap.Error(err))
		return err
	}
	s.path = job.Path
	s.meta = job.Meta
	s.ctrl.MarkClean()
	s.logger.Info("project saved", zap.String("path", job.Path), zap.Int("nodes", s.ctrl.Graph().NodeCount()))
	return nil
}

// Save writes the canvas to path. An empty path is a no-op.
func (s *Session) Save(ctx context.Context, path string) error {
	job, ok, err := s.PrepareSave(path)
	if err != nil || !ok {
		return err
	}
	return s.CompleteSave(job, s.WriteSave(ctx, job))
}

// ReadProject loads and decodes path without touching the canvas.
func (s *Session) ReadProject(ctx context.Context, path string) (Project, error) {
	data, err := s.store.LoadProjectBlob(ctx, path)
	if err != nil {
		return Project{}, err
	}
	p, rep, err := DecodeProject(data, projectName(path))
	if err != nil {
		return Project{}, fmt.Errorf("open %s: %w", path, err)
	}
	if rep.PrunedEdges > 0 || rep.RekeyedIDs > 0 {
		s.logger.Warn("repaired project on load",
			zap.String("path", path),
			zap.Int("pruned_edges", rep.PrunedEdges),
			zap.Int("rekeyed_ids", rep.RekeyedIDs))
	}
	return p, nil
}

// ApplyProject replaces the canvas with p, clearing history.
func (s *Session) ApplyProject(path string, p Project) {
	s.ctrl.Load(p.Nodes, p.Edges, p.cameraPatch())
	s.path = path
	s.meta = p.Meta
	s.logger.Info("project opened", zap.String("path", path), zap.Int("nodes", len(p.Nodes)), zap.Int("edges", len(p.Edges)))
}

// Open loads path into the canvas. An empty path is a no-op; a failed
// load leaves the canvas untouched.
func (s *Session) Open(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	p, err := s.ReadProject(ctx, path)
	if err != nil {
		s.logger.Error("open failed", zap.String("path", path), zap.Error(err))
		return err
	}
	s.ApplyProject(path, p)
	return nil
}

// ExportJob is a snapshot of the visual state bound for an image file.
type ExportJob struct {
	Path   string
	Format ImageFormat
	Scene  Scene
}

// PrepareExport captures the current scene for path. An empty path means
// cancelled; an empty canvas is ErrEmptyCanvas.
func (s *Session) PrepareExport(path string) (job ExportJob, ok bool, err error) {
	if path == "" {
		return ExportJob{}, false, nil
	}
	scene := s.ctrl.Scene()
	if len(scene.Nodes) == 0 {
		return ExportJob{}, false, ErrEmptyCanvas
	}
	return ExportJob{Path: path, Format: formatForPath(path), Scene: scene}, true, nil
}

// WriteExport renders and writes a prepared export.
func (s *Session) WriteExport(ctx context.Context, job ExportJob) error {
	data, err := EncodeImage(job.Scene, job.Format, s.cfg.Display)
	if err != nil {
		return fmt.Errorf("render %s: %w", job.Format, err)
	}
	if err := s.store.SaveImageBlob(ctx, job.Path, data); err != nil {
		return fmt.Errorf("export %s: %w", job.Path, err)
	}
	s.logger.Info("image exported", zap.String("path", job.Path), zap.Stringer("format", job.Format))
	return nil
}

// ExportImage writes the current visual state to path.
func (s *Session) ExportImage(ctx context.Context, path string) error {
	job, ok, err := s.PrepareExport(path)
	if err != nil || !ok {
		return err
	}
	if err := s.WriteExport(ctx, job); err != nil {
		s.logger.Error("export failed", zap.String("path", path), zap.Error(err))
		return err
	}
	return nil
}

// Recent lists recently modified projects.
func (s *Session) Recent(ctx context.Context) ([]RecentProject, error) {
	return s.store.ListRecentProjects(ctx, recentProjectsLimit)
}

func (s *Session) noteOwnWrite(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savedPath = filepath.Clean(path)
	s.savedAt = s.now()
}

// IsOwnWrite reports whether a change to path at t is our own save.
func (s *Session) IsOwnWrite(path string, t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.savedPath == "" || filepath.Clean(path) != s.savedPath {
		return false
	}
	d := t.Sub(s.savedAt)
	return d >= -ownWriteWindow && d <= ownWriteWindow
}

// IsCancelled reports whether err is a context cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
