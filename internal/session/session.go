package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-sales-dashboard/internal/backend"
	"go-sales-dashboard/internal/model"
	"go-sales-dashboard/internal/pipeline"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MinSources is the smallest number of sources a report can be built from.
const MinSources = 2

// ErrSubmitInFlight rejects a submission while another one is running.
var ErrSubmitInFlight = errors.New("a report submission is already in progress")

// Backend is the part of the report backend a session needs.
type Backend interface {
	ListTasks(ctx context.Context) ([]model.TaskSummary, error)
	GenerateReport(ctx context.Context, req backend.ReportRequest) (json.RawMessage, error)
}

type trackedTask struct {
	task model.Task
	done chan struct{}
}

// Session holds the sources of the report being composed and the history of
// submitted reports, newest first.
type Session struct {
	backend Backend

	mu       sync.Mutex
	sources  []model.Source
	tasks    []*trackedTask
	inFlight bool
}

// New returns an empty session backed by b.
func New(b Backend) *Session {
	return &Session{backend: b}
}

// AddSource registers a source, assigning it a fresh ID. A missing name
// becomes "Source N"; a filter expression is parsed into Filter.
func (s *Session) AddSource(src model.Source) (model.Source, error) {
	switch src.Kind {
	case model.SourceFile:
		if strings.TrimSpace(src.Path) == "" {
			return model.Source{}, &model.ValidationError{Field: "path", Message: "a file source needs a path"}
		}
		if _, err := pipeline.DetectFormat(src.Path, ""); err != nil {
			return model.Source{}, err
		}
	case model.SourceURL:
		if strings.TrimSpace(src.URL) == "" {
			return model.Source{}, &model.ValidationError{Field: "url", Message: "Please enter a URL"}
		}
	default:
		return model.Source{}, &model.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown source kind %q", src.Kind)}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.Source{}, fmt.Errorf("failed to generate source id: %w", err)
	}
	src.ID = id.String()
	src.FilterExpr = strings.TrimSpace(src.FilterExpr)
	if src.FilterExpr != "" {
		src.Filter = pipeline.ParseSourceFilter(src.FilterExpr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(src.Name) == "" {
		src.Name = fmt.Sprintf("Source %d", len(s.sources)+1)
	}
	s.sources = append(s.sources, src)
	log.Debug().Str("id", src.ID).Str("name", src.Name).Str("kind", string(src.Kind)).Msg("➕ Source added")
	return src, nil
}

// RemoveSource drops the source with id, keeping the others in order. It
// reports whether anything was removed.
func (s *Session) RemoveSource(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.sources[:0:0]
	for _, src := range s.sources {
		if src.ID != id {
			kept = append(kept, src)
		}
	}
	removed := len(kept) != len(s.sources)
	s.sources = kept
	return removed
}

// Sources returns the pending sources in the order they were added.
func (s *Session) Sources() []model.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Source(nil), s.sources...)
}

// CanSubmit reports whether enough sources are registered and no submission
// is running.
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources) >= MinSources && !s.inFlight
}

// Hint is the status line shown under the source list.
func (s *Session) Hint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch n := len(s.sources); {
	case n == 0:
		return fmt.Sprintf("Add at least %d sources to generate a report", MinSources)
	case n < MinSources:
		more := MinSources - n
		if more == 1 {
			return "Add 1 more source to generate a report"
		}
		return fmt.Sprintf("Add %d more sources to generate a report", more)
	default:
		return fmt.Sprintf("Ready to generate report with %d sources", n)
	}
}

// Submit sends the pending sources as a new report. Validation happens before
// anything is sent. The task is recorded as pending, then resolved from the
// outcome of the backend call; on success the pending sources are cleared.
func (s *Session) Submit(ctx context.Context, name, description string) (model.Task, error) {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return model.Task{}, ErrSubmitInFlight
	}
	if err := s.validateLocked(name); err != nil {
		s.mu.Unlock()
		return model.Task{}, err
	}

	s.dropFailedLocked(name)
	tt := &trackedTask{
		task: model.Task{
			Name:        name,
			Description: description,
			SourceCount: len(s.sources),
			Status:      model.TaskPending,
			SubmittedAt: time.Now().UTC(),
		},
		done: make(chan struct{}),
	}
	s.tasks = append([]*trackedTask{tt}, s.tasks...)
	req := backend.ReportRequest{
		TaskName:    name,
		Description: description,
		Sources:     append([]model.Source(nil), s.sources...),
	}
	s.inFlight = true
	s.mu.Unlock()

	_, err := s.backend.GenerateReport(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	defer close(tt.done)

	if err != nil {
		if rerr := tt.task.Resolve(model.TaskFailed, err); rerr != nil {
			log.Warn().Err(rerr).Msg("task resolution")
		}
		log.Error().Err(err).Str("task", name).Msg("❌ Report generation failed")
		return tt.task, err
	}

	if rerr := tt.task.Resolve(model.TaskCompleted, nil); rerr != nil {
		log.Warn().Err(rerr).Msg("task resolution")
	}
	s.sources = nil
	log.Info().Str("task", name).Int("sources", tt.task.SourceCount).Msg("✅ Report generated")
	return tt.task, nil
}

func (s *Session) validateLocked(name string) error {
	if name == "" {
		return &model.ValidationError{Field: "task_name", Message: "Please enter a task name"}
	}
	for _, t := range s.tasks {
		if t.task.Name == name && t.task.Status != model.TaskFailed {
			return &model.ValidationError{Field: "task_name", Message: fmt.Sprintf("a task named %q already exists", name)}
		}
	}
	if len(s.sources) < MinSources {
		return &model.ValidationError{Field: "sources", Message: "Please add at least two data sources"}
	}
	return nil
}

// dropFailedLocked forgets an earlier failed attempt under name so a retry
// replaces it.
func (s *Session) dropFailedLocked(name string) {
	kept := s.tasks[:0:0]
	for _, t := range s.tasks {
		if t.task.Name == name && t.task.Status == model.TaskFailed {
			continue
		}
		kept = append(kept, t)
	}
	s.tasks = kept
}

// LoadHistory merges the backend's task list into the history. Reports the
// session has not seen are added as completed, after the ones it has.
func (s *Session) LoadHistory(ctx context.Context) ([]model.Task, error) {
	summaries, err := s.backend.ListTasks(ctx)
	if err != nil {
		log.Error().Err(err).Msg("❌ Failed to load task history")
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	known := make(map[string]bool, len(s.tasks))
	for _, t := range s.tasks {
		known[t.task.Name] = true
	}
	added := 0
	for _, sum := range summaries {
		if known[sum.TaskName] {
			continue
		}
		known[sum.TaskName] = true
		done := make(chan struct{})
		close(done)
		s.tasks = append(s.tasks, &trackedTask{
			task: model.Task{
				Name:        sum.TaskName,
				SourceCount: sum.RecordCount,
				Status:      model.TaskCompleted,
			},
			done: done,
		})
		added++
	}
	log.Debug().Int("remote", len(summaries)).Int("added", added).Msg("📋 Task history loaded")
	return s.tasksLocked(), nil
}

// Tasks returns the history, newest first.
func (s *Session) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasksLocked()
}

func (s *Session) tasksLocked() []model.Task {
	out := make([]model.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.task
	}
	return out
}

// Task looks a task up by name.
func (s *Session) Task(name string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.task.Name == name {
			return t.task, true
		}
	}
	return model.Task{}, false
}

// Done returns a channel closed once the named task has left pending. It is
// nil for an unknown task.
func (s *Session) Done(name string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.task.Name == name {
			return t.done
		}
	}
	return nil
}
