// Package graph provides a dependency graph for deep-path task plans.
package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ShayCichocki/concierge/pkg/models"
)

var (
	// ErrCycleDetected indicates a circular dependency was found in the task graph.
	ErrCycleDetected = errors.New("circular dependency detected")
	// ErrUnknownDependency indicates a task depends on an id that is not in the graph.
	ErrUnknownDependency = errors.New("unknown dependency")
	// ErrDuplicateTask indicates two tasks share an id.
	ErrDuplicateTask = errors.New("duplicate task id")
)

// DependencyGraph is a directed acyclic graph of task dependencies.
// Edges point from a task to the tasks it depends on.
type DependencyGraph struct {
	mu sync.RWMutex
	// order keeps task ids in insertion order so traversals are deterministic.
	order []string
	nodes map[string]*models.DeepTask
	edges map[string][]string
	// completed tracks tasks marked complete through MarkComplete.
	completed map[string]bool
	debugLog  func(format string, args ...interface{})
}

// New creates an empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:     make(map[string]*models.DeepTask),
		edges:     make(map[string][]string),
		completed: make(map[string]bool),
		debugLog:  func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Build constructs the graph from tasks.
// It fails on duplicate ids, unknown dependencies, and cycles.
func (g *DependencyGraph) Build(tasks []*models.DeepTask) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.debugLog("[graph.Build] building graph from %d tasks", len(tasks))

	for _, task := range tasks {
		if _, exists := g.nodes[task.ID]; exists {
			return fmt.Errorf("task %s: %w", task.ID, ErrDuplicateTask)
		}
		g.nodes[task.ID] = task
		g.edges[task.ID] = nil
		g.order = append(g.order, task.ID)
	}

	for _, task := range tasks {
		for _, depID := range task.Dependencies {
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("task %s depends on %s: %w", task.ID, depID, ErrUnknownDependency)
			}
			g.edges[task.ID] = append(g.edges[task.ID], depID)
		}
	}

	if g.hasCycleLocked() {
		return ErrCycleDetected
	}

	g.debugLog("[graph.Build] graph built with %d nodes, edges=%v", len(g.nodes), g.edges)
	return nil
}

// hasCycleLocked runs a colored depth-first search; callers hold the lock.
func (g *DependencyGraph) hasCycleLocked() bool {
	const (
		white = iota
		gray
		black
	)
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = gray
		for _, depID := range g.edges[id] {
			switch colors[depID] {
			case gray:
				return true
			case white:
				if visit(depID) {
					return true
				}
			}
		}
		colors[id] = black
		return false
	}

	for _, id := range g.order {
		if colors[id] == white && visit(id) {
			return true
		}
	}
	return false
}

// IsTopological reports whether ids lists every dependency before its dependents.
func (g *DependencyGraph) IsTopological(ids []string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}
	for id, deps := range g.edges {
		p, ok := pos[id]
		if !ok {
			continue
		}
		for _, depID := range deps {
			if dp, ok := pos[depID]; !ok || dp > p {
				return false
			}
		}
	}
	return true
}

// DependenciesMet reports whether every dependency of taskID is completed,
// either through MarkComplete or by task status.
func (g *DependencyGraph) DependenciesMet(taskID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, depID := range g.edges[taskID] {
		if g.completed[depID] {
			continue
		}
		dep, ok := g.nodes[depID]
		if !ok || dep.Status != models.TaskStatusCompleted {
			g.debugLog("[graph.DependenciesMet] task %s: dep %s not satisfied", taskID, depID)
			return false
		}
	}
	return true
}

// MarkComplete marks a task as completed in the graph.
func (g *DependencyGraph) MarkComplete(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.debugLog("[graph.MarkComplete] marking task %s as complete", taskID)
	g.completed[taskID] = true
}

// GetTask returns the task for a given id, or nil if not found.
func (g *DependencyGraph) GetTask(taskID string) *models.DeepTask {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[taskID]
}

// GetDependencies returns the ids of tasks that taskID depends on.
func (g *DependencyGraph) GetDependencies(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.edges[taskID]...)
}
