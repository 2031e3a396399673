// Package tools executes structured tool calls on behalf of responders.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// ErrUnknownTool is reported when a tool id is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Result is the structured outcome of a tool call.
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	// Profile holds facts about the user derived from Data.
	Profile map[string]string `json:"profile,omitempty"`
}

// Executor runs a tool by id.
type Executor interface {
	Execute(ctx context.Context, toolID string, params map[string]any) Result
}

// Tool is a registered tool implementation.
type Tool struct {
	ID          string
	Description string
	// Params documents accepted parameters, name to description.
	Params map[string]string
	// ProfileKeys maps result data keys to user profile keys.
	ProfileKeys map[string]string
	Run         func(ctx context.Context, params map[string]any) (map[string]any, error)
}

// ToolExecutor runs registered tools with a per-call timeout.
type ToolExecutor struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	timeout time.Duration
}

// NewToolExecutor creates an executor with the built-in tools registered.
// A non-positive timeout disables the per-call deadline.
func NewToolExecutor(timeout time.Duration) *ToolExecutor {
	e := &ToolExecutor{tools: make(map[string]Tool), timeout: timeout}
	for _, t := range Builtins() {
		e.tools[t.ID] = t
	}
	return e
}

// Register adds or replaces a tool.
func (e *ToolExecutor) Register(t Tool) error {
	if t.ID == "" || t.Run == nil {
		return fmt.Errorf("register tool %q: id and run function are required", t.ID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tools[t.ID] = t
	return nil
}

// Has reports whether id is registered.
func (e *ToolExecutor) Has(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.tools[id]
	return ok
}

// Definitions returns registered tools sorted by id.
func (e *ToolExecutor) Definitions() []Tool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Tool, 0, len(e.tools))
	for _, t := range e.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Execute runs a tool by id with the given parameters.
// It never panics or returns an error; failures are reported in the Result.
func (e *ToolExecutor) Execute(ctx context.Context, toolID string, params map[string]any) Result {
	e.mu.RLock()
	t, ok := e.tools[toolID]
	e.mu.RUnlock()
	if !ok {
		return Result{Error: fmt.Sprintf("%v: %s", ErrUnknownTool, toolID)}
	}
	if params == nil {
		params = map[string]any{}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	type outcome struct {
		data map[string]any
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("tool panicked: %v", r)}
			}
		}()
		data, err := t.Run(ctx, params)
		done <- outcome{data, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return Result{Error: o.err.Error()}
		}
		return Result{Success: true, Data: o.data, Profile: profileFacts(t.ProfileKeys, o.data)}
	case <-ctx.Done():
		return Result{Error: fmt.Sprintf("tool %s: %v", toolID, ctx.Err())}
	}
}

func profileFacts(keys map[string]string, data map[string]any) map[string]string {
	var out map[string]string
	for dataKey, profileKey := range keys {
		v, ok := data[dataKey]
		if !ok || v == nil {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(keys))
		}
		switch x := v.(type) {
		case string:
			out[profileKey] = x
		case float64:
			out[profileKey] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[profileKey] = strconv.FormatBool(x)
		default:
			out[profileKey] = fmt.Sprint(x)
		}
	}
	return out
}

// ProfileUpdates merges the profile facts of successful calls, later calls winning.
func ProfileUpdates(calls []Call) map[string]string {
	var out map[string]string
	for _, c := range calls {
		if !c.Result.Success {
			continue
		}
		for k, v := range c.Result.Profile {
			if out == nil {
				out = make(map[string]string)
			}
			out[k] = v
		}
	}
	return out
}
