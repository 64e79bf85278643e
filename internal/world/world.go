// Package world owns the population of agents and ticks them together.
package world

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AaronLay10/behaviorgraph/internal/behavior"
	"github.com/AaronLay10/behaviorgraph/internal/capability"
	"github.com/AaronLay10/behaviorgraph/internal/events"
	"github.com/AaronLay10/behaviorgraph/internal/graph"
	"github.com/AaronLay10/behaviorgraph/internal/sim"
)

// Body is the provider side of an agent. It is attached to every category
// it implements and advanced once per tick before the interpreter steps.
type Body interface {
	Attach(set *capability.Set) *capability.Set
	Advance(dt float64)
}

// Agent is one spawned interpreter and the body it drives.
type Agent struct {
	ID        string
	Graph     string
	Spawned   time.Time
	Interp    *behavior.Interpreter
	Providers *capability.Set
	Body      Body
}

// Info is the JSON view of an agent.
type Info struct {
	ID       string                `json:"id"`
	Graph    string                `json:"graph"`
	Spawned  string                `json:"spawned"`
	Status   behavior.Status       `json:"status"`
	Current  behavior.NodeState    `json:"current"`
	Body     *sim.State            `json:"body,omitempty"`
	Attached []capability.Category `json:"attached"`
}

// Options configures a World.
type Options struct {
	Workers      int
	LenientNames bool
	Registry     *capability.Registry
	Skills       behavior.SkillSource
	Observer     behavior.Observer
	Logger       *slog.Logger
}

// World is safe for concurrent use. Tick may run while the API reads and
// mutates agents.
type World struct {
	opts Options
	log  *slog.Logger

	mu     sync.RWMutex
	graphs map[string]*graph.Definition
	agents map[string]*Agent
}

// New creates an empty world.
func New(opts Options) *World {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &World{
		opts:   opts,
		log:    opts.Logger,
		graphs: make(map[string]*graph.Definition),
		agents: make(map[string]*Agent),
	}
}

// AddGraph registers def under name, replacing any previous definition.
// Running agents keep the definition they were compiled from.
func (w *World) AddGraph(name string, def *graph.Definition) {
	w.mu.Lock()
	w.graphs[name] = def
	w.mu.Unlock()

	events.Emit("info", "graph.loaded", "", map[string]interface{}{
		"graph":       name,
		"nodes":       len(def.Nodes),
		"transitions": len(def.Transitions),
	})
}

// Graph returns the definition registered under name.
func (w *World) Graph(name string) (*graph.Definition, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	def, ok := w.graphs[name]
	return def, ok
}

// GraphNames returns the registered graph names, sorted.
func (w *World) GraphNames() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	names := make([]string, 0, len(w.graphs))
	for n := range w.graphs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Spawn compiles the named graph for a new agent driving body. A non-zero
// seed makes the agent's draws deterministic.
func (w *World) Spawn(graphName string, body Body, seed uint64) (*Agent, error) {
	def, ok := w.Graph(graphName)
	if !ok {
		return nil, fmt.Errorf("graph not found: %s", graphName)
	}

	id := uuid.NewString()
	set := body.Attach(capability.NewSet())
	in, err := w.compile(def, set, id, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", graphName, err)
	}

	a := &Agent{
		ID:        id,
		Graph:     graphName,
		Spawned:   time.Now().UTC(),
		Interp:    in,
		Providers: set,
		Body:      body,
	}
	w.mu.Lock()
	w.agents[id] = a
	w.mu.Unlock()

	events.Emit("info", "agent.spawned", "", map[string]interface{}{
		"agent": id,
		"graph": graphName,
	})
	return a, nil
}

// Check compiles def against body without spawning anything.
func (w *World) Check(def *graph.Definition, body Body) error {
	_, err := w.compile(def, body.Attach(capability.NewSet()), "", 1)
	return err
}

func (w *World) compile(def *graph.Definition, set *capability.Set, id string, seed uint64) (*behavior.Interpreter, error) {
	opts := behavior.Options{
		Registry:     w.opts.Registry,
		Providers:    set,
		Skills:       w.opts.Skills,
		Observer:     w.opts.Observer,
		AgentID:      id,
		LenientNames: w.opts.LenientNames,
		Logger:       w.log,
	}
	if id == "" {
		opts.Observer = behavior.ObserverFunc(func(string, map[string]interface{}) {})
	}
	if seed != 0 {
		opts.Rand = behavior.NewRand(seed)
	}
	return behavior.Compile(def, opts)
}

// Despawn removes an agent. Its interpreter is simply dropped.
func (w *World) Despawn(id string) error {
	w.mu.Lock()
	_, ok := w.agents[id]
	delete(w.agents, id)
	w.mu.Unlock()
	if !ok {
		return &AgentNotFoundError{ID: id}
	}

	events.Emit("info", "agent.despawned", "", map[string]interface{}{"agent": id})
	return nil
}

// Agent returns the agent with id.
func (w *World) Agent(id string) (*Agent, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.agents[id]
	if !ok {
		return nil, &AgentNotFoundError{ID: id}
	}
	return a, nil
}

// Agents returns every agent ordered by spawn time, then ID.
func (w *World) Agents() []*Agent {
	w.mu.RLock()
	out := make([]*Agent, 0, len(w.agents))
	for _, a := range w.agents {
		out = append(out, a)
	}
	w.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Spawned.Equal(out[j].Spawned) {
			return out[i].Spawned.Before(out[j].Spawned)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of agents.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.agents)
}

// Info builds the JSON view of a.
func (a *Agent) Info() Info {
	info := Info{
		ID:       a.ID,
		Graph:    a.Graph,
		Spawned:  a.Spawned.Format(time.RFC3339Nano),
		Status:   a.Interp.Status(),
		Current:  a.Interp.Current(),
		Attached: a.Providers.Categories(),
	}
	if s, ok := a.Body.(interface{ Snapshot() sim.State }); ok {
		st := s.Snapshot()
		info.Body = &st
	}
	return info
}

// Tick advances every agent by dt seconds, at most Workers at a time. An
// agent that halts is logged once and skipped from then on; it does not
// stop the others.
func (w *World) Tick(ctx context.Context, dt float64) error {
	agents := w.Agents()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Workers)
	for _, a := range agents {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if a.Interp.Halted() || a.Interp.Finished() {
				return nil
			}
			a.Body.Advance(dt)
			if err := a.Interp.Step(dt); err != nil {
				w.log.Error("agent halted", "agent", a.ID, "graph", a.Graph, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Run ticks the world every interval until ctx is cancelled. dt is the
// nominal interval, not the measured wall time.
func (w *World) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	dt := interval.Seconds()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Tick(ctx, dt); err != nil && ctx.Err() == nil {
				return err
			}
		}
	}
}
