package audience

import (
	"context"
	"sync"
)

// CSVFile describes one audience artifact produced by a generator.
type CSVFile struct {
	Path         string `json:"path"`
	RowCount     int    `json:"rowCount"`
	IsTestFile   bool   `json:"isTestFile"`
	AudienceType string `json:"audienceType,omitempty"`
}

// Request carries per-execution parameters into a generator.
type Request struct {
	AutomationID  string
	LookbackHours int
	CoolingHours  int
	OutputDir     string
	DryRun        bool
}

// GenerationResult is the outcome of an in-process audience generation.
type GenerationResult struct {
	Success      bool
	AudienceSize int
	CSVFiles     []CSVFile
}

// Generator produces an audience for one automation push cycle. In-process
// generators issue their own DB queries and write their output artifacts.
type Generator interface {
	Generate(ctx context.Context, req Request) (GenerationResult, error)
}

// Registry maps script ids to in-process generators.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
}

// NewRegistry creates an empty generator registry.
func NewRegistry() *Registry {
	return &Registry{generators: make(map[string]Generator)}
}

// Register installs a generator for the script id, replacing any previous one.
func (r *Registry) Register(scriptID string, g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[scriptID] = g
}

// Has reports whether an in-process generator exists for the script id.
func (r *Registry) Has(scriptID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.generators[scriptID]
	return ok
}

// Get returns the generator for the script id, or nil.
func (r *Registry) Get(scriptID string) Generator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generators[scriptID]
}
