package registry

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// Names of the built-in operations.
const (
	OpAnalyze    = "analyze"
	OpPartyVibe  = "party-vibe"
	OpTranscribe = "transcribe"
	OpCaption    = "caption"
	OpHealth     = "health"
)

// Operation describes one route exposed by the remote deployment.
type Operation struct {
	// Name is both the CLI command and the remote path segment.
	Name string
	// Method is http.MethodPost for uploads or http.MethodGet for probes.
	Method string
	// RequiresFile reports whether the operation uploads an audio file.
	RequiresFile bool
	// Title is the banner printed above human-readable output.
	Title string
	// Description is a one-line summary used in CLI help.
	Description string
}

// Registry is a simple registry of operations keyed by name.
//
// It lets the CLI and the high-level helpers resolve a command name to
// the route it calls without hard-coding the list in several places.
// Deployments that expose extra upload routes can register them.
type Registry interface {
	// Operation returns the registered operation for the given name.
	// If no such operation exists, a *NoSuchOperationError is returned.
	Operation(name string) (Operation, error)

	// Operations returns all registered operations sorted by name.
	Operations() []Operation

	// Register registers or replaces an operation under op.Name.
	Register(op Operation) error
}

// NoSuchOperationError indicates that a requested operation name was
// not found in the registry.
type NoSuchOperationError struct {
	// Name is the operation name that was requested.
	Name string
}

func (e *NoSuchOperationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("registry: no such operation %q", e.Name)
}

// InMemoryRegistry is a concurrency-safe in-memory implementation of Registry.
type InMemoryRegistry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// Ensure InMemoryRegistry implements Registry.
var _ Registry = (*InMemoryRegistry)(nil)

// NewInMemoryRegistry creates a new empty in-memory registry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{ops: make(map[string]Operation)}
}

// Builtins returns the operations served by the Audio Flamingo deployment.
func Builtins() []Operation {
	return []Operation{
		{Name: OpAnalyze, Method: http.MethodPost, RequiresFile: true, Title: "MUSIC ANALYSIS", Description: "Full music analysis: genre, mood, tempo, recommendations"},
		{Name: OpPartyVibe, Method: http.MethodPost, RequiresFile: true, Title: "PARTY VIBE CHECK", Description: "Party suitability rating and verdict"},
		{Name: OpTranscribe, Method: http.MethodPost, RequiresFile: true, Title: "LYRICS TRANSCRIPTION", Description: "Lyrics extraction"},
		{Name: OpCaption, Method: http.MethodPost, RequiresFile: true, Title: "SOCIAL MEDIA CAPTION", Description: "Social media caption for a track"},
		{Name: OpHealth, Method: http.MethodGet, RequiresFile: false, Title: "HEALTH", Description: "Check that the remote deployment is live"},
	}
}

// NewDefault returns a registry preloaded with Builtins.
func NewDefault() *InMemoryRegistry {
	r := NewInMemoryRegistry()
	for _, op := range Builtins() {
		r.ops[op.Name] = op
	}
	return r
}

// Operation implements Registry.Operation.
func (r *InMemoryRegistry) Operation(name string) (Operation, error) {
	r.mu.RLock()
	op, ok := r.ops[name]
	r.mu.RUnlock()
	if !ok {
		return Operation{}, &NoSuchOperationError{Name: name}
	}
	return op, nil
}

// Operations implements Registry.Operations.
func (r *InMemoryRegistry) Operations() []Operation {
	r.mu.RLock()
	out := make([]Operation, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, op)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Register implements Registry.Register. Uploads are always POST with
// a file; GET is reserved for the health probe.
func (r *InMemoryRegistry) Register(op Operation) error {
	if op.Name == "" {
		return fmt.Errorf("registry: operation name must not be empty")
	}
	switch op.Method {
	case "", http.MethodPost:
		op.Method = http.MethodPost
		op.RequiresFile = true
	case http.MethodGet:
		if op.Name != OpHealth {
			return fmt.Errorf("registry: only %q may use GET, got %q", OpHealth, op.Name)
		}
		op.RequiresFile = false
	default:
		return fmt.Errorf("registry: unsupported method %q for operation %q", op.Method, op.Name)
	}

	r.mu.Lock()
	r.ops[op.Name] = op
	r.mu.Unlock()
	return nil
}
