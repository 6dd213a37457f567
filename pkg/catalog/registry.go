package catalog

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spindlework/a2ahost/pkg/activity"
)

/*
ServiceLocator resolves the agent instance a turn should run against.  The
worker resolves per-turn rather than holding the agent, so implementations
are free to hand out transient instances.
*/
type ServiceLocator interface {
	Resolve(agentType string) (activity.Agent, error)
}

// NotFoundError is returned when no agent is registered for a type.
type NotFoundError struct {
	AgentType string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no agent registered for type: %s", e.AgentType)
}

// Entry binds an agent type to its registered instance.
type Entry struct {
	Type  string
	Agent activity.Agent
}

/*
Registry is the in-process ServiceLocator.  The empty agent type resolves to
the entry registered as the default, which is how single-agent hosts work.
*/
type Registry struct {
	agents      sync.Map
	defaultType string
	mu          sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an agent under its type. The first registered agent becomes
// the default.
func (registry *Registry) Register(entry Entry) {
	log.Info("registering agent", "type", entry.Type)
	registry.agents.Store(entry.Type, entry)

	registry.mu.Lock()
	if registry.defaultType == "" {
		registry.defaultType = entry.Type
	}
	registry.mu.Unlock()
}

func (registry *Registry) Resolve(agentType string) (activity.Agent, error) {
	if agentType == "" {
		registry.mu.Lock()
		agentType = registry.defaultType
		registry.mu.Unlock()
	}

	entry, ok := registry.agents.Load(agentType)

	if !ok {
		return nil, &NotFoundError{AgentType: agentType}
	}

	return entry.(Entry).Agent, nil
}

// Entries returns every registered entry, in no particular order.
func (registry *Registry) Entries() []Entry {
	entries := make([]Entry, 0)

	registry.agents.Range(func(key, value any) bool {
		entries = append(entries, value.(Entry))
		return true
	})

	return entries
}
