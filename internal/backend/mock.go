package backend

import (
	"context"
	"sort"
	"sync"
)

// MockBackend is a mock implementation of Backend for testing
type MockBackend struct {
	mu sync.RWMutex

	// Tech is the technology the mock claims to serve
	Tech Technology

	// Environments tracks mock environments by node id
	Environments map[string]*Observed

	// Errors allows injecting errors for specific operations
	// ("Create", "Start", "Stop", "Remove", "List")
	Errors map[string]error

	// CallLog records all method calls for verification
	CallLog []MockCall

	// Hook, when set, runs at the start of every call outside the mock's
	// lock. Tests use it to block or observe concurrent calls.
	Hook func(method string)
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	NodeID string
}

// NewMockBackend creates a new mock backend
func NewMockBackend(tech Technology) *MockBackend {
	return &MockBackend{
		Tech:         tech,
		Environments: make(map[string]*Observed),
		Errors:       make(map[string]error),
		CallLog:      make([]MockCall, 0),
	}
}

func (m *MockBackend) enter(method, id string) error {
	if m.Hook != nil {
		m.Hook(method)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, MockCall{Method: method, NodeID: id})
	return m.Errors[method]
}

// SetError sets an error to be returned for a specific operation
func (m *MockBackend) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// AddEnvironment adds an environment to the mock as if created externally
func (m *MockBackend) AddEnvironment(o Observed) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.Technology == "" {
		o.Technology = m.Tech
	}
	m.Environments[o.NodeID] = &o
}

// GetCallsFor returns all calls for a specific method
func (m *MockBackend) GetCallsFor(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// Technology returns the configured technology
func (m *MockBackend) Technology() Technology {
	return m.Tech
}

// Create records a new running environment
func (m *MockBackend) Create(ctx context.Context, id string, cfg NodeConfig) (Handle, error) {
	if err := m.enter("Create", id); err != nil {
		return Handle{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.handle(id)
	m.Environments[id] = &Observed{
		NodeID:     id,
		Name:       cfg.Name,
		Technology: m.Tech,
		Handle:     h,
		Running:    true,
		Status:     "running",
	}
	return h, nil
}

func (m *MockBackend) handle(id string) Handle {
	if m.Tech.IsContainer() {
		return Handle{ContainerID: "ctr-" + id}
	}
	return Handle{VMID: "vm-" + id}
}

// Start marks an environment running
func (m *MockBackend) Start(ctx context.Context, t Target) error {
	if err := m.enter("Start", t.NodeID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if env, ok := m.Environments[t.NodeID]; ok {
		env.Running = true
		env.Status = "running"
	}
	return nil
}

// Stop marks an environment stopped
func (m *MockBackend) Stop(ctx context.Context, t Target) error {
	if err := m.enter("Stop", t.NodeID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if env, ok := m.Environments[t.NodeID]; ok {
		env.Running = false
		env.Status = "exited"
	}
	return nil
}

// Remove deletes an environment
func (m *MockBackend) Remove(ctx context.Context, t Target) error {
	if err := m.enter("Remove", t.NodeID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Environments, t.NodeID)
	return nil
}

// List returns the environments sorted by node id
func (m *MockBackend) List(ctx context.Context) ([]Observed, error) {
	if err := m.enter("List", ""); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Observed, 0, len(m.Environments))
	for _, env := range m.Environments {
		result = append(result, *env)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].NodeID < result[j].NodeID })
	return result, nil
}

// StaticDetector returns fixed capabilities.
type StaticDetector struct {
	Caps Capabilities
}

// Detect returns the fixed capabilities.
func (d StaticDetector) Detect(ctx context.Context) Capabilities {
	return d.Caps
}

var (
	_ Backend  = (*MockBackend)(nil)
	_ Lister   = (*MockBackend)(nil)
	_ Detector = StaticDetector{}
)
