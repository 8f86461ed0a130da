package clusters

import (
	"context"
	"sort"
	"sync"

	"github.com/imamik/chainfleet/internal/errdefs"
)

// Node is one replica of a deployed cluster.
type Node struct {
	NodeID string `json:"nodeId"`
	// IP is the canonical dotted-decimal IPv4 address.
	IP     string `json:"ip"`
	URL    string `json:"url,omitempty"`
	Cert   string `json:"cert,omitempty"`
	ZoneID string `json:"zoneId,omitempty"`
}

// Resource is a deployed cluster visible to its consortium.
type Resource struct {
	ID           string `json:"id"`
	ConsortiumID string `json:"consortiumId"`
	Nodes        []Node `json:"nodeList"`
}

func (r *Resource) clone() *Resource {
	out := *r
	out.Nodes = append([]Node(nil), r.Nodes...)
	return &out
}

// Store persists cluster resources.
type Store interface {
	// Create records a new cluster. A second create for the same id fails
	// with a conflict.
	Create(ctx context.Context, clusterID, consortiumID string, nodes []Node) (*Resource, error)
	// Get fails with NotFound for an unknown cluster.
	Get(ctx context.Context, clusterID string) (*Resource, error)
	// List returns the clusters of a consortium ordered by id.
	List(ctx context.Context, consortiumID string) ([]*Resource, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu        sync.RWMutex
	resources map[string]*Resource
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{resources: make(map[string]*Resource)}
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, clusterID, consortiumID string, nodes []Node) (*Resource, error) {
	if clusterID == "" {
		return nil, errdefs.Validationf("cluster id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.resources[clusterID]; ok {
		return nil, errdefs.Conflictf("cluster %s already exists", clusterID)
	}
	r := &Resource{ID: clusterID, ConsortiumID: consortiumID, Nodes: append([]Node(nil), nodes...)}
	m.resources[clusterID] = r
	return r.clone(), nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, clusterID string) (*Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.resources[clusterID]
	if !ok {
		return nil, errdefs.NotFoundf("cluster %s not found", clusterID)
	}
	return r.clone(), nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, consortiumID string) ([]*Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Resource
	for _, r := range m.resources {
		if r.ConsortiumID == consortiumID {
			out = append(out, r.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
