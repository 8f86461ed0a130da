package clusters

import (
	"context"
	"fmt"
	"sort"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/chainfleet/api/v1alpha1"
	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/util/labels"
	"github.com/imamik/chainfleet/internal/util/naming"
)

// CRDStore keeps each cluster as a Blockchain custom resource.
type CRDStore struct {
	client         client.Client
	namespace      string
	blockchainType string
}

var _ Store = (*CRDStore)(nil)

// CRDOption configures a CRDStore.
type CRDOption func(*CRDStore)

// WithBlockchainType stamps created resources with a ledger flavor.
func WithBlockchainType(t string) CRDOption {
	return func(s *CRDStore) {
		s.blockchainType = t
	}
}

// NewCRDStore creates a store writing Blockchain resources into namespace.
func NewCRDStore(c client.Client, namespace string, opts ...CRDOption) *CRDStore {
	s := &CRDStore{client: c, namespace: namespace}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create implements Store. The Blockchain object is created first, then its
// status is moved to Active. A resource whose activation fails is removed.
func (s *CRDStore) Create(ctx context.Context, clusterID, consortiumID string, nodes []Node) (*Resource, error) {
	logger := log.FromContext(ctx).WithValues("cluster", clusterID, "consortium", consortiumID)

	if clusterID == "" {
		return nil, errdefs.Validationf("cluster id is required")
	}

	bc := &v1alpha1.Blockchain{
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.Blockchain(clusterID),
			Namespace: s.namespace,
			Labels: labels.NewLabelBuilder(labels.ComponentBlockchain).
				WithConsortium(consortiumID).
				WithCluster(clusterID).
				Build(),
		},
		Spec: v1alpha1.BlockchainSpec{
			ClusterID:      clusterID,
			ConsortiumID:   consortiumID,
			BlockchainType: s.blockchainType,
			Nodes:          toBlockchainNodes(nodes),
		},
	}

	if err := s.client.Create(ctx, bc); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil, errdefs.Conflictf("cluster %s already exists", clusterID)
		}
		return nil, fmt.Errorf("failed to create blockchain %s: %w", bc.Name, err)
	}
	logger.Info("created blockchain resource", "name", bc.Name, "nodes", len(nodes))

	key := types.NamespacedName{Namespace: s.namespace, Name: bc.Name}
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		current := &v1alpha1.Blockchain{}
		if err := s.client.Get(ctx, key, current); err != nil {
			return err
		}
		current.Status.Phase = v1alpha1.BlockchainPhaseActive
		current.Status.NodeCount = len(current.Spec.Nodes)
		meta.SetStatusCondition(&current.Status.Conditions, metav1.Condition{
			Type:               v1alpha1.ConditionReady,
			Status:             metav1.ConditionTrue,
			Reason:             "Deployed",
			Message:            fmt.Sprintf("%d nodes deployed", len(current.Spec.Nodes)),
			ObservedGeneration: current.Generation,
		})
		return s.client.Status().Update(ctx, current)
	})
	if err != nil {
		if delErr := s.client.Delete(context.WithoutCancel(ctx), bc); delErr != nil && !apierrors.IsNotFound(delErr) {
			logger.Error(delErr, "failed to remove inactive blockchain resource", "name", bc.Name)
		}
		return nil, fmt.Errorf("failed to activate blockchain %s: %w", bc.Name, err)
	}

	return fromBlockchain(bc), nil
}

// Get implements Store.
func (s *CRDStore) Get(ctx context.Context, clusterID string) (*Resource, error) {
	bc := &v1alpha1.Blockchain{}
	key := types.NamespacedName{Namespace: s.namespace, Name: naming.Blockchain(clusterID)}
	if err := s.client.Get(ctx, key, bc); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, errdefs.NotFoundf("cluster %s not found", clusterID)
		}
		return nil, fmt.Errorf("failed to get blockchain %s: %w", key.Name, err)
	}
	return fromBlockchain(bc), nil
}

// List implements Store. Only Active resources are returned.
func (s *CRDStore) List(ctx context.Context, consortiumID string) ([]*Resource, error) {
	list := &v1alpha1.BlockchainList{}
	err := s.client.List(ctx, list,
		client.InNamespace(s.namespace),
		client.MatchingLabels(labels.NewLabelBuilder(labels.ComponentBlockchain).WithConsortium(consortiumID).Build()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list blockchains for consortium %s: %w", consortiumID, err)
	}

	out := make([]*Resource, 0, len(list.Items))
	for i := range list.Items {
		if list.Items[i].Status.Phase != v1alpha1.BlockchainPhaseActive {
			continue
		}
		out = append(out, fromBlockchain(&list.Items[i]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func toBlockchainNodes(nodes []Node) []v1alpha1.BlockchainNode {
	out := make([]v1alpha1.BlockchainNode, len(nodes))
	for i, n := range nodes {
		out[i] = v1alpha1.BlockchainNode{NodeID: n.NodeID, IP: n.IP, URL: n.URL, Cert: n.Cert, ZoneID: n.ZoneID}
	}
	return out
}

func fromBlockchain(bc *v1alpha1.Blockchain) *Resource {
	nodes := make([]Node, len(bc.Spec.Nodes))
	for i, n := range bc.Spec.Nodes {
		nodes[i] = Node{NodeID: n.NodeID, IP: n.IP, URL: n.URL, Cert: n.Cert, ZoneID: n.ZoneID}
	}
	return &Resource{ID: bc.Spec.ClusterID, ConsortiumID: bc.Spec.ConsortiumID, Nodes: nodes}
}
