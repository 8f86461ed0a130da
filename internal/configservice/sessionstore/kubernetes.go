package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/chainfleet/internal/configservice"
	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/util/async"
	"github.com/imamik/chainfleet/internal/util/labels"
	"github.com/imamik/chainfleet/internal/util/naming"
	"github.com/imamik/chainfleet/internal/util/ptr"
)

const (
	// SecretDataKey is the index Secret data key holding the session header.
	SecretDataKey = "session.json"

	// NodeDataKey is the node Secret data key holding one node's components.
	NodeDataKey = "components.json"

	// DefaultMaxSecretBytes keeps every Secret under the API server's 1 MiB
	// object limit with room left for metadata.
	DefaultMaxSecretBytes = 1000 * 1024
)

// sessionIndex is the header written once every node Secret exists.
type sessionIndex struct {
	ID        configservice.SessionID `json:"id"`
	Nodes     []int                   `json:"nodes"`
	CreatedAt time.Time               `json:"createdAt"`
}

// Kubernetes stores each session as immutable Secrets: one per node plus an
// index Secret. The index is written last, so a readable index always names
// a complete set of nodes.
type Kubernetes struct {
	client    client.Client
	namespace string
	maxBytes  int
	workers   int
}

var _ configservice.SessionStore = (*Kubernetes)(nil)

// KubernetesOption configures a Kubernetes store.
type KubernetesOption func(*Kubernetes)

// WithMaxSecretBytes bounds the encoded size of a single node Secret.
func WithMaxSecretBytes(n int) KubernetesOption {
	return func(k *Kubernetes) {
		k.maxBytes = n
	}
}

// WithWorkers bounds concurrent Secret writes. Non-positive means one per CPU.
func WithWorkers(n int) KubernetesOption {
	return func(k *Kubernetes) {
		k.workers = n
	}
}

// NewKubernetes creates a Secret-backed store in namespace.
func NewKubernetes(c client.Client, namespace string, opts ...KubernetesOption) *Kubernetes {
	k := &Kubernetes{client: c, namespace: namespace, maxBytes: DefaultMaxSecretBytes}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *Kubernetes) key(id configservice.SessionID) types.NamespacedName {
	return types.NamespacedName{Namespace: k.namespace, Name: naming.SessionSecret(id.String())}
}

func (k *Kubernetes) nodeLabels(id configservice.SessionID) map[string]string {
	return labels.NewLabelBuilder(labels.ComponentConfigurationNode).WithSession(id.String()).Build()
}

func (k *Kubernetes) secret(name string, lbls map[string]string, key string, data []byte) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: k.namespace,
			Labels:    lbls,
		},
		Immutable: ptr.To(true),
		Type:      corev1.SecretTypeOpaque,
		Data:      map[string][]byte{key: data},
	}
}

// Insert implements configservice.SessionStore. A node whose encoded
// components exceed the Secret size bound fails validation before anything
// is written. Secrets created by a failed insert are removed again.
func (k *Kubernetes) Insert(ctx context.Context, session *configservice.Session) error {
	logger := log.FromContext(ctx).WithValues("session", session.ID)
	sid := session.ID.String()

	nodes := make([]int, 0, len(session.Nodes))
	for node := range session.Nodes {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)

	secrets := make([]*corev1.Secret, 0, len(nodes))
	for _, node := range nodes {
		data, err := json.Marshal(session.Nodes[node])
		if err != nil {
			return fmt.Errorf("failed to encode node %d of session %s: %w", node, sid, err)
		}
		if len(data) > k.maxBytes {
			return errdefs.Validationf("node %d configuration is %d bytes, over the %d byte Secret limit", node, len(data), k.maxBytes)
		}
		lbls := labels.NewLabelBuilder(labels.ComponentConfigurationNode).WithSession(sid).WithNode(node).Build()
		secrets = append(secrets, k.secret(naming.SessionNodeSecret(sid, node), lbls, NodeDataKey, data))
	}

	header, err := json.Marshal(sessionIndex{ID: session.ID, Nodes: nodes, CreatedAt: session.CreatedAt})
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sid, err)
	}

	if err := k.client.Get(ctx, k.key(session.ID), &corev1.Secret{}); err == nil {
		return errdefs.Conflictf("session %s already exists", sid)
	} else if !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to check session secret: %w", err)
	}

	var (
		mu      sync.Mutex
		created []*corev1.Secret
	)
	cleanup := func() {
		for _, s := range created {
			if err := k.client.Delete(context.WithoutCancel(ctx), s); err != nil && !apierrors.IsNotFound(err) {
				logger.Error(err, "failed to remove partial session secret", "secret", s.Name)
			}
		}
	}

	tasks := make([]async.Task, len(secrets))
	for i, s := range secrets {
		tasks[i] = async.Task{
			Name: s.Name,
			Func: func(ctx context.Context) error {
				if err := k.client.Create(ctx, s); err != nil {
					if apierrors.IsAlreadyExists(err) {
						return errdefs.Conflictf("session %s already exists", sid)
					}
					return err
				}
				mu.Lock()
				created = append(created, s)
				mu.Unlock()
				return nil
			},
		}
	}
	if err := async.RunParallel(ctx, tasks, k.workers); err != nil {
		cleanup()
		if errdefs.IsConflict(err) {
			return err
		}
		return fmt.Errorf("failed to create session node secrets: %w", err)
	}

	index := k.secret(naming.SessionSecret(sid),
		labels.NewLabelBuilder(labels.ComponentConfigurationSession).WithSession(sid).Build(),
		SecretDataKey, header)
	if err := k.client.Create(ctx, index); err != nil {
		cleanup()
		if apierrors.IsAlreadyExists(err) {
			return errdefs.Conflictf("session %s already exists", sid)
		}
		return fmt.Errorf("failed to create session secret: %w", err)
	}

	logger.V(1).Info("stored session", "nodes", len(nodes))
	return nil
}

// Get implements configservice.SessionStore.
func (k *Kubernetes) Get(ctx context.Context, id configservice.SessionID) (*configservice.Session, error) {
	secret := &corev1.Secret{}
	if err := k.client.Get(ctx, k.key(id), secret); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, errdefs.NotFoundf("no configuration available for session id %s", id)
		}
		return nil, fmt.Errorf("failed to get session secret: %w", err)
	}
	data, ok := secret.Data[SecretDataKey]
	if !ok {
		return nil, fmt.Errorf("session secret %s has no %s key", secret.Name, SecretDataKey)
	}
	var index sessionIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}

	list := &corev1.SecretList{}
	if err := k.client.List(ctx, list, client.InNamespace(k.namespace), client.MatchingLabels(k.nodeLabels(id))); err != nil {
		return nil, fmt.Errorf("failed to list session node secrets: %w", err)
	}

	session := &configservice.Session{
		ID:        index.ID,
		Nodes:     make(map[int][]configservice.Component, len(index.Nodes)),
		CreatedAt: index.CreatedAt,
	}
	for i := range list.Items {
		item := &list.Items[i]
		node, err := strconv.Atoi(item.Labels[labels.KeyNode])
		if err != nil {
			return nil, fmt.Errorf("session node secret %s has an invalid node label: %w", item.Name, err)
		}
		var components []configservice.Component
		if err := json.Unmarshal(item.Data[NodeDataKey], &components); err != nil {
			return nil, fmt.Errorf("failed to decode node %d of session %s: %w", node, id, err)
		}
		session.Nodes[node] = components
	}
	for _, node := range index.Nodes {
		if _, ok := session.Nodes[node]; !ok {
			return nil, fmt.Errorf("session %s is missing node %d", id, node)
		}
	}
	return session, nil
}

// Delete implements configservice.SessionStore. The index goes first, so
// the session stops being readable before its node Secrets are removed.
func (k *Kubernetes) Delete(ctx context.Context, id configservice.SessionID) error {
	index := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.SessionSecret(id.String()),
			Namespace: k.namespace,
		},
	}
	if err := k.client.Delete(ctx, index); err != nil {
		if apierrors.IsNotFound(err) {
			return errdefs.NotFoundf("no configuration available for session id %s", id)
		}
		return fmt.Errorf("failed to delete session secret: %w", err)
	}

	err := k.client.DeleteAllOf(ctx, &corev1.Secret{}, client.InNamespace(k.namespace), client.MatchingLabels(k.nodeLabels(id)))
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete node secrets of session %s: %w", id, err)
	}
	return nil
}
