package clusters

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"github.com/imamik/chainfleet/api/v1alpha1"
	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/util/labels"
	"github.com/imamik/chainfleet/internal/util/naming"
)

var testNodes = []Node{
	{NodeID: "n0", IP: "10.0.0.1", URL: "https://10.0.0.1:8545", Cert: "cert-0", ZoneID: "fsn1"},
	{NodeID: "n1", IP: "10.0.0.2", URL: "https://10.0.0.2:8545", Cert: "cert-1", ZoneID: "nbg1"},
}

func newFakeClient(funcs *interceptor.Funcs) client.Client {
	b := fake.NewClientBuilder().
		WithScheme(v1alpha1.Scheme).
		WithStatusSubresource(&v1alpha1.Blockchain{})
	if funcs != nil {
		b = b.WithInterceptorFuncs(*funcs)
	}
	return b.Build()
}

func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "c-1")
	assert.True(t, errdefs.IsNotFound(err), "get before create: %v", err)

	created, err := store.Create(ctx, "c-1", "consortium-a", testNodes)
	require.NoError(t, err)
	assert.Equal(t, "c-1", created.ID)
	assert.Equal(t, "consortium-a", created.ConsortiumID)
	if diff := cmp.Diff(testNodes, created.Nodes); diff != "" {
		t.Errorf("created nodes mismatch (-want +got):\n%s", diff)
	}

	_, err = store.Create(ctx, "c-1", "consortium-a", testNodes)
	assert.True(t, errdefs.IsConflict(err), "second create: %v", err)

	got, err := store.Get(ctx, "c-1")
	require.NoError(t, err)
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("get mismatch (-want +got):\n%s", diff)
	}

	_, err = store.Create(ctx, "c-0", "consortium-a", nil)
	require.NoError(t, err)
	_, err = store.Create(ctx, "c-2", "consortium-b", testNodes[:1])
	require.NoError(t, err)

	list, err := store.List(ctx, "consortium-a")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c-0", list[0].ID)
	assert.Equal(t, "c-1", list[1].ID)

	list, err = store.List(ctx, "consortium-none")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = store.Create(ctx, "", "consortium-a", nil)
	assert.True(t, errdefs.IsValidation(err))
}

func TestStores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store func() Store
	}{
		{name: "memory", store: func() Store { return NewMemoryStore() }},
		{name: "crd", store: func() Store { return NewCRDStore(newFakeClient(nil), "chainfleet") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			storeContract(t, tt.store())
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	ctx := context.Background()

	nodes := append([]Node(nil), testNodes...)
	created, err := store.Create(ctx, "c-1", "consortium-a", nodes)
	require.NoError(t, err)

	nodes[0].IP = "mutated"
	created.Nodes[1].IP = "mutated"

	got, err := store.Get(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", got.Nodes[0].IP)
	assert.Equal(t, "10.0.0.2", got.Nodes[1].IP)
}

func TestCRDStoreWritesBlockchain(t *testing.T) {
	t.Parallel()
	c := newFakeClient(nil)
	store := NewCRDStore(c, "chainfleet", WithBlockchainType("ETHEREUM"))

	_, err := store.Create(context.Background(), "C-42", "consortium-a", testNodes)
	require.NoError(t, err)

	bc := &v1alpha1.Blockchain{}
	key := types.NamespacedName{Namespace: "chainfleet", Name: naming.Blockchain("C-42")}
	require.NoError(t, c.Get(context.Background(), key, bc))

	assert.Equal(t, "chainfleet-blockchain-c-42", bc.Name)
	assert.Equal(t, "ETHEREUM", bc.Spec.BlockchainType)
	assert.Equal(t, "C-42", bc.Spec.ClusterID)
	assert.Equal(t, labels.ComponentBlockchain, bc.Labels[labels.KeyComponent])
	assert.Equal(t, labels.ManagedByChainfleet, bc.Labels[labels.KeyManagedBy])
	assert.Equal(t, "consortium-a", bc.Labels[labels.KeyConsortium])
	assert.Equal(t, "C-42", bc.Labels[labels.KeyCluster])

	assert.Equal(t, v1alpha1.BlockchainPhaseActive, bc.Status.Phase)
	assert.Equal(t, 2, bc.Status.NodeCount)
	assert.True(t, meta.IsStatusConditionTrue(bc.Status.Conditions, v1alpha1.ConditionReady))
}

func TestCRDStoreRetriesStatusConflict(t *testing.T) {
	t.Parallel()
	attempts := 0
	c := newFakeClient(&interceptor.Funcs{
		SubResourceUpdate: func(ctx context.Context, c client.Client, sub string, obj client.Object, opts ...client.SubResourceUpdateOption) error {
			attempts++
			if attempts == 1 {
				return apierrors.NewConflict(schema.GroupResource{Group: "chainfleet.io", Resource: "blockchains"}, obj.GetName(), errors.New("stale"))
			}
			return c.SubResource(sub).Update(ctx, obj, opts...)
		},
	})
	store := NewCRDStore(c, "chainfleet")

	_, err := store.Create(context.Background(), "c-1", "consortium-a", testNodes)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestCRDStoreRemovesUnactivatedBlockchain(t *testing.T) {
	t.Parallel()
	boom := errors.New("status subresource unavailable")
	c := newFakeClient(&interceptor.Funcs{
		SubResourceUpdate: func(context.Context, client.Client, string, client.Object, ...client.SubResourceUpdateOption) error {
			return boom
		},
	})
	store := NewCRDStore(c, "chainfleet")
	ctx := context.Background()

	_, err := store.Create(ctx, "c-1", "consortium-a", testNodes)
	assert.ErrorIs(t, err, boom)

	_, err = store.Get(ctx, "c-1")
	assert.True(t, errdefs.IsNotFound(err), "pending resource must be removed: %v", err)
	list, err := store.List(ctx, "consortium-a")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCRDStoreListSkipsInactive(t *testing.T) {
	t.Parallel()
	c := newFakeClient(nil)
	store := NewCRDStore(c, "chainfleet")
	ctx := context.Background()

	_, err := store.Create(ctx, "c-1", "consortium-a", testNodes)
	require.NoError(t, err)

	pending := &v1alpha1.Blockchain{
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.Blockchain("c-2"),
			Namespace: "chainfleet",
			Labels:    labels.NewLabelBuilder(labels.ComponentBlockchain).WithConsortium("consortium-a").WithCluster("c-2").Build(),
		},
		Spec: v1alpha1.BlockchainSpec{ClusterID: "c-2", ConsortiumID: "consortium-a"},
	}
	require.NoError(t, c.Create(ctx, pending))

	list, err := store.List(ctx, "consortium-a")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c-1", list[0].ID)
}

func TestCRDStoreAPIErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("apiserver unavailable")
	c := newFakeClient(&interceptor.Funcs{
		Create: func(context.Context, client.WithWatch, client.Object, ...client.CreateOption) error { return boom },
		Get: func(context.Context, client.WithWatch, client.ObjectKey, client.Object, ...client.GetOption) error {
			return boom
		},
		List: func(context.Context, client.WithWatch, client.ObjectList, ...client.ListOption) error { return boom },
	})
	store := NewCRDStore(c, "chainfleet")
	ctx := context.Background()

	_, err := store.Create(ctx, "c-1", "consortium-a", testNodes)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errdefs.IsConflict(err))

	_, err = store.Get(ctx, "c-1")
	assert.ErrorIs(t, err, boom)
	assert.False(t, errdefs.IsNotFound(err))

	_, err = store.List(ctx, "consortium-a")
	assert.ErrorIs(t, err, boom)
}
