package sessionstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	"github.com/imamik/chainfleet/internal/configservice"
	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/ledger"
	s3client "github.com/imamik/chainfleet/internal/platform/s3"
	"github.com/imamik/chainfleet/internal/platform/s3/s3test"
	"github.com/imamik/chainfleet/internal/util/labels"
)

func testSession(id configservice.SessionID) *configservice.Session {
	return &configservice.Session{
		ID: id,
		Nodes: map[int][]configservice.Component{
			0: {{ServiceType: ledger.Concord, URL: "/concord/config-public/genesis.json", Base64Value: "e30="}},
			1: {{ServiceType: ledger.Concord, URL: "/concord/config-public/genesis.json", Base64Value: "e30="}},
		},
		CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newKubernetesStore(t *testing.T, funcs *interceptor.Funcs) *Kubernetes {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, corev1.AddToScheme(scheme))
	b := fake.NewClientBuilder().WithScheme(scheme)
	if funcs != nil {
		b = b.WithInterceptorFuncs(*funcs)
	}
	return NewKubernetes(b.Build(), "chainfleet")
}

func newS3Store(t *testing.T) (*S3, *s3test.Server) {
	t.Helper()
	server := s3test.NewServer()
	t.Cleanup(server.Close)
	c := s3client.NewFromS3(server.Client(), "fsn1")
	require.NoError(t, c.EnsureBucket(context.Background(), "chainfleet"))
	return NewS3(c, "chainfleet", "dev"), server
}

// contract exercises the create-once, read-many, delete-once behavior every
// backend must share.
func contract(t *testing.T, store configservice.SessionStore) {
	t.Helper()
	ctx := context.Background()
	const id = configservice.SessionID(9876543210)

	_, err := store.Get(ctx, id)
	assert.True(t, errdefs.IsNotFound(err), "get before insert: %v", err)

	require.NoError(t, store.Insert(ctx, testSession(id)))

	err = store.Insert(ctx, testSession(id))
	assert.True(t, errdefs.IsConflict(err), "second insert: %v", err)

	for range 2 {
		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		components, err := got.Node(1)
		require.NoError(t, err)
		assert.Equal(t, "/concord/config-public/genesis.json", components[0].URL)
		_, err = got.Node(2)
		assert.True(t, errdefs.IsNotFound(err))
	}

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.True(t, errdefs.IsNotFound(err), "get after delete: %v", err)
	err = store.Delete(ctx, id)
	assert.True(t, errdefs.IsNotFound(err), "second delete: %v", err)
}

func TestStores_Contract(t *testing.T) {
	t.Parallel()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		contract(t, configservice.NewMemoryStore())
	})
	t.Run("kubernetes", func(t *testing.T) {
		t.Parallel()
		contract(t, newKubernetesStore(t, nil))
	})
	t.Run("s3", func(t *testing.T) {
		t.Parallel()
		store, _ := newS3Store(t)
		contract(t, store)
	})
}

func TestKubernetes_SecretShape(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newKubernetesStore(t, nil)
	require.NoError(t, store.Insert(ctx, testSession(7)))

	index := &corev1.Secret{}
	require.NoError(t, store.client.Get(ctx, store.key(7), index))
	assert.Equal(t, "chainfleet-session-7", index.Name)
	assert.Equal(t, labels.ComponentConfigurationSession, index.Labels[labels.KeyComponent])
	assert.Equal(t, "7", index.Labels[labels.KeySession])
	require.NotNil(t, index.Immutable)
	assert.True(t, *index.Immutable)
	assert.JSONEq(t, `{"id":7,"nodes":[0,1],"createdAt":"2024-03-01T00:00:00Z"}`, string(index.Data[SecretDataKey]))

	node := &corev1.Secret{}
	require.NoError(t, store.client.Get(ctx, client.ObjectKey{Namespace: "chainfleet", Name: "chainfleet-session-7-node-1"}, node))
	assert.Equal(t, labels.ComponentConfigurationNode, node.Labels[labels.KeyComponent])
	assert.Equal(t, "7", node.Labels[labels.KeySession])
	assert.Equal(t, "1", node.Labels[labels.KeyNode])
	require.NotNil(t, node.Immutable)
	assert.True(t, *node.Immutable)
	assert.Contains(t, string(node.Data[NodeDataKey]), `"componentUrl"`)
}

func secretNames(t *testing.T, store *Kubernetes) []string {
	t.Helper()
	list := &corev1.SecretList{}
	require.NoError(t, store.client.List(context.Background(), list, client.InNamespace("chainfleet")))
	names := make([]string, 0, len(list.Items))
	for _, s := range list.Items {
		names = append(names, s.Name)
	}
	return names
}

func TestKubernetes_DeleteRemovesNodeSecrets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newKubernetesStore(t, nil)
	require.NoError(t, store.Insert(ctx, testSession(7)))
	require.NoError(t, store.Insert(ctx, testSession(8)))
	assert.Len(t, secretNames(t, store), 6)

	require.NoError(t, store.Delete(ctx, 7))
	assert.ElementsMatch(t, []string{
		"chainfleet-session-8",
		"chainfleet-session-8-node-0",
		"chainfleet-session-8-node-1",
	}, secretNames(t, store))
}

func TestKubernetes_SecretSizeBound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newKubernetesStore(t, nil)
	store.maxBytes = 512

	big := testSession(3)
	big.Nodes[1] = append(big.Nodes[1], configservice.Component{
		ServiceType: ledger.Concord,
		URL:         "/concord/config-local/concord.config",
		Base64Value: strings.Repeat("A", 1024),
	})

	err := store.Insert(ctx, big)
	require.Error(t, err)
	assert.True(t, errdefs.IsValidation(err), "oversized node: %v", err)
	assert.Contains(t, err.Error(), "node 1")
	assert.Empty(t, secretNames(t, store), "nothing is written for a rejected session")

	_, err = store.Get(ctx, 3)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestKubernetes_FailedInsertLeavesNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("quota exceeded")
	store := newKubernetesStore(t, &interceptor.Funcs{
		Create: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.CreateOption) error {
			if obj.GetName() == "chainfleet-session-5" {
				return boom
			}
			return c.Create(ctx, obj, opts...)
		},
	})

	err := store.Insert(ctx, testSession(5))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, secretNames(t, store))

	_, err = store.Get(ctx, 5)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestKubernetes_APIErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("apiserver unavailable")
	store := newKubernetesStore(t, &interceptor.Funcs{
		Create: func(context.Context, client.WithWatch, client.Object, ...client.CreateOption) error { return boom },
		Get: func(context.Context, client.WithWatch, client.ObjectKey, client.Object, ...client.GetOption) error {
			return boom
		},
	})

	err := store.Insert(context.Background(), testSession(1))
	assert.ErrorIs(t, err, boom)
	assert.False(t, errdefs.IsConflict(err))

	_, err = store.Get(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}

func TestS3_ObjectLayout(t *testing.T) {
	t.Parallel()
	store, server := newS3Store(t)

	require.NoError(t, store.Insert(context.Background(), testSession(55)))
	data, ok := server.Object("chainfleet", "dev/sessions/55.json")
	require.True(t, ok)
	assert.Contains(t, string(data), `"nodes"`)
}

func TestService_WithDurableStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newS3Store(t)
	svc := configservice.NewService(store, nil)

	id, err := svc.CreateConfiguration(ctx, &configservice.Request{
		Hosts:      []string{"10.0.0.1", "10.0.0.2"},
		Services:   []ledger.ServiceType{ledger.Logging},
		Properties: map[string]string{configservice.PropertyLoggingConfig: "info"},
	})
	require.NoError(t, err)

	components, err := svc.NodeConfiguration(ctx, id, 1)
	require.NoError(t, err)
	require.Len(t, components, 1)
	assert.Equal(t, configservice.LoggingEnvPath, components[0].URL)

	require.NoError(t, svc.DeleteConfiguration(ctx, id))
	assert.True(t, errdefs.IsNotFound(svc.DeleteConfiguration(ctx, id)))
}
