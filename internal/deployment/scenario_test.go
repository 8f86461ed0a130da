package deployment_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/imamik/chainfleet/api/v1alpha1"
	"github.com/imamik/chainfleet/internal/auth"
	"github.com/imamik/chainfleet/internal/clusters"
	"github.com/imamik/chainfleet/internal/deployment"
	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/placement"
	"github.com/imamik/chainfleet/internal/tasks"
)

// scriptedProvisioner replays a fixed event script for every deployment.
type scriptedProvisioner struct {
	script []deployment.Update
	specs  []*placement.Specification
}

func (p *scriptedProvisioner) CreateCluster(_ context.Context, spec *placement.Specification, _ deployment.ModelSpec) (<-chan deployment.Update, error) {
	p.specs = append(p.specs, spec)
	ch := make(chan deployment.Update, len(p.script))
	for _, u := range p.script {
		ch <- u
	}
	close(ch)
	return ch, nil
}

func member(id, site string, ip uint32) deployment.Member {
	return deployment.Member{
		ID: id,
		HostInfo: deployment.HostInfo{
			Site:          site,
			IPv4Addresses: map[uint32]string{ip: "eth0"},
			Endpoints: map[string]deployment.Endpoint{
				deployment.RPCEndpoint: {URL: "https://" + deployment.CanonicalIPv4(ip) + ":8545", Certificate: "cert-" + id},
			},
		},
	}
}

var _ = Describe("Blockchain deployment", func() {
	var (
		ctx         context.Context
		k8sClient   client.Client
		taskStore   *tasks.MemoryStore
		tracker     *tasks.Tracker
		store       *clusters.CRDStore
		tokens      *auth.TokenCache
		provisioner *scriptedProvisioner
		service     *deployment.Service
		op          deployment.OperationContext
		request     deployment.CreateRequest
	)

	BeforeEach(func() {
		ctx = context.Background()
		k8sClient = fake.NewClientBuilder().
			WithScheme(v1alpha1.Scheme).
			WithStatusSubresource(&v1alpha1.Blockchain{}).
			Build()
		taskStore = tasks.NewMemoryStore()
		tracker = tasks.NewTracker(taskStore, tasks.WithMergeRetries(20, time.Millisecond))
		store = clusters.NewCRDStore(k8sClient, "chainfleet")
		tokens = auth.NewTokenCache(time.Hour)
		provisioner = &scriptedProvisioner{}

		coordinator := deployment.NewCoordinator(tracker, store,
			deployment.WithInvalidator(tokens),
			deployment.WithWatchdog(time.Minute),
		)
		service = deployment.NewService(tracker, provisioner, coordinator)

		op = deployment.OperationContext{Principal: "alice", OperationID: "op-42"}
		tokens.Put(auth.Grant{Principal: "alice", Consortium: "acme"})

		request = deployment.CreateRequest{
			ConsortiumID:   "acme",
			FCount:         1,
			CCount:         0,
			DeploymentType: "FIXED",
			ZoneIDs:        []string{"A", "A", "B", "A"},
		}
	})

	finishedTask := func(task *tasks.Task) *tasks.Task {
		service.Wait()
		got, err := tracker.Get(ctx, task.ID)
		Expect(err).NotTo(HaveOccurred())
		return got
	}

	Context("when the stream reports success", func() {
		BeforeEach(func() {
			provisioner.script = []deployment.Update{
				{Event: &deployment.Event{Type: deployment.EventAcknowledged}},
				{Event: &deployment.Event{Type: deployment.EventNodeDeployed}},
				{Event: &deployment.Event{Type: deployment.EventClusterDeployed, Cluster: &deployment.Cluster{
					ID: "c-1",
					Members: []deployment.Member{
						member("n0", "A", 0x0a000001),
						member("n1", "A", 0x0a000002),
						member("n2", "B", 0x0a000003),
						member("n3", "A", 0x0a000004),
					},
				}}},
				{Event: &deployment.Event{Type: deployment.EventCompleted, Status: deployment.StatusSuccess}},
			}
		})

		It("plans four replicas with three in zone A", func() {
			_, err := service.CreateBlockchain(ctx, op, request)
			Expect(err).NotTo(HaveOccurred())
			service.Wait()

			Expect(provisioner.specs).To(HaveLen(1))
			Expect(provisioner.specs[0].Size()).To(Equal(4))
			Expect(provisioner.specs[0].CountBySite()).To(Equal(map[string]int{"A": 3, "B": 1}))
		})

		It("succeeds the task and records the cluster", func() {
			task, err := service.CreateBlockchain(ctx, op, request)
			Expect(err).NotTo(HaveOccurred())

			got := finishedTask(task)
			Expect(got.State).To(Equal(tasks.Succeeded))
			Expect(got.ResourceID).To(Equal("c-1"))
			Expect(got.ResourceLink).To(Equal("/api/blockchains/c-1"))

			resource, err := store.Get(ctx, "c-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(resource.ConsortiumID).To(Equal("acme"))
			Expect(resource.Nodes).To(HaveLen(4))
			Expect(resource.Nodes[2]).To(Equal(clusters.Node{
				NodeID: "n2", IP: "10.0.0.3", URL: "https://10.0.0.3:8545", Cert: "cert-n2", ZoneID: "B",
			}))

			bc := &v1alpha1.Blockchain{}
			Expect(k8sClient.Get(ctx, client.ObjectKey{Namespace: "chainfleet", Name: "chainfleet-blockchain-c-1"}, bc)).To(Succeed())
			Expect(bc.Status.Phase).To(Equal(v1alpha1.BlockchainPhaseActive))
		})

		It("evicts the caller's cached grant", func() {
			task, err := service.CreateBlockchain(ctx, op, request)
			Expect(err).NotTo(HaveOccurred())
			finishedTask(task)

			_, ok := tokens.Get("alice")
			Expect(ok).To(BeFalse())
		})
	})

	Context("when the stream reports failure", func() {
		BeforeEach(func() {
			provisioner.script = []deployment.Update{
				{Event: &deployment.Event{Type: deployment.EventClusterDeployed, Cluster: &deployment.Cluster{
					ID:      "c-1",
					Members: []deployment.Member{member("n0", "A", 1)},
				}}},
				{Event: &deployment.Event{Type: deployment.EventCompleted, Status: deployment.StatusFailure}},
			}
		})

		It("fails the task and records no cluster", func() {
			task, err := service.CreateBlockchain(ctx, op, request)
			Expect(err).NotTo(HaveOccurred())

			got := finishedTask(task)
			Expect(got.State).To(Equal(tasks.Failed))
			Expect(got.Message).NotTo(BeEmpty())
			Expect(got.ResourceID).To(BeEmpty())

			_, err = store.Get(ctx, "c-1")
			Expect(errdefs.IsNotFound(err)).To(BeTrue())

			list := &v1alpha1.BlockchainList{}
			Expect(k8sClient.List(ctx, list)).To(Succeed())
			Expect(list.Items).To(BeEmpty())
		})
	})

	Context("when the zone list does not match the cluster size", func() {
		It("rejects the request before deploying", func() {
			request.ZoneIDs = []string{"A", "B", "B"}

			task, err := service.CreateBlockchain(ctx, op, request)
			Expect(err).To(HaveOccurred())
			Expect(errdefs.IsValidation(err)).To(BeTrue())
			Expect(task).To(BeNil())
			Expect(provisioner.specs).To(BeEmpty())
			Expect(taskStore.Len()).To(BeZero())
		})
	})
})
