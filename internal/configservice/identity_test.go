package configservice

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/chainfleet/internal/certgen"
)

// fakeIdentities lays out 2*numCerts identities the way a TLS batch does,
// with payloads naming the file they stand for.
func fakeIdentities(numCerts int) []certgen.Identity {
	out := make([]certgen.Identity, 0, 2*numCerts)
	for _, role := range []string{"server", "client"} {
		for i := range numCerts {
			dir := fmt.Sprintf("/tls/%d/%s", i, role)
			out = append(out, certgen.Identity{
				Certificate: certgen.IdentityComponent{URL: dir + "/" + role + ".cert", Base64Value: "cert:" + dir},
				Key:         certgen.IdentityComponent{URL: dir + "/pk.pem", Base64Value: "key:" + dir},
			})
		}
	}
	return out
}

func isKey(c certgen.IdentityComponent) bool {
	return strings.HasSuffix(c.URL, "pk.pem")
}

// principalOf extracts the principal index from a /tls/<i>/<role>/... URL.
func principalOf(t *testing.T, c certgen.IdentityComponent) int {
	t.Helper()
	parts := strings.Split(c.URL, "/")
	require.Len(t, parts, 5, c.URL)
	p, err := strconv.Atoi(parts[2])
	require.NoError(t, err, c.URL)
	return p
}

func TestTopology(t *testing.T) {
	t.Parallel()

	topo := Topology{Nodes: 4, ClientProxiesPerReplica: 2}
	assert.Equal(t, 12, topo.NumPrincipals())
	assert.Equal(t, 11, topo.MaxPrincipalID())

	want := map[int][]int{
		0: {0, 4, 8},
		1: {1, 5, 9},
		2: {2, 6, 10},
		3: {3, 7, 11},
	}
	if diff := cmp.Diff(want, topo.Principals()); diff != "" {
		t.Errorf("principals mismatch (-want +got):\n%s", diff)
	}

	f, c := topo.FaultTolerance()
	assert.Equal(t, 1, f)
	assert.Equal(t, 0, c)

	empty := Topology{Nodes: 4}
	assert.Empty(t, empty.Principals())
	assert.Equal(t, 3, empty.MaxPrincipalID())
}

func TestTopology_FaultTolerance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		nodes, f, c int
	}{
		{nodes: 1, f: 0, c: 0},
		{nodes: 4, f: 1, c: 0},
		{nodes: 6, f: 1, c: 1},
		{nodes: 7, f: 2, c: 0},
		{nodes: 9, f: 2, c: 1},
	}
	for _, tt := range tests {
		f, c := Topology{Nodes: tt.nodes}.FaultTolerance()
		assert.Equal(t, tt.f, f, "nodes=%d", tt.nodes)
		assert.Equal(t, tt.c, c, "nodes=%d", tt.nodes)
		assert.Equal(t, tt.nodes, 3*f+2*c+1)
	}
}

func TestBuildIdentity_OnePrincipalPerHost(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 4, 7} {
		t.Run(fmt.Sprintf("hosts=%d", n), func(t *testing.T) {
			t.Parallel()
			principals := make(map[int][]int, n)
			for i := range n {
				principals[i] = []int{i}
			}

			got, err := BuildIdentity(fakeIdentities(n), principals, n, n)
			require.NoError(t, err)
			require.Len(t, got, n)

			for node := range n {
				var ownKeys, peerCerts, foreignKeys int
				for _, c := range got[node] {
					owner := principalOf(t, c)
					switch {
					case isKey(c) && owner == node:
						ownKeys++
					case isKey(c):
						foreignKeys++
					case owner != node:
						peerCerts++
					}
				}
				assert.Equal(t, 2, ownKeys, "node %d", node)
				assert.Equal(t, 2*(n-1), peerCerts, "node %d", node)
				assert.Zero(t, foreignKeys, "node %d", node)
			}
		})
	}
}

func TestBuildIdentity_CoHostedPrincipals(t *testing.T) {
	t.Parallel()
	topo := Topology{Nodes: 4, ClientProxiesPerReplica: 1}
	numCerts := topo.NumPrincipals()

	got, err := BuildIdentity(fakeIdentities(numCerts), topo.Principals(), numCerts, topo.Nodes)
	require.NoError(t, err)

	for node, hosted := range topo.Principals() {
		keysFor := map[int]int{}
		certsFor := map[int]int{}
		seen := map[string]bool{}
		for _, c := range got[node] {
			assert.False(t, seen[c.URL], "duplicate %s for node %d", c.URL, node)
			seen[c.URL] = true
			if isKey(c) {
				keysFor[principalOf(t, c)]++
			} else {
				certsFor[principalOf(t, c)]++
			}
		}

		for p := range numCerts {
			assert.Equal(t, 2, certsFor[p], "node %d principal %d certs", node, p)
		}
		for p, n := range keysFor {
			assert.Contains(t, hosted, p, "node %d holds a key of principal %d", node, p)
			assert.Equal(t, 2, n)
		}
		assert.Len(t, keysFor, len(hosted))
	}
}

func TestBuildIdentity_EmptyPrincipalsGivesEverything(t *testing.T) {
	t.Parallel()
	ids := fakeIdentities(3)

	got, err := BuildIdentity(ids, map[int][]int{}, 3, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for node := range 3 {
		assert.Len(t, got[node], 2*len(ids))
	}
}

func TestBuildIdentity_Errors(t *testing.T) {
	t.Parallel()

	_, err := BuildIdentity(fakeIdentities(2), map[int][]int{0: {0}}, 3, 3)
	assert.ErrorContains(t, err, "expected 6 identities")

	_, err = BuildIdentity(fakeIdentities(2), map[int][]int{0: {5}}, 2, 2)
	assert.ErrorContains(t, err, "outside principal range")
}
