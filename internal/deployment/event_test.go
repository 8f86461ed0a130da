package deployment

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/chainfleet/internal/clusters"
)

func TestCanonicalIPv4(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   uint32
		want string
	}{
		{in: 0x01020304, want: "1.2.3.4"},
		{in: 0, want: "0.0.0.0"},
		{in: 0xffffffff, want: "255.255.255.255"},
		{in: 0xc0a80001, want: "192.168.0.1"},
		{in: 0x0a000102, want: "10.0.1.2"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CanonicalIPv4(tt.in))
		})
	}
}

func TestMemberNode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		member Member
		want   clusters.Node
	}{
		{
			name: "lowest address and rpc endpoint",
			member: Member{
				ID: "n0",
				HostInfo: HostInfo{
					Site:          "fsn1",
					IPv4Addresses: map[uint32]string{0x0a000002: "eth1", 0x0a000001: "eth0"},
					Endpoints: map[string]Endpoint{
						RPCEndpoint: {URL: "https://10.0.0.1:8545", Certificate: "PEM"},
						"metrics":   {URL: "http://10.0.0.1:9891"},
					},
				},
			},
			want: clusters.Node{NodeID: "n0", IP: "10.0.0.1", URL: "https://10.0.0.1:8545", Cert: "PEM", ZoneID: "fsn1"},
		},
		{
			name:   "no addresses and no endpoint",
			member: Member{ID: "n1", HostInfo: HostInfo{Site: "nbg1"}},
			want:   clusters.Node{NodeID: "n1", IP: "0.0.0.0", ZoneID: "nbg1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, tt.member.Node()); diff != "" {
				t.Errorf("node mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClusterNodesNil(t *testing.T) {
	t.Parallel()
	var c *Cluster
	assert.Nil(t, c.Nodes())
}

func TestEventDecode(t *testing.T) {
	t.Parallel()

	raw := `{
		"type": "CLUSTER_DEPLOYED",
		"sessionId": "s-1",
		"cluster": {
			"id": "c-1",
			"members": [{
				"id": "n0",
				"hostInfo": {
					"site": "fsn1",
					"ipv4Addresses": {"16909060": "eth0"},
					"endpoints": {"ethereum-rpc": {"url": "https://1.2.3.4:8545", "certificate": "PEM"}}
				}
			}]
		},
		"status": "ACTIVE"
	}`

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	assert.Equal(t, EventClusterDeployed, ev.Type)
	assert.Equal(t, StatusActive, ev.Status)
	require.NotNil(t, ev.Cluster)

	want := []clusters.Node{{NodeID: "n0", IP: "1.2.3.4", URL: "https://1.2.3.4:8545", Cert: "PEM", ZoneID: "fsn1"}}
	if diff := cmp.Diff(want, ev.Cluster.Nodes()); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}
}
