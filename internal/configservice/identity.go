package configservice

import (
	"fmt"
	"slices"

	"github.com/imamik/chainfleet/internal/certgen"
)

// BuildIdentity selects, for every node, the identity components it may
// receive. identities holds numCerts server identities followed by numCerts
// client identities, indexed by principal id.
//
// A node gets the certificates of every principal it does not host, its own
// server and client keys, and certificate plus key of every principal it
// hosts. Components are never repeated within a node's list.
//
// When principals is empty the topology is not known yet and every node
// receives every certificate and key.
func BuildIdentity(identities []certgen.Identity, principals map[int][]int, numCerts, numHosts int) (map[int][]certgen.IdentityComponent, error) {
	if len(identities) != 2*numCerts {
		return nil, fmt.Errorf("expected %d identities for %d principals, got %d", 2*numCerts, numCerts, len(identities))
	}

	result := make(map[int][]certgen.IdentityComponent, numHosts)

	if len(principals) == 0 {
		for node := range numHosts {
			all := make([]certgen.IdentityComponent, 0, 2*len(identities))
			for _, id := range identities {
				all = append(all, id.Certificate, id.Key)
			}
			result[node] = all
		}
		return result, nil
	}

	servers, clients := identities[:numCerts], identities[numCerts:]

	for node, hosted := range principals {
		if node < 0 || node >= numCerts {
			return nil, fmt.Errorf("node %d is outside principal range 0..%d", node, numCerts-1)
		}
		for _, p := range hosted {
			if p < 0 || p >= numCerts {
				return nil, fmt.Errorf("node %d hosts principal %d outside range 0..%d", node, p, numCerts-1)
			}
		}

		b := newBundle()
		for p := range numCerts {
			if slices.Contains(hosted, p) {
				continue
			}
			b.add(servers[p].Certificate, clients[p].Certificate)
		}
		b.add(servers[node].Key, clients[node].Key)
		for _, p := range hosted {
			b.add(servers[p].Certificate, servers[p].Key, clients[p].Certificate, clients[p].Key)
		}
		result[node] = b.items
	}
	return result, nil
}

type bundle struct {
	seen  map[string]bool
	items []certgen.IdentityComponent
}

func newBundle() *bundle {
	return &bundle{seen: make(map[string]bool)}
}

func (b *bundle) add(components ...certgen.IdentityComponent) {
	for _, c := range components {
		if b.seen[c.URL] {
			continue
		}
		b.seen[c.URL] = true
		b.items = append(b.items, c)
	}
}
