package placement

import (
	"fmt"
	"strings"

	"github.com/imamik/chainfleet/internal/errdefs"
)

// DeploymentType selects how replicas are bound to sites.
type DeploymentType string

const (
	// Fixed binds each replica to an explicit zone.
	Fixed DeploymentType = "FIXED"
	// Unspecified leaves site selection to the orchestrator.
	Unspecified DeploymentType = "UNSPECIFIED"
)

// ParseDeploymentType parses a deployment type case-insensitively.
func ParseDeploymentType(s string) (DeploymentType, error) {
	switch t := DeploymentType(strings.ToUpper(strings.TrimSpace(s))); t {
	case Fixed, Unspecified:
		return t, nil
	default:
		return "", errdefs.Validationf("unknown deployment type %q", s)
	}
}

// Entry is one replica slot.
type Entry struct {
	Type DeploymentType `json:"type"`
	// Site is set for Fixed entries and empty for Unspecified ones.
	Site string `json:"site,omitempty"`
}

// Specification is the ordered list of replica slots.
type Specification struct {
	Entries []Entry `json:"entries"`
}

// Size returns the number of replicas.
func (s *Specification) Size() int {
	return len(s.Entries)
}

// Sites returns the distinct sites in first-seen order.
func (s *Specification) Sites() []string {
	seen := make(map[string]bool)
	var sites []string
	for _, e := range s.Entries {
		if e.Site == "" || seen[e.Site] {
			continue
		}
		seen[e.Site] = true
		sites = append(sites, e.Site)
	}
	return sites
}

// CountBySite returns the number of replicas bound to each site.
func (s *Specification) CountBySite() map[string]int {
	counts := make(map[string]int)
	for _, e := range s.Entries {
		if e.Site != "" {
			counts[e.Site]++
		}
	}
	return counts
}

// Validate checks the entry invariants: fixed entries carry a site,
// unspecified entries do not.
func (s *Specification) Validate() error {
	for i, e := range s.Entries {
		switch e.Type {
		case Fixed:
			if e.Site == "" {
				return errdefs.Validationf("placement entry %d is FIXED but has no site", i)
			}
		case Unspecified:
			if e.Site != "" {
				return errdefs.Validationf("placement entry %d is UNSPECIFIED but names site %q", i, e.Site)
			}
		default:
			return errdefs.Validationf("placement entry %d has unknown type %q", i, e.Type)
		}
	}
	return nil
}

// ClusterSize returns the replica count needed to tolerate f byzantine
// failures and c slow or non-voting members.
func ClusterSize(f, c int) int {
	return 3*f + 2*c + 1
}

// Request carries the planner inputs as parsed from the API.
type Request struct {
	FCount         int
	CCount         int
	DeploymentType DeploymentType
	ZoneIDs        []string
}

// Plan builds the placement for req. Fixed placements must name exactly one
// zone per replica; a zone may appear more than once.
func Plan(req Request) (*Specification, error) {
	if req.FCount < 0 || req.CCount < 0 {
		return nil, errdefs.Validationf("f_count and c_count must be non-negative, got f=%d c=%d", req.FCount, req.CCount)
	}
	size := ClusterSize(req.FCount, req.CCount)

	switch req.DeploymentType {
	case Unspecified:
		entries := make([]Entry, size)
		for i := range entries {
			entries[i] = Entry{Type: Unspecified}
		}
		return &Specification{Entries: entries}, nil

	case Fixed:
		if len(req.ZoneIDs) != size {
			return nil, errdefs.Validationf(
				"FIXED placement needs %d zone ids for f_count=%d c_count=%d, got %d",
				size, req.FCount, req.CCount, len(req.ZoneIDs))
		}
		entries := make([]Entry, size)
		for i, zone := range req.ZoneIDs {
			zone = strings.TrimSpace(zone)
			if zone == "" {
				return nil, errdefs.Validationf("zone id %d is empty", i)
			}
			entries[i] = Entry{Type: Fixed, Site: zone}
		}
		return &Specification{Entries: entries}, nil

	default:
		return nil, errdefs.Validationf("unknown deployment type %q", req.DeploymentType)
	}
}

// String renders a compact summary, e.g. "4 replicas: fsn1=3 nbg1=1".
func (s *Specification) String() string {
	if len(s.Entries) == 0 {
		return "0 replicas"
	}
	sites := s.Sites()
	if len(sites) == 0 {
		return fmt.Sprintf("%d replicas: unspecified", len(s.Entries))
	}
	counts := s.CountBySite()
	parts := make([]string, 0, len(sites))
	for _, site := range sites {
		parts = append(parts, fmt.Sprintf("%s=%d", site, counts[site]))
	}
	return fmt.Sprintf("%d replicas: %s", len(s.Entries), strings.Join(parts, " "))
}
