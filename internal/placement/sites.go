package placement

import (
	"context"
	"fmt"
)

// SiteValidator confirms that an orchestration site exists and can host replicas.
type SiteValidator interface {
	ValidateSite(ctx context.Context, site string) error
}

// ValidateSites checks every distinct site of spec once, in order.
// Unspecified placements have nothing to check.
func ValidateSites(ctx context.Context, v SiteValidator, spec *Specification) error {
	if v == nil {
		return nil
	}
	for _, site := range spec.Sites() {
		if err := v.ValidateSite(ctx, site); err != nil {
			return fmt.Errorf("site %q: %w", site, err)
		}
	}
	return nil
}
