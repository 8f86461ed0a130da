package hcloud

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/util/retry"
)

// SiteValidator implements placement.SiteValidator using Hetzner locations.
type SiteValidator struct {
	client      *hcloud.Client
	networkZone string
	maxRetries  int
	retryDelay  time.Duration

	mu    sync.Mutex
	known map[string]*hcloud.Location
}

// Option configures a SiteValidator.
type Option func(*SiteValidator)

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) Option {
	return func(v *SiteValidator) {
		v.client = hc
	}
}

// WithNetworkZone only accepts locations in the given network zone (e.g. eu-central).
func WithNetworkZone(zone string) Option {
	return func(v *SiteValidator) {
		v.networkZone = zone
	}
}

// WithRetry sets the retry budget for transient API failures.
func WithRetry(maxRetries int, initialDelay time.Duration) Option {
	return func(v *SiteValidator) {
		v.maxRetries = maxRetries
		v.retryDelay = initialDelay
	}
}

// NewSiteValidator creates a validator authenticating with token.
func NewSiteValidator(token string, opts ...Option) *SiteValidator {
	v := &SiteValidator{
		client:     hcloud.NewClient(hcloud.WithToken(token), hcloud.WithApplication("chainfleet", "")),
		maxRetries: 3,
		retryDelay: time.Second,
		known:      make(map[string]*hcloud.Location),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateSite resolves site as a Hetzner location.
func (v *SiteValidator) ValidateSite(ctx context.Context, site string) error {
	loc, err := v.Location(ctx, site)
	if err != nil {
		return err
	}
	if v.networkZone != "" && string(loc.NetworkZone) != v.networkZone {
		return errdefs.Validationf("location %s is in network zone %s, want %s", site, loc.NetworkZone, v.networkZone)
	}
	return nil
}

// Location returns the Hetzner location named site.
func (v *SiteValidator) Location(ctx context.Context, site string) (*hcloud.Location, error) {
	v.mu.Lock()
	loc, ok := v.known[site]
	v.mu.Unlock()
	if ok {
		return loc, nil
	}

	logger := log.FromContext(ctx)

	err := retry.WithExponentialBackoff(ctx, func() error {
		var getErr error
		loc, _, getErr = v.client.Location.Get(ctx, site)
		return getErr
	},
		retry.WithMaxRetries(v.maxRetries),
		retry.WithInitialDelay(v.retryDelay),
		retry.WithRetryIf(isTransient),
		retry.WithOnRetry(func(attempt int, delay time.Duration, err error) {
			logger.V(1).Info("location lookup failed, retrying", "site", site, "attempt", attempt, "delay", delay, "error", err.Error())
		}),
	)
	if err != nil {
		if IsNotFound(err) {
			return nil, errdefs.Validationf("unknown location %q", site)
		}
		return nil, fmt.Errorf("failed to look up location %s: %w", site, err)
	}
	if loc == nil {
		return nil, errdefs.Validationf("unknown location %q", site)
	}

	logger.V(1).Info("resolved orchestration site", "site", site, "city", loc.City, "networkZone", loc.NetworkZone)

	v.mu.Lock()
	v.known[site] = loc
	v.mu.Unlock()
	return loc, nil
}
