package deployment

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/chainfleet/internal/auth"
	"github.com/imamik/chainfleet/internal/clusters"
	"github.com/imamik/chainfleet/internal/errdefs"
	"github.com/imamik/chainfleet/internal/tasks"
)

const (
	// DefaultWatchdogTimeout fails a task whose stream stays silent this long.
	DefaultWatchdogTimeout = 30 * time.Minute

	// DefaultResourceLinkPrefix prefixes the resource link of succeeded tasks.
	DefaultResourceLinkPrefix = "/api/blockchains"

	finishedMessage = "Operation finished"
)

// Subscription binds one deployment stream to its task and consortium.
type Subscription struct {
	TaskID       uuid.UUID
	ConsortiumID string
	Operation    OperationContext
}

// Coordinator turns deployment streams into task progress and cluster
// resources.
type Coordinator struct {
	tracker     *tasks.Tracker
	clusters    clusters.Store
	invalidator auth.Invalidator
	watchdog    time.Duration
	linkPrefix  string
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithWatchdog sets how long a stream may stay silent before its task is
// failed. Zero disables the watchdog.
func WithWatchdog(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.watchdog = d
	}
}

// WithResourceLinkPrefix sets the prefix used to build resource links.
func WithResourceLinkPrefix(prefix string) CoordinatorOption {
	return func(c *Coordinator) {
		c.linkPrefix = prefix
	}
}

// WithInvalidator sets the hook evicting cached authorization once a
// deployment finishes.
func WithInvalidator(inv auth.Invalidator) CoordinatorOption {
	return func(c *Coordinator) {
		c.invalidator = inv
	}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(tracker *tasks.Tracker, store clusters.Store, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		tracker:    tracker,
		clusters:   store,
		watchdog:   DefaultWatchdogTimeout,
		linkPrefix: DefaultResourceLinkPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// session is the state folded from one stream. It is owned by the single
// goroutine running Coordinator.Run.
type session struct {
	sub       Subscription
	clusterID string
	nodes     []clusters.Node
	status    Status
}

// Subscribe runs the stream in its own goroutine. The returned channel
// yields the result of Run and is then closed. Cancellation of ctx is not
// inherited; only its values are.
func (c *Coordinator) Subscribe(ctx context.Context, sub Subscription, updates <-chan Update) <-chan error {
	done := make(chan error, 1)
	base := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		done <- c.Run(base, sub, updates)
	}()
	return done
}

// Run consumes updates until the stream closes, reports COMPLETED, fails,
// or falls silent for longer than the watchdog timeout. Events must arrive
// in order; Run neither reorders nor deduplicates them.
func (c *Coordinator) Run(ctx context.Context, sub Subscription, updates <-chan Update) error {
	logger := log.FromContext(ctx).WithValues("task", sub.TaskID, "consortium", sub.ConsortiumID)
	ctx = log.IntoContext(ctx, logger)

	activeSessions.Inc()
	defer activeSessions.Dec()

	s := &session{sub: sub, status: StatusUnknown}

	var watchdog <-chan time.Time
	var timer *time.Timer
	if c.watchdog > 0 {
		timer = time.NewTimer(c.watchdog)
		defer timer.Stop()
		watchdog = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			deploymentsTotal.WithLabelValues(outcomeAborted).Inc()
			logger.Info("deployment coordination aborted, task left running", "reason", ctx.Err())
			return ctx.Err()

		case <-watchdog:
			return c.stalled(ctx, s)

		case u, ok := <-updates:
			if !ok {
				return c.finish(ctx, s)
			}
			if timer != nil {
				timer.Reset(c.watchdog)
			}
			if u.Err != nil {
				return c.fail(ctx, s, u.Err)
			}
			if u.Event == nil {
				continue
			}
			c.handle(ctx, s, u.Event)
			if u.Event.Type == EventCompleted {
				return c.finish(ctx, s)
			}
		}
	}
}

// eventContext reattaches the captured operation to ctx for one event.
func (c *Coordinator) eventContext(ctx context.Context, s *session) context.Context {
	op := s.sub.Operation
	logger := log.FromContext(ctx).WithValues("principal", op.Principal, "operation", op.OperationID)
	return log.IntoContext(WithOperation(ctx, op), logger)
}

func (c *Coordinator) handle(ctx context.Context, s *session, ev *Event) {
	ctx = c.eventContext(ctx, s)
	logger := log.FromContext(ctx)
	eventsTotal.WithLabelValues(string(ev.Type)).Inc()

	switch ev.Type {
	case EventClusterDeployed:
		if ev.Cluster != nil {
			s.clusterID = ev.Cluster.ID
			s.nodes = ev.Cluster.Nodes()
			for _, n := range s.nodes {
				logger.V(1).Info("node deployed", "node", n.NodeID, "ip", n.IP, "zone", n.ZoneID)
			}
		}
		logger.Info("cluster deployed", "cluster", s.clusterID, "nodes", len(s.nodes))
	case EventCompleted:
		s.status = ev.Status
		if s.status == "" {
			s.status = StatusUnknown
		}
		logger.Info("deployment completed", "status", s.status)
	default:
		logger.V(1).Info("deployment event", "type", ev.Type)
	}

	if _, err := c.tracker.Merge(ctx, s.sub.TaskID, tasks.SetMessage(string(ev.Type))); err != nil {
		logger.Error(err, "failed to record deployment progress", "type", ev.Type)
	}
}

func (c *Coordinator) fail(ctx context.Context, s *session, cause error) error {
	ctx = c.eventContext(ctx, s)
	log.FromContext(ctx).Error(cause, "deployment stream failed")
	deploymentsTotal.WithLabelValues(outcomeTransport).Inc()

	if _, err := c.tracker.Merge(ctx, s.sub.TaskID, tasks.Fail(cause.Error())); err != nil {
		return errors.Join(errdefs.Transport(cause), fmt.Errorf("failed to record failure: %w", err))
	}
	return errdefs.Transport(cause)
}

func (c *Coordinator) stalled(ctx context.Context, s *session) error {
	ctx = c.eventContext(ctx, s)
	stuck := errdefs.Stuckf("no deployment event received for %s", c.watchdog)
	log.FromContext(ctx).Error(stuck, "deployment stalled")
	deploymentsTotal.WithLabelValues(outcomeStuck).Inc()

	if _, err := c.tracker.Merge(ctx, s.sub.TaskID, tasks.Fail(stuck.Error())); err != nil {
		return errors.Join(stuck, fmt.Errorf("failed to record stall: %w", err))
	}
	return stuck
}

// finish settles the task once no further events will be processed.
func (c *Coordinator) finish(ctx context.Context, s *session) error {
	ctx = c.eventContext(ctx, s)
	logger := log.FromContext(ctx)
	logger.Info("deployment stream finished", "status", s.status)

	defer c.invalidate(ctx, s)

	if s.status != StatusSuccess {
		deploymentsTotal.WithLabelValues(outcomeFailed).Inc()
		msg := fmt.Sprintf("%s: deployment ended with status %s", finishedMessage, s.status)
		if _, err := c.tracker.Merge(ctx, s.sub.TaskID, tasks.Fail(msg)); err != nil {
			return fmt.Errorf("failed to record deployment failure: %w", err)
		}
		return nil
	}

	if s.clusterID == "" {
		deploymentsTotal.WithLabelValues(outcomeFailed).Inc()
		msg := "deployment succeeded without reporting a cluster"
		if _, err := c.tracker.Merge(ctx, s.sub.TaskID, tasks.Fail(msg)); err != nil {
			return fmt.Errorf("failed to record deployment failure: %w", err)
		}
		return nil
	}

	resource, err := c.clusters.Create(ctx, s.clusterID, s.sub.ConsortiumID, s.nodes)
	if err != nil {
		deploymentsTotal.WithLabelValues(outcomeFailed).Inc()
		logger.Error(err, "failed to record cluster resource", "cluster", s.clusterID)
		if _, mergeErr := c.tracker.Merge(ctx, s.sub.TaskID, tasks.Fail(fmt.Sprintf("failed to record cluster %s: %v", s.clusterID, err))); mergeErr != nil {
			return errors.Join(err, mergeErr)
		}
		return err
	}

	link := path.Join(c.linkPrefix, resource.ID)
	if _, err := c.tracker.Merge(ctx, s.sub.TaskID, tasks.Succeed(finishedMessage, resource.ID, link)); err != nil {
		return fmt.Errorf("failed to record deployment success: %w", err)
	}
	deploymentsTotal.WithLabelValues(outcomeSucceeded).Inc()
	logger.Info("blockchain created", "cluster", resource.ID, "link", link)
	return nil
}

func (c *Coordinator) invalidate(ctx context.Context, s *session) {
	if c.invalidator == nil {
		return
	}
	c.invalidator.Evict(ctx, s.sub.Operation.Principal)
}
