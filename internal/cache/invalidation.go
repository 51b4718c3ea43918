package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-analytics/internal/analytics"
	"github.com/spec-kit/support-analytics/internal/events"
)

// Cached operation names, shared between key derivation and invalidation so
// the two sides of the contract cannot drift.
const (
	OpTimeSeries   = "time_series"
	OpAggregation  = "aggregation"
	OpDistribution = "distribution"
	OpDashboard    = "dashboard"
	OpPerformance  = "performance"
)

// Invalidator applies the pattern-based invalidation policy: on each ticket
// mutation it deletes every cache entry whose key matches the patterns scoped
// to the organization and the affected metric family. It does not track
// which keys exist, so it may over-invalidate; it must never
// under-invalidate. Failed deletions are logged and left to expire via TTL.
type Invalidator struct {
	store  Store
	logger *zap.Logger
}

// NewInvalidator constructs the invalidator around an injected cache store.
func NewInvalidator(store Store, logger *zap.Logger) *Invalidator {
	return &Invalidator{store: store, logger: logger}
}

// Subscribe registers the policy against the ticket mutation events. Events
// are published after the mutation is durably applied, so a subsequent cache
// miss recomputes against the new state.
func (i *Invalidator) Subscribe(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, func(ctx context.Context, e events.Event) error {
		i.OnTicketCreated(ctx, e.OrganizationID)
		return nil
	})
	dispatcher.Subscribe(events.EventTicketStatusChanged, func(ctx context.Context, e events.Event) error {
		terminal := false
		if payload, ok := e.Payload.(events.TicketStatusChangedPayload); ok {
			terminal = payload.EnteredTerminal
		}
		i.OnTicketUpdated(ctx, e.OrganizationID, TicketChange{StatusChanged: true, EnteredTerminal: terminal})
		return nil
	})
	dispatcher.Subscribe(events.EventTicketPriorityChanged, func(ctx context.Context, e events.Event) error {
		i.OnTicketUpdated(ctx, e.OrganizationID, TicketChange{PriorityChanged: true})
		return nil
	})
	dispatcher.Subscribe(events.EventTicketAssigned, func(ctx context.Context, e events.Event) error {
		i.OnTicketUpdated(ctx, e.OrganizationID, TicketChange{Assigned: true})
		return nil
	})
	dispatcher.Subscribe(events.EventTicketFirstResponse, func(ctx context.Context, e events.Event) error {
		i.OnFirstResponse(ctx, e.OrganizationID)
		return nil
	})
	dispatcher.Subscribe(events.EventTicketResolved, func(ctx context.Context, e events.Event) error {
		i.OnResolution(ctx, e.OrganizationID)
		return nil
	})
}

// TicketChange describes which facets of a ticket an update touched.
type TicketChange struct {
	StatusChanged   bool
	EnteredTerminal bool
	PriorityChanged bool
	Assigned        bool
}

// OnTicketCreated drops org-wide ticket_count, dashboard and distribution
// entries: a new ticket moves counts, every breakdown, and the dashboard.
func (i *Invalidator) OnTicketCreated(ctx context.Context, organizationID int64) {
	i.deleteAll(ctx, organizationID,
		FacetPattern("*", organizationID, string(analytics.MetricTicketCount)),
		OpPattern(OpDashboard, organizationID),
		OpPattern(OpDistribution, organizationID),
	)
}

// OnTicketUpdated drops the entries affected by the changed facets. The
// dashboard embeds every breakdown, so it is dropped on any update; leaving
// it cached would under-invalidate. Aggregation entries embed group-by
// breakdowns of the same facets, so they go whenever any facet moved.
func (i *Invalidator) OnTicketUpdated(ctx context.Context, organizationID int64, change TicketChange) {
	patterns := []string{OpPattern(OpDashboard, organizationID)}
	facetMoved := false
	if change.StatusChanged {
		facetMoved = true
		patterns = append(patterns, FacetPattern(OpDistribution, organizationID, string(analytics.FieldStatus)))
		if change.EnteredTerminal {
			patterns = append(patterns, FacetPattern("*", organizationID, string(analytics.MetricResolutionTime)))
		}
	}
	if change.PriorityChanged {
		facetMoved = true
		patterns = append(patterns, FacetPattern(OpDistribution, organizationID, string(analytics.FieldPriority)))
	}
	if change.Assigned {
		facetMoved = true
		patterns = append(patterns, FacetPattern(OpDistribution, organizationID, string(analytics.FieldAssignedTo)))
	}
	if facetMoved {
		patterns = append(patterns, FacetPattern(OpAggregation, organizationID, string(analytics.MetricTicketCount)))
	}
	i.deleteAll(ctx, organizationID, patterns...)
}

// OnFirstResponse drops response-time series, performance percentiles and
// dashboards.
func (i *Invalidator) OnFirstResponse(ctx context.Context, organizationID int64) {
	i.deleteAll(ctx, organizationID,
		FacetPattern("*", organizationID, string(analytics.MetricResponseTime)),
		OpPattern(OpPerformance, organizationID),
		OpPattern(OpDashboard, organizationID),
	)
}

// OnResolution drops resolution-time series, performance percentiles,
// dashboards and the status distribution.
func (i *Invalidator) OnResolution(ctx context.Context, organizationID int64) {
	i.deleteAll(ctx, organizationID,
		FacetPattern("*", organizationID, string(analytics.MetricResolutionTime)),
		OpPattern(OpPerformance, organizationID),
		OpPattern(OpDashboard, organizationID),
		FacetPattern(OpDistribution, organizationID, string(analytics.FieldStatus)),
	)
}

// InvalidateAll drops every analytics entry for the organization.
func (i *Invalidator) InvalidateAll(ctx context.Context, organizationID int64) {
	i.deleteAll(ctx, organizationID, OrgPattern(organizationID))
}

func (i *Invalidator) deleteAll(ctx context.Context, organizationID int64, patterns ...string) {
	if i.store == nil {
		return
	}
	for _, pattern := range patterns {
		deleted, err := i.store.DeletePattern(ctx, pattern)
		if err != nil {
			// Stale entries expire via TTL; no synchronous retry.
			i.logger.Warn("cache invalidation failed",
				zap.String("pattern", pattern),
				zap.Int64("organization_id", organizationID),
				zap.Error(err))
			continue
		}
		if deleted > 0 {
			i.logger.Debug("cache entries invalidated",
				zap.String("pattern", pattern),
				zap.Int64("deleted", deleted))
		}
	}
}
