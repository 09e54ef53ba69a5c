package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/V4T54L/visitor-insight/internal/domain"
)

// PlacedOrderAction is the event action emitted when an order is placed.
const PlacedOrderAction = "transaction"

// AddressChangeActions are the event actions that count as a delivery address change.
var AddressChangeActions = []string{
	"address_update.clicked",
	"Change Location",
	"other_location.clicked",
	"address_update.submitted",
}

// Classifier labels individual events by their action name.
type Classifier struct {
	addressChange map[string]struct{}
	placedOrder   string
}

// NewClassifier builds a Classifier from explicit label sets.
func NewClassifier(addressChangeActions []string, placedOrderAction string) *Classifier {
	set := make(map[string]struct{}, len(addressChangeActions))
	for _, a := range addressChangeActions {
		set[a] = struct{}{}
	}
	return &Classifier{addressChange: set, placedOrder: placedOrderAction}
}

// DefaultClassifier uses AddressChangeActions and PlacedOrderAction.
func DefaultClassifier() *Classifier {
	return NewClassifier(AddressChangeActions, PlacedOrderAction)
}

// IsAddressChange reports whether ev is one of the address-change actions.
func (c *Classifier) IsAddressChange(ev domain.Event) bool {
	if ev.EventAction == nil {
		return false
	}
	_, ok := c.addressChange[*ev.EventAction]
	return ok
}

// IsPlacedOrder reports whether ev is the placed-order action.
func (c *Classifier) IsPlacedOrder(ev domain.Event) bool {
	return ev.EventAction != nil && *ev.EventAction == c.placedOrder
}

// Reducer derives a VisitorInsight from the session and transaction datasets.
type Reducer struct {
	classifier *Classifier
	logger     *slog.Logger
}

// NewReducer creates a Reducer. A nil classifier means DefaultClassifier.
func NewReducer(classifier *Classifier, logger *slog.Logger) *Reducer {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &Reducer{classifier: classifier, logger: logger}
}

// Reduce runs filter, flatten, classify, reduce and correlate for one visitor.
// Ties (platform, transaction id, matching order) resolve to the first row in
// table order. orders is consulted only when the visitor has a transaction id.
func (r *Reducer) Reduce(ctx context.Context, sessions domain.SessionTable, orders domain.TransactionLookup, visitorID string) (*domain.VisitorInsight, error) {
	id, err := domain.ParseVisitorID(visitorID)
	if err != nil {
		return nil, err
	}

	// 1. Filter
	selected := FilterSessions(sessions, visitorID)
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: no sessions for visitor %s", domain.ErrNotFound, visitorID)
	}

	// 2. Flatten
	events := FlattenHits(selected)
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: sessions for visitor %s contain no events", domain.ErrInconsistentData, visitorID)
	}

	// 3-4. Classify and reduce
	insight := &domain.VisitorInsight{
		VisitorID:       id,
		ApplicationType: selected[0].OperatingSystem,
	}
	for _, ev := range events {
		insight.AddressChanged = insight.AddressChanged || r.classifier.IsAddressChange(ev)
		insight.OrderPlaced = insight.OrderPlaced || r.classifier.IsPlacedOrder(ev)
	}

	// 5. Correlate
	orderID, ok := FirstTransactionID(events)
	if !ok {
		r.logger.Debug("visitor has no transaction", "visitor_id", visitorID, "events", len(events))
		return insight, nil
	}

	order, err := orders.FindByFrontendOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("looking up order %s: %w", orderID, err)
	}
	if order != nil {
		insight.OrderDelivered = order.Delivered()
	}

	r.logger.Debug("reduced visitor insight",
		"visitor_id", visitorID,
		"sessions", len(selected),
		"events", len(events),
		"order_id", orderID,
		"order_found", order != nil,
	)
	return insight, nil
}

// FilterSessions returns the sessions of visitorID in table order. Ids compare
// as integers when both sides are digit strings.
func FilterSessions(sessions domain.SessionTable, visitorID string) domain.SessionTable {
	want := domain.CanonicalVisitorID(visitorID)
	var out domain.SessionTable
	for _, s := range sessions {
		if domain.CanonicalVisitorID(s.VisitorID) == want {
			out = append(out, s)
		}
	}
	return out
}

// FlattenHits un-nests every session's hits into one event slice, keeping
// session order and hit order within a session.
func FlattenHits(sessions domain.SessionTable) []domain.Event {
	n := 0
	for _, s := range sessions {
		n += len(s.Hits)
	}
	events := make([]domain.Event, 0, n)
	for _, s := range sessions {
		events = append(events, s.Hits...)
	}
	return events
}

// FirstTransactionID returns the first non-null transaction id in events.
func FirstTransactionID(events []domain.Event) (string, bool) {
	for _, ev := range events {
		if ev.TransactionID != nil {
			return *ev.TransactionID, true
		}
	}
	return "", false
}
