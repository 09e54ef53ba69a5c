package domain

import "context"

// TransactionRecord is one completed order. A non-nil GeopointDropoff means the
// order was delivered.
type TransactionRecord struct {
	FrontendOrderID string  `json:"frontendOrderId"`
	GeopointDropoff *string `json:"geopointDropoff,omitempty"`
}

// Delivered reports whether a dropoff point was recorded.
func (t TransactionRecord) Delivered() bool {
	return t.GeopointDropoff != nil
}

// TransactionLookup resolves an order id to the first matching order.
// Implementations return (nil, nil) when no order matches.
type TransactionLookup interface {
	FindByFrontendOrderID(ctx context.Context, orderID string) (*TransactionRecord, error)
}

// TransactionTable is a read-only snapshot of the transactional dataset in source order.
type TransactionTable []TransactionRecord

// FindByFrontendOrderID returns the first row in table order with the given id.
func (t TransactionTable) FindByFrontendOrderID(_ context.Context, orderID string) (*TransactionRecord, error) {
	for i := range t {
		if t[i].FrontendOrderID == orderID {
			rec := t[i]
			return &rec, nil
		}
	}
	return nil, nil
}
