package domain

// Event is one hit inside a session. Nil fields were null or absent in the source.
type Event struct {
	EventAction   *string `json:"eventAction,omitempty"`
	TransactionID *string `json:"transactionId,omitempty"`
}

// SessionRecord is one clickstream row. VisitorID is not unique across rows.
type SessionRecord struct {
	VisitorID       string  `json:"fullVisitorId"`
	OperatingSystem string  `json:"operatingSystem"`
	Hits            []Event `json:"hits"`
}

// SessionTable is a read-only snapshot of the clickstream dataset in source order.
type SessionTable []SessionRecord
