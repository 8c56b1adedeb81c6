// Package protocol defines the two message streams exchanged between the
// market and trading sides and their JSON payloads.
package protocol

// Default stream names.
const (
	SnapshotStream = "stock_updates"
	ActivityStream = "broker_activities"
)

// StockUpdate is one instrument entry of a stock_updates payload. The
// payload itself is a JSON array of StockUpdate ordered by id.
type StockUpdate struct {
	ID                string  `json:"id"`
	Price             float64 `json:"price"`
	AvailableQuantity int64   `json:"available_quantity"`
}

// BrokerActivity is a broker_activities payload. Session and Seq are
// optional; older producers omit them.
type BrokerActivity struct {
	BrokerID int    `json:"broker_id"`
	Action   string `json:"action"`
	StockID  string `json:"stock_id"`
	Quantity int64  `json:"quantity"`
	Session  string `json:"session,omitempty"`
	Seq      uint64 `json:"seq,omitempty"`
}
