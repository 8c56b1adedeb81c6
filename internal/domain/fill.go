package domain

import "time"

// Fill records one broker activity the market side applied to the
// registry.
type Fill struct {
	BrokerID  int
	Action    Action
	Ticker    string
	Quantity  int64
	Available int64 // available quantity right after the fill
	AppliedAt time.Time
}
