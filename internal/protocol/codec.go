package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/stocksim/internal/domain"
)

// DecodeError reports a payload that does not match its stream's schema.
type DecodeError struct {
	Stream string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed %s payload: %v", e.Stream, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeSnapshot serializes the full instrument list as a stock_updates
// payload. An empty list encodes as "[]", never "null".
func EncodeSnapshot(instruments []domain.Instrument) ([]byte, error) {
	updates := make([]StockUpdate, len(instruments))
	for i, in := range instruments {
		updates[i] = StockUpdate{
			ID:                in.Ticker,
			Price:             in.Price.InexactFloat64(),
			AvailableQuantity: in.Available,
		}
	}
	return json.Marshal(updates)
}

// DecodeSnapshot parses a stock_updates payload. Entries without an id,
// with a non-positive price or with a negative quantity make the whole
// payload malformed.
func DecodeSnapshot(data []byte) ([]domain.Instrument, error) {
	var updates []StockUpdate
	if err := json.Unmarshal(data, &updates); err != nil {
		return nil, &DecodeError{Stream: SnapshotStream, Err: err}
	}
	out := make([]domain.Instrument, len(updates))
	for i, u := range updates {
		switch {
		case u.ID == "":
			return nil, &DecodeError{Stream: SnapshotStream, Err: fmt.Errorf("entry %d: missing id", i)}
		case u.Price <= 0:
			return nil, &DecodeError{Stream: SnapshotStream, Err: fmt.Errorf("entry %d (%s): price %v must be positive", i, u.ID, u.Price)}
		case u.AvailableQuantity < 0:
			return nil, &DecodeError{Stream: SnapshotStream, Err: fmt.Errorf("entry %d (%s): negative available_quantity", i, u.ID)}
		}
		out[i] = domain.Instrument{
			Ticker:    u.ID,
			Price:     decimal.NewFromFloat(u.Price),
			Available: u.AvailableQuantity,
		}
	}
	return out, nil
}

// EncodeActivity serializes a broker_activities payload.
func EncodeActivity(a domain.Activity) ([]byte, error) {
	return json.Marshal(BrokerActivity{
		BrokerID: a.BrokerID,
		Action:   string(a.Action),
		StockID:  a.Ticker,
		Quantity: a.Quantity,
		Session:  a.Session,
		Seq:      a.Seq,
	})
}

// DecodeActivity parses a broker_activities payload. Only the JSON shape
// is checked here; unknown actions and tickers are the processor's to
// reject.
func DecodeActivity(data []byte) (domain.Activity, error) {
	var msg BrokerActivity
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.Activity{}, &DecodeError{Stream: ActivityStream, Err: err}
	}
	if msg.StockID == "" || msg.Action == "" {
		return domain.Activity{}, &DecodeError{Stream: ActivityStream, Err: fmt.Errorf("missing action or stock_id")}
	}
	return domain.Activity{
		BrokerID: msg.BrokerID,
		Action:   domain.Action(msg.Action),
		Ticker:   msg.StockID,
		Quantity: msg.Quantity,
		Session:  msg.Session,
		Seq:      msg.Seq,
	}, nil
}
