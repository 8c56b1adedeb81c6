package domain

import "fmt"

// Action is the concrete side of a broker activity.
type Action string

const (
	ActionBuy  Action = "Buy"
	ActionSell Action = "Sell"
)

// ParseAction validates a wire action tag. Tags are case sensitive.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionBuy, ActionSell:
		return Action(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Intent is the high-level outcome of a strategy's decide step.
type Intent int

const (
	IntentHold Intent = iota
	IntentBuy
	IntentSell
)

func (i Intent) String() string {
	switch i {
	case IntentBuy:
		return "Buy"
	case IntentSell:
		return "Sell"
	default:
		return "Hold"
	}
}

// Activity is a single buy or sell order emitted by a broker after a
// successful local ledger mutation.
//
// Session and Seq are optional. When both are set the market side uses
// them to drop redelivered copies of the same activity.
type Activity struct {
	BrokerID int
	Action   Action
	Ticker   string
	Quantity int64
	Session  string
	Seq      uint64
}

// Idempotent reports whether the activity carries a replay guard.
func (a Activity) Idempotent() bool {
	return a.Session != "" && a.Seq > 0
}

func (a Activity) String() string {
	return fmt.Sprintf("broker %d %s %d %s", a.BrokerID, a.Action, a.Quantity, a.Ticker)
}
