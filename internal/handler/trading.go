package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/stocksim/internal/domain"
)

// BrokerSource is the read side of the broker ledgers.
type BrokerSource interface {
	All() []*domain.Broker
	Get(id int) (*domain.Broker, error)
}

// ReplicaSource is the read side of the trading replica.
type ReplicaSource interface {
	Current() []domain.Instrument
	Version() (uint64, time.Time)
}

// TradingHandler handles HTTP requests for the trading side.
type TradingHandler struct {
	brokers BrokerSource
	replica ReplicaSource
	session string
}

// NewTradingHandler creates a new TradingHandler.
func NewTradingHandler(brokers BrokerSource, replica ReplicaSource, session string) *TradingHandler {
	return &TradingHandler{brokers: brokers, replica: replica, session: session}
}

// brokerResponse is one broker's account valued at replica prices.
type brokerResponse struct {
	ID            int              `json:"broker_id"`
	Strategy      string           `json:"strategy"`
	Cash          float64          `json:"cash"`
	HoldingsValue float64          `json:"holdings_value"`
	TotalValue    float64          `json:"total_value"`
	Holdings      map[string]int64 `json:"holdings"`
}

// replicaResponse is the JSON response for GET /replica.
type replicaResponse struct {
	Session     string               `json:"session"`
	Version     uint64               `json:"version"`
	UpdatedAt   *string              `json:"updated_at"`
	Instruments []instrumentResponse `json:"instruments"`
}

func toBrokerResponse(b *domain.Broker, replica []domain.Instrument) brokerResponse {
	b.Mu.Lock()
	defer b.Mu.Unlock()

	holdings := make(map[string]int64, len(b.Holdings))
	for t, q := range b.Holdings {
		holdings[t] = q
	}
	value := b.HoldingsValue(replica)
	return brokerResponse{
		ID:            b.ID,
		Strategy:      b.Variant.String(),
		Cash:          b.Cash.InexactFloat64(),
		HoldingsValue: value.InexactFloat64(),
		TotalValue:    b.Cash.Add(value).InexactFloat64(),
		Holdings:      holdings,
	}
}

// ListBrokers handles GET /brokers.
func (h *TradingHandler) ListBrokers(w http.ResponseWriter, r *http.Request) {
	replica := h.replica.Current()
	brokers := h.brokers.All()
	out := make([]brokerResponse, 0, len(brokers))
	for _, b := range brokers {
		out = append(out, toBrokerResponse(b, replica))
	}
	WriteJSON(w, http.StatusOK, out)
}

// GetBroker handles GET /brokers/{broker_id}.
func (h *TradingHandler) GetBroker(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "broker_id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "broker_id must be an integer")
		return
	}

	b, err := h.brokers.Get(id)
	if err != nil {
		if errors.Is(err, domain.ErrBrokerNotFound) {
			WriteError(w, http.StatusNotFound, "broker_not_found", "Broker "+raw+" does not exist")
			return
		}
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	WriteJSON(w, http.StatusOK, toBrokerResponse(b, h.replica.Current()))
}

// GetReplica handles GET /replica. updated_at is null until the first
// snapshot arrived.
func (h *TradingHandler) GetReplica(w http.ResponseWriter, r *http.Request) {
	version, updatedAt := h.replica.Version()
	resp := replicaResponse{
		Session:     h.session,
		Version:     version,
		Instruments: toInstrumentResponses(h.replica.Current()),
	}
	if !updatedAt.IsZero() {
		s := updatedAt.UTC().Format(time.RFC3339)
		resp.UpdatedAt = &s
	}
	WriteJSON(w, http.StatusOK, resp)
}
