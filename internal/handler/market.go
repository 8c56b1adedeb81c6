package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/stocksim/internal/domain"
)

// InstrumentSource is the read side of the market registry.
type InstrumentSource interface {
	Snapshot() []domain.Instrument
	Get(ticker string) (domain.Instrument, bool)
}

// FillSource is the read side of the fill journal.
type FillSource interface {
	ByTicker(ticker string) []domain.Fill
}

// MarketHandler handles HTTP requests for the market side.
type MarketHandler struct {
	instruments InstrumentSource
	fills       FillSource
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(instruments InstrumentSource, fills FillSource) *MarketHandler {
	return &MarketHandler{instruments: instruments, fills: fills}
}

// instrumentResponse mirrors one stock_updates entry.
type instrumentResponse struct {
	Ticker    string  `json:"id"`
	Price     float64 `json:"price"`
	Available int64   `json:"available_quantity"`
}

// fillResponse is one applied activity.
type fillResponse struct {
	BrokerID  int    `json:"broker_id"`
	Action    string `json:"action"`
	Quantity  int64  `json:"quantity"`
	Available int64  `json:"available_quantity"`
	AppliedAt string `json:"applied_at"`
}

// fillsResponse is the JSON response for GET /instruments/{ticker}/fills.
type fillsResponse struct {
	Ticker string         `json:"id"`
	Fills  []fillResponse `json:"fills"`
}

func toInstrumentResponse(in domain.Instrument) instrumentResponse {
	return instrumentResponse{
		Ticker:    in.Ticker,
		Price:     in.Price.InexactFloat64(),
		Available: in.Available,
	}
}

func toInstrumentResponses(list []domain.Instrument) []instrumentResponse {
	out := make([]instrumentResponse, 0, len(list))
	for _, in := range list {
		out = append(out, toInstrumentResponse(in))
	}
	return out
}

// ListInstruments handles GET /instruments.
func (h *MarketHandler) ListInstruments(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, toInstrumentResponses(h.instruments.Snapshot()))
}

// GetInstrument handles GET /instruments/{ticker}. Tickers are matched
// case-insensitively.
func (h *MarketHandler) GetInstrument(w http.ResponseWriter, r *http.Request) {
	in, ok := h.lookup(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, toInstrumentResponse(in))
}

// ListFills handles GET /instruments/{ticker}/fills, oldest first.
func (h *MarketHandler) ListFills(w http.ResponseWriter, r *http.Request) {
	in, ok := h.lookup(w, r)
	if !ok {
		return
	}

	fills := h.fills.ByTicker(in.Ticker)
	resp := fillsResponse{Ticker: in.Ticker, Fills: make([]fillResponse, 0, len(fills))}
	for _, f := range fills {
		resp.Fills = append(resp.Fills, fillResponse{
			BrokerID:  f.BrokerID,
			Action:    string(f.Action),
			Quantity:  f.Quantity,
			Available: f.Available,
			AppliedAt: f.AppliedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (h *MarketHandler) lookup(w http.ResponseWriter, r *http.Request) (domain.Instrument, bool) {
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))
	in, ok := h.instruments.Get(ticker)
	if !ok {
		WriteError(w, http.StatusNotFound, "instrument_not_found", "Instrument "+ticker+" not found")
	}
	return in, ok
}
