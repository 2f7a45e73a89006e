// Package server exposes the dashboard core over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"cryptodesk/internal/domain"
	"cryptodesk/internal/engine"
	"cryptodesk/internal/feed"
	"cryptodesk/internal/infra"
	"cryptodesk/internal/journal"
	"cryptodesk/internal/ledger"
	"cryptodesk/internal/service"
)

// Server is the HTTP front for the dashboard core. All state lives in
// the injected components; handlers only translate between HTTP and
// the domain.
type Server struct {
	addr       string
	feed       *feed.Feed
	aggregator *feed.Aggregator
	ledger     *ledger.Ledger
	journal    *journal.Journal
	engine     *engine.Engine
	valuation  *service.Valuation
	addresses  *service.AddressBook
	alerts     *service.AlertWatcher
	metrics    *infra.Metrics
	logger     *slog.Logger
}

// Deps bundles the components the server serves.
type Deps struct {
	Feed       *feed.Feed
	Aggregator *feed.Aggregator
	Ledger     *ledger.Ledger
	Journal    *journal.Journal
	Engine     *engine.Engine
	Valuation  *service.Valuation
	Addresses  *service.AddressBook
	Alerts     *service.AlertWatcher
	Metrics    *infra.Metrics
}

// NewServer creates a server bound to addr.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:       addr,
		feed:       deps.Feed,
		aggregator: deps.Aggregator,
		ledger:     deps.Ledger,
		journal:    deps.Journal,
		engine:     deps.Engine,
		valuation:  deps.Valuation,
		addresses:  deps.Addresses,
		alerts:     deps.Alerts,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Router builds the route table. Exposed for handler tests.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/quotes", s.handleQuotes).Methods(http.MethodGet)
	api.HandleFunc("/quotes/{symbol}", s.handleQuote).Methods(http.MethodGet)
	api.HandleFunc("/market", s.handleMarket).Methods(http.MethodGet)
	api.HandleFunc("/balances", s.handleBalances).Methods(http.MethodGet)
	api.HandleFunc("/balances/{symbol}", s.handleBalance).Methods(http.MethodGet)
	api.HandleFunc("/portfolio", s.handlePortfolio).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", s.handleTransaction).Methods(http.MethodGet)
	api.HandleFunc("/deposits/addresses", s.handleDepositAddresses).Methods(http.MethodGet)
	api.HandleFunc("/deposits/addresses/{symbol}", s.handleDepositAddress).Methods(http.MethodGet)
	api.HandleFunc("/withdrawals/fee", s.handleWithdrawalFee).Methods(http.MethodGet)
	api.HandleFunc("/deposits", s.handleCreateDeposit).Methods(http.MethodPost)
	api.HandleFunc("/withdrawals", s.handleCreateWithdrawal).Methods(http.MethodPost)
	api.HandleFunc("/orders/buy", s.handleCreateBuy).Methods(http.MethodPost)
	api.HandleFunc("/orders/sell", s.handleCreateSell).Methods(http.MethodPost)
	api.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.handleCreateAlert).Methods(http.MethodPost)
	api.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.handleStream)
	return r
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server started", slog.String("addr", s.addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ---- market data ----

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	var quotes []domain.Quote
	switch r.URL.Query().Get("sort") {
	case "gainers":
		quotes = s.feed.Gainers()
	case "losers":
		quotes = s.feed.Losers()
	default:
		quotes = s.feed.Snapshot()
	}
	if limit := queryInt(r, "limit"); limit > 0 && limit < len(quotes) {
		quotes = quotes[:limit]
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	q, ok := s.feed.Quote(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrUnknownSymbol)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// marketResponse decorates the summary with the display attributes the
// dashboard renders alongside it.
type marketResponse struct {
	domain.MarketSummary
	SentimentLabel string `json:"sentiment_label"`
	SentimentColor string `json:"sentiment_color"`
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	summary := s.aggregator.Summary()
	writeJSON(w, http.StatusOK, marketResponse{
		MarketSummary:  summary,
		SentimentLabel: summary.SentimentLabel(),
		SentimentColor: summary.SentimentColor(),
	})
}

// ---- wallet ----

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Snapshot())
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	b, ok := s.ledger.Get(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrUnknownSymbol)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.valuation.Portfolio())
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	f := journal.Filter{
		Type:   r.URL.Query().Get("type"),
		Symbol: r.URL.Query().Get("symbol"),
		Limit:  queryInt(r, "limit"),
	}
	if f.Type != "" && !domain.ValidTransactionType(f.Type) {
		writeError(w, http.StatusBadRequest, errors.New("unknown transaction type"))
		return
	}
	writeJSON(w, http.StatusOK, s.journal.Query(f))
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tx, ok := s.journal.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrTransactionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDepositAddresses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.addresses.All())
}

func (s *Server) handleDepositAddress(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	addr, err := s.addresses.Lookup(symbol)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, addr)
}

func (s *Server) handleWithdrawalFee(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid amount"))
		return
	}
	fee := s.engine.GetWithdrawalFee(symbol, amount)
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"amount": amount,
		"fee":    fee,
	})
}

// ---- commands ----

type transferRequest struct {
	Symbol      string          `json:"symbol"`
	Amount      decimal.Decimal `json:"amount"`
	FromAddress string          `json:"from_address,omitempty"`
	ToAddress   string          `json:"to_address,omitempty"`
}

type orderRequest struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
}

func (s *Server) handleCreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
		return
	}
	tx, err := s.engine.CreateDeposit(req.Symbol, req.Amount, req.FromAddress)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleCreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
		return
	}
	tx, err := s.engine.CreateWithdrawal(req.Symbol, req.Amount, req.ToAddress)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleCreateBuy(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
		return
	}
	tx, err := s.engine.CreateBuyOrder(req.Symbol, req.Amount, req.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleCreateSell(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
		return
	}
	tx, err := s.engine.CreateSellOrder(req.Symbol, req.Amount, req.Price)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

type alertRequest struct {
	Symbol      string          `json:"symbol"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Persistent  bool            `json:"persistent"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.alerts.Alerts())
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("malformed request body"))
		return
	}
	if !req.TargetPrice.IsPositive() {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidPrice)
		return
	}
	q, ok := s.feed.Quote(req.Symbol)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrUnknownSymbol)
		return
	}
	alert := domain.NewAlertConfig(req.Symbol, req.TargetPrice, q.Price, req.Persistent)
	s.alerts.Add(alert)
	writeJSON(w, http.StatusCreated, alert)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("metrics not enabled"))
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// ---- helpers ----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeDomainError maps engine errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrUnknownSymbol):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func queryInt(r *http.Request, key string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
