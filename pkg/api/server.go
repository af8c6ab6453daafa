package api

import (
	"encoding/json"
	"errors"
	"log"
	"math/big"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/dev-yomi/limit-order/pkg/engine"
	"github.com/dev-yomi/limit-order/pkg/order"
)

// Server handles REST API and WebSocket connections
type Server struct {
	engine *engine.Engine
	router *mux.Router
	hub    *Hub     // WebSocket hub
	txLog  *os.File // Transaction log file
}

// NewServer creates a new API server
func NewServer(eng *engine.Engine) *Server {
	// Open transaction log file
	txLogPath := os.Getenv("TX_LOG_FILE")
	if txLogPath == "" {
		txLogPath = "data/transactions.log"
		os.MkdirAll("data", 0755)
	}

	txLog, err := os.OpenFile(txLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("[api] WARNING: failed to open tx log file %s: %v", txLogPath, err)
		txLog = nil // Continue without tx logging
	} else {
		log.Printf("[api] transaction log: %s", txLogPath)
	}

	s := &Server{
		engine: eng,
		router: mux.NewRouter(),
		hub:    NewHub(),
		txLog:  txLog,
	}

	s.setupRoutes()
	return s
}

// EventHub exposes the WebSocket hub so the engine's emitter can be wired to it.
func (s *Server) EventHub() *Hub { return s.hub }

// Handler returns the route handler for embedding in a custom server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Order lifecycle
	api.HandleFunc("/orders", s.handlePlaceOrder).Methods("POST")
	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{id}/execute", s.handleExecuteOrder).Methods("POST")
	api.HandleFunc("/orders/{id}/cancel", s.handleCancelOrder).Methods("POST")

	// Operator fees
	api.HandleFunc("/fees/{asset}", s.handleGetFeeBalance).Methods("GET")
	api.HandleFunc("/fees/{asset}/withdraw", s.handleWithdrawFees).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	// Start WebSocket hub
	go s.hub.Run()

	// CORS configuration
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	handler := c.Handler(s.router)

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, handler)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	owner, ok := parseAddress(req.Owner)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid owner address", req.Owner)
		return
	}
	tokenIn, ok := parseAddress(req.TokenIn)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid tokenIn address", req.TokenIn)
		return
	}
	tokenOut, ok := parseAddress(req.TokenOut)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid tokenOut address", req.TokenOut)
		return
	}
	pool, ok := parseAddress(req.Pool)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid pool address", req.Pool)
		return
	}
	amountIn, ok := parseAmount(req.AmountIn)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid amountIn", req.AmountIn)
		return
	}
	price, ok := parseAmount(req.Price)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid price", req.Price)
		return
	}

	id, err := s.engine.Place(engine.PlaceRequest{
		Owner:          owner,
		TokenIn:        tokenIn,
		TokenOut:       tokenOut,
		Pool:           pool,
		AmountIn:       amountIn,
		Price:          price,
		ResolverFeeBps: req.ResolverFeeBps,
		SlippageBps:    req.SlippageBps,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}

	s.logTransaction("ORDER_PLACE", map[string]interface{}{
		"order_id":  id,
		"owner":     owner.Hex(),
		"amount_in": amountIn.String(),
	})

	respondJSON(w, PlaceOrderResponse{Status: "placed", OrderID: id})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	var orders []*order.Order
	if ownerStr := r.URL.Query().Get("owner"); ownerStr != "" {
		owner, ok := parseAddress(ownerStr)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid owner address", ownerStr)
			return
		}
		orders = s.engine.ListOrdersByOwner(owner)
	} else {
		orders = s.engine.ListActiveOrders()
	}

	response := make([]OrderInfo, len(orders))
	for i, ord := range orders {
		response[i] = toOrderInfo(ord)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	ord, err := s.engine.GetOrder(id)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, toOrderInfo(ord))
}

func (s *Server) handleExecuteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req ExecuteOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	caller, okAddr := parseAddress(req.Caller)
	if !okAddr {
		respondError(w, http.StatusBadRequest, "invalid caller address", req.Caller)
		return
	}

	res, err := s.engine.Execute(id, caller)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	response := ExecuteOrderResponse{Settled: res.Settled, Reason: res.Reason}
	if res.CurrentPrice != nil {
		response.CurrentPrice = res.CurrentPrice.String()
	}
	if res.Settled {
		response.AmountOut = res.AmountOut.String()
		response.ToOwner = res.ToOwner.String()
		response.ToResolver = res.ToResolver.String()
		response.OperatorCut = res.OperatorCut.String()

		s.logTransaction("ORDER_EXECUTE", map[string]interface{}{
			"order_id":   id,
			"caller":     caller.Hex(),
			"amount_out": res.AmountOut.String(),
		})
	}
	respondJSON(w, response)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	caller, okAddr := parseAddress(req.Caller)
	if !okAddr {
		respondError(w, http.StatusBadRequest, "invalid caller address", req.Caller)
		return
	}

	if err := s.engine.Cancel(id, caller); err != nil {
		respondEngineError(w, err)
		return
	}

	s.logTransaction("ORDER_CANCEL", map[string]interface{}{
		"order_id": id,
		"caller":   caller.Hex(),
	})

	respondJSON(w, map[string]interface{}{"status": "cancelled", "orderId": id})
}

func (s *Server) handleGetFeeBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	asset, ok := parseAddress(vars["asset"])
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid asset address", vars["asset"])
		return
	}

	respondJSON(w, FeeBalanceInfo{
		Asset:   asset.Hex(),
		Balance: s.engine.FeeBalance(asset).String(),
	})
}

func (s *Server) handleWithdrawFees(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	asset, ok := parseAddress(vars["asset"])
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid asset address", vars["asset"])
		return
	}

	var req WithdrawFeesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	caller, okAddr := parseAddress(req.Caller)
	if !okAddr {
		respondError(w, http.StatusBadRequest, "invalid caller address", req.Caller)
		return
	}

	withdrawn, err := s.engine.WithdrawFees(asset, caller)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	if withdrawn.Sign() > 0 {
		s.logTransaction("FEES_WITHDRAW", map[string]interface{}{
			"asset":  asset.Hex(),
			"amount": withdrawn.String(),
		})
	}

	respondJSON(w, WithdrawFeesResponse{Asset: asset.Hex(), Withdrawn: withdrawn.String()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

func toOrderInfo(ord *order.Order) OrderInfo {
	return OrderInfo{
		ID:             ord.ID,
		Owner:          ord.Owner.Hex(),
		TokenIn:        ord.TokenIn.Hex(),
		TokenOut:       ord.TokenOut.Hex(),
		Pool:           ord.Pool.Hex(),
		AmountIn:       ord.AmountIn.String(),
		TargetPrice:    ord.TargetPrice.String(),
		ResolverFeeBps: ord.ResolverFeeBps,
		SlippageBps:    ord.SlippageBps,
		Status:         ord.Status.String(),
		CreatedAt:      ord.CreatedAt,
		UpdatedAt:      ord.UpdatedAt,
	}
}

func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

func parseAmount(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, false
	}
	return v, true
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id", vars["id"])
		return 0, false
	}
	return id, true
}

// respondEngineError maps the engine's error taxonomy onto HTTP statuses.
func respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		respondError(w, http.StatusBadRequest, "validation failed", err.Error())
	case errors.Is(err, engine.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, engine.ErrNotFound):
		respondError(w, http.StatusNotFound, "order not found", err.Error())
	case errors.Is(err, engine.ErrStateConflict):
		respondError(w, http.StatusConflict, "state conflict", err.Error())
	default:
		respondError(w, http.StatusBadGateway, "external failure", err.Error())
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// logTransaction writes a transaction event to the log file
func (s *Server) logTransaction(eventType string, data map[string]interface{}) {
	if s.txLog == nil {
		return // Logging disabled
	}

	// Create log entry
	entry := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
		"event":     eventType,
		"data":      data,
	}

	// Convert to JSON
	jsonData, err := json.Marshal(entry)
	if err != nil {
		log.Printf("[api] failed to marshal tx log entry: %v", err)
		return
	}

	// Write to file (one JSON object per line)
	s.txLog.Write(jsonData)
	s.txLog.Write([]byte("\n"))
}
