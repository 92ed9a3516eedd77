package handlers

import (
	"net/http"

	"auction-engine/internal/api/middleware"
	"auction-engine/internal/infrastructure/websocket"
	"auction-engine/pkg/logger"

	"github.com/gorilla/mux"
)

type WebSocketHandlers struct {
	wsHandler *websocket.WebSocketHandler
}

func NewWebSocketHandlers(wsHandler *websocket.WebSocketHandler) *WebSocketHandlers {
	return &WebSocketHandlers{wsHandler: wsHandler}
}

func (h *WebSocketHandlers) HandleConnection(w http.ResponseWriter, r *http.Request) {
	h.wsHandler.HandleConnection(w, r)
}

// NewBiddingRouter builds the mux router of the live bidding service.
func NewBiddingRouter(h *WebSocketHandlers, log logger.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.CORSWithLogging(log))

	router.HandleFunc("/ws/auctions/{auctionID}", h.HandleConnection)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return router
}
