package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

const (
	maxMessageSize = 4096
	bidTimeout     = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type BidPlacer interface {
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64) (*domain.AcceptedBid, error)
}

// AuctionReader returns the auction, closing it first if it expired.
type AuctionReader interface {
	GetAuction(ctx context.Context, auctionID string) (*domain.AuctionItem, error)
}

type Authenticator interface {
	Authenticate(token string) (domain.Actor, error)
}

type WebSocketHandler struct {
	bids        BidPlacer
	auctions    AuctionReader
	auth        Authenticator
	prices      domain.PriceCache
	rules       domain.BiddingRule
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewWebSocketHandler(bids BidPlacer, auctions AuctionReader, auth Authenticator, prices domain.PriceCache,
	rules domain.BiddingRule, connManager domain.ConnectionManager, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		bids:        bids,
		auctions:    auctions,
		auth:        auth,
		prices:      prices,
		rules:       rules,
		connManager: connManager,
		log:         log,
	}
}

type clientMessage struct {
	Type   string      `json:"type"`
	Amount interface{} `json:"amount"`
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	auctionID := mux.Vars(r)["auctionID"]

	actor, err := h.auth.Authenticate(r.URL.Query().Get("token"))
	if err != nil {
		h.log.Info("Rejected connection - invalid token", "auction_id", auctionID, "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	auction, err := h.auctions.GetAuction(r.Context(), auctionID)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "auction not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("Failed to load auction", "auction_id", auctionID, "error", err)
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	if auction.Status != domain.AuctionActive {
		h.log.Info("Rejected connection - auction has ended", "auction_id", auctionID)
		http.Error(w, "auction has already ended", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	wsConn := NewWebSocketConnection(conn, actor.UserID, auctionID)
	if err := h.connManager.RegisterConnection(actor.UserID, auctionID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		_ = wsConn.Close()
		return
	}

	if err := wsConn.Send(h.snapshot(r.Context(), auction)); err != nil {
		h.log.Warn("Failed to send auction state", "auction_id", auctionID, "error", err)
	}

	go h.handleMessages(conn, wsConn)
}

func (h *WebSocketHandler) snapshot(ctx context.Context, auction *domain.AuctionItem) map[string]interface{} {
	currentBid, increment, status, endTime := auction.CurrentBid, auction.MinBidIncrement, auction.Status, auction.EndTime
	if h.prices != nil {
		if cached, err := h.prices.GetSnapshot(ctx, auction.ID); err == nil && cached.CurrentBid >= currentBid {
			currentBid, increment, status = cached.CurrentBid, cached.MinBidIncrement, cached.Status
		}
	}
	return map[string]interface{}{
		"type":        "auction_state",
		"auction_id":  auction.ID,
		"current_bid": currentBid,
		"minimum_bid": h.rules.MinimumBid(currentBid, increment),
		"status":      status,
		"end_time":    endTime,
	}
}

func (h *WebSocketHandler) handleMessages(conn *websocket.Conn, wsConn *WebSocketConnection) {
	defer func() {
		if err := h.connManager.UnregisterConnection(wsConn.UserID(), wsConn.AuctionID(), wsConn); err != nil {
			h.log.Error("Failed to unregister connection", "error", err)
		}
		_ = wsConn.Close()
	}()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn("Connection closed unexpectedly", "user_id", wsConn.UserID(), "error", err)
			}
			return
		}

		switch msg.Type {
		case "place_bid":
			h.handleBidMessage(wsConn, msg)
		case "ping":
			_ = wsConn.Send(map[string]string{"type": "pong"})
		default:
			_ = wsConn.Send(map[string]string{"type": "error", "message": "unknown message type"})
		}
	}
}

func (h *WebSocketHandler) handleBidMessage(conn *WebSocketConnection, msg clientMessage) {
	amount, err := parseAmount(msg.Amount)
	if err != nil {
		_ = conn.Send(map[string]interface{}{
			"type":    "bid_rejected",
			"code":    domain.ReasonInvalidAmount,
			"message": "invalid amount",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), bidTimeout)
	defer cancel()

	accepted, err := h.bids.PlaceBid(ctx, conn.AuctionID(), conn.UserID(), amount)
	if err == nil {
		_ = conn.Send(map[string]interface{}{
			"type":        "bid_accepted",
			"bid_id":      accepted.Bid.ID,
			"amount":      accepted.Bid.Amount,
			"current_bid": accepted.CurrentBid,
		})
		return
	}

	var rejection *domain.BidRejection
	if errors.As(err, &rejection) {
		reply := map[string]interface{}{
			"type":    "bid_rejected",
			"code":    rejection.Reason,
			"message": rejection.Message,
		}
		if rejection.Reason == domain.ReasonBidTooLow {
			reply["minimum_bid"] = rejection.MinimumBid
			reply["current_bid"] = rejection.CurrentBid
		}
		_ = conn.Send(reply)
		return
	}

	h.log.Error("Failed to place bid", "auction_id", conn.AuctionID(), "user_id", conn.UserID(), "error", err)
	_ = conn.Send(map[string]string{"type": "error", "message": "failed to place bid, please retry"})
}

// parseAmount accepts JSON numbers and numeric strings only.
func parseAmount(raw interface{}) (float64, error) {
	switch raw.(type) {
	case string, float64, json.Number:
		return cast.ToFloat64E(raw)
	}
	return 0, errors.Errorf("unsupported amount type %T", raw)
}
