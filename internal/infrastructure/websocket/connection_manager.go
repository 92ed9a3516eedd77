package websocket

import (
	"sync"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
)

var _ domain.ConnectionManager = (*ConnectionManager)(nil)

// ConnectionManager tracks the live sockets of this instance. A user may
// hold several sockets, on one or many auctions.
type ConnectionManager struct {
	connections map[string]map[domain.WebSocketConnection]struct{} // auctionID -> connections
	userConns   map[string]map[domain.WebSocketConnection]struct{} // userID -> connections
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]map[domain.WebSocketConnection]struct{}),
		userConns:   make(map[string]map[domain.WebSocketConnection]struct{}),
		log:         log,
	}
}

func (cm *ConnectionManager) RegisterConnection(userID, auctionID string, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.connections[auctionID] == nil {
		cm.connections[auctionID] = make(map[domain.WebSocketConnection]struct{})
	}
	cm.connections[auctionID][conn] = struct{}{}

	if cm.userConns[userID] == nil {
		cm.userConns[userID] = make(map[domain.WebSocketConnection]struct{})
	}
	cm.userConns[userID][conn] = struct{}{}

	cm.log.Info("Connection registered", "user_id", userID, "auction_id", auctionID)
	return nil
}

func (cm *ConnectionManager) UnregisterConnection(userID, auctionID string, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	cm.remove(userID, auctionID, conn)
	cm.log.Info("Connection unregistered", "user_id", userID, "auction_id", auctionID)
	return nil
}

func (cm *ConnectionManager) remove(userID, auctionID string, conn domain.WebSocketConnection) {
	if auctionConns, exists := cm.connections[auctionID]; exists {
		delete(auctionConns, conn)
		if len(auctionConns) == 0 {
			delete(cm.connections, auctionID)
		}
	}
	if userConnections, exists := cm.userConns[userID]; exists {
		delete(userConnections, conn)
		if len(userConnections) == 0 {
			delete(cm.userConns, userID)
		}
	}
}

func (cm *ConnectionManager) CloseAndUnregisterConnections(auctionID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	for conn := range cm.connections[auctionID] {
		if err := conn.Close(); err != nil {
			cm.log.Error("Failed to close connection", "user_id", conn.UserID(),
				"auction_id", auctionID, "error", err)
		}
		cm.remove(conn.UserID(), auctionID, conn)
	}

	cm.log.Info("Connections closed for auction", "auction_id", auctionID)
	return nil
}

func (cm *ConnectionManager) GetConnectionsForAuction(auctionID string) []domain.WebSocketConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	connections := make([]domain.WebSocketConnection, 0, len(cm.connections[auctionID]))
	for conn := range cm.connections[auctionID] {
		connections = append(connections, conn)
	}
	return connections
}

func (cm *ConnectionManager) GetConnectionsForUser(userID string) []domain.WebSocketConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	connections := make([]domain.WebSocketConnection, 0, len(cm.userConns[userID]))
	for conn := range cm.userConns[userID] {
		connections = append(connections, conn)
	}
	return connections
}

func (cm *ConnectionManager) BroadcastToAuction(auctionID string, message interface{}) error {
	connections := cm.GetConnectionsForAuction(auctionID)
	cm.log.Debug("Broadcasting to auction", "auction_id", auctionID, "connections", len(connections))

	for _, conn := range connections {
		if err := conn.Send(message); err != nil {
			// Continue to other connections
			cm.log.Error("Failed to send message", "user_id", conn.UserID(),
				"auction_id", auctionID, "error", err)
		}
	}
	return nil
}

func (cm *ConnectionManager) NotifyUser(userID string, message interface{}) error {
	for _, conn := range cm.GetConnectionsForUser(userID) {
		if err := conn.Send(message); err != nil {
			cm.log.Error("Failed to send message", "user_id", userID, "error", err)
		}
	}
	return nil
}
