// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Corphon/SceneForge/internal/models"
	"github.com/Corphon/SceneForge/internal/utils"
)

const (
	defaultPingTimeout = 60 * time.Second
	writeTimeout       = 10 * time.Second
	sendQueueSize      = 64
	cleanupInterval    = 30 * time.Second
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketConnection 定义 WebSocket 连接的接口，*websocket.Conn 实现了它
type WebSocketConnection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

// WebSocketClient 订阅某个项目更新的连接
type WebSocketClient struct {
	conn      WebSocketConnection
	projectID string
	clientID  string
	send      chan []byte
	quit      chan struct{}
	closed    int32
	lastPing  int64 // unix nano
	createdAt time.Time
}

func newWebSocketClient(conn WebSocketConnection, projectID, clientID string) *WebSocketClient {
	now := time.Now()
	return &WebSocketClient{
		conn:      conn,
		projectID: projectID,
		clientID:  clientID,
		send:      make(chan []byte, sendQueueSize),
		quit:      make(chan struct{}),
		lastPing:  now.UnixNano(),
		createdAt: now,
	}
}

// Close 安全关闭客户端连接，可重复调用
func (client *WebSocketClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		close(client.quit)
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// IsClosed 检查连接是否已关闭
func (client *WebSocketClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// UpdatePing 更新最后ping时间
func (client *WebSocketClient) UpdatePing() {
	atomic.StoreInt64(&client.lastPing, time.Now().UnixNano())
}

// LastPing 最后一次收到客户端消息或pong的时间
func (client *WebSocketClient) LastPing() time.Time {
	return time.Unix(0, atomic.LoadInt64(&client.lastPing))
}

// IsExpired 检查连接是否超时
func (client *WebSocketClient) IsExpired(timeout time.Duration) bool {
	if timeout <= 0 {
		return true
	}
	return time.Since(client.LastPing()) > timeout
}

// SendMessage 把消息放入发送队列，队列满时丢弃
func (client *WebSocketClient) SendMessage(message map[string]interface{}) error {
	if client.IsClosed() {
		return nil
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.send <- msgBytes:
	default:
		utils.GetLogger().Warn("WebSocket 发送队列已满，消息被丢弃", map[string]interface{}{
			"project_id": client.projectID,
			"client_id":  client.clientID,
		})
	}
	return nil
}

// SendError 发送错误消息到客户端
func (client *WebSocketClient) SendError(errorMsg string) {
	client.SendMessage(map[string]interface{}{
		"type":      "error",
		"error":     errorMsg,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// WebSocketManager 按项目管理 WebSocket 连接，并把项目变更推送给订阅者
type WebSocketManager struct {
	connections map[string]map[*WebSocketClient]struct{} // projectID -> clients
	mutex       sync.RWMutex
	pingTimeout time.Duration
	done        chan struct{}
	closeOnce   sync.Once
}

// NewWebSocketManager 创建管理器并启动定期清理
func NewWebSocketManager() *WebSocketManager {
	manager := &WebSocketManager{
		connections: make(map[string]map[*WebSocketClient]struct{}),
		pingTimeout: defaultPingTimeout,
		done:        make(chan struct{}),
	}
	go manager.run()
	return manager
}

// run 定期清理过期连接，直到 Close
func (manager *WebSocketManager) run() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			manager.cleanupExpiredConnections()
		case <-manager.done:
			manager.shutdown()
			return
		}
	}
}

// Close 关闭管理器和所有连接
func (manager *WebSocketManager) Close() {
	manager.closeOnce.Do(func() {
		close(manager.done)
	})
}

// registerClient 注册新客户端
func (manager *WebSocketManager) registerClient(client *WebSocketClient) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if manager.connections[client.projectID] == nil {
		manager.connections[client.projectID] = make(map[*WebSocketClient]struct{})
	}
	manager.connections[client.projectID][client] = struct{}{}

	utils.GetLogger().Info("WebSocket 客户端已连接", map[string]interface{}{
		"project_id": client.projectID,
		"client_id":  client.clientID,
	})
}

// unregisterClient 注销并关闭客户端
func (manager *WebSocketManager) unregisterClient(client *WebSocketClient) {
	manager.mutex.Lock()
	if clients, exists := manager.connections[client.projectID]; exists {
		delete(clients, client)
		if len(clients) == 0 {
			delete(manager.connections, client.projectID)
		}
	}
	manager.mutex.Unlock()

	client.Close()
	utils.GetLogger().Info("WebSocket 客户端已断开", map[string]interface{}{
		"project_id": client.projectID,
		"client_id":  client.clientID,
	})
}

// cleanupExpiredConnections 清理过期和已关闭的连接
func (manager *WebSocketManager) cleanupExpiredConnections() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	for projectID, clients := range manager.connections {
		for client := range clients {
			if client.IsClosed() || client.IsExpired(manager.pingTimeout) {
				delete(clients, client)
				client.Close()
			}
		}
		if len(clients) == 0 {
			delete(manager.connections, projectID)
		}
	}
}

// shutdown 关闭所有连接
func (manager *WebSocketManager) shutdown() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	for _, clients := range manager.connections {
		for client := range clients {
			client.Close()
		}
	}
	manager.connections = make(map[string]map[*WebSocketClient]struct{})
	utils.GetLogger().Info("WebSocket 管理器已关闭", nil)
}

// BroadcastToProject 向订阅指定项目的客户端广播消息
func (manager *WebSocketManager) BroadcastToProject(projectID string, message map[string]interface{}) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		utils.GetLogger().Error("序列化广播消息失败", map[string]interface{}{"error": err.Error()})
		return
	}

	manager.mutex.RLock()
	clients := make([]*WebSocketClient, 0, len(manager.connections[projectID]))
	for client := range manager.connections[projectID] {
		if !client.IsClosed() {
			clients = append(clients, client)
		}
	}
	manager.mutex.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- msgBytes:
		default:
			// 跟不上推送速度的客户端直接断开
			client.Close()
		}
	}
}

// NotifyProjectUpdate 推送项目变更
func (manager *WebSocketManager) NotifyProjectUpdate(event string, project *models.Project) {
	manager.BroadcastToProject(project.ID, map[string]interface{}{
		"type":       "project_update",
		"event":      event,
		"project_id": project.ID,
		"version":    project.Version,
		"project":    project,
		"timestamp":  time.Now().Format(time.RFC3339),
	})
}

// GetStatus 获取管理器状态
func (manager *WebSocketManager) GetStatus() map[string]interface{} {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	projects := make(map[string]interface{})
	total := 0
	for projectID, clients := range manager.connections {
		active := make([]interface{}, 0, len(clients))
		for client := range clients {
			if client.IsClosed() {
				continue
			}
			active = append(active, map[string]interface{}{
				"client_id":    client.clientID,
				"connected_at": client.createdAt.Format(time.RFC3339),
				"last_ping":    client.LastPing().Format(time.RFC3339),
			})
		}
		projects[projectID] = map[string]interface{}{
			"client_count": len(active),
			"clients":      active,
		}
		total += len(active)
	}

	return map[string]interface{}{
		"total_projects":    len(manager.connections),
		"total_connections": total,
		"projects":          projects,
	}
}

// ClientCount 订阅指定项目的连接数
func (manager *WebSocketManager) ClientCount(projectID string) int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()
	return len(manager.connections[projectID])
}
