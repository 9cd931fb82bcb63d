// internal/api/websocket_handlers.go
package api

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Corphon/SceneForge/internal/utils"
)

// ProjectWebSocket 订阅项目变更。连接建立后先收到 connected 消息，
// 之后每次项目修改都会收到 project_update。
func (h *Handler) ProjectWebSocket(c *gin.Context) {
	projectID := c.Param("id")
	if _, err := h.Projects.GetProject(projectID); err != nil {
		h.Response.HandleError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warn("WebSocket 升级失败", map[string]interface{}{
			"project_id": projectID,
			"error":      err.Error(),
		})
		return
	}

	clientID := c.Query("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	client := newWebSocketClient(conn, projectID, clientID)
	h.Hub.registerClient(client)
	defer h.Hub.unregisterClient(client)

	go h.handleWebSocketWrites(client)
	h.sendWelcomeMessage(client)

	// 读取循环结束即连接关闭
	h.handleWebSocketReads(client)
}

// handleWebSocketReads 处理 WebSocket 读取
func (h *Handler) handleWebSocketReads(client *WebSocketClient) {
	timeout := h.Hub.pingTimeout
	client.conn.SetReadDeadline(time.Now().Add(timeout))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		return client.conn.SetReadDeadline(time.Now().Add(timeout))
	})

	for !client.IsClosed() {
		_, messageBytes, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.GetLogger().Warn("WebSocket 读取错误", map[string]interface{}{
					"project_id": client.projectID,
					"error":      err.Error(),
				})
			}
			return
		}

		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(timeout))

		var message map[string]interface{}
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			client.SendError("消息格式错误")
			continue
		}
		h.handleMessage(client, message)
	}
}

// handleWebSocketWrites 处理 WebSocket 写入和心跳
func (h *Handler) handleWebSocketWrites(client *WebSocketClient) {
	ticker := time.NewTicker(h.Hub.pingTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case message := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.quit:
			client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			client.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// handleMessage 处理客户端消息
func (h *Handler) handleMessage(client *WebSocketClient, message map[string]interface{}) {
	msgType, _ := message["type"].(string)

	switch msgType {
	case "ping":
		client.SendMessage(map[string]interface{}{
			"type":      "pong",
			"timestamp": time.Now().Unix(),
		})
	case "sync":
		project, err := h.Projects.GetProject(client.projectID)
		if err != nil {
			client.SendError("读取项目失败")
			return
		}
		client.SendMessage(map[string]interface{}{
			"type":       "project_snapshot",
			"project_id": project.ID,
			"version":    project.Version,
			"project":    project,
			"timestamp":  time.Now().Format(time.RFC3339),
		})
	default:
		client.SendError("未知的消息类型: " + msgType)
	}
}

// sendWelcomeMessage 发送欢迎消息
func (h *Handler) sendWelcomeMessage(client *WebSocketClient) {
	client.SendMessage(map[string]interface{}{
		"type":       "connected",
		"project_id": client.projectID,
		"client_id":  client.clientID,
		"timestamp":  time.Now().Format(time.RFC3339),
		"message":    "WebSocket 连接已建立",
	})
}
