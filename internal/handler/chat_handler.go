package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
	"tutor-smart-go/internal/model"
	"tutor-smart-go/internal/service"
	"tutor-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChatHandler 负责处理 WebSocket 聊天连接，每条消息都走一次落地问答流程。
type ChatHandler struct {
	assistant     service.AssistantService
	userService   service.UserService
	timeout       time.Duration
	stopTokens    map[uint]string
	stopTokenLock sync.Mutex
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(assistant service.AssistantService, userService service.UserService, timeout time.Duration) *ChatHandler {
	return &ChatHandler{
		assistant:   assistant,
		userService: userService,
		timeout:     timeout,
		stopTokens:  make(map[uint]string),
	}
}

// GetWebsocketStopToken 为当前用户签发一个停止流的令牌，只对该用户的连接有效。
func (h *ChatHandler) GetWebsocketStopToken(c *gin.Context) {
	userID := mustUser(c).ID
	tok := "WSS_STOP_CMD_" + uuid.NewString()

	h.stopTokenLock.Lock()
	// 令牌保存在进程内，多实例部署时需要放到 Redis
	h.stopTokens[userID] = tok
	h.stopTokenLock.Unlock()

	respondOK(c, "success", gin.H{"cmdToken": tok})
}

func (h *ChatHandler) isStopToken(userID uint, tok string) bool {
	h.stopTokenLock.Lock()
	defer h.stopTokenLock.Unlock()
	want, ok := h.stopTokens[userID]
	return ok && tok == want
}

type stopCommand struct {
	Type  string `json:"type"`
	Token string `json:"_internal_cmd_token"`
}

// lockedConn 串行化对同一连接的写入，流式回答与停止确认可能并发写。
type lockedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (l *lockedConn) WriteMessage(messageType int, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteMessage(messageType, data)
}

func (l *lockedConn) writeJSON(v interface{}) {
	b, _ := json.Marshal(v)
	_ = l.WriteMessage(websocket.TextMessage, b)
}

// Handle 处理一个传入的 WebSocket 连接。读循环只负责接收消息，回答在单独的 goroutine 中流式下发，
// 同一连接同时只处理一个提问。
func (h *ChatHandler) Handle(c *gin.Context) {
	user, err := h.userService.Authenticate(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, http.StatusUnauthorized, "无效的 token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	out := &lockedConn{conn: conn}

	log.Infof("WebSocket 连接已建立，用户: %s", user.Username)

	ctx, cancel := context.WithCancel(c.Request.Context())
	var (
		stopped   atomic.Bool
		streaming atomic.Bool
		wg        sync.WaitGroup
	)
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			return
		}

		var cmd stopCommand
		if len(message) > 0 && message[0] == '{' && json.Unmarshal(message, &cmd) == nil && cmd.Type == "stop" {
			if h.isStopToken(user.ID, cmd.Token) {
				stopped.Store(true)
				out.writeJSON(map[string]interface{}{
					"type":      "stop",
					"message":   "响应已停止",
					"timestamp": time.Now().UnixMilli(),
				})
			}
			continue
		}
		if h.isStopToken(user.ID, string(message)) {
			log.Info("收到停止指令，正在中断流式响应...")
			stopped.Store(true)
			continue
		}

		if !streaming.CompareAndSwap(false, true) {
			out.writeJSON(map[string]string{"error": "上一个问题仍在回答中"})
			continue
		}
		stopped.Store(false)
		wg.Add(1)
		go func(prompt string) {
			defer wg.Done()
			defer streaming.Store(false)
			h.stream(ctx, prompt, out, stopped.Load, user)
		}(string(message))
	}
}

func (h *ChatHandler) stream(parent context.Context, prompt string, out *lockedConn, shouldStop func() bool, user *model.User) {
	ctx, cancel := parent, context.CancelFunc(func() {})
	if h.timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, h.timeout)
	}
	defer cancel()

	if err := h.assistant.StreamAnswer(ctx, prompt, user, out, shouldStop); err != nil {
		log.Errorf("处理流式响应失败: %v", err)
		_, message := statusFor(err)
		out.writeJSON(map[string]string{"error": message})
		out.writeJSON(map[string]interface{}{
			"type":      "completion",
			"status":    "finished",
			"message":   "响应已完成",
			"timestamp": time.Now().UnixMilli(),
		})
	}
}
