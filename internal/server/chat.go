package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/taskflowhq/taskflow/internal/runtime"
	"github.com/taskflowhq/taskflow/internal/store"
	"github.com/taskflowhq/taskflow/models"
)

// AgentRunner is the part of the agent the chat handler needs. Tests
// substitute a scripted fake.
type AgentRunner interface {
	Run(ctx context.Context, userID string, history []models.Message, userMessage string) (string, error)
}

// ChatHandler drives one agent turn per request and persists the exchange.
type ChatHandler struct {
	Store   *store.Store
	Agent   AgentRunner
	Rdb     *redis.Client // optional; serializes chat turns per user
	Timeout time.Duration
	Logger  *log.Logger
}

func (h *ChatHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.POST("", h.chat)
	g.GET("/history", h.history)
}

func (h *ChatHandler) chat(c echo.Context) error {
	userID := c.Get("user_id").(string)

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
	defer cancel()

	// One chat turn at a time per user. Two concurrent turns would race on
	// the same conversation and interleave task mutations.
	if h.Rdb != nil {
		lockKey := "chat:lock:" + userID
		ok, err := h.Rdb.SetNX(ctx, lockKey, "1", timeout).Result()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if !ok {
			return echo.NewHTTPError(http.StatusConflict, "another chat request is already in progress")
		}
		defer h.Rdb.Del(context.Background(), lockKey)
	}

	conv, err := h.Store.GetOrCreateConversation(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	history, err := h.loadHistory(ctx, conv.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	reply, err := h.Agent.Run(ctx, userID, history, message)
	if err != nil {
		h.logf("agent error for user %s: %v", userID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "agent error")
	}

	// The reply is already computed; failing to save history must not take
	// the answer away from the user.
	if _, err := h.Store.AppendMessage(ctx, conv.ID, store.RoleUser, message); err != nil {
		h.logf("persist user message: %v", err)
	} else if _, err := h.Store.AppendMessage(ctx, conv.ID, store.RoleAssistant, reply); err != nil {
		h.logf("persist assistant message: %v", err)
	}

	return c.JSON(http.StatusOK, ChatResponse{Response: reply, ConversationID: conv.ID})
}

func (h *ChatHandler) history(c echo.Context) error {
	userID := c.Get("user_id").(string)
	conv, err := h.Store.GetOrCreateConversation(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	msgs, err := h.Store.ListMessages(c.Request().Context(), conv.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != store.RoleUser && m.Role != store.RoleAssistant {
			continue
		}
		out = append(out, MessageView{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return c.JSON(http.StatusOK, HistoryResponse{ConversationID: conv.ID, Messages: out})
}

// loadHistory maps the persisted conversation into model messages, keeping
// only the user-visible roles.
func (h *ChatHandler) loadHistory(ctx context.Context, conversationID string) ([]models.Message, error) {
	msgs, err := h.Store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	history := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != store.RoleUser && m.Role != store.RoleAssistant {
			continue
		}
		history = append(history, models.Message{Role: m.Role, Content: m.Content})
	}
	return history, nil
}

func (h *ChatHandler) logf(format string, args ...interface{}) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
