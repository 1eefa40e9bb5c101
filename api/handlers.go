package api

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/crosswirelabs/loom/pkg/agent"
	"github.com/crosswirelabs/loom/pkg/chat"
	"github.com/crosswirelabs/loom/pkg/msglog"
	"github.com/crosswirelabs/loom/pkg/orchestrator"
)

// ErrorResponse is the JSON error body returned on failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SummaryResponse wraps a conversation's rolling summary.
type SummaryResponse struct {
	ConversationID string `json:"conversation_id"`
	Summary        string `json:"summary"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleChat runs one chat request through the pipeline.
func (s *Server) handleChat(c *fiber.Ctx) error {
	req := &chat.Request{}
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	resp, err := s.pipeline.Handle(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyContent):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		case errors.Is(err, orchestrator.ErrPlannerFailed):
			return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: err.Error()})
		case errors.Is(err, msglog.ErrUnavailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: err.Error()})
		default:
			s.logger.Error("chat request failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "chat request failed"})
		}
	}

	return c.JSON(resp)
}

// handleRecentMessages returns the most recent messages of a conversation,
// oldest first. The window defaults to 20 and is capped at 200.
func (s *Server) handleRecentMessages(c *fiber.Ctx) error {
	conversationID := c.Params("id")

	n := c.QueryInt("n", 20)
	if n < 1 {
		n = 20
	}
	if n > 200 {
		n = 200
	}

	_, found, err := s.log.Conversation(c.Context(), conversationID)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "message log unavailable"})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "conversation not found"})
	}

	messages, err := s.log.RecentN(c.Context(), conversationID, n)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "message log unavailable"})
	}

	return c.JSON(map[string]any{
		"conversation_id": conversationID,
		"count":           len(messages),
		"messages":        messages,
	})
}

// handleGetSummary returns the rolling summary for a conversation.
func (s *Server) handleGetSummary(c *fiber.Ctx) error {
	conversationID := c.Params("id")

	text, found, err := s.mem.GetSummary(c.Context(), conversationID)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "memory store unavailable"})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "no summary for conversation"})
	}

	return c.JSON(SummaryResponse{
		ConversationID: conversationID,
		Summary:        text,
	})
}

// handleSetMemory upserts a memory entry. The body is the raw JSON value;
// ttl_seconds=0 (or absent) means the entry never expires.
func (s *Server) handleSetMemory(c *fiber.Ctx) error {
	conversationID := c.Params("id")
	key := c.Params("key")

	body := c.Body()
	if len(body) == 0 || !json.Valid(body) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "body must be valid JSON"})
	}

	ttlSeconds := c.QueryInt("ttl_seconds", 0)
	if ttlSeconds < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "ttl_seconds must be non-negative"})
	}

	value := make(json.RawMessage, len(body))
	copy(value, body)

	ttl := time.Duration(ttlSeconds) * time.Second
	if err := s.mem.Set(c.Context(), conversationID, key, value, ttl); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "memory store unavailable"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleGetMemory returns a memory entry's value as the opaque JSON the PUT
// stored, so a round-trip preserves shape. Expired entries read as absent.
func (s *Server) handleGetMemory(c *fiber.Ctx) error {
	conversationID := c.Params("id")
	key := c.Params("key")

	value, found, err := s.mem.Get(c.Context(), conversationID, key)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "memory store unavailable"})
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "key not found"})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(value)
}

// handleDeleteMemory removes a memory entry. Deleting an absent key succeeds.
func (s *Server) handleDeleteMemory(c *fiber.Ctx) error {
	conversationID := c.Params("id")
	key := c.Params("key")

	if err := s.mem.Delete(c.Context(), conversationID, key); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "memory store unavailable"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleListAgents returns all registered agents sorted by ID.
func (s *Server) handleListAgents(c *fiber.Ctx) error {
	agents := s.registry.List()
	return c.JSON(map[string]any{
		"count":  len(agents),
		"agents": agents,
	})
}

// agentStatusRequest is the body for the agent status endpoint. It carries
// the external health signal that moves agents in and out of offline.
type agentStatusRequest struct {
	Status agent.Status `json:"status"`
}

// handleSetAgentStatus applies a status change to a registered agent.
func (s *Server) handleSetAgentStatus(c *fiber.Ctx) error {
	agentID := c.Params("id")

	req := agentStatusRequest{}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if err := s.registry.SetStatus(agentID, req.Status); err != nil {
		var invalid agent.InvalidStatusError
		switch {
		case errors.Is(err, agent.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
		case errors.Is(err, agent.ErrOffline), errors.As(err, &invalid):
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "status update failed"})
		}
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleRecentEvents returns the most recent orchestration events from the
// in-process journal, newest first.
func (s *Server) handleRecentEvents(c *fiber.Ctx) error {
	n := c.QueryInt("n", 50)
	if n < 1 {
		n = 50
	}

	events := s.journal.Recent(n)
	return c.JSON(map[string]any{
		"count":  len(events),
		"events": events,
	})
}
