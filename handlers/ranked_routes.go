// handlers/ranked_routes.go
package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"ranked-ledger/middleware"
	"ranked-ledger/models"
	"ranked-ledger/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// StreamKeepAlive is how often an idle event stream sends a comment line.
var StreamKeepAlive = 15 * time.Second

type rankedHandler struct {
	registry *services.StoreRegistry
	broker   *services.EventBroker
	loc      Localizer
}

func SetupRankedRoutes(app *fiber.App, registry *services.StoreRegistry, broker *services.EventBroker, loc Localizer) {
	h := &rankedHandler{registry: registry, broker: broker, loc: loc}

	ranked := app.Group("/ranked", middleware.UserContextMiddleware(middleware.UserContextConfig{
		Unauthorized: h.unauthorized,
	}))

	ranked.Get("/games/:game/active", h.getActive)
	ranked.Get("/games/:game/history", h.getHistory)
	ranked.Post("/games/:game/sessions", h.startSession)
	ranked.Post("/games/:game/end", h.endSession)

	ranked.Get("/sessions/:id", h.getSession)
	ranked.Delete("/sessions/:id", h.deleteSession)
	ranked.Get("/sessions/:id/summary", h.getSummary)

	ranked.Post("/sessions/:id/matches", h.addMatch)
	ranked.Get("/sessions/:id/matches/:match_id", h.getMatch)
	ranked.Patch("/sessions/:id/matches/:match_id", h.updateMatch)
	ranked.Delete("/sessions/:id/matches/:match_id", h.deleteMatch)

	ranked.Post("/sessions/:id/matches/:match_id/comments", h.addComment)
	ranked.Patch("/sessions/:id/matches/:match_id/comments/:comment_id", h.editComment)
	ranked.Delete("/sessions/:id/matches/:match_id/comments/:comment_id", h.deleteComment)

	ranked.Get("/stream", h.stream)
}

// SetupHealthRoutes registers the unauthenticated liveness probe.
func SetupHealthRoutes(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

// param copies a route parameter out of the request buffer, which fasthttp reuses once
// the handler returns.
func param(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Params(key))
}

func (h *rankedHandler) store(c *fiber.Ctx) *services.SessionStore {
	return h.registry.For(middleware.PlayerID(c))
}

func (h *rankedHandler) getActive(c *fiber.Ctx) error {
	sess, err := h.store(c).GetActiveSession(c.UserContext(), param(c, "game"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"session": sess})
}

func (h *rankedHandler) getHistory(c *fiber.Ctx) error {
	sessions, err := h.store(c).GetHistory(c.UserContext(), param(c, "game"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions, "count": len(sessions)})
}

func (h *rankedHandler) startSession(c *fiber.Ctx) error {
	var in models.StartSessionInput
	if err := c.BodyParser(&in); err != nil {
		return h.badBody(c, err)
	}
	in.GameID = param(c, "game")

	sess, err := h.store(c).StartSession(c.UserContext(), in)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": sess})
}

func (h *rankedHandler) endSession(c *fiber.Ctx) error {
	ended, err := h.store(c).EndSession(c.UserContext(), param(c, "game"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"session": ended})
}

func (h *rankedHandler) getSession(c *fiber.Ctx) error {
	sess, err := h.store(c).GetSession(c.UserContext(), param(c, "id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"session": sess})
}

func (h *rankedHandler) deleteSession(c *fiber.Ctx) error {
	if err := h.store(c).DeleteSession(c.UserContext(), param(c, "id")); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *rankedHandler) getSummary(c *fiber.Ctx) error {
	summary, err := h.store(c).Summary(c.UserContext(), param(c, "id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"summary": summary})
}

func (h *rankedHandler) addMatch(c *fiber.Ctx) error {
	var in models.MatchInput
	if err := c.BodyParser(&in); err != nil {
		return h.badBody(c, err)
	}
	if r, ok := models.ParseMatchResult(string(in.Result)); ok {
		in.Result = r
	}

	sess, err := h.store(c).AddMatch(c.UserContext(), param(c, "id"), in)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session": sess,
		"match":   sess.Matches[len(sess.Matches)-1],
	})
}

func (h *rankedHandler) getMatch(c *fiber.Ctx) error {
	match, err := h.store(c).GetMatch(c.UserContext(), param(c, "id"), param(c, "match_id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"match": match})
}

func (h *rankedHandler) updateMatch(c *fiber.Ctx) error {
	var patch models.MatchPatch
	if err := c.BodyParser(&patch); err != nil {
		return h.badBody(c, err)
	}
	if patch.Result != nil {
		if r, ok := models.ParseMatchResult(string(*patch.Result)); ok {
			patch.Result = &r
		}
	}

	sess, err := h.store(c).UpdateMatch(c.UserContext(), param(c, "id"), param(c, "match_id"), patch)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"session": sess})
}

func (h *rankedHandler) deleteMatch(c *fiber.Ctx) error {
	sess, err := h.store(c).DeleteMatch(c.UserContext(), param(c, "id"), param(c, "match_id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"session": sess})
}

type commentRequest struct {
	Text string `json:"text"`
}

func (h *rankedHandler) addComment(c *fiber.Ctx) error {
	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badBody(c, err)
	}
	match, err := h.store(c).AddComment(c.UserContext(), param(c, "id"), param(c, "match_id"), req.Text)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"match":   match,
		"comment": match.Comments[len(match.Comments)-1],
	})
}

func (h *rankedHandler) editComment(c *fiber.Ctx) error {
	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return h.badBody(c, err)
	}
	match, err := h.store(c).EditComment(c.UserContext(), param(c, "id"), param(c, "match_id"), param(c, "comment_id"), req.Text)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"match": match})
}

func (h *rankedHandler) deleteComment(c *fiber.Ctx) error {
	match, err := h.store(c).DeleteComment(c.UserContext(), param(c, "id"), param(c, "match_id"), param(c, "comment_id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"match": match})
}

// stream pushes the player's session events as SSE. ?game= narrows it to one game.
func (h *rankedHandler) stream(c *fiber.Ctx) error {
	playerID := middleware.PlayerID(c)
	gameID := utils.CopyString(c.Query("game"))

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	events, cancel := h.broker.Subscribe(playerID)
	done := c.Context().Done()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		keepAlive := time.NewTicker(StreamKeepAlive)
		defer keepAlive.Stop()

		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if gameID != "" && ev.GameID != gameID {
					continue
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					log.Printf("[Stream] marshal %s for player %s: %v", ev.Type, playerID, err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			case <-keepAlive.C:
				w.WriteString(":\n\n")
			case <-done:
				return
			}

			if err := w.Flush(); err != nil {
				// Client disconnected
				return
			}
		}
	})

	return nil
}

func (h *rankedHandler) unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "missing X-User-ID: request must come through the gateway with auth context",
		"kind":    "unauthorized",
		"message": h.loc.Sprint(c, msgUnauthorized),
	})
}

func (h *rankedHandler) badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "invalid request body",
		"kind":    services.KindValidation,
		"message": h.loc.Sprint(c, msgMalformedInput),
		"cause":   err.Error(),
	})
}

// respondError maps store errors to HTTP statuses.
func (h *rankedHandler) respondError(c *fiber.Ctx, err error) error {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":   err.Error(),
				"kind":    services.KindRepository,
				"message": h.loc.Sprint(c, msgRepository),
			})
		}
		log.Printf("[Ranked] unexpected error on %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   err.Error(),
			"message": h.loc.Sprint(c, msgInternal),
		})
	}

	status, key := statusFor(svcErr)
	body := fiber.Map{
		"error":   svcErr.Error(),
		"kind":    svcErr.Kind,
		"message": h.loc.Sprint(c, key),
	}
	if action := svcErr.Details["action"]; action != "" {
		body["action"] = action
	}
	if id := svcErr.Details["active_session_id"]; id != "" {
		body["active_session_id"] = id
	}
	if status >= fiber.StatusInternalServerError {
		log.Printf("❌ [Ranked] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(body)
}

func statusFor(e *services.Error) (int, string) {
	switch e.Kind {
	case services.KindValidation:
		return fiber.StatusBadRequest, msgValidation
	case services.KindNotFound:
		return fiber.StatusNotFound, msgNotFound
	case services.KindConflict:
		if e.Details["action"] == services.ActionEndSession {
			return fiber.StatusConflict, msgActiveSession
		}
		return fiber.StatusConflict, msgVersion
	case services.KindInvalidState:
		return fiber.StatusConflict, msgInvalidState
	case services.KindInvariant:
		return fiber.StatusInternalServerError, msgInvariant
	case services.KindRepository:
		return fiber.StatusServiceUnavailable, msgRepository
	}
	return fiber.StatusInternalServerError, msgInternal
}
