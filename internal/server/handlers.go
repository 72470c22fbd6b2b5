package server

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"crashpit/internal/fair"
	"crashpit/internal/game"
)

// Health handler

func (s *FiberServer) healthHandler(c *fiber.Ctx) error {
	health := fiber.Map{
		"database": s.db.Health(),
		"cache":    s.cache.Health(),
		"game": fiber.Map{
			"status":            "running",
			"connected_clients": s.gameHub.ClientCount(),
		},
	}
	return c.JSON(health)
}

// Crash game handlers

func (s *FiberServer) getGameStateHandler(c *fiber.Ctx) error {
	state := s.orchestrator.CurrentRound()
	if state == nil {
		return c.Status(404).JSON(fiber.Map{
			"error": game.ErrNoActiveRound.Error(),
		})
	}
	return c.JSON(state)
}

func (s *FiberServer) placeBetHandler(c *fiber.Ctx) error {
	var req game.BetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ParticipantID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "Participant ID is required",
		})
	}

	resp := s.orchestrator.PlaceBet(req)
	if !resp.Success {
		return c.Status(400).JSON(resp)
	}

	return c.JSON(resp)
}

func (s *FiberServer) cashoutHandler(c *fiber.Ctx) error {
	var req game.CashoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ParticipantID == "" || req.BetID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "Participant ID and Bet ID are required",
		})
	}

	resp := s.orchestrator.Cashout(req)
	if !resp.Success {
		return c.Status(400).JSON(resp)
	}

	return c.JSON(resp)
}

func (s *FiberServer) getHistoryHandler(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	rounds := s.orchestrator.History(limit)
	return c.JSON(fiber.Map{
		"rounds": rounds,
		"count":  len(rounds),
	})
}

// Fairness verification

type verifyRequest struct {
	RoundID           string  `json:"round_id,omitempty"`
	ServerSeed        string  `json:"server_seed,omitempty"`
	ClientSeed        string  `json:"client_seed,omitempty"`
	Nonce             int     `json:"nonce,omitempty"`
	ClaimedMultiplier float64 `json:"claimed_multiplier,omitempty"`
}

// verifyRoundHandler recomputes a round's crash point from its revealed
// seeds. Callers pass either an archived round id or the raw seed material.
func (s *FiberServer) verifyRoundHandler(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	serverSeed := req.ServerSeed
	clientSeed := req.ClientSeed
	nonce := req.Nonce
	claimed := req.ClaimedMultiplier
	houseEdge := s.cfg.HouseEdge

	if req.RoundID != "" {
		record, ok := s.orchestrator.FindRound(req.RoundID)
		if !ok {
			return c.Status(404).JSON(fiber.Map{
				"error": "Round not found in history",
			})
		}
		if record.Aborted {
			return c.Status(400).JSON(fiber.Map{
				"error": "Aborted rounds have no crash point to verify",
			})
		}
		serverSeed = record.ServerSeed
		clientSeed = record.ClientSeed
		nonce = record.Nonce
		claimed = record.CrashMultiplier
		// Archived rounds replay against the edge they were drawn under,
		// not whatever the operator has configured since.
		houseEdge = record.HouseEdge
	}

	if serverSeed == "" || clientSeed == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "Server seed and client seed are required",
		})
	}

	seed := fair.RoundSeed{ServerSeed: serverSeed, ClientSeed: clientSeed, Nonce: nonce}
	computed := fair.CrashPoint(fair.Draw(seed, 0), houseEdge)
	valid := fair.VerifyCrashPoint(serverSeed, clientSeed, nonce, houseEdge, claimed)

	return c.JSON(fiber.Map{
		"valid":               valid,
		"computed_multiplier": computed,
		"claimed_multiplier":  claimed,
		"server_seed_hash":    fair.HashCommitment(serverSeed),
	})
}

// User balance handlers

func (s *FiberServer) getUserBalanceHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	balance, err := s.wallet.Balance(c.Context(), userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to read balance",
		})
	}

	return c.JSON(fiber.Map{
		"user_id": userID,
		"balance": balance,
	})
}

func (s *FiberServer) setUserBalanceHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	var body struct {
		Balance float64 `json:"balance"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := s.wallet.SetBalance(c.Context(), userID, body.Balance); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to set balance",
		})
	}

	return c.JSON(fiber.Map{
		"user_id": userID,
		"balance": body.Balance,
		"message": "Balance updated successfully",
	})
}

// Limbo game handlers

func (s *FiberServer) limboRollHandler(c *fiber.Ctx) error {
	var req game.LimboRollRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.UserID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	engine, exists := s.gameFactory.GetEngine(game.GameTypeLimbo)
	if !exists {
		return c.Status(500).JSON(fiber.Map{
			"error": "Limbo game not available",
		})
	}

	resp, err := engine.PlaceBet(c.Context(), req)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	rollResp, ok := resp.(game.LimboRollResponse)
	if !ok || !rollResp.Success {
		return c.Status(400).JSON(resp)
	}

	return c.JSON(resp)
}

// Wheel game handlers

func (s *FiberServer) wheelLayoutHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"segments": s.wheelEngine.Layout(),
	})
}

func (s *FiberServer) wheelSpinHandler(c *fiber.Ctx) error {
	var req game.WheelSpinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.UserID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	engine, exists := s.gameFactory.GetEngine(game.GameTypeWheel)
	if !exists {
		return c.Status(500).JSON(fiber.Map{
			"error": "Wheel game not available",
		})
	}

	resp, err := engine.PlaceBet(c.Context(), req)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	spinResp, ok := resp.(game.WheelSpinResponse)
	if !ok || !spinResp.Success {
		return c.Status(400).JSON(resp)
	}

	return c.JSON(resp)
}

// Coin flip handlers

func (s *FiberServer) coinFlipHandler(c *fiber.Ctx) error {
	var req game.CoinFlipRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.UserID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	engine, exists := s.gameFactory.GetEngine(game.GameTypeCoinFlip)
	if !exists {
		return c.Status(500).JSON(fiber.Map{
			"error": "Coin flip game not available",
		})
	}

	resp, err := engine.PlaceBet(c.Context(), req)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	flipResp, ok := resp.(game.CoinFlipResponse)
	if !ok || !flipResp.Success {
		return c.Status(400).JSON(resp)
	}

	return c.JSON(resp)
}

// Slots handlers

func (s *FiberServer) slotSpinHandler(c *fiber.Ctx) error {
	var req game.SlotSpinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.UserID == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "User ID is required",
		})
	}

	engine, exists := s.gameFactory.GetEngine(game.GameTypeSlots)
	if !exists {
		return c.Status(500).JSON(fiber.Map{
			"error": "Slots game not available",
		})
	}

	resp, err := engine.PlaceBet(c.Context(), req)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	spinResp, ok := resp.(game.SlotSpinResponse)
	if !ok || !spinResp.Success {
		return c.Status(400).JSON(resp)
	}

	return c.JSON(resp)
}

// WebSocket handler

func (s *FiberServer) gameWebSocketHandler(conn *websocket.Conn) {
	participantID := conn.Query("participant_id", "anonymous")

	log.Printf("[WS] New connection from participant: %s", participantID)

	s.gameHub.RegisterClient(conn, participantID)

	currentState := s.orchestrator.CurrentRound()
	if currentState != nil {
		stateJSON, _ := json.Marshal(map[string]interface{}{
			"type": "initial_state",
			"data": currentState,
		})
		conn.WriteMessage(websocket.TextMessage, stateJSON)
	}

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] Read error for participant %s: %v", participantID, err)
			s.gameHub.UnregisterClient(conn)
			break
		}

		if messageType == websocket.TextMessage {
			var clientMsg map[string]interface{}
			if err := json.Unmarshal(message, &clientMsg); err != nil {
				continue
			}

			msgType, ok := clientMsg["type"].(string)
			if !ok {
				continue
			}

			switch msgType {
			case "place_bet":
				stake, _ := strconv.ParseFloat(fmt.Sprintf("%v", clientMsg["stake"]), 64)
				autoCashout, _ := strconv.ParseFloat(fmt.Sprintf("%v", clientMsg["auto_cashout"]), 64)

				resp := s.orchestrator.PlaceBet(game.BetRequest{
					ParticipantID: participantID,
					Stake:         stake,
					AutoCashout:   autoCashout,
				})

				respJSON, _ := json.Marshal(resp)
				conn.WriteMessage(websocket.TextMessage, respJSON)

			case "cashout":
				betID := fmt.Sprintf("%v", clientMsg["bet_id"])

				resp := s.orchestrator.Cashout(game.CashoutRequest{
					ParticipantID: participantID,
					BetID:         betID,
				})

				respJSON, _ := json.Marshal(resp)
				conn.WriteMessage(websocket.TextMessage, respJSON)

			case "ping":
				pongJSON, _ := json.Marshal(map[string]string{"type": "pong"})
				conn.WriteMessage(websocket.TextMessage, pongJSON)
			}
		}
	}
}
