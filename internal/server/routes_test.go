package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"crashpit/internal/fair"
	"crashpit/internal/game"
)

func TestHealthHandler(t *testing.T) {
	// Create a minimal Fiber app for testing
	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Server is running",
		})
	})

	req, err := http.NewRequest("GET", "/health", nil)
	if err != nil {
		t.Fatalf("could not create request: %v", err)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("could not perform request: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status OK; got %v", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("could not read response body: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("could not unmarshal response: %v", err)
	}

	if result["status"] != "ok" {
		t.Errorf("expected status to be 'ok'; got %v", result["status"])
	}
}

// newVerifyTestServer wires just enough of FiberServer to exercise the
// verification and history endpoints without Redis or Postgres.
func newVerifyTestServer() *FiberServer {
	cfg := game.DefaultConfig()
	s := &FiberServer{
		App:          fiber.New(),
		orchestrator: game.NewOrchestrator(cfg, nil, nil, nil),
		cfg:          cfg,
	}
	s.App.Post("/api/v1/game/verify", s.verifyRoundHandler)
	s.App.Get("/api/v1/game/history", s.getHistoryHandler)
	return s
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("could not marshal payload: %v", err)
	}

	req, err := http.NewRequest("POST", path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("could not create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("could not perform request: %v", err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("could not read response body: %v", err)
	}

	var result map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			t.Fatalf("could not unmarshal response: %v", err)
		}
	}
	return resp, result
}

func TestVerifyRoundHandler(t *testing.T) {
	s := newVerifyTestServer()

	serverSeed := fair.GenerateSeed()
	clientSeed := "public-client-seed"
	nonce := 7

	seed := fair.RoundSeed{ServerSeed: serverSeed, ClientSeed: clientSeed, Nonce: nonce}
	crashPoint := fair.CrashPoint(fair.Draw(seed, 0), s.cfg.HouseEdge)

	t.Run("valid claim verifies", func(t *testing.T) {
		resp, result := postJSON(t, s.App, "/api/v1/game/verify", map[string]interface{}{
			"server_seed":        serverSeed,
			"client_seed":        clientSeed,
			"nonce":              nonce,
			"claimed_multiplier": crashPoint,
		})

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status OK; got %v", resp.Status)
		}
		if result["valid"] != true {
			t.Errorf("expected valid=true, got %v", result["valid"])
		}
	})

	t.Run("tampered claim fails", func(t *testing.T) {
		resp, result := postJSON(t, s.App, "/api/v1/game/verify", map[string]interface{}{
			"server_seed":        serverSeed,
			"client_seed":        clientSeed,
			"nonce":              nonce,
			"claimed_multiplier": crashPoint + 5.0,
		})

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status OK; got %v", resp.Status)
		}
		if result["valid"] != false {
			t.Errorf("expected valid=false for a tampered claim, got %v", result["valid"])
		}
	})

	t.Run("missing seeds rejected", func(t *testing.T) {
		resp, _ := postJSON(t, s.App, "/api/v1/game/verify", map[string]interface{}{
			"claimed_multiplier": 2.0,
		})

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected status 400; got %v", resp.Status)
		}
	})

	t.Run("unknown round id", func(t *testing.T) {
		resp, _ := postJSON(t, s.App, "/api/v1/game/verify", map[string]interface{}{
			"round_id": "R-missing",
		})

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404; got %v", resp.Status)
		}
	})
}

func TestGetHistoryHandler_Empty(t *testing.T) {
	s := newVerifyTestServer()

	req, err := http.NewRequest("GET", "/api/v1/game/history", nil)
	if err != nil {
		t.Fatalf("could not create request: %v", err)
	}

	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("could not perform request: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status OK; got %v", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("could not read response body: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("could not unmarshal response: %v", err)
	}

	if result["count"] != float64(0) {
		t.Errorf("expected count 0 before any round, got %v", result["count"])
	}
}
