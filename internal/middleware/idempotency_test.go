package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/faceatm/faceatm/internal/logging"
)

func setupIdempotencyApp(t *testing.T) (*fiber.App, *int) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	var handled int
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/transactions", func(c *fiber.Ctx) error {
		handled++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"balance": "50.00"})
	})

	return app, &handled
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, _ := setupIdempotencyApp(t)

	req := httptest.NewRequest(fiber.MethodPost, "/transactions", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, resp.StatusCode)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app, handled := setupIdempotencyApp(t)

	req := httptest.NewRequest(fiber.MethodPost, "/transactions", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(idempotencyKeyHeader, "tx-abc123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected %d got %d", fiber.StatusCreated, resp.StatusCode)
	}
	payload, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	req2 := httptest.NewRequest(fiber.MethodPost, "/transactions", strings.NewReader("{}"))
	req2.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req2.Header.Set(idempotencyKeyHeader, "tx-abc123")

	resp2, err := app.Test(req2)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if resp2.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, resp2.StatusCode)
	}
	cached, _ := io.ReadAll(resp2.Body)
	resp2.Body.Close()

	if string(cached) != string(payload) {
		t.Fatalf("expected cached payload %s got %s", string(payload), string(cached))
	}
	if *handled != 1 {
		t.Fatalf("handler invoked %d times, want 1", *handled)
	}
}

func TestIdempotencyDistinctKeysHandledSeparately(t *testing.T) {
	app, handled := setupIdempotencyApp(t)

	for _, key := range []string{"tx-1", "tx-2"} {
		req := httptest.NewRequest(fiber.MethodPost, "/transactions", strings.NewReader("{}"))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		req.Header.Set(idempotencyKeyHeader, key)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request %s: %v", key, err)
		}
		if resp.StatusCode != fiber.StatusCreated {
			t.Fatalf("key %s: expected %d got %d", key, fiber.StatusCreated, resp.StatusCode)
		}
		resp.Body.Close()
	}
	if *handled != 2 {
		t.Fatalf("handler invoked %d times, want 2", *handled)
	}
}

func TestIdempotencySkipsSafeMethods(t *testing.T) {
	app, _ := setupIdempotencyApp(t)
	app.Get("/transactions", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	req := httptest.NewRequest(fiber.MethodGet, "/transactions", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("GET without key should pass, got %d", resp.StatusCode)
	}
}
