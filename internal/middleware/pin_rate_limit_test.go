package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func setupRateLimitApp(t *testing.T, cache *redis.Client, maxPerMin int) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Post("/sessions/:sessionID/pin", PinRateLimit(cache, maxPerMin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestPinRateLimitBlocksAfterBudget(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	app := setupRateLimitApp(t, cache, 5)

	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/sessions/sess-1/pin", nil))
		if err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, resp.StatusCode)
		}
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/sessions/sess-1/pin", nil))
	if err != nil {
		t.Fatalf("sixth attempt: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 after budget spent, got %d", resp.StatusCode)
	}

	// Another session keeps its own budget.
	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/sessions/sess-2/pin", nil))
	if err != nil {
		t.Fatalf("other session: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("other session limited too, got %d", resp.StatusCode)
	}
}

func TestPinRateLimitResetsAfterWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	app := setupRateLimitApp(t, cache, 1)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/sessions/sess-1/pin", nil))
	if err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("first attempt blocked: %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/sessions/sess-1/pin", nil))
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}

	mr.FastForward(61 * time.Second)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/sessions/sess-1/pin", nil))
	if err != nil {
		t.Fatalf("post-window attempt: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("window did not reset, got %d", resp.StatusCode)
	}
}

func TestPinRateLimitFailsOpenWithoutCache(t *testing.T) {
	app := setupRateLimitApp(t, nil, 1)

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/sessions/sess-1/pin", nil))
		if err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("nil cache must not limit, got %d", resp.StatusCode)
		}
	}
}
