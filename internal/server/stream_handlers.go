package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const (
	requestStreamInterval = 5 * time.Second
	metricsStreamInterval = 8 * time.Second
)

func setSSEHeaders(c *fiber.Ctx) {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")
}

// streamCtx returns the context bounding SSE writer goroutines. The fiber
// request context is not usable after the handler returns, so streams are
// bounded by server shutdown instead.
func (s *Server) streamCtx() context.Context {
	if s.shutdownCtx != nil {
		return s.shutdownCtx
	}
	return context.Background()
}

// StreamRequestCount pushes the total request count every few seconds as
// server-sent events. Clients use it to refresh list badges without polling.
func (s *Server) StreamRequestCount(c *fiber.Ctx) error {
	setSSEHeaders(c)
	ctx := s.streamCtx()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(requestStreamInterval)
		defer ticker.Stop()

		for {
			count, err := s.requestService.CountRequests(ctx)
			if err != nil {
				return
			}
			payload, _ := json.Marshal(fiber.Map{
				"count": count,
				"ts":    time.Now().UnixMilli(),
			})
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}))
	return nil
}

// StreamMetricsTicks emits a timestamp tick on a slower cadence; clients
// re-fetch the metrics summary when a tick arrives.
func (s *Server) StreamMetricsTicks(c *fiber.Ctx) error {
	setSSEHeaders(c)
	ctx := s.streamCtx()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(metricsStreamInterval)
		defer ticker.Stop()

		for {
			payload, _ := json.Marshal(fiber.Map{"ts": time.Now().UnixMilli()})
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}))
	return nil
}
