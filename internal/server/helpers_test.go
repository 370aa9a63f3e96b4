package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	var got Pagination
	app.Get("/items", func(c *fiber.Ctx) error {
		got = parsePagination(c, 20)
		return c.SendStatus(http.StatusOK)
	})

	tests := []struct {
		name     string
		query    string
		expected Pagination
	}{
		{"Defaults", "", Pagination{Limit: 20, Offset: 0}},
		{"Explicit", "?limit=5&offset=10", Pagination{Limit: 5, Offset: 10}},
		{"Limit Clamped To Max", "?limit=5000", Pagination{Limit: 100, Offset: 0}},
		{"Zero Limit Falls Back", "?limit=0", Pagination{Limit: 20, Offset: 0}},
		{"Negative Offset Clamped", "?offset=-3", Pagination{Limit: 20, Offset: 0}},
		{"Garbage Ignored", "?limit=abc&offset=xyz", Pagination{Limit: 20, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseID(t *testing.T) {
	app := fiber.New()
	app.Get("/things/:thingId", func(c *fiber.Ctx) error {
		id, ok := parseID(c, "thingId")
		if !ok {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	t.Run("Valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/things/42", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Non Numeric", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/things/abc", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "Invalid thing id")
	})

	t.Run("Zero Rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/things/0", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "request id", humanizeParam("requestId"))
	assert.Equal(t, "id", humanizeParam("id"))
}
