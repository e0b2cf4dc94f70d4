package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-gradebook/internal/utils"
)

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Meta    map[string]interface{} `json:"meta"`
	Details map[string]interface{} `json:"details"`
}

func call(t *testing.T, handler fiber.Handler) (int, envelope) {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestOKCarriesPolicyMeta(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		return utils.OK(c, fiber.Map{"percent": 86.0, "letter": "B"}, "", fiber.Map{"policy": "legacy"})
	})

	require.Equal(t, fiber.StatusOK, status)
	require.True(t, body.Success)
	require.Equal(t, "success", body.Message)
	require.Equal(t, "B", body.Data["letter"])
	require.Equal(t, "legacy", body.Meta["policy"])
}

func TestSendSuccessOmitsMeta(t *testing.T) {
	_, body := call(t, func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "submission graded", fiber.Map{"id": 3})
	})

	require.Equal(t, "submission graded", body.Message)
	require.Nil(t, body.Meta)
}

func TestFailCarriesDetails(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		return utils.Fail(c, fiber.StatusServiceUnavailable, "degraded", fiber.Map{"redis": "down"})
	})

	require.Equal(t, fiber.StatusServiceUnavailable, status)
	require.False(t, body.Success)
	require.Equal(t, "down", body.Details["redis"])
	require.Nil(t, body.Data)
}

func TestFailNeverReportsSuccessStatus(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error {
		return utils.SendError(c, fiber.StatusOK, "")
	})

	require.Equal(t, fiber.StatusInternalServerError, status)
	require.Equal(t, "error", body.Message)
}
