package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Use(Middleware(Config{Logger: zap.NewNop()}))

	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Post("/api/v1/experiments", ok)
	app.Post("/api/v1/annotations", ok)
	app.Post("/api/v1/knowledge/query", ok)

	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) int {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	return resp.StatusCode
}

func TestExperimentValidation(t *testing.T) {
	app := newTestApp()

	assert.Equal(t, fiber.StatusOK, postJSON(t, app,
		"/api/v1/experiments",
		`{"name":"run","mitigation_strategy":"baseline"}`))

	assert.Equal(t, fiber.StatusBadRequest, postJSON(t, app,
		"/api/v1/experiments",
		`{"name":"run","mitigation_strategy":"wishful_thinking"}`))

	assert.Equal(t, fiber.StatusBadRequest, postJSON(t, app,
		"/api/v1/experiments",
		`{"mitigation_strategy":"baseline"}`))

	assert.Equal(t, fiber.StatusBadRequest, postJSON(t, app,
		"/api/v1/experiments",
		`not json`))
}

func TestAnnotationValidation(t *testing.T) {
	app := newTestApp()

	assert.Equal(t, fiber.StatusOK, postJSON(t, app,
		"/api/v1/annotations",
		`{"response_id":1,"is_hallucination":true,"hallucination_type":"fabricated_cve","severity":"high"}`))

	assert.Equal(t, fiber.StatusBadRequest, postJSON(t, app,
		"/api/v1/annotations",
		`{"response_id":1,"is_hallucination":true,"hallucination_type":"vibes"}`))

	assert.Equal(t, fiber.StatusBadRequest, postJSON(t, app,
		"/api/v1/annotations",
		`{"response_id":1,"is_hallucination":true,"severity":"apocalyptic"}`))

	assert.Equal(t, fiber.StatusBadRequest, postJSON(t, app,
		"/api/v1/annotations",
		`{"is_hallucination":true}`))
}

func TestKnowledgeQueryValidation(t *testing.T) {
	app := newTestApp()

	assert.Equal(t, fiber.StatusOK, postJSON(t, app,
		"/api/v1/knowledge/query",
		`{"text":"what is sql injection"}`))

	assert.Equal(t, fiber.StatusBadRequest, postJSON(t, app,
		"/api/v1/knowledge/query",
		`{"text":""}`))

	long := strings.Repeat("a", 9000)
	assert.Equal(t, fiber.StatusBadRequest, postJSON(t, app,
		"/api/v1/knowledge/query",
		`{"text":"`+long+`"}`))
}

func TestContentTypeRejected(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/experiments",
		strings.NewReader("name=run"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}
