package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sicko7947/flowstate"
	"github.com/sicko7947/flowstate/store"
)

var storage flowstate.Storage

// initializeApp wires the storage backend from the environment.
// STORE_BACKEND=memory runs without AWS for local development.
func initializeApp() {
	// Missing .env is fine; real deployments configure via the environment
	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})
	if level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	}

	cfg := flowstate.DefaultConfig
	cfg.TableName = os.Getenv("TABLE_NAME")

	switch os.Getenv("STORE_BACKEND") {
	case "memory":
		storage = store.NewMemoryStorage(cfg)
		log.Info().Msg("Using in-memory storage backend")
	default:
		if cfg.TableName == "" {
			log.Fatal().Msg("TABLE_NAME is required for the dynamodb backend")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS configuration")
		}
		storage = store.NewDynamoDBStorage(dynamodb.NewFromConfig(awsCfg), cfg)
		log.Info().Str("table", cfg.TableName).Msg("Using DynamoDB storage backend")
	}

	storage = flowstate.WithLogging(storage, log.Logger)
}

// respondError maps store errors onto HTTP statuses: NotFound 404,
// Conflict 409, anything else 500
func respondError(c fiber.Ctx, err error) error {
	status := flowstate.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
		return c.Status(status).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func pageOptions(c fiber.Ctx) flowstate.PageOptions {
	return flowstate.PageOptions{
		Limit:  fiber.Query[int](c, "limit"),
		Cursor: c.Query("cursor"),
	}
}

func sortOrder(c fiber.Ctx) flowstate.SortOrder {
	if c.Query("order") == string(flowstate.SortAsc) {
		return flowstate.SortAsc
	}
	return flowstate.SortDesc
}

func registerRoutes(app *fiber.App) {
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "service": "flowstated"})
	})

	v1 := app.Group("/v1")

	runs := v1.Group("/runs")
	runs.Post("/", handleCreateRun)
	runs.Get("/", handleListRuns)
	runs.Get("/:runId", handleGetRun)
	runs.Patch("/:runId", handleUpdateRun)
	runs.Post("/:runId/cancel", handleCancelRun)
	runs.Post("/:runId/pause", handlePauseRun)
	runs.Post("/:runId/resume", handleResumeRun)

	runs.Post("/:runId/steps", handleCreateStep)
	runs.Get("/:runId/steps", handleListSteps)
	runs.Get("/:runId/steps/:stepId", handleGetStep)
	runs.Patch("/:runId/steps/:stepId", handleUpdateStep)

	runs.Post("/:runId/hooks", handleCreateHook)
	runs.Post("/:runId/events", handleCreateEvent)
	runs.Get("/:runId/events", handleListEvents)

	hooks := v1.Group("/hooks")
	hooks.Get("/", handleListHooks)
	hooks.Get("/by-token/:token", handleGetHookByToken)
	hooks.Get("/:hookId", handleGetHook)
	hooks.Delete("/:hookId", handleDisposeHook)

	v1.Get("/events", handleListEventsByCorrelationID)
}

// Run handlers

func handleCreateRun(c fiber.Ctx) error {
	var req struct {
		WorkflowName     string          `json:"workflowName"`
		Input            json.RawMessage `json:"input"`
		ExecutionContext json.RawMessage `json:"executionContext"`
		DeploymentID     string          `json:"deploymentId"`
	}
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.WorkflowName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "workflowName is required"})
	}

	run, err := storage.CreateRun(c.Context(), flowstate.CreateRunParams{
		WorkflowName:     req.WorkflowName,
		Input:            req.Input,
		ExecutionContext: req.ExecutionContext,
		DeploymentID:     req.DeploymentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(run)
}

func handleGetRun(c fiber.Ctx) error {
	run, err := storage.GetRun(c.Context(), c.Params("runId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(run)
}

func handleUpdateRun(c fiber.Ctx) error {
	var req struct {
		Status           *flowstate.RunStatus `json:"status"`
		Output           json.RawMessage      `json:"output"`
		Error            *string              `json:"error"`
		ErrorCode        *string              `json:"errorCode"`
		DeploymentID     *string              `json:"deploymentId"`
		ExecutionContext json.RawMessage      `json:"executionContext"`
	}
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	run, err := storage.UpdateRun(c.Context(), c.Params("runId"), flowstate.RunUpdate{
		Status:           req.Status,
		Output:           req.Output,
		Error:            req.Error,
		ErrorCode:        req.ErrorCode,
		DeploymentID:     req.DeploymentID,
		ExecutionContext: req.ExecutionContext,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(run)
}

func handleCancelRun(c fiber.Ctx) error {
	run, err := storage.CancelRun(c.Context(), c.Params("runId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(run)
}

func handlePauseRun(c fiber.Ctx) error {
	run, err := storage.PauseRun(c.Context(), c.Params("runId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(run)
}

func handleResumeRun(c fiber.Ctx) error {
	run, err := storage.ResumeRun(c.Context(), c.Params("runId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(run)
}

func handleListRuns(c fiber.Ctx) error {
	page, err := storage.ListRuns(c.Context(), flowstate.ListRunsParams{
		WorkflowName: c.Query("workflowName"),
		Status:       flowstate.RunStatus(c.Query("status")),
		Page:         pageOptions(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// Step handlers

func handleCreateStep(c fiber.Ctx) error {
	var req struct {
		StepName string          `json:"stepName"`
		Input    json.RawMessage `json:"input"`
		StepID   string          `json:"stepId"`
	}
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.StepName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "stepName is required"})
	}

	step, err := storage.CreateStep(c.Context(), flowstate.CreateStepParams{
		RunID:    c.Params("runId"),
		StepName: req.StepName,
		Input:    req.Input,
		StepID:   req.StepID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(step)
}

func handleGetStep(c fiber.Ctx) error {
	step, err := storage.GetStep(c.Context(), c.Params("runId"), c.Params("stepId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(step)
}

func handleUpdateStep(c fiber.Ctx) error {
	var req struct {
		Status    *flowstate.StepStatus `json:"status"`
		Output    json.RawMessage       `json:"output"`
		Error     *string               `json:"error"`
		ErrorCode *string               `json:"errorCode"`
		Attempt   *int                  `json:"attempt"`
	}
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	step, err := storage.UpdateStep(c.Context(), c.Params("runId"), c.Params("stepId"), flowstate.StepUpdate{
		Status:    req.Status,
		Output:    req.Output,
		Error:     req.Error,
		ErrorCode: req.ErrorCode,
		Attempt:   req.Attempt,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(step)
}

func handleListSteps(c fiber.Ctx) error {
	page, err := storage.ListSteps(c.Context(), c.Params("runId"), pageOptions(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// Hook handlers

func handleCreateHook(c fiber.Ctx) error {
	var req struct {
		HookID string `json:"hookId"`
		Token  string `json:"token"`
	}
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.HookID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "hookId is required"})
	}
	if req.Token == "" {
		req.Token = uuid.NewString()
	}

	hook, err := storage.CreateHook(c.Context(), c.Params("runId"), req.HookID, req.Token)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(hook)
}

func handleGetHook(c fiber.Ctx) error {
	hook, err := storage.GetHook(c.Context(), c.Params("hookId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(hook)
}

func handleGetHookByToken(c fiber.Ctx) error {
	hook, err := storage.GetHookByToken(c.Context(), c.Params("token"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(hook)
}

func handleDisposeHook(c fiber.Ctx) error {
	hook, err := storage.DisposeHook(c.Context(), c.Params("hookId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(hook)
}

func handleListHooks(c fiber.Ctx) error {
	page, err := storage.ListHooks(c.Context(), c.Query("runId"), pageOptions(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// Event handlers

func handleCreateEvent(c fiber.Ctx) error {
	var req struct {
		EventType     string          `json:"eventType"`
		EventData     json.RawMessage `json:"eventData"`
		CorrelationID string          `json:"correlationId"`
	}
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.EventType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "eventType is required"})
	}

	event, err := storage.CreateEvent(c.Context(), flowstate.CreateEventParams{
		RunID:         c.Params("runId"),
		EventType:     req.EventType,
		EventData:     req.EventData,
		CorrelationID: req.CorrelationID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

func handleListEvents(c fiber.Ctx) error {
	page, err := storage.ListEvents(c.Context(), c.Params("runId"), pageOptions(c), sortOrder(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

func handleListEventsByCorrelationID(c fiber.Ctx) error {
	correlationID := c.Query("correlationId")
	if correlationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "correlationId is required"})
	}
	page, err := storage.ListEventsByCorrelationID(c.Context(), correlationID, pageOptions(c), sortOrder(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

func main() {
	initializeApp()

	app := fiber.New()
	registerRoutes(app)

	go func() {
		addr := ":" + os.Getenv("PORT")
		if addr == ":" {
			addr = ":3000"
		}
		log.Info().Str("address", addr).Msg("Starting HTTP server")
		if err := app.Listen(addr); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server stopped")
}
