package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/BoiseITGuru/project-toucans-v2/internal/ai"
	"github.com/BoiseITGuru/project-toucans-v2/internal/cache"
	"github.com/BoiseITGuru/project-toucans-v2/internal/constants"
	"github.com/BoiseITGuru/project-toucans-v2/internal/events"
	"github.com/BoiseITGuru/project-toucans-v2/internal/jobs"
	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
	"github.com/BoiseITGuru/project-toucans-v2/internal/storage"
	"github.com/BoiseITGuru/project-toucans-v2/internal/supabase"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Cache        *cache.RedisCache   // Redis-backed leaderboard cache
	Store        *supabase.Store     // Supabase project registry and rankings (optional)
	Archive      storage.EventSink   // ClickHouse event archive
	PubSub       *events.PubSub      // Redis event fan-out (optional)
	Price        storage.PriceSource // FLOW/USD spot source
	Jobs         *jobs.Store         // Redis-backed job control store
	AI           *ai.Agent           // AI agent for natural language queries
	AIBaseConfig ai.AgentConfig      // Base configuration for AI agents
	DevMode      bool                // Enable detailed error responses in development
	Logger       *logrus.Logger      // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Echo returns the received JSON payload as-is (useful for testing)
func (h *Handlers) Echo(c echo.Context) error {
	var v any
	dec := json.NewDecoder(c.Request().Body)
	if err := dec.Decode(&v); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	return c.JSON(http.StatusOK, v)
}

// Rankings returns the current leaderboard, cache-first with a Supabase
// fallback. Accepts limit query parameter (default 100, range 1-200).
func (h *Handlers) Rankings(c echo.Context) error {
	limitStr := c.QueryParam("limit")
	limit := 100
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > constants.MaxRankingsPageSize {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if h.Cache != nil {
		records, err := h.Cache.GetRankings(ctx)
		if err == nil {
			if len(records) > limit {
				records = records[:limit]
			}
			return c.JSON(http.StatusOK, map[string]any{"items": records})
		}
		if !errors.Is(err, cache.ErrMiss) {
			h.Logger.WithError(err).Warn("rankings cache read failed")
		}
	}

	if h.Store == nil {
		return h.err(c, http.StatusServiceUnavailable, "rankings unavailable", nil)
	}
	records, err := h.Store.Rankings(ctx, limit)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get rankings", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": records})
}

// Ranking returns a single project's leaderboard row
// Returns 404 if the project has no ranking yet
func (h *Handlers) Ranking(c echo.Context) error {
	projectID := strings.TrimSpace(c.Param("project_id"))
	if projectID == "" {
		return h.err(c, http.StatusBadRequest, "invalid project id", nil)
	}

	if h.Store == nil {
		return h.err(c, http.StatusServiceUnavailable, "rankings unavailable", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	record, err := h.Store.Ranking(ctx, projectID)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get ranking", nil)
	}
	if record == nil {
		return h.err(c, http.StatusNotFound, "ranking not found", nil)
	}
	return c.JSON(http.StatusOK, record)
}

// Projects returns the full project registry
func (h *Handlers) Projects(c echo.Context) error {
	if h.Store == nil {
		return h.err(c, http.StatusServiceUnavailable, "projects unavailable", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	projects, err := h.Store.AllProjects(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get projects", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": projects})
}

// IngestFund archives an incoming fund event, fans it out over pubsub, and
// credits the funder's running USD total in Supabase. Only the archive
// write is load-bearing; the other two degrade to log lines.
func (h *Handlers) IngestFund(c echo.Context) error {
	var req FundEventRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return h.err(c, http.StatusBadRequest, "project_id is required", map[string]any{"project_id": "required"})
	}
	if req.Amount <= 0 {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be positive"})
	}

	event := models.FundEvent{
		ProjectID:     req.ProjectID,
		TransactionID: req.TransactionID,
		Timestamp:     time.Now().UTC(),
		Data: models.FundEventData{
			TokenSymbol: strings.ToUpper(strings.TrimSpace(req.TokenSymbol)),
			Amount:      req.Amount,
			By:          req.By,
		},
	}
	if req.Timestamp != nil {
		event.Timestamp = req.Timestamp.UTC()
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Archive.InsertFundEvent(ctx, &event); err != nil {
		h.Logger.WithError(err).Error("failed to archive fund event")
		return h.err(c, http.StatusInternalServerError, "failed to archive event", nil)
	}

	if h.PubSub != nil {
		if err := h.PubSub.PublishFund(ctx, &event); err != nil {
			h.Logger.WithError(err).Warn("failed to publish fund event")
		}
	}

	if h.Store != nil {
		if err := h.Store.SaveFund(ctx, event, h.usdValue(ctx, &event.Data)); err != nil {
			h.Logger.WithError(err).Warn("failed to credit funder")
		}
	}

	return c.JSON(http.StatusAccepted, event)
}

// IngestProposal archives an incoming proposal event
func (h *Handlers) IngestProposal(c echo.Context) error {
	var req ProposalEventRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return h.err(c, http.StatusBadRequest, "project_id is required", map[string]any{"project_id": "required"})
	}

	event := models.ProposalEvent{
		ProjectID: req.ProjectID,
		Timestamp: time.Now().UTC(),
	}
	if req.Timestamp != nil {
		event.Timestamp = req.Timestamp.UTC()
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Archive.InsertProposalEvent(ctx, &event); err != nil {
		h.Logger.WithError(err).Error("failed to archive proposal event")
		return h.err(c, http.StatusInternalServerError, "failed to archive event", nil)
	}

	if h.PubSub != nil {
		if err := h.PubSub.PublishProposal(ctx, &event); err != nil {
			h.Logger.WithError(err).Warn("failed to publish proposal event")
		}
	}

	return c.JSON(http.StatusAccepted, event)
}

func (h *Handlers) usdValue(ctx context.Context, data *models.FundEventData) float64 {
	switch data.TokenSymbol {
	case constants.CurrencyUSDC:
		return data.Amount
	case constants.CurrencyFlow:
		price, err := h.Price.FlowPrice(ctx)
		if err != nil {
			h.Logger.WithError(err).Warn("flow price unavailable for fund credit")
			return 0
		}
		return data.Amount * price
	default:
		return 0
	}
}

// JobGet returns the state of one background job
func (h *Handlers) JobGet(c echo.Context) error {
	name := c.Param("name")
	if err := jobs.ValidateName(name); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid job name", map[string]any{"name": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	state, err := h.Jobs.JobState(ctx, name)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get job state", nil)
	}
	return c.JSON(http.StatusOK, state)
}

// JobUpdate flips a background job's enabled switch
func (h *Handlers) JobUpdate(c echo.Context) error {
	name := c.Param("name")
	if err := jobs.ValidateName(name); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid job name", map[string]any{"name": "invalid format"})
	}
	var req JobUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	state, err := h.Jobs.SetEnabled(ctx, name, req.Enabled)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update job", nil)
	}
	return c.JSON(http.StatusOK, state)
}

// AIAsk processes natural language questions about funding data using AI
// Supports optional model override for one-off requests
// Returns SQL query and answer with execution time
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()

	// Use default AI agent or create temporary one with custom model
	agent := h.AI
	var tmp *ai.Agent
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AIBaseConfig
		cfg.Model = m
		a, err := ai.NewAgent(ctx, cfg)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
		}
		tmp = a
		agent = a
		defer func() {
			_ = tmp.Close() // Clean up temporary agent
		}()
	}

	res, err := agent.Ask(ctx, req.Question)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "ai ask failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AIAskResponse{SQL: res.SQL, Answer: res.Answer, TookMs: time.Since(start).Milliseconds()})
}
