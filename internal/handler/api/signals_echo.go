package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"SignalGate/internal/domain/models"
	mid "SignalGate/internal/middleware"
	domrepo "SignalGate/internal/domain/repository"
	"SignalGate/internal/service/history"
	apimetrics "SignalGate/internal/service/metrics"
	"SignalGate/pkg/cache"
	xhttp "SignalGate/pkg/http"
	xlogger "SignalGate/pkg/logger"
	"SignalGate/internal/usecase"
	"SignalGate/pkg/util"
)

// CandidateProcessor admits or rejects one candidate.
type CandidateProcessor interface {
	Process(ctx context.Context, req *models.CandidateRequest) (*models.AdmissionDecision, error)
}

// SignalQuery reads and annotates the gate's signal history.
type SignalQuery interface {
	Recent(limit int) []models.SignalRecord
	Signal(id string) (models.SignalRecord, bool)
	Stats(window time.Duration) history.Stats
	AdmissionState(pool string) models.AdmissionState
	AttachOutcome(ctx context.Context, id string, out models.SignalOutcome) (models.SignalRecord, error)
}

// WindowInspector runs the read-only gate stages over stored windows.
type WindowInspector interface {
	Inspect(ctx context.Context, p usecase.InspectParams) (*usecase.InspectResult, error)
}

// SignalsEchoHandler serves the gate's JSON API.
type SignalsEchoHandler struct {
	logger    *xlogger.Logger
	proc      CandidateProcessor
	query     SignalQuery
	inspector WindowInspector
	cache     cache.Service
	statsTTL  time.Duration
}

// NewSignalsEchoHandler builds the handler. A nil cache disables stats caching.
func NewSignalsEchoHandler(logger *xlogger.Logger, proc CandidateProcessor, query SignalQuery, c cache.Service, statsTTL time.Duration) *SignalsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &SignalsEchoHandler{logger: logger, proc: proc, query: query, cache: c, statsTTL: statsTTL}
}

// WithInspector enables GET /api/v1/inspect/:symbol.
func (h *SignalsEchoHandler) WithInspector(i WindowInspector) *SignalsEchoHandler {
	h.inspector = i
	return h
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/evaluate", h.Evaluate)
	g.GET("/signals", h.List)
	g.GET("/signals/stats", h.Stats)
	g.GET("/signals/:id", h.Get)
	g.POST("/signals/:id/outcome", h.Outcome)
	g.GET("/admission/:pool", h.Admission)
	if h.inspector != nil {
		g.GET("/inspect/:symbol", h.Inspect)
	}
}

type listRequest struct {
	Limit int `query:"limit" default:"50" validate:"min=1,max=1000"`
}

type statsRequest struct {
	Window string `query:"window" default:"24h"`
}

type inspectRequest struct {
	Symbol     string `param:"symbol" validate:"required"`
	Timeframes string `query:"timeframes"`
	From       string `query:"from"`
	To         string `query:"to"`
	Bars       int    `query:"bars" default:"200" validate:"min=1,max=5000"`
}

type outcomeRequest struct {
	ID     string          `param:"id" validate:"required"`
	Result string          `json:"result" validate:"required,oneof=WIN LOSS BREAKEVEN"`
	PnL    decimal.Decimal `json:"pnl"`
}

// Evaluate runs one candidate through intake and the gate.
// Rejections are a normal outcome and come back with 200.
func (h *SignalsEchoHandler) Evaluate(c echo.Context) error {
	defer h.observe("evaluate", time.Now())
	req := &models.CandidateRequest{}
	if err := c.Bind(req); err != nil {
		return h.fail(c, "evaluate", xhttp.BadRequestError("", "malformed candidate").WithError(err))
	}

	dec, err := h.proc.Process(c.Request().Context(), req)
	switch {
	case errors.Is(err, mid.ErrInvalidCandidate):
		return h.fail(c, "evaluate", xhttp.BadRequestError("", err.Error()))
	case errors.Is(err, mid.ErrDuplicateCandidate):
		return h.fail(c, "evaluate", xhttp.ConflictErrorf("%s", err.Error()))
	case err != nil:
		h.logger.Error("evaluate failed", xlogger.Error(err))
		return h.fail(c, "evaluate", err)
	}
	return xhttp.SuccessResponse(c, dec)
}

// List returns the most recent signals, newest first.
func (h *SignalsEchoHandler) List(c echo.Context) error {
	defer h.observe("list", time.Now())
	req := &listRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		apimetrics.APIErrors.WithLabelValues("list", "ERR_VALIDATION").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.query.Recent(req.Limit)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *SignalsEchoHandler) Get(c echo.Context) error {
	defer h.observe("get", time.Now())
	id := c.Param("id")
	rec, ok := h.query.Signal(id)
	if !ok {
		return h.fail(c, "get", xhttp.NotFoundErrorf("signal %s not found", id))
	}
	return xhttp.SuccessResponse(c, rec)
}

// Stats summarises the trailing window. Results are cached for statsTTL when a cache is configured,
// so a freshly attached outcome may take that long to show up.
func (h *SignalsEchoHandler) Stats(c echo.Context) error {
	defer h.observe("stats", time.Now())
	req := &statsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		apimetrics.APIErrors.WithLabelValues("stats", "ERR_VALIDATION").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	window, err := util.ParseWindow(req.Window, 24*time.Hour)
	if err != nil {
		return h.fail(c, "stats", xhttp.BadRequestError("window", err.Error()))
	}

	var svc cache.Service
	if h.statsTTL > 0 {
		svc = h.cache
	}
	st, err := cache.GetOrLoad(c.Request().Context(), svc, cache.Key("stats", window.String()), h.statsTTL,
		func(context.Context) (history.Stats, error) { return h.query.Stats(window), nil })
	if err != nil {
		return h.fail(c, "stats", err)
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *SignalsEchoHandler) Outcome(c echo.Context) error {
	defer h.observe("outcome", time.Now())
	req := &outcomeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		apimetrics.APIErrors.WithLabelValues("outcome", "ERR_VALIDATION").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	result, err := models.ParseOutcome(req.Result)
	if err != nil {
		return h.fail(c, "outcome", xhttp.BadRequestError("result", err.Error()))
	}

	rec, err := h.query.AttachOutcome(c.Request().Context(), req.ID, models.SignalOutcome{Result: result, PnL: req.PnL})
	switch {
	case errors.Is(err, history.ErrNotFound):
		return h.fail(c, "outcome", xhttp.NotFoundErrorf("signal %s not found", req.ID))
	case errors.Is(err, history.ErrAlreadyResolved):
		return h.fail(c, "outcome", xhttp.ConflictErrorf("signal %s already resolved", req.ID))
	case err != nil:
		h.logger.Error("attach outcome failed", xlogger.String("id", req.ID), xlogger.Error(err))
		return h.fail(c, "outcome", err)
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *SignalsEchoHandler) Admission(c echo.Context) error {
	defer h.observe("admission", time.Now())
	pool := strings.TrimSpace(c.Param("pool"))
	return xhttp.SuccessResponse(c, h.query.AdmissionState(pool))
}

// Inspect reports data quality, regime and resolved thresholds for a stored symbol
// without consuming admission budget.
func (h *SignalsEchoHandler) Inspect(c echo.Context) error {
	defer h.observe("inspect", time.Now())
	req := &inspectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		apimetrics.APIErrors.WithLabelValues("inspect", "ERR_VALIDATION").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	p := usecase.InspectParams{Symbol: req.Symbol, Bars: req.Bars}
	for _, raw := range util.SplitCSV(req.Timeframes) {
		tf := models.Timeframe(strings.ToUpper(raw))
		if !domrepo.IsValidTimeframe(tf) {
			return h.fail(c, "inspect", xhttp.BadRequestError("timeframes", "unsupported timeframe "+raw))
		}
		p.Timeframes = append(p.Timeframes, tf)
	}
	if req.To != "" {
		to, ok := util.ParseTime(req.To)
		if !ok {
			return h.fail(c, "inspect", xhttp.BadRequestError("to", "invalid time"))
		}
		p.To = to
		p.From = util.ParseTimeDefault(req.From, to.Add(-time.Duration(req.Bars)*time.Hour))
	}

	res, err := h.inspector.Inspect(c.Request().Context(), p)
	if err != nil {
		h.logger.Warn("inspect failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return h.fail(c, "inspect", xhttp.BadRequestError("", err.Error()))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) observe(endpoint string, start time.Time) {
	apimetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (h *SignalsEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	code := "ERR_INTERNAL"
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	apimetrics.APIErrors.WithLabelValues(endpoint, code).Inc()
	return xhttp.AppErrorResponse(c, err)
}
