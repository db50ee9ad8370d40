package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"perpbot/internal/agent"
	"perpbot/internal/logger"
)

// CycleService 由 agent.Service 实现。
type CycleService interface {
	RunCycle(ctx context.Context) (agent.CycleResult, error)
	ListTrades(ctx context.Context) ([]string, error)
	Analyze(ctx context.Context, symbol string) (agent.Snapshot, error)
}

type Router struct {
	cycles  CycleService
	timeout time.Duration
}

func NewRouter(cycles CycleService, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Router{cycles: cycles, timeout: timeout}
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	group.POST("/cycle", r.handleCycle)
	group.GET("/trades", r.handleTrades)
	group.GET("/analyze", r.handleAnalyze)
	group.GET("/chart", r.handleChart)
}

type levelsView struct {
	Entry      string `json:"entry"`
	StopLoss   string `json:"stop_loss"`
	TakeProfit string `json:"take_profit"`
}

type cycleResponse struct {
	TraceID     string      `json:"trace_id"`
	Symbol      string      `json:"symbol"`
	Outcome     string      `json:"outcome"`
	Signal      string      `json:"signal"`
	Strength    float64     `json:"strength"`
	LongScore   float64     `json:"long_score"`
	ShortScore  float64     `json:"short_score"`
	Trend       string      `json:"trend,omitempty"`
	Patterns    []string    `json:"patterns,omitempty"`
	Levels      *levelsView `json:"levels,omitempty"`
	Order       any         `json:"order,omitempty"`
	CID         string      `json:"cid,omitempty"`
	UploadError string      `json:"upload_error,omitempty"`
	Messages    []string    `json:"messages"`
}

func (r *Router) handleCycle(c *gin.Context) {
	// 下单后客户端断开不应中止记账，周期只受自身超时约束
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), r.timeout)
	defer cancel()

	res, err := r.cycles.RunCycle(ctx)
	if err != nil {
		logger.Warnf("[http] cycle failed: %v", err)
		c.JSON(statusFor(err), gin.H{
			"trace_id": res.TraceID,
			"error":    errorKind(err),
			"message":  agent.FailureReply(err),
		})
		return
	}
	resp := cycleResponse{
		TraceID:    res.TraceID,
		Symbol:     res.Symbol,
		Outcome:    string(res.Outcome),
		Signal:     res.Decision.Signal.String(),
		Strength:   res.Decision.Strength,
		LongScore:  res.Scores.Scores.Long,
		ShortScore: res.Scores.Scores.Short,
		Messages:   res.Replies(),
	}
	if res.Outcome == agent.OutcomeTraded {
		resp.Trend = res.Trend.String()
		for _, p := range res.Patterns {
			resp.Patterns = append(resp.Patterns, p.String())
		}
		resp.Levels = &levelsView{
			Entry:      res.Levels.Entry.String(),
			StopLoss:   res.Levels.StopLoss.String(),
			TakeProfit: res.Levels.TakeProfit.String(),
		}
		resp.Order = res.Order
		if res.Upload.Failed() {
			resp.UploadError = res.Upload.Record()
		} else {
			resp.CID = res.Upload.CID
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleTrades(c *gin.Context) {
	msgs, err := r.cycles.ListTrades(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, agent.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, agent.ErrNoCandidate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, agent.ErrExecution):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorKind(err error) string {
	var ce *agent.CycleError
	if errors.As(err, &ce) {
		return string(ce.Kind)
	}
	return "internal"
}
