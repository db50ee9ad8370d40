package apihttp

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"perpbot/internal/agent"
	"perpbot/internal/analysis/visual"
)

type analyzeResponse struct {
	Symbol     string      `json:"symbol"`
	Signal     string      `json:"signal"`
	Strength   float64     `json:"strength"`
	LongScore  float64     `json:"long_score"`
	ShortScore float64     `json:"short_score"`
	Trend      string      `json:"trend"`
	Levels     *levelsView `json:"levels,omitempty"`
	Patterns   []string    `json:"patterns"`
	Rules      []string    `json:"rules"`
}

func (r *Router) analyze(c *gin.Context) (agent.Snapshot, bool) {
	symbol := strings.TrimSpace(c.Query("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "symbol is required"})
		return agent.Snapshot{}, false
	}
	snap, err := r.cycles.Analyze(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": errorKind(err), "message": err.Error()})
		return agent.Snapshot{}, false
	}
	return snap, true
}

func (r *Router) handleAnalyze(c *gin.Context) {
	snap, ok := r.analyze(c)
	if !ok {
		return
	}
	resp := analyzeResponse{
		Symbol:     snap.Symbol,
		Signal:     snap.Decision.Signal.String(),
		Strength:   snap.Decision.Strength,
		LongScore:  snap.Scores.Scores.Long,
		ShortScore: snap.Scores.Scores.Short,
		Trend:      snap.Trend.String(),
		Patterns:   []string{},
		Rules:      []string{},
	}
	if !snap.Levels.IsZero() {
		resp.Levels = &levelsView{
			Entry:      snap.Levels.Entry.String(),
			StopLoss:   snap.Levels.StopLoss.String(),
			TakeProfit: snap.Levels.TakeProfit.String(),
		}
	}
	for _, p := range snap.Patterns {
		resp.Patterns = append(resp.Patterns, p.String())
	}
	for _, h := range snap.Scores.Hits {
		resp.Rules = append(resp.Rules, fmt.Sprintf("%s %s +%.2f", h.Rule, h.Side, h.Weight))
	}
	c.JSON(http.StatusOK, resp)
}

// handleChart 默认返回 HTML；format=png 需要本机有 Chrome。
func (r *Router) handleChart(c *gin.Context) {
	snap, ok := r.analyze(c)
	if !ok {
		return
	}
	bars, _ := strconv.Atoi(c.DefaultQuery("bars", "120"))
	in := visual.Input{
		Series:   snap.Series,
		Signal:   snap.Decision.Signal.String(),
		Levels:   snap.Levels,
		Patterns: snap.Patterns,
		Bars:     bars,
	}
	if c.Query("format") == "png" {
		png, err := visual.RenderPNG(c.Request.Context(), in)
		if err != nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "render_failed", "message": err.Error()})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
		return
	}
	var buf bytes.Buffer
	if err := visual.RenderHTML(&buf, in); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render_failed", "message": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
