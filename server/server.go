// Package server exposes the dashboard JSON API over HTTP.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/marketsync/marketsync/journal"
	"github.com/marketsync/marketsync/market"
	"github.com/marketsync/marketsync/pipeline"
	"github.com/marketsync/marketsync/yahoo"
)

// Server routes dashboard requests into the pipeline.
type Server struct {
	pipe             *pipeline.Pipeline
	journal          journal.Journal // nil when journaling is disabled
	log              *logrus.Logger
	defaultThreshold float64
	trainSplit       float64
}

// Options configure the server.
type Options struct {
	Journal          journal.Journal
	DefaultThreshold float64
	TrainSplit       float64
}

// New creates a Server around a pipeline.
func New(pipe *pipeline.Pipeline, opts Options, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	threshold := opts.DefaultThreshold
	if threshold == 0 {
		threshold = pipeline.DefaultThreshold
	}
	split := opts.TrainSplit
	if split == 0 {
		split = pipeline.DefaultTrainSplit
	}
	return &Server{
		pipe:             pipe,
		journal:          opts.Journal,
		log:              log,
		defaultThreshold: threshold,
		trainSplit:       split,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.GET("/prices", s.handlePrices)
	api.GET("/prediction", s.handlePrediction)
	api.GET("/backtest", s.handleBacktest)
	api.GET("/lag", s.handleLag)

	return r
}

// Run serves the API on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.log.WithField("addr", addr).Info("serving dashboard API")
	return s.Router().Run(addr)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Info("request")
	}
}

func (s *Server) period(c *gin.Context) (string, bool) {
	period := c.DefaultQuery("period", "5y")
	if !yahoo.ValidPeriod(period) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unsupported period " + period + " (want one of 1y, 2y, 5y, 10y)",
		})
		return "", false
	}
	return period, true
}

// fail converts a pipeline error into the single user-visible JSON error
// for the request; nothing partial is rendered.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pipeline.ErrDataUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, pipeline.ErrInsufficientHistory),
		errors.Is(err, pipeline.ErrSingleClass):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrLagOutOfRange):
		status = http.StatusBadRequest
	}
	s.log.WithError(err).Warn("pipeline request failed")
	c.JSON(status, gin.H{"error": err.Error()})
}

type tableResponse struct {
	Dates  []string             `json:"dates"`
	Series map[string][]float64 `json:"series"`
}

func toTableResponse(t *market.Table) tableResponse {
	resp := tableResponse{
		Dates:  make([]string, t.Len()),
		Series: make(map[string][]float64, len(t.Series)),
	}
	for i, d := range t.Dates {
		resp.Dates[i] = d.Format("2006-01-02")
	}
	for _, sr := range t.Series {
		resp.Series[sr.Name] = sr.Values
	}
	return resp
}

func (s *Server) handlePrices(c *gin.Context) {
	period, ok := s.period(c)
	if !ok {
		return
	}
	table, err := s.pipe.Trend(c.Request.Context(), period)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toTableResponse(table))
}

func (s *Server) handlePrediction(c *gin.Context) {
	period, ok := s.period(c)
	if !ok {
		return
	}
	pred, err := s.pipe.Predict(c.Request.Context(), period)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pred)
}

type backtestResponse struct {
	*pipeline.Report
	RunID string `json:"run_id,omitempty"`
}

func (s *Server) handleBacktest(c *gin.Context) {
	period, ok := s.period(c)
	if !ok {
		return
	}

	threshold := s.defaultThreshold
	if raw := c.Query("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be a number"})
			return
		}
		threshold = v
	}
	if threshold < pipeline.MinThreshold || threshold > pipeline.MaxThreshold {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold out of range [0.3, 0.7]"})
		return
	}

	report, err := s.pipe.Backtest(c.Request.Context(), period, threshold)
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := backtestResponse{Report: report}
	if s.journal != nil {
		run := journal.Run{
			RunID:             journal.NewRunID(),
			Created:           time.Now(),
			Period:            period,
			Threshold:         threshold,
			Split:             s.trainSplit,
			TrainRows:         report.TrainRows,
			EvalRows:          report.EvalRows,
			StrategyReturnPct: report.StrategyReturnPct,
			MarketReturnPct:   report.MarketReturnPct,
			InvestedDays:      report.InvestedDays,
		}
		if err := s.journal.RecordRun(run, report.Records); err != nil {
			s.log.WithError(err).Warn("journal write failed")
		} else {
			resp.RunID = run.RunID
		}
	}

	c.JSON(http.StatusOK, resp)
}

type lagResponse struct {
	tableResponse
	LagDays     int     `json:"lag_days"`
	Correlation float64 `json:"correlation"`
}

func (s *Server) handleLag(c *gin.Context) {
	period, ok := s.period(c)
	if !ok {
		return
	}
	days := 1
	if raw := c.Query("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a non-negative integer"})
			return
		}
		days = v
	}

	table, corr, err := s.pipe.Lag(c.Request.Context(), period, days)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lagResponse{
		tableResponse: toTableResponse(table),
		LagDays:       days,
		Correlation:   corr,
	})
}
