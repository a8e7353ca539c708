package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"binance-pattern-trader/internal/auth"
	"binance-pattern-trader/internal/lifecycle"
	"binance-pattern-trader/internal/position"
)

// handleHealth runs every dependency check with a short timeout
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	components := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			components[name] = err.Error()
			status = "unhealthy"
			continue
		}
		components[name] = "healthy"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":     status,
		"components": components,
		"uptime":     time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	successResponse(c, s.bot.Status())
}

func (s *Server) handleGetPositions(c *gin.Context) {
	open, closed := s.bot.Positions()
	if open == nil {
		open = []position.Position{}
	}
	if closed == nil {
		closed = []position.Position{}
	}
	successResponse(c, gin.H{
		"open":   open,
		"closed": closed,
	})
}

// handleResume clears a halted symbol once its lock and record agree
func (s *Server) handleResume(c *gin.Context) {
	symbol, ok := s.symbolParam(c)
	if !ok {
		return
	}

	if err := s.bot.Resume(c.Request.Context(), symbol); err != nil {
		s.writeControlError(c, symbol, err)
		return
	}

	s.logger.Warn().Str("symbol", symbol).Str("operator", auth.GetOperator(c)).Msg("Symbol resumed by operator")
	successResponse(c, gin.H{"symbol": symbol, "resumed": true})
}

// handleReleaseLock force-releases a symbol lock that has no open position
func (s *Server) handleReleaseLock(c *gin.Context) {
	symbol, ok := s.symbolParam(c)
	if !ok {
		return
	}

	if err := s.bot.ReleaseLock(c.Request.Context(), symbol); err != nil {
		s.writeControlError(c, symbol, err)
		return
	}

	s.logger.Warn().Str("symbol", symbol).Str("operator", auth.GetOperator(c)).Msg("Lock released by operator")
	successResponse(c, gin.H{"symbol": symbol, "released": true})
}

func (s *Server) symbolParam(c *gin.Context) (string, bool) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if !s.bot.IsConfigured(symbol) {
		errorResponse(c, http.StatusNotFound, lifecycle.ErrUnknownSymbol.Error()+": "+symbol)
		return "", false
	}
	return symbol, true
}

func (s *Server) writeControlError(c *gin.Context, symbol string, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotHalted),
		errors.Is(err, lifecycle.ErrPositionOpen),
		errors.Is(err, lifecycle.ErrEntryInFlight),
		errors.Is(err, position.ErrLockInconsistency):
		errorResponse(c, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Operator action failed")
		errorResponse(c, http.StatusInternalServerError, err.Error())
	}
}
