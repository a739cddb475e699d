package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/store"
)

// StatusRequest is the body of PUT /api/clients/:name/status
type StatusRequest struct {
	Status model.Status `json:"status" binding:"required"`
}

func (s *Server) handleLookup(c *gin.Context) {
	company := strings.TrimSpace(c.Query("company"))
	if company == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	res, err := s.pipeline.ManualSearch(ctx, company)
	if res == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": errText(err)})
		return
	}
	if err != nil {
		// The lookup itself succeeded; only persisting it failed
		zap.L().Warn("lookup not persisted", zap.String("company", company), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"result": res, "warning": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}

func (s *Server) handleListClients(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	clients, err := s.store.ListClients(c.Request.Context(), store.ClientFilter{
		Sector: c.Query("sector"),
		Status: model.Status(c.Query("status")),
		Limit:  limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients, "count": len(clients)})
}

func (s *Server) handleGetClient(c *gin.Context) {
	client, err := s.store.GetClient(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.JSON(storeStatus(err), gin.H{"error": err.Error()})
		return
	}
	signals, err := s.store.ListSignals(c.Request.Context(), store.SignalFilter{Company: client.Name})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": client, "signals": signals})
}

func (s *Server) handleSetStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.SetStatus(c.Request.Context(), c.Param("name"), req.Status); err != nil {
		c.JSON(storeStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": c.Param("name"), "status": req.Status})
}

func (s *Server) handleListSignals(c *gin.Context) {
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	from, to := c.Query("from"), c.Query("to")
	for _, d := range []string{from, to} {
		if d != "" && !isDateStamp(d) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYYMMDD"})
			return
		}
	}

	signals, err := s.store.ListSignals(c.Request.Context(), store.SignalFilter{
		Company:    c.Query("company"),
		From:       from,
		To:         to,
		UnreadOnly: c.Query("unread") == "true",
		Limit:      limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals, "count": len(signals)})
}

func (s *Server) handleMarkRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signal id"})
		return
	}
	if err := s.store.MarkRead(c.Request.Context(), uint(id)); err != nil {
		c.JSON(storeStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "read": true})
}

func (s *Server) handlePermits(c *gin.Context) {
	if s.permits == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "permit feeds not configured"})
		return
	}
	perFeed, ok := intQuery(c, "max")
	if !ok {
		return
	}
	if perFeed <= 0 {
		perFeed = 10
	}
	list := s.permits.Fetch(c.Request.Context(), perFeed)
	c.JSON(http.StatusOK, gin.H{"permits": list, "count": len(list)})
}

// storeStatus maps store errors onto HTTP status codes
func storeStatus(err error) int {
	switch {
	case eris.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case eris.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// intQuery parses an optional integer parameter, answering 400 itself
// when it is malformed
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a non-negative integer"})
		return 0, false
	}
	return n, true
}

func isDateStamp(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func errText(err error) string {
	if err == nil {
		return "lookup failed"
	}
	return err.Error()
}
