// internal/api/handlers.go
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tamzrod/modem-monitor/internal/entity"
	"github.com/tamzrod/modem-monitor/internal/status"
)

type healthResponse struct {
	Status  string `json:"status"`
	Active  bool   `json:"active"`
	Modems  int    `json:"modems"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime"`
}

type modemsResponse struct {
	Modems []status.Snapshot `json:"modems"`
	Count  int               `json:"count"`
}

type conversionsResponse struct {
	Conversions []entity.Conversion `json:"conversions"`
	Count       int                 `json:"count"`
}

type activeResponse struct {
	Active bool `json:"active"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{
		Status:  "ok",
		Active:  s.mon.Active(),
		Modems:  s.mon.Len(),
		Version: s.version,
		Uptime:  time.Since(s.started).Truncate(time.Second).String(),
	})
}

func (s *Server) handleListModems(w http.ResponseWriter, r *http.Request) {
	snaps := s.mon.Snapshots()
	render.JSON(w, r, modemsResponse{Modems: snaps, Count: len(snaps)})
}

func (s *Server) handleGetModem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		_ = render.Render(w, r, errBadRequest("modem id must be an integer"))
		return
	}

	snap, ok := s.mon.Snapshot(id)
	if !ok {
		_ = render.Render(w, r, errNotFound("modem not found"))
		return
	}
	render.JSON(w, r, snap)
}

func (s *Server) handleListConversions(w http.ResponseWriter, r *http.Request) {
	convs := s.mon.Conversions()
	render.JSON(w, r, conversionsResponse{Conversions: convs, Count: len(convs)})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	s.mon.Activate()
	s.log.Notice("monitor activated over http")
	render.JSON(w, r, activeResponse{Active: true})
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	s.mon.Deactivate()
	s.log.Notice("monitor deactivated over http")
	render.JSON(w, r, activeResponse{Active: false})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mon.RequestRefresh()
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, activeResponse{Active: s.mon.Active()})
}
