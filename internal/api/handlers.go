package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dealmungchi/saleharvester/internal/crawler"
)

type healthResponse struct {
	Status     string                         `json:"status"`
	LastRunAt  *time.Time                     `json:"last_run_at,omitempty"`
	Records    int                            `json:"records"`
	Categories map[crawler.CategoryStatus]int `json:"categories,omitempty"`
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "starting"}

	if s.status != nil {
		if batch, ok := s.status.LastRun(); ok {
			finished := batch.FinishedAt
			resp.Status = "ok"
			resp.LastRunAt = &finished
			resp.Records = len(batch.Products)
			resp.Categories = make(map[crawler.CategoryStatus]int)
			for _, c := range batch.Categories {
				resp.Categories[c.Status]++
			}
		}
	}

	s.respondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
