package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/soyamu/soyamu/internal/engine"
	"github.com/soyamu/soyamu/internal/fraud"
	"github.com/soyamu/soyamu/internal/models"
	"github.com/soyamu/soyamu/internal/rl"
)

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var input models.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := input.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("add item request", zap.String("category", input.Category))
	item, err := s.engine.Add(r.Context(), &input)
	if err != nil {
		if errors.Is(err, engine.ErrNotReady) {
			s.respondError(w, http.StatusServiceUnavailable, "engine is still loading")
			return
		}
		s.logger.Error("add item failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"item_id": item.ID, "status": "indexed"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Text), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		if errors.Is(err, engine.ErrNotReady) {
			s.respondError(w, http.StatusServiceUnavailable, "engine is still loading")
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.relations != nil && query.Category != "" {
		response.RelatedCategories = s.relations.Related(query.Category)
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleFraudCheck(w http.ResponseWriter, r *http.Request) {
	var sample fraud.BehaviorSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.respondJSON(w, http.StatusOK, fraud.Assess(sample))
}

type feedbackRequest struct {
	CategoryMatched bool    `json:"category_matched"`
	FinalScorePct   float64 `json:"final_score_pct"`
	Accepted        bool    `json:"accepted"`
}

// handleFeedback records claim outcomes for the ranking-weight tuner. The
// tuner only learns here; live ranking never reads it.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.tuner == nil {
		s.respondError(w, http.StatusNotImplemented, "feedback learning not enabled")
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	state := rl.StateFor(req.CategoryMatched, req.FinalScorePct)
	action := s.tuner.ChooseAction(state)
	s.tuner.Observe(state, action, req.Accepted)
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"status":          "recorded",
		"proposed_action": action.String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"state":           s.engine.State().String(),
		"items":           s.engine.Size(),
		"provider":        s.engine.ProviderName(),
		"store_connected": s.engine.StoreConnected(),
		"config": map[string]interface{}{
			"embedding_dimensions": s.engine.Dimensions(),
		},
	}
	if s.relations != nil {
		resp["related_categories"] = s.relations.Size()
	}
	if s.tuner != nil {
		resp["feedback_updates"] = s.tuner.Updates()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
