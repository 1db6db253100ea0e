package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mimir-aip/winequality/pkg/mlmodel"
	"github.com/mimir-aip/winequality/pkg/models"
)

const defaultRunsLimit = 50

// PredictResponse is the body returned by POST /predict
type PredictResponse struct {
	Predictions []string `json:"predictions"`
}

// TrainResponse is the body returned by POST /api/train
type TrainResponse struct {
	RunID   string            `json:"run_id"`
	Winner  *models.Candidate `json:"winner,omitempty"`
	Metrics *models.Metrics   `json:"metrics"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var samples []*models.WineSample
	if err := json.NewDecoder(r.Body).Decode(&samples); err != nil {
		writeBadRequestResponse(w, "Invalid request body: expected a JSON array of samples")
		return
	}
	if len(samples) == 0 {
		writeBadRequestResponse(w, "At least one sample is required")
		return
	}

	labels, err := s.predict(r, samples)
	if err != nil {
		s.writePredictError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, PredictResponse{Predictions: labels})
}

// predict validates samples and labels them with the current model. Validation failures are
// configuration errors.
func (s *Server) predict(r *http.Request, samples []*models.WineSample) ([]string, error) {
	raw, err := mlmodel.SamplesTable(samples)
	if err != nil {
		return nil, models.NewConfigurationError("predict", "samples", "%v", err)
	}
	model, err := s.trainer.Model(r.Context())
	if err != nil {
		return nil, err
	}
	return mlmodel.Predict(model, raw)
}

func (s *Server) writePredictError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrConfiguration):
		writeBadRequestResponse(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		// Neither a model nor the data to train one is available
		s.logger.Error("model unavailable", "error", err)
		writeErrorResponse(w, http.StatusServiceUnavailable, "Model unavailable: "+err.Error())
	default:
		s.logger.Error("prediction failed", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "Prediction failed: "+err.Error())
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.ListRuns(parseLimit(r, defaultRunsLimit))
	if err != nil {
		writeErrorResponse(w, statusFor(err), err.Error())
		return
	}
	writeJSONResponse(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	run, err := s.runs.GetRun(id)
	if err != nil {
		writeErrorResponse(w, statusFor(err), err.Error())
		return
	}
	writeJSONResponse(w, http.StatusOK, run)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	run, err := s.trainer.TryRun(r.Context(), models.RunTriggerAPI)
	if errors.Is(err, mlmodel.ErrTrainingInProgress) {
		writeErrorResponse(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("training failed", "error", err)
		writeErrorResponse(w, statusFor(err), "Training failed: "+err.Error())
		return
	}
	writeJSONResponse(w, http.StatusOK, TrainResponse{RunID: run.ID, Winner: run.Winner, Metrics: run.Metrics})
}
