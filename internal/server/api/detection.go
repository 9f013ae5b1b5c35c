package api

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/punchalert/internal/app"
)

// Detector is the controller surface the API drives. *app.Controller implements it.
type Detector interface {
	Start() error
	Stop() error
	Status() app.Status
}

// DetectionHandler serves the detection status and start/stop actions.
//
//	GET  /api/status
//	POST /api/detection/start
//	POST /api/detection/stop
type DetectionHandler struct {
	detector Detector
	log      *logrus.Entry
}

// NewDetectionHandler creates a DetectionHandler for d.
func NewDetectionHandler(d Detector) *DetectionHandler {
	return &DetectionHandler{
		detector: d,
		log:      logrus.WithField("component", "api"),
	}
}

// Status handles GET /api/status.
func (h *DetectionHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.detector.Status())
}

// Start handles POST /api/detection/start.
func (h *DetectionHandler) Start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	err := h.detector.Start()
	if errors.Is(err, app.ErrAlreadyRunning) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.log.WithError(err).Error("failed to start detection")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, h.detector.Status())
}

// Stop handles POST /api/detection/stop.
func (h *DetectionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.detector.Stop(); err != nil {
		h.log.WithError(err).Error("failed to stop detection")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.detector.Status())
}
