package main

import (
	"net/http"
	"runtime"
	"time"

	"github.com/Tutortoise/wildsnap-service/detections"
	"github.com/Tutortoise/wildsnap-service/imagecodec"
	"github.com/Tutortoise/wildsnap-service/models"
	"github.com/Tutortoise/wildsnap-service/yolo"
	"github.com/sirupsen/logrus"
)

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (s *AppState) defaultParams() detections.Params {
	return detections.Params{
		Confidence: s.Config.Inference.Confidence,
		IoU:        s.Config.Inference.IoU,
	}
}

func (s *AppState) handleDetect(w http.ResponseWriter, r *http.Request) {
	startTotal := time.Now()
	ctx := r.Context()
	timings := &models.ProcessingTimings{RequestID: requestID(ctx), Images: 1}

	data, req, err := s.readDetectRequest(w, r)
	if err != nil {
		sendError(w, err)
		return
	}

	mode, err := detections.ParseMode(s.Service.Registry(), req.Model)
	if err != nil {
		sendError(w, err)
		return
	}
	timings.Mode = mode.String()

	params := req.Params(s.defaultParams())
	if err := params.Validate(); err != nil {
		sendError(w, err)
		return
	}

	decodeStart := time.Now()
	img, err := imagecodec.Decode(data)
	timings.ImageDecode = time.Since(decodeStart)
	if err != nil {
		sendErrorResponse(w, "invalid_image", MsgInvalidImage, http.StatusBadRequest)
		return
	}

	inferenceStart := time.Now()
	outcome := s.Service.Detect(ctx, mode, img, params)
	timings.Inference = time.Since(inferenceStart)

	encodeStart := time.Now()
	results, slotErrors := s.encodeOutcome(outcome)
	timings.Encode = time.Since(encodeStart)

	response := models.DetectResponse{
		Success:   true,
		RequestID: timings.RequestID,
		Results:   results,
		Errors:    slotErrors,
		Timestamp: timestamp(),
	}
	status := http.StatusOK
	if err := outcome.Err(); err != nil {
		response.Success = false
		response.Error = err.Error()
		response.Code = detections.Code(err)
		status = detections.HTTPStatus(err)
	}

	timings.Total = time.Since(startTotal)
	s.logTimings(timings)

	writeJSON(w, status, response)
}

// encodeOutcome converts slot results to the wire, keyed by slot name.
// A failed annotation encode drops the image but keeps the detections.
func (s *AppState) encodeOutcome(outcome detections.Outcome) (map[string]models.ModelResult, map[string]models.SlotError) {
	results := make(map[string]models.ModelResult)
	var slotErrors map[string]models.SlotError

	for _, slot := range outcome.Slots {
		if !slot.OK() {
			if slotErrors == nil {
				slotErrors = make(map[string]models.SlotError)
			}
			slotErrors[slot.Name] = models.NewSlotError(slot.Err)
			continue
		}

		var annotated string
		if slot.Result.AnnotatedImage != nil {
			encoded, err := imagecodec.EncodeDataURL(slot.Result.AnnotatedImage)
			if err != nil {
				s.Log.WithFields(logrus.Fields{"model": slot.Name, "error": err}).Warn("failed to encode annotated image")
			} else {
				annotated = encoded
			}
		}
		results[slot.Name] = models.NewModelResult(slot.Result, annotated)
	}
	return results, slotErrors
}

func (s *AppState) handleDetectBatch(w http.ResponseWriter, r *http.Request) {
	startTotal := time.Now()
	ctx := r.Context()
	timings := &models.ProcessingTimings{RequestID: requestID(ctx)}

	items, req, decode, err := s.readBatchRequest(w, r)
	if err != nil {
		sendError(w, err)
		return
	}
	if len(items) == 0 {
		sendErrorResponse(w, "invalid_parameter", MsgNoImages, http.StatusBadRequest)
		return
	}
	timings.Images = len(items)

	mode, err := detections.ParseMode(s.Service.Registry(), req.Model)
	if err != nil {
		sendError(w, err)
		return
	}
	timings.Mode = mode.String()

	inferenceStart := time.Now()
	batch, err := s.Service.DetectBatch(ctx, items, mode, req.Params(s.defaultParams()), decode)
	timings.Inference = time.Since(inferenceStart)
	if err != nil {
		sendError(w, err)
		return
	}

	encodeStart := time.Now()
	response := s.encodeBatch(batch)
	timings.Encode = time.Since(encodeStart)
	response.RequestID = timings.RequestID

	timings.Total = time.Since(startTotal)
	s.logTimings(timings)

	writeJSON(w, http.StatusOK, response)
}

func (s *AppState) encodeBatch(batch []detections.BatchResult) models.BatchResponse {
	response := models.BatchResponse{
		Items:     make([]models.BatchItem, 0, len(batch)),
		Summary:   make(map[string]models.Summary),
		Timestamp: timestamp(),
	}
	perSlot := make(map[string][]detections.Summary)

	for _, br := range batch {
		item := models.BatchItem{Index: br.Index, Name: br.Name}
		err := br.Err
		if err == nil {
			item.Results, item.Errors = s.encodeOutcome(br.Outcome)
			err = br.Outcome.Err()
			for _, slot := range br.Outcome.Slots {
				if slot.OK() {
					perSlot[slot.Name] = append(perSlot[slot.Name], slot.Result.Summary())
				}
			}
		}
		if err != nil {
			item.Error = err.Error()
			item.Code = detections.Code(err)
			response.Failed++
		}
		response.Items = append(response.Items, item)
	}

	for name, summaries := range perSlot {
		response.Summary[name] = models.FromSummary(detections.Merge(summaries...))
	}
	response.Success = response.Failed < len(batch)
	return response
}

func (s *AppState) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"models_loaded": s.Service.Registry().Availability(),
		"timestamp":     timestamp(),
	})
}

type modelInfo struct {
	Available   bool   `json:"available"`
	Identity    string `json:"identity"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Error       string `json:"error,omitempty"`
}

func (s *AppState) handleModels(w http.ResponseWriter, _ *http.Request) {
	info := make(map[string]modelInfo)
	for _, e := range s.Service.Registry().Entries() {
		mi := modelInfo{
			Available:   e.Available(),
			Identity:    e.Identity.String(),
			Type:        e.Type,
			Description: e.Description,
		}
		if e.LoadErr != nil {
			mi.Error = e.LoadErr.Error()
		}
		info[e.Label()] = mi
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": info})
}

type poolReporter interface {
	Stats() yolo.PoolStats
}

func (s *AppState) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	pools := make(map[string]yolo.PoolStats)
	for _, e := range s.Service.Registry().Entries() {
		if p, ok := e.Model.(poolReporter); ok && e.Available() {
			pools[e.Label()] = p.Stats()
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]any{
		"pools": pools,
		"runtime": map[string]any{
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
			"num_cpu":        runtime.NumCPU(),
			"gomaxprocs":     runtime.GOMAXPROCS(0),
			"heap_alloc":     mem.HeapAlloc,
			"uptime_seconds": time.Since(s.StartedAt).Seconds(),
			"cpu_features":   yolo.CPUFeatures(),
		},
	})
}

func (s *AppState) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": MsgServiceName,
		"endpoints": map[string]string{
			"POST /api/detect":       "Detect objects in a base64 encoded image",
			"POST /api/detect-file":  "Detect objects in an uploaded image file",
			"POST /api/detect-batch": "Detect objects in several images",
			"GET /api/health":        "Service and model availability",
			"GET /api/models":        "Configured models",
			"GET /api/metrics":       "Session pool and runtime metrics",
		},
	})
}
