package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Tutortoise/wildsnap-service/detections"
	"github.com/Tutortoise/wildsnap-service/imagecodec"
	"github.com/Tutortoise/wildsnap-service/models"
)

func badRequest(message string, cause error) error {
	return &detections.ProcessingError{Kind: detections.ErrInvalidParameter, Message: message, Cause: cause}
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

func (s *AppState) maxUpload() int64 {
	return s.Config.Server.MaxUploadMB << 20
}

// readDetectRequest accepts a JSON body, a multipart upload or a raw image
// body. Parameters of the latter two come from form fields or the query.
func (s *AppState) readDetectRequest(w http.ResponseWriter, r *http.Request) ([]byte, models.DetectRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload())

	switch mediaType(r) {
	case "application/json":
		return handleJSONRequest(r)
	case "multipart/form-data":
		return handleMultipartRequest(r, s.maxUpload())
	default:
		return handleRawRequest(r)
	}
}

func handleJSONRequest(r *http.Request) ([]byte, models.DetectRequest, error) {
	var req models.DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, req, badRequest(MsgInvalidJSON, err)
	}
	if strings.TrimSpace(req.Image) == "" {
		return nil, req, badRequest(MsgNoImage, nil)
	}
	data, _, err := imagecodec.DecodeBase64(req.Image)
	if err != nil {
		return nil, req, detections.DecodeFailure(err)
	}
	return data, req, nil
}

func handleMultipartRequest(r *http.Request, maxMemory int64) ([]byte, models.DetectRequest, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, models.DetectRequest{}, badRequest("invalid multipart form", err)
	}

	req, err := formParams(r.MultipartForm.Value)
	if err != nil {
		return nil, req, err
	}

	file, _, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, req, badRequest(MsgNoImage, nil)
	}
	if err != nil {
		return nil, req, badRequest("invalid file upload", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, req, badRequest("failed to read upload", err)
	}
	if len(data) == 0 {
		return nil, req, badRequest(MsgNoImage, nil)
	}
	return data, req, nil
}

func handleRawRequest(r *http.Request) ([]byte, models.DetectRequest, error) {
	req, err := formParams(r.URL.Query())
	if err != nil {
		return nil, req, err
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, req, badRequest("failed to read request body", err)
	}
	if len(data) == 0 {
		return nil, req, badRequest(MsgNoImage, nil)
	}
	return data, req, nil
}

// formParams reads model, confidence, iou and filter_animals from form or
// query values. Absent thresholds stay nil so defaults apply.
func formParams(values url.Values) (models.DetectRequest, error) {
	req := models.DetectRequest{Model: values.Get("model")}

	parseFloat := func(key string) (*float64, error) {
		raw := strings.TrimSpace(values.Get(key))
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, badRequest(fmt.Sprintf("%s must be a number", key), err)
		}
		return &v, nil
	}

	var err error
	if req.Confidence, err = parseFloat("confidence"); err != nil {
		return req, err
	}
	if req.IoU, err = parseFloat("iou"); err != nil {
		return req, err
	}
	if raw := strings.TrimSpace(values.Get("filter_animals")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return req, badRequest("filter_animals must be a boolean", err)
		}
		req.FilterAnimals = b
	}
	return req, nil
}

// readBatchRequest collects the images of a batch request. JSON images stay
// base64 encoded; the returned decoder unwraps them per item.
func (s *AppState) readBatchRequest(w http.ResponseWriter, r *http.Request) ([]detections.BatchItem, models.DetectRequest, detections.Decoder, error) {
	// a batch may carry several uploads
	limit := s.maxUpload() * 4
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if mediaType(r) == "multipart/form-data" {
		if err := r.ParseMultipartForm(limit); err != nil {
			return nil, models.DetectRequest{}, nil, badRequest("invalid multipart form", err)
		}
		req, err := formParams(r.MultipartForm.Value)
		if err != nil {
			return nil, req, nil, err
		}
		var items []detections.BatchItem
		for _, key := range []string{"files", "file"} {
			for _, fh := range r.MultipartForm.File[key] {
				data, err := readFileHeader(fh)
				if err != nil {
					return nil, req, nil, badRequest("failed to read upload "+fh.Filename, err)
				}
				items = append(items, detections.BatchItem{Name: fh.Filename, Data: data})
			}
		}
		return items, req, imagecodec.Decode, nil
	}

	var body models.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, body.DetectRequest, nil, badRequest(MsgInvalidJSON, err)
	}
	items := make([]detections.BatchItem, 0, len(body.Images))
	for i, img := range body.Images {
		name := img.Name
		if name == "" {
			name = fmt.Sprintf("image_%d", i)
		}
		items = append(items, detections.BatchItem{Name: name, Data: []byte(img.Image)})
	}
	return items, body.DetectRequest, decodeBase64Image, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func decodeBase64Image(encoded []byte) (image.Image, error) {
	data, _, err := imagecodec.DecodeBase64(string(encoded))
	if err != nil {
		return nil, err
	}
	return imagecodec.Decode(data)
}
