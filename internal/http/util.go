package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/service"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var pinPattern = regexp.MustCompile(`^\d{6}$`)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func parseInt64(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Fail(message))
}

// writeServiceError 错误分类 -> HTTP 状态码；未分类错误不向客户端暴露细节
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, op string, err error) {
	var se *service.ServiceError
	if !errors.As(err, &se) {
		logger.Error(op+" failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("internal server error"))
		return
	}

	status := http.StatusBadRequest
	switch se.Kind {
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindForbidden:
		status = http.StatusForbidden
	}
	logger.Debug(op+" rejected",
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.String("kind", string(se.Kind)),
		zap.String("message", se.Message),
	)
	writeJSON(w, status, Fail(se.Message))
}

// validCoordinates 纬度 [-90, 90]，经度 [-180, 180]
func validCoordinates(lat, lng *float64) bool {
	return lat != nil && lng != nil &&
		*lat >= -90 && *lat <= 90 &&
		*lng >= -180 && *lng <= 180
}
