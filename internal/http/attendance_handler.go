package httpapi

import (
	"net/http"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/service"

	"go.uber.org/zap"
)

// AttendanceHandler 签到/签退/PIN
type AttendanceHandler struct {
	attendance service.AttendanceService
	pins       service.PinService
	logger     *zap.Logger
}

func NewAttendanceHandler(attendance service.AttendanceService, pins service.PinService, logger *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, pins: pins, logger: logger}
}

type checkInBody struct {
	ShiftID int64    `json:"shift_id"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Pin     string   `json:"pin"`
}

type checkOutBody struct {
	AttendanceID int64    `json:"attendance_id"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	Pin          string   `json:"pin"`
}

type updateStatusBody struct {
	Status string `json:"status"`
	Type   string `json:"type"`
	Pin    string `json:"pin"`
}

type generatePinBody struct {
	UserID       int64  `json:"user_id"`
	Purpose      string `json:"purpose"`
	AttendanceID *int64 `json:"attendance_id"`
}

// CheckIn POST /api/v1/attendance/check-in
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var body checkInBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if body.ShiftID <= 0 {
		badRequest(w, "shift_id is required")
		return
	}
	if !validCoordinates(body.Lat, body.Lng) {
		badRequest(w, "lat must be in [-90, 90] and lng in [-180, 180]")
		return
	}
	if body.Pin != "" && !pinPattern.MatchString(body.Pin) {
		badRequest(w, "pin must be 6 digits")
		return
	}

	rec, err := h.attendance.CheckIn(r.Context(), service.CheckInRequest{
		UserID:  claims.UserID,
		ShiftID: body.ShiftID,
		Lat:     *body.Lat,
		Lng:     *body.Lng,
		Pin:     body.Pin,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "CheckIn", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// CheckOut POST /api/v1/attendance/check-out
func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var body checkOutBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if body.AttendanceID <= 0 {
		badRequest(w, "attendance_id is required")
		return
	}
	if !validCoordinates(body.Lat, body.Lng) {
		badRequest(w, "lat must be in [-90, 90] and lng in [-180, 180]")
		return
	}
	if body.Pin != "" && !pinPattern.MatchString(body.Pin) {
		badRequest(w, "pin must be 6 digits")
		return
	}

	res, err := h.attendance.CheckOut(r.Context(), service.CheckOutRequest{
		UserID:       claims.UserID,
		AttendanceID: body.AttendanceID,
		Lat:          *body.Lat,
		Lng:          *body.Lng,
		Pin:          body.Pin,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "CheckOut", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// UpdateStatus PUT /api/v1/attendance/{id}/status
func (h *AttendanceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseInt64(r.PathValue("id"))
	if !ok {
		badRequest(w, "invalid attendance id")
		return
	}

	var body updateStatusBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	status := domain.AttendanceStatus(body.Status)
	if !status.Valid() {
		badRequest(w, "status must be PENDING, CONFIRMED or REJECTED")
		return
	}
	half := domain.AttendanceHalf(body.Type)
	if !half.Valid() {
		badRequest(w, "type must be check_in or check_out")
		return
	}
	if body.Pin != "" && !pinPattern.MatchString(body.Pin) {
		badRequest(w, "pin must be 6 digits")
		return
	}

	rec, err := h.attendance.UpdateAttendanceStatus(r.Context(), service.UpdateStatusRequest{
		AttendanceID: id,
		Status:       status,
		Type:         half,
		Pin:          body.Pin,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "UpdateAttendanceStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// GeneratePin POST /api/v1/attendance/pins
// 护士只能为自己生成
func (h *AttendanceHandler) GeneratePin(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var body generatePinBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if body.UserID == 0 {
		body.UserID = claims.UserID
	}
	if claims.Role == domain.RoleNurse && body.UserID != claims.UserID {
		writeJSON(w, http.StatusForbidden, Fail("nurses can only generate their own PIN"))
		return
	}
	purpose := domain.PinPurpose(body.Purpose)
	if !purpose.Valid() {
		badRequest(w, "purpose must be CHECK_IN, CHECK_OUT or STATUS_UPDATE")
		return
	}

	resp, err := h.pins.GeneratePin(r.Context(), service.GeneratePinRequest{
		UserID:       body.UserID,
		Purpose:      purpose,
		AttendanceID: body.AttendanceID,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "GeneratePin", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// GetAttendance GET /api/v1/attendance/{id}
func (h *AttendanceHandler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	id, ok := parseInt64(r.PathValue("id"))
	if !ok {
		badRequest(w, "invalid attendance id")
		return
	}

	rec, err := h.attendance.GetAttendance(r.Context(), id, service.Viewer{UserID: claims.UserID, Role: claims.Role})
	if err != nil {
		writeServiceError(w, r, h.logger, "GetAttendance", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}
