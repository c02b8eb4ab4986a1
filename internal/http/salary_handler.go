package httpapi

import (
	"fmt"
	"net/http"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/service"

	"go.uber.org/zap"
)

// SalaryHandler 工资计算与查询
type SalaryHandler struct {
	salaries service.SalaryService
	logger   *zap.Logger
}

func NewSalaryHandler(salaries service.SalaryService, logger *zap.Logger) *SalaryHandler {
	return &SalaryHandler{salaries: salaries, logger: logger}
}

type calculateSalaryBody struct {
	UserID    int64  `json:"user_id"`
	YearMonth string `json:"year_month"`
}

// Calculate GET /api/v1/salaries/calculate?user_id=&year_month=
func (h *SalaryHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseInt64(r.URL.Query().Get("user_id"))
	if !ok {
		badRequest(w, "user_id is required")
		return
	}
	yearMonth := r.URL.Query().Get("year_month")

	calc, err := h.salaries.CalculateNurseSalary(r.Context(), userID, yearMonth)
	if err != nil {
		writeServiceError(w, r, h.logger, "CalculateNurseSalary", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(calc))
}

// CalculateAndSave POST /api/v1/salaries/calculate
func (h *SalaryHandler) CalculateAndSave(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var body calculateSalaryBody
	if err := readBodyJSON(r, maxBodyBytes, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if body.UserID <= 0 {
		badRequest(w, "user_id is required")
		return
	}

	rec, err := h.salaries.CalculateAndSaveSalary(r.Context(), service.SaveSalaryRequest{
		CalculatedBy: claims.UserID,
		UserID:       body.UserID,
		YearMonth:    body.YearMonth,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "CalculateAndSaveSalary", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// Get GET /api/v1/salaries?user_id=&year_month=
func (h *SalaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	userID := claims.UserID
	if s := r.URL.Query().Get("user_id"); s != "" {
		v, ok := parseInt64(s)
		if !ok {
			badRequest(w, "invalid user_id")
			return
		}
		userID = v
	}
	if claims.Role == domain.RoleNurse && userID != claims.UserID {
		writeJSON(w, http.StatusForbidden, Fail("nurses can only read their own salary"))
		return
	}

	rec, err := h.salaries.GetSalary(r.Context(), userID, r.URL.Query().Get("year_month"))
	if err != nil {
		writeServiceError(w, r, h.logger, "GetSalary", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// Export GET /api/v1/salaries/export?year_month=
func (h *SalaryHandler) Export(w http.ResponseWriter, r *http.Request) {
	yearMonth := r.URL.Query().Get("year_month")

	list, err := h.salaries.ListSalaries(r.Context(), yearMonth)
	if err != nil {
		writeServiceError(w, r, h.logger, "ListSalaries", err)
		return
	}

	data, err := GenerateSalaryExport(yearMonth, list)
	if err != nil {
		h.logger.Error("Failed to generate salary export", zap.String("year_month", yearMonth), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=salaries-%s.xlsx", yearMonth))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
