package httpapi

import (
	"net/http"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（Go 1.22 方法 + 路径参数）
type Router struct {
	mux    *http.ServeMux
	auth   *JWTAuth
	logger *zap.Logger
}

func NewRouter(auth *JWTAuth, logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		auth:   auth,
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// handleAuthed 鉴权 + 角色校验
func (r *Router) handleAuthed(pattern string, h http.HandlerFunc, roles ...string) {
	r.mux.HandleFunc(pattern, r.auth.Authenticate(RequireRole(roles...)(h)))
}

// Handler 带 request id 与访问日志的根 handler
func (r *Router) Handler() http.Handler {
	return withRequestID(withAccessLog(r.logger, r.mux))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) RegisterHealth() {
	r.Handle("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}

func (r *Router) RegisterAttendanceRoutes(h *AttendanceHandler) {
	r.handleAuthed("POST /api/v1/attendance/check-in", h.CheckIn, domain.RoleNurse, domain.RoleAdmin)
	r.handleAuthed("POST /api/v1/attendance/check-out", h.CheckOut, domain.RoleNurse, domain.RoleAdmin)
	r.handleAuthed("PUT /api/v1/attendance/{id}/status", h.UpdateStatus, domain.RoleAdmin, domain.RoleFacilityManager)
	r.handleAuthed("POST /api/v1/attendance/pins", h.GeneratePin, domain.RoleAdmin, domain.RoleFacilityManager, domain.RoleNurse)
	r.handleAuthed("GET /api/v1/attendance/{id}", h.GetAttendance, domain.RoleAdmin, domain.RoleFacilityManager, domain.RoleNurse)
}

func (r *Router) RegisterSalaryRoutes(h *SalaryHandler) {
	r.handleAuthed("GET /api/v1/salaries/calculate", h.Calculate, domain.RoleAdmin, domain.RoleCorporateOfficer)
	r.handleAuthed("POST /api/v1/salaries/calculate", h.CalculateAndSave, domain.RoleAdmin, domain.RoleCorporateOfficer)
	r.handleAuthed("GET /api/v1/salaries/export", h.Export, domain.RoleAdmin, domain.RoleCorporateOfficer)
	// 护士只能读自己的工资，在 handler 内校验
	r.handleAuthed("GET /api/v1/salaries", h.Get, domain.RoleAdmin, domain.RoleCorporateOfficer, domain.RoleNurse)
}
