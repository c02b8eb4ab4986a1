package service

import (
	"context"
	"errors"
	"math"
	"regexp"
	"time"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/repository"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/store"

	"go.uber.org/zap"
)

// 工资费率
const (
	DistanceRatePerKm = 50.0
	HourlyRate        = 35.0
	VitalMinutesEquiv = 10.0 // 每条生命体征记录折算的分钟数
	yearMonthLayout   = "2006-01"
	shiftDateLayout   = "2006-01-02"
)

var yearMonthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// SalaryService 工资计算服务接口
type SalaryService interface {
	CalculateNurseSalary(ctx context.Context, userID int64, yearMonth string) (*SalaryCalculation, error)
	CalculateAndSaveSalary(ctx context.Context, req SaveSalaryRequest) (*domain.Salary, error)
	GetSalary(ctx context.Context, userID int64, yearMonth string) (*domain.Salary, error)
	ListSalaries(ctx context.Context, yearMonth string) ([]*domain.Salary, error)
}

// SalaryCalculation 计算结果（不落库）
type SalaryCalculation struct {
	UserID          int64                      `json:"user_id"`
	YearMonth       string                     `json:"year_month"`
	TotalAmount     int64                      `json:"total_amount"`
	DistancePay     int64                      `json:"distance_pay"`
	TimePay         int64                      `json:"time_pay"`
	VitalPay        int64                      `json:"vital_pay"`
	TotalDistanceKm float64                    `json:"total_distance_km"` // 保留两位小数
	TotalMinutes    int64                      `json:"total_minutes"`
	TotalVitalCount int64                      `json:"total_vital_count"`
	Details         []domain.SalaryShiftDetail `json:"calculation_details"`
}

// SaveSalaryRequest 计算并保存
type SaveSalaryRequest struct {
	CalculatedBy int64
	UserID       int64
	YearMonth    string
}

// SalaryDeps SalaryEngine 依赖；Cache 可为 nil
type SalaryDeps struct {
	Shifts     repository.ShiftsRepository
	Users      repository.UsersRepository
	Facilities repository.FacilitiesRepository
	Vitals     repository.VitalsRepository
	Salaries   repository.SalariesRepository
	Cache      SalaryCache
	Location   *time.Location
	Logger     *zap.Logger
}

// SalaryEngine 护士月度工资计算
type SalaryEngine struct {
	shifts     repository.ShiftsRepository
	users      repository.UsersRepository
	facilities repository.FacilitiesRepository
	vitals     repository.VitalsRepository
	salaries   repository.SalariesRepository
	cache      SalaryCache
	loc        *time.Location
	logger     *zap.Logger
}

var _ SalaryService = (*SalaryEngine)(nil)

func NewSalaryService(deps SalaryDeps) *SalaryEngine {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalaryEngine{
		shifts:     deps.Shifts,
		users:      deps.Users,
		facilities: deps.Facilities,
		vitals:     deps.Vitals,
		salaries:   deps.Salaries,
		cache:      deps.Cache,
		loc:        loc,
		logger:     logger,
	}
}

// MonthRange 返回 [当月 1 日 00:00, 下月 1 日 00:00)
func MonthRange(yearMonth string, loc *time.Location) (time.Time, time.Time, error) {
	if !yearMonthPattern.MatchString(yearMonth) {
		return time.Time{}, time.Time{}, InvalidInput("year_month must be YYYY-MM, got %q", yearMonth)
	}
	from, err := time.ParseInLocation(yearMonthLayout, yearMonth, loc)
	if err != nil {
		return time.Time{}, time.Time{}, InvalidInput("invalid year_month %q", yearMonth)
	}
	return from, from.AddDate(0, 1, 0), nil
}

// CalculateNurseSalary 计算某护士某月工资
func (s *SalaryEngine) CalculateNurseSalary(ctx context.Context, userID int64, yearMonth string) (*SalaryCalculation, error) {
	from, to, err := MonthRange(yearMonth, s.loc)
	if err != nil {
		return nil, err
	}

	origin, hasOrigin, err := s.workerOrigin(ctx, userID)
	if err != nil {
		return nil, err
	}

	shifts, err := s.shifts.ListShiftsByUser(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	calc := &SalaryCalculation{
		UserID:    userID,
		YearMonth: yearMonth,
		Details:   make([]domain.SalaryShiftDetail, 0, len(shifts)),
	}
	facilities := make(map[int64]*domain.Facility)
	residents := make(map[int64][]int64)

	var totalDistance float64
	for _, sh := range shifts {
		detail := domain.SalaryShiftDetail{
			ShiftID:    sh.ShiftID,
			ShiftDate:  sh.StartDatetime.In(s.loc).Format(shiftDateLayout),
			FacilityID: sh.FacilityID,
			Minutes:    shiftMinutes(sh),
		}

		switch {
		case sh.DistanceKm != nil:
			detail.DistanceKm = *sh.DistanceKm
		case hasOrigin && sh.FacilityID != nil:
			f, err := s.facility(ctx, facilities, *sh.FacilityID)
			if err != nil {
				return nil, err
			}
			if f != nil {
				if dest, ok := f.Coordinates(); ok {
					detail.DistanceKm = HaversineKm(origin, dest)
				}
			}
		}
		if math.IsNaN(detail.DistanceKm) || math.IsInf(detail.DistanceKm, 0) {
			s.logger.Warn("Non-finite shift distance treated as zero",
				zap.Int64("user_id", userID),
				zap.Int64("shift_id", sh.ShiftID),
			)
			detail.DistanceKm = 0
		}

		if sh.FacilityID != nil {
			ids, ok := residents[*sh.FacilityID]
			if !ok {
				ids, err = s.facilities.ListEligibleResidentIDs(ctx, *sh.FacilityID)
				if err != nil {
					return nil, err
				}
				residents[*sh.FacilityID] = ids
			}
			if len(ids) > 0 {
				dayStart, dayEnd := dayWindow(sh.StartDatetime, s.loc)
				n, err := s.vitals.CountVitals(ctx, ids, dayStart, dayEnd)
				if err != nil {
					return nil, err
				}
				detail.VitalCount = n
			}
		}

		totalDistance += detail.DistanceKm
		calc.TotalMinutes += detail.Minutes
		calc.TotalVitalCount += detail.VitalCount
		calc.Details = append(calc.Details, detail)
	}

	calc.DistancePay = int64(roundHalfUp(totalDistance * DistanceRatePerKm))
	calc.TimePay = int64(roundHalfUp(float64(calc.TotalMinutes) / 60 * HourlyRate))
	calc.VitalPay = int64(roundHalfUp(float64(calc.TotalVitalCount) * VitalMinutesEquiv * HourlyRate))
	calc.TotalAmount = calc.DistancePay + calc.TimePay + calc.VitalPay
	calc.TotalDistanceKm = round2(totalDistance)

	s.logger.Debug("Salary calculated",
		zap.Int64("user_id", userID),
		zap.String("year_month", yearMonth),
		zap.Int("shift_count", len(shifts)),
		zap.Int64("total_amount", calc.TotalAmount),
	)
	return calc, nil
}

// CalculateAndSaveSalary 计算并按 (user_id, year_month) 覆盖保存
func (s *SalaryEngine) CalculateAndSaveSalary(ctx context.Context, req SaveSalaryRequest) (*domain.Salary, error) {
	calc, err := s.CalculateNurseSalary(ctx, req.UserID, req.YearMonth)
	if err != nil {
		return nil, err
	}

	rec := &domain.Salary{
		UserID:             calc.UserID,
		YearMonth:          calc.YearMonth,
		TotalAmount:        calc.TotalAmount,
		DistancePay:        calc.DistancePay,
		TimePay:            calc.TimePay,
		VitalPay:           calc.VitalPay,
		TotalDistanceKm:    calc.TotalDistanceKm,
		TotalMinutes:       calc.TotalMinutes,
		TotalVitalCount:    calc.TotalVitalCount,
		CalculationDetails: calc.Details,
	}
	if req.CalculatedBy > 0 {
		by := req.CalculatedBy
		rec.CalculatedBy = &by
	}

	existing, err := s.salaries.GetSalaryByUserAndMonth(ctx, req.UserID, req.YearMonth)
	var saved *domain.Salary
	switch {
	case err == nil:
		rec.SalaryID = existing.SalaryID
		saved, err = s.salaries.UpdateSalary(ctx, rec)
	case errors.Is(err, repository.ErrNotFound):
		saved, err = s.salaries.CreateSalary(ctx, rec)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, store.SalaryUserPattern(req.UserID)); err != nil {
			s.logger.Warn("Failed to invalidate salary cache", zap.Int64("user_id", req.UserID), zap.Error(err))
		}
	}

	s.logger.Info("Salary saved",
		zap.Int64("salary_id", saved.SalaryID),
		zap.Int64("user_id", saved.UserID),
		zap.String("year_month", saved.YearMonth),
		zap.Int64("total_amount", saved.TotalAmount),
	)
	return saved, nil
}

// GetSalary 读取已保存的工资（cache-aside）
func (s *SalaryEngine) GetSalary(ctx context.Context, userID int64, yearMonth string) (*domain.Salary, error) {
	if _, _, err := MonthRange(yearMonth, s.loc); err != nil {
		return nil, err
	}

	load := func(ctx context.Context) (any, error) {
		rec, err := s.salaries.GetSalaryByUserAndMonth(ctx, userID, yearMonth)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, NotFound("salary for user %d in %s not found", userID, yearMonth)
			}
			return nil, err
		}
		return rec, nil
	}

	if s.cache == nil {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return v.(*domain.Salary), nil
	}

	var rec domain.Salary
	if err := s.cache.GetOrSet(ctx, store.SalaryKey(userID, yearMonth), &rec, load); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListSalaries 某月全部工资记录
func (s *SalaryEngine) ListSalaries(ctx context.Context, yearMonth string) ([]*domain.Salary, error) {
	if _, _, err := MonthRange(yearMonth, s.loc); err != nil {
		return nil, err
	}
	return s.salaries.ListSalariesByMonth(ctx, yearMonth)
}

// workerOrigin 护士的出发坐标；用户不存在或无坐标时返回 false
func (s *SalaryEngine) workerOrigin(ctx context.Context, userID int64) (domain.Coordinates, bool, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Salary worker not found, distance falls back to shift data", zap.Int64("user_id", userID))
			return domain.Coordinates{}, false, nil
		}
		return domain.Coordinates{}, false, err
	}
	c, ok := u.Origin()
	return c, ok, nil
}

// facility 带请求内缓存；不存在时返回 nil
func (s *SalaryEngine) facility(ctx context.Context, seen map[int64]*domain.Facility, id int64) (*domain.Facility, error) {
	if f, ok := seen[id]; ok {
		return f, nil
	}
	f, err := s.facilities.GetFacility(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		f = nil
	}
	seen[id] = f
	return f, nil
}

// shiftMinutes 有结束时间按实际时长（四舍五入到分钟），否则取 required_time
func shiftMinutes(sh *domain.Shift) int64 {
	if sh.EndDatetime != nil {
		ms := sh.EndDatetime.Sub(sh.StartDatetime).Milliseconds()
		return int64(roundHalfUp(float64(ms) / 60000))
	}
	if sh.RequiredTime != nil {
		return int64(*sh.RequiredTime)
	}
	return 0
}

// dayWindow 班次开始当天 [00:00, 次日 00:00)
func dayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	lt := t.In(loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
