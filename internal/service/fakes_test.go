package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/repository"
)

// memStore 内存实现全部仓储接口，仅用于单元测试
type memStore struct {
	mu sync.Mutex

	shifts     map[int64]*domain.Shift
	attendance map[int64]*domain.Attendance
	pins       map[int64]*domain.PinVerification
	users      map[int64]*domain.User
	facilities map[int64]*domain.Facility
	residents  []memResident
	vitals     map[int64][]time.Time // resident_id -> measured_at
	salaries   map[int64]*domain.Salary

	nextID int64

	createSalaryCalls int
	updateSalaryCalls int
	failUpdate        error

	// checkPinRefs 为 true 时 CreatePin 校验 user_id 存在，模拟外键约束
	checkPinRefs bool
	// rawPinListing 为 true 时 ListActivePinsByCode 不按 now 过滤，模拟数据库时钟超前
	rawPinListing bool
}

type memResident struct {
	ResidentID int64
	FacilityID int64
	IsExcluded bool
}

func newMemStore() *memStore {
	return &memStore{
		shifts:     make(map[int64]*domain.Shift),
		attendance: make(map[int64]*domain.Attendance),
		pins:       make(map[int64]*domain.PinVerification),
		users:      make(map[int64]*domain.User),
		facilities: make(map[int64]*domain.Facility),
		vitals:     make(map[int64][]time.Time),
		salaries:   make(map[int64]*domain.Salary),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) GetShift(ctx context.Context, shiftID int64) (*domain.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[shiftID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListShiftsByUser(ctx context.Context, userID int64, from, to time.Time) ([]*domain.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Shift
	for _, s := range m.shifts {
		if !s.AssignedTo(userID) || s.StartDatetime.Before(from) || !s.StartDatetime.Before(to) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].StartDatetime.Before(out[j-1].StartDatetime); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (m *memStore) GetAttendance(ctx context.Context, attendanceID int64) (*domain.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attendance[attendanceID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) GetAttendanceByShiftAndUser(ctx context.Context, shiftID, userID int64) (*domain.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attendance {
		if a.ShiftID == shiftID && a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) CreateAttendance(ctx context.Context, a *domain.Attendance) (*domain.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.attendance {
		if ex.ShiftID == a.ShiftID && ex.UserID == a.UserID {
			return nil, repository.ErrDuplicate
		}
	}
	cp := *a
	cp.AttendanceID = m.id()
	m.attendance[cp.AttendanceID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) UpdateAttendance(ctx context.Context, a *domain.Attendance) (*domain.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return nil, m.failUpdate
	}
	if _, ok := m.attendance[a.AttendanceID]; !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	m.attendance[a.AttendanceID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) CreatePin(ctx context.Context, p *domain.PinVerification) (*domain.PinVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[p.UserID]; m.checkPinRefs && !ok {
		return nil, fmt.Errorf("pin for user %d: %w", p.UserID, repository.ErrForeignKey)
	}
	cp := *p
	cp.PinID = m.id()
	m.pins[cp.PinID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) ListActivePinsByCode(ctx context.Context, code string, now time.Time) ([]*domain.PinVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.PinVerification
	// 与数据库一致：created_at DESC
	for id := m.nextID; id >= 1; id-- {
		p, ok := m.pins[id]
		if !ok || p.Pin != code || (!m.rawPinListing && !p.Active(now)) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) MarkPinAsUsed(ctx context.Context, pinID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pins[pinID]
	if !ok || p.Used {
		return fmt.Errorf("pin %d already used: %w", pinID, repository.ErrNotFound)
	}
	p.Used = true
	return nil
}

func (m *memStore) DeleteStalePins(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, p := range m.pins {
		if !p.Active(now) {
			delete(m.pins, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetFacility(ctx context.Context, facilityID int64) (*domain.Facility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.facilities[facilityID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memStore) ListEligibleResidentIDs(ctx context.Context, facilityID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, r := range m.residents {
		if r.FacilityID == facilityID && !r.IsExcluded {
			ids = append(ids, r.ResidentID)
		}
	}
	return ids, nil
}

func (m *memStore) CountVitals(ctx context.Context, residentIDs []int64, from, to time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range residentIDs {
		for _, at := range m.vitals[id] {
			if !at.Before(from) && at.Before(to) {
				n++
			}
		}
	}
	return n, nil
}

func (m *memStore) GetSalaryByUserAndMonth(ctx context.Context, userID int64, yearMonth string) (*domain.Salary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.salaries {
		if s.UserID == userID && s.YearMonth == yearMonth {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) CreateSalary(ctx context.Context, s *domain.Salary) (*domain.Salary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createSalaryCalls++
	cp := *s
	cp.SalaryID = m.id()
	m.salaries[cp.SalaryID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) UpdateSalary(ctx context.Context, s *domain.Salary) (*domain.Salary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateSalaryCalls++
	if _, ok := m.salaries[s.SalaryID]; !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	m.salaries[s.SalaryID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) ListSalariesByMonth(ctx context.Context, yearMonth string) ([]*domain.Salary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Salary
	for _, s := range m.salaries {
		if s.YearMonth == yearMonth {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// recordingCache 记录失效的 key
type recordingCache struct {
	mu          sync.Mutex
	invalidated []string
	values      map[string]any
	loads       int
	fail        error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{values: make(map[string]any)}
}

func (c *recordingCache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, key)
	if c.fail != nil {
		return c.fail
	}
	prefix := strings.TrimSuffix(key, "*")
	for k := range c.values {
		if k == key || (strings.HasSuffix(key, "*") && strings.HasPrefix(k, prefix)) {
			delete(c.values, k)
		}
	}
	return nil
}

func (c *recordingCache) GetOrSet(ctx context.Context, key string, out any, load func(ctx context.Context) (any, error)) error {
	c.mu.Lock()
	v, ok := c.values[key]
	c.mu.Unlock()
	if !ok {
		var err error
		v, err = load(ctx)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.loads++
		c.values[key] = v
		c.mu.Unlock()
	}
	dst, ok := out.(*domain.Salary)
	if !ok {
		return errors.New("unexpected cache target")
	}
	*dst = *v.(*domain.Salary)
	return nil
}

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []any
	fail   error
}

func (p *recordingPublisher) Publish(ctx context.Context, event any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return "", p.fail
	}
	p.events = append(p.events, event)
	return fmt.Sprintf("%d-0", len(p.events)), nil
}

func int64p(v int64) *int64 { return &v }
func intp(v int) *int { return &v }
func float64p(v float64) *float64 { return &v }
func stringp(v string) *string { return &v }
func timep(t time.Time) *time.Time { return &t }
