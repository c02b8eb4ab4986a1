package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/store"
)

type attendanceFixture struct {
	st     *memStore
	pins   *PinIssuer
	cache  *recordingCache
	events *recordingPublisher
	svc    *AttendanceEngine
	now    time.Time
}

const (
	nurseID      int64 = 10
	otherNurseID int64 = 20
	adminID      int64 = 1
)

func newAttendanceFixture(t *testing.T) *attendanceFixture {
	t.Helper()

	st := newMemStore()
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	pins := newTestPinIssuer(st, nil, now)
	cache := newRecordingCache()
	events := &recordingPublisher{}

	svc := NewAttendanceService(AttendanceDeps{
		Shifts:     st,
		Attendance: st,
		Pins:       pins,
		Cache:      cache,
		Events:     events,
		Logger:     zap.NewNop(),
	})
	svc.now = func() time.Time { return now }

	st.shifts[1] = &domain.Shift{ShiftID: 1, UserID: int64p(nurseID), FacilityID: int64p(100), StartDatetime: now}
	st.shifts[2] = &domain.Shift{ShiftID: 2, UserID: int64p(nurseID), FacilityID: int64p(100), StartDatetime: now.Add(24 * time.Hour)}
	st.shifts[3] = &domain.Shift{ShiftID: 3, UserID: int64p(otherNurseID), StartDatetime: now}
	st.shifts[4] = &domain.Shift{ShiftID: 4, StartDatetime: now}
	st.nextID = 100

	return &attendanceFixture{st: st, pins: pins, cache: cache, events: events, svc: svc, now: now}
}

func (f *attendanceFixture) pin(t *testing.T, userID int64, purpose domain.PinPurpose, attendanceID *int64) string {
	t.Helper()
	resp, err := f.pins.GeneratePin(context.Background(), GeneratePinRequest{
		UserID:       userID,
		Purpose:      purpose,
		AttendanceID: attendanceID,
	})
	require.NoError(t, err)
	return resp.Pin
}

func (f *attendanceFixture) checkIn(t *testing.T, shiftID int64) *domain.Attendance {
	t.Helper()
	rec, err := f.svc.CheckIn(context.Background(), CheckInRequest{UserID: nurseID, ShiftID: shiftID, Lat: 35.0, Lng: 135.0})
	require.NoError(t, err)
	return rec
}

func TestCheckIn_WithoutPinIsPending(t *testing.T) {
	f := newAttendanceFixture(t)

	rec := f.checkIn(t, 1)

	assert.NotZero(t, rec.AttendanceID)
	assert.Equal(t, domain.AttendancePending, rec.CheckInStatus)
	assert.Equal(t, domain.AttendancePending, rec.CheckOutStatus)
	require.NotNil(t, rec.CheckInTime)
	assert.Equal(t, f.now, *rec.CheckInTime)
	assert.Equal(t, 35.0, *rec.CheckInLat)
	assert.Equal(t, 135.0, *rec.CheckInLng)
	assert.Nil(t, rec.CheckInPin)

	assert.Equal(t, []string{store.ShiftTemplatesPattern}, f.cache.invalidated)
	require.Len(t, f.events.events, 1)
	ev := f.events.events[0].(AttendanceEvent)
	assert.Equal(t, EventCheckedIn, ev.Type)
	assert.Equal(t, rec.AttendanceID, ev.AttendanceID)
	assert.NotEmpty(t, ev.EventID)
}

func TestCheckIn_WithPinIsConfirmed(t *testing.T) {
	f := newAttendanceFixture(t)
	code := f.pin(t, nurseID, domain.PinCheckIn, nil)

	rec, err := f.svc.CheckIn(context.Background(), CheckInRequest{UserID: nurseID, ShiftID: 1, Lat: 35, Lng: 135, Pin: code})
	require.NoError(t, err)

	assert.Equal(t, domain.AttendanceConfirmed, rec.CheckInStatus)
	require.NotNil(t, rec.CheckInPin)
	assert.Equal(t, code, *rec.CheckInPin)
}

func TestCheckIn_TwiceConflicts(t *testing.T) {
	f := newAttendanceFixture(t)
	f.checkIn(t, 1)

	_, err := f.svc.CheckIn(context.Background(), CheckInRequest{UserID: nurseID, ShiftID: 1, Lat: 35, Lng: 135})
	assert.True(t, IsKind(err, KindConflict))
	assert.Len(t, f.st.attendance, 1)
}

func TestCheckIn_ShiftOwnership(t *testing.T) {
	f := newAttendanceFixture(t)

	_, err := f.svc.CheckIn(context.Background(), CheckInRequest{UserID: nurseID, ShiftID: 3})
	assert.True(t, IsKind(err, KindForbidden))

	_, err = f.svc.CheckIn(context.Background(), CheckInRequest{UserID: nurseID, ShiftID: 4})
	assert.True(t, IsKind(err, KindForbidden), "unassigned shift")

	_, err = f.svc.CheckIn(context.Background(), CheckInRequest{UserID: nurseID, ShiftID: 999})
	assert.True(t, IsKind(err, KindNotFound))
}

func TestCheckIn_UpdatesRecordWithoutCheckIn(t *testing.T) {
	f := newAttendanceFixture(t)
	f.st.attendance[50] = &domain.Attendance{
		AttendanceID:   50,
		ShiftID:        1,
		UserID:         nurseID,
		CheckInStatus:  domain.AttendancePending,
		CheckOutStatus: domain.AttendancePending,
		Notes:          stringp("pre-created"),
	}

	rec := f.checkIn(t, 1)

	assert.Equal(t, int64(50), rec.AttendanceID)
	assert.NotNil(t, rec.CheckInTime)
	assert.Equal(t, "pre-created", *rec.Notes)
	assert.Len(t, f.st.attendance, 1)
}

func TestCheckIn_PinErrors(t *testing.T) {
	f := newAttendanceFixture(t)

	otherCode := f.pin(t, otherNurseID, domain.PinCheckIn, nil)
	_, err := f.svc.CheckIn(context.Background(), CheckInRequest{UserID: nurseID, ShiftID: 1, Pin: otherCode})
	assert.True(t, IsKind(err, KindForbidden))

	outCode := f.pin(t, nurseID, domain.PinCheckOut, nil)
	_, err = f.svc.CheckIn(context.Background(), CheckInRequest{UserID: nurseID, ShiftID: 1, Pin: outCode})
	assert.True(t, IsKind(err, KindInvalidInput))

	_, err = f.svc.CheckIn(context.Background(), CheckInRequest{UserID: nurseID, ShiftID: 1, Pin: "12ab56"})
	assert.True(t, IsKind(err, KindInvalidInput))

	// 失败的 PIN 不产生考勤记录
	assert.Empty(t, f.st.attendance)
}

func TestCheckIn_PinCannotBeReused(t *testing.T) {
	f := newAttendanceFixture(t)
	code := f.pin(t, nurseID, domain.PinCheckIn, nil)

	_, err := f.svc.CheckIn(context.Background(), CheckInRequest{UserID: nurseID, ShiftID: 1, Pin: code})
	require.NoError(t, err)

	_, err = f.svc.CheckIn(context.Background(), CheckInRequest{UserID: nurseID, ShiftID: 2, Pin: code})
	assert.True(t, IsKind(err, KindInvalidInput))
}

func TestCheckIn_SideEffectFailuresAreSwallowed(t *testing.T) {
	f := newAttendanceFixture(t)
	f.cache.fail = errors.New("redis down")
	f.events.fail = errors.New("redis down")

	rec := f.checkIn(t, 1)
	assert.NotZero(t, rec.AttendanceID)
}

func TestCheckOut_ComputesDistance(t *testing.T) {
	f := newAttendanceFixture(t)
	in := f.checkIn(t, 1)

	res, err := f.svc.CheckOut(context.Background(), CheckOutRequest{
		UserID:       nurseID,
		AttendanceID: in.AttendanceID,
		Lat:          35.0,
		Lng:          135.1,
	})
	require.NoError(t, err)

	assert.InDelta(t, 9.1086, res.DistanceKm, 0.001)
	assert.Equal(t, domain.AttendancePending, res.Attendance.CheckOutStatus)
	assert.NotNil(t, res.Attendance.CheckOutTime)
	assert.Equal(t, 135.1, *res.Attendance.CheckOutLng)

	require.Len(t, f.events.events, 2)
	ev := f.events.events[1].(AttendanceEvent)
	assert.Equal(t, EventCheckedOut, ev.Type)
	require.NotNil(t, ev.DistanceKm)
	assert.InDelta(t, res.DistanceKm, *ev.DistanceKm, 1e-9)
}

func TestCheckOut_AntipodalDistanceIsEncodable(t *testing.T) {
	f := newAttendanceFixture(t)
	in, err := f.svc.CheckIn(context.Background(), CheckInRequest{UserID: nurseID, ShiftID: 1, Lat: -89.26, Lng: -180})
	require.NoError(t, err)

	res, err := f.svc.CheckOut(context.Background(), CheckOutRequest{
		UserID:       nurseID,
		AttendanceID: in.AttendanceID,
		Lat:          89.26,
		Lng:          0,
	})
	require.NoError(t, err)

	assert.False(t, math.IsNaN(res.DistanceKm))
	assert.InDelta(t, math.Pi*EarthRadiusKm, res.DistanceKm, 1)
	_, err = json.Marshal(res)
	assert.NoError(t, err)

	require.Len(t, f.events.events, 2)
	_, err = json.Marshal(f.events.events[1])
	assert.NoError(t, err)
}

func TestCheckOut_WithPinIsConfirmed(t *testing.T) {
	f := newAttendanceFixture(t)
	in := f.checkIn(t, 1)
	code := f.pin(t, nurseID, domain.PinCheckOut, &in.AttendanceID)

	res, err := f.svc.CheckOut(context.Background(), CheckOutRequest{UserID: nurseID, AttendanceID: in.AttendanceID, Lat: 35, Lng: 135, Pin: code})
	require.NoError(t, err)
	assert.Equal(t, domain.AttendanceConfirmed, res.Attendance.CheckOutStatus)
	assert.Equal(t, 0.0, res.DistanceKm)
}

func TestCheckOut_RejectsCheckInPin(t *testing.T) {
	f := newAttendanceFixture(t)
	in := f.checkIn(t, 1)
	code := f.pin(t, nurseID, domain.PinCheckIn, nil)

	_, err := f.svc.CheckOut(context.Background(), CheckOutRequest{UserID: nurseID, AttendanceID: in.AttendanceID, Pin: code})
	assert.True(t, IsKind(err, KindInvalidInput))

	got, _ := f.st.GetAttendance(context.Background(), in.AttendanceID)
	assert.False(t, got.CheckedOut())
}

func TestCheckOut_Preconditions(t *testing.T) {
	f := newAttendanceFixture(t)
	in := f.checkIn(t, 1)
	f.st.attendance[60] = &domain.Attendance{AttendanceID: 60, ShiftID: 2, UserID: nurseID}

	_, err := f.svc.CheckOut(context.Background(), CheckOutRequest{UserID: nurseID, AttendanceID: 999})
	assert.True(t, IsKind(err, KindNotFound))

	_, err = f.svc.CheckOut(context.Background(), CheckOutRequest{UserID: otherNurseID, AttendanceID: in.AttendanceID})
	assert.True(t, IsKind(err, KindForbidden))

	_, err = f.svc.CheckOut(context.Background(), CheckOutRequest{UserID: nurseID, AttendanceID: 60})
	assert.True(t, IsKind(err, KindInvalidState))

	_, err = f.svc.CheckOut(context.Background(), CheckOutRequest{UserID: nurseID, AttendanceID: in.AttendanceID})
	require.NoError(t, err)
	_, err = f.svc.CheckOut(context.Background(), CheckOutRequest{UserID: nurseID, AttendanceID: in.AttendanceID})
	assert.True(t, IsKind(err, KindConflict))
}

func TestCheckOut_PinStaysConsumedWhenWriteFails(t *testing.T) {
	f := newAttendanceFixture(t)
	in := f.checkIn(t, 1)
	code := f.pin(t, nurseID, domain.PinCheckOut, nil)

	f.st.failUpdate = errors.New("connection reset")
	_, err := f.svc.CheckOut(context.Background(), CheckOutRequest{UserID: nurseID, AttendanceID: in.AttendanceID, Pin: code})
	require.Error(t, err)

	f.st.failUpdate = nil
	_, err = f.svc.CheckOut(context.Background(), CheckOutRequest{UserID: nurseID, AttendanceID: in.AttendanceID, Pin: code})
	assert.True(t, IsKind(err, KindInvalidInput))
}

func TestUpdateAttendanceStatus(t *testing.T) {
	f := newAttendanceFixture(t)
	in := f.checkIn(t, 1)
	// STATUS_UPDATE 不校验 PIN 归属
	code := f.pin(t, adminID, domain.PinStatusUpdate, &in.AttendanceID)

	rec, err := f.svc.UpdateAttendanceStatus(context.Background(), UpdateStatusRequest{
		AttendanceID: in.AttendanceID,
		Status:       domain.AttendanceRejected,
		Type:         domain.HalfCheckIn,
		Pin:          code,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AttendanceRejected, rec.CheckInStatus)
	assert.Equal(t, domain.AttendancePending, rec.CheckOutStatus)

	_, err = f.svc.UpdateAttendanceStatus(context.Background(), UpdateStatusRequest{
		AttendanceID: in.AttendanceID,
		Status:       domain.AttendanceConfirmed,
		Type:         domain.HalfCheckOut,
		Pin:          code,
	})
	assert.True(t, IsKind(err, KindInvalidInput), "PIN already used")

	rec, err = f.svc.UpdateAttendanceStatus(context.Background(), UpdateStatusRequest{
		AttendanceID: in.AttendanceID,
		Status:       domain.AttendanceConfirmed,
		Type:         domain.HalfCheckOut,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AttendanceConfirmed, rec.CheckOutStatus)
}

func TestUpdateAttendanceStatus_Validation(t *testing.T) {
	f := newAttendanceFixture(t)
	in := f.checkIn(t, 1)

	_, err := f.svc.UpdateAttendanceStatus(context.Background(), UpdateStatusRequest{AttendanceID: in.AttendanceID, Status: "DONE", Type: domain.HalfCheckIn})
	assert.True(t, IsKind(err, KindInvalidInput))

	_, err = f.svc.UpdateAttendanceStatus(context.Background(), UpdateStatusRequest{AttendanceID: in.AttendanceID, Status: domain.AttendanceConfirmed, Type: "lunch"})
	assert.True(t, IsKind(err, KindInvalidInput))

	_, err = f.svc.UpdateAttendanceStatus(context.Background(), UpdateStatusRequest{AttendanceID: 999, Status: domain.AttendanceConfirmed, Type: domain.HalfCheckIn})
	assert.True(t, IsKind(err, KindNotFound))

	code := f.pin(t, nurseID, domain.PinCheckIn, nil)
	_, err = f.svc.UpdateAttendanceStatus(context.Background(), UpdateStatusRequest{AttendanceID: in.AttendanceID, Status: domain.AttendanceConfirmed, Type: domain.HalfCheckIn, Pin: code})
	assert.True(t, IsKind(err, KindInvalidInput))
}

func TestGetAttendance_Visibility(t *testing.T) {
	f := newAttendanceFixture(t)
	in := f.checkIn(t, 1)

	rec, err := f.svc.GetAttendance(context.Background(), in.AttendanceID, Viewer{UserID: nurseID, Role: domain.RoleNurse})
	require.NoError(t, err)
	assert.Equal(t, in.AttendanceID, rec.AttendanceID)

	_, err = f.svc.GetAttendance(context.Background(), in.AttendanceID, Viewer{UserID: otherNurseID, Role: domain.RoleNurse})
	assert.True(t, IsKind(err, KindForbidden))

	_, err = f.svc.GetAttendance(context.Background(), in.AttendanceID, Viewer{UserID: adminID, Role: domain.RoleFacilityManager})
	assert.NoError(t, err)

	_, err = f.svc.GetAttendance(context.Background(), 999, Viewer{UserID: adminID, Role: domain.RoleAdmin})
	assert.True(t, IsKind(err, KindNotFound))
}
