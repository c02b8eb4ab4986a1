package service

import (
	"math"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
)

// EarthRadiusKm 地球半径（公里）
const EarthRadiusKm = 6371.0

// HaversineKm 两点大圆距离（公里）。
// 不校验经纬度范围：越界输入返回有限数值（可能无意义）而不是 panic 或 NaN。
func HaversineKm(a, b domain.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// 近对跖点时舍入误差会让 h 略大于 1
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// roundHalfUp rounds half toward +Inf, so -2.5 becomes -2.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

func round2(x float64) float64 {
	return roundHalfUp(x*100) / 100
}
