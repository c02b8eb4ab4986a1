package domain

// User 用户（仅工资计算需要的字段）
type User struct {
	UserID   int64   `db:"user_id"`
	Role     string  `db:"role"`
	Position *string `db:"position"` // "lat,lng"，作为移动距离的出发点
}

// Origin 解析用户位置
func (u *User) Origin() (Coordinates, bool) {
	if u == nil || u.Position == nil {
		return Coordinates{}, false
	}
	return ParseCoordinates(*u.Position)
}

// Facility 设施（对应 facilities 表）
type Facility struct {
	FacilityID int64    `db:"facility_id"`
	Name       string   `db:"name"`
	Lat        *float64 `db:"lat"`
	Lng        *float64 `db:"lng"`
}

// Coordinates 设施坐标，任一为空返回 false
func (f *Facility) Coordinates() (Coordinates, bool) {
	if f == nil || f.Lat == nil || f.Lng == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *f.Lat, Lng: *f.Lng}, true
}
