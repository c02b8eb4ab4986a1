package domain

// 角色（与 JWT claims 中的 role 一致）
const (
	RoleAdmin            = "admin"
	RoleCorporateOfficer = "corporate_officer"
	RoleFacilityManager  = "facility_manager"
	RoleNurse            = "nurse"
)
