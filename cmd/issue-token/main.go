package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/config"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/domain"
	httpapi "github.com/codemonkey0612/aikan-cloud-sub001/internal/http"
)

// 开发用：为指定用户签发 JWT（使用 JWT_SECRET / JWT_TTL_HOURS）
func main() {
	userID := flag.Int64("user", 0, "user id")
	role := flag.String("role", domain.RoleNurse, "admin | corporate_officer | facility_manager | nurse")
	flag.Parse()

	if *userID <= 0 {
		fmt.Fprintln(os.Stderr, "usage: issue-token -user <id> [-role nurse]")
		os.Exit(2)
	}
	switch *role {
	case domain.RoleAdmin, domain.RoleCorporateOfficer, domain.RoleFacilityManager, domain.RoleNurse:
	default:
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	cfg := config.Load()
	token, err := httpapi.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).IssueToken(*userID, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
