package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/codemonkey0612/aikan-cloud-sub001/internal/common/database"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/common/logger"
	"github.com/codemonkey0612/aikan-cloud-sub001/internal/config"

	"go.uber.org/zap"
)

func main() {
	log, err := logger.NewLogger("info", "console", "apply-migration")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if len(os.Args) < 2 {
		log.Fatal(fmt.Sprintf("Usage: %s <migration_file.sql>", os.Args[0]))
	}

	migrationFile := os.Args[1]
	sqlContent, err := os.ReadFile(migrationFile)
	if err != nil {
		log.Fatal("Failed to read migration file", zap.String("file", migrationFile), zap.Error(err))
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatal("Cannot connect to database", zap.Error(err))
	}
	defer database.Close(db)

	log.Info("Connected to database", zap.String("database", cfg.Database.Database))

	statements := splitStatements(string(sqlContent))
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatal("Failed to execute statement",
				zap.Int("index", i+1),
				zap.String("statement", stmt[:min(100, len(stmt))]),
				zap.Error(err),
			)
		}
		log.Info("Statement executed", zap.Int("index", i+1), zap.Int("total", len(statements)))
	}

	log.Info("Migration completed", zap.String("file", migrationFile))
}

// splitStatements 按分号切分，丢弃空语句与纯注释
func splitStatements(content string) []string {
	var out []string
	for _, stmt := range strings.Split(content, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			if t := strings.TrimSpace(line); t != "" && !strings.HasPrefix(t, "--") {
				lines = append(lines, line)
			}
		}
		if s := strings.TrimSpace(strings.Join(lines, "\n")); s != "" {
			out = append(out, s)
		}
	}
	return out
}
