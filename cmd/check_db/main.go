package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB 상태 점검 유틸리티 — 문서/주석/작업 테이블의 현황을 출력한다.
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Database connection
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "annotatio"),
		getEnv("DB_SSLMODE", "disable"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	fmt.Println("✅ Connected to database")
	fmt.Println()

	// 테이블 존재 확인
	for _, table := range []string{"documents", "annotation_records", "export_jobs"} {
		var exists bool
		query := `
			SELECT EXISTS (
				SELECT 1
				FROM information_schema.tables
				WHERE table_name = ?
			)
		`
		if err := db.Raw(query, table).Scan(&exists).Error; err != nil {
			log.Fatal("Failed to check table:", err)
		}
		fmt.Printf("📊 Table %-20s exists: %v\n", table, exists)
	}
	fmt.Println()

	// 문서별 주석 수
	type DocStat struct {
		ID        string
		Name      string
		PageCount int
		Count     int64
	}
	var stats []DocStat
	err = db.Raw(`
		SELECT d.id, d.name, d.page_count, COUNT(a.id) AS count
		FROM documents d
		LEFT JOIN annotation_records a ON a.document_id = d.id
		GROUP BY d.id, d.name, d.page_count
		ORDER BY d.created_at DESC
	`).Scan(&stats).Error
	if err != nil {
		log.Fatal("Failed to query document stats:", err)
	}

	fmt.Printf("📄 Documents: %d\n", len(stats))
	for _, s := range stats {
		fmt.Printf("  - %s (%s, %dp): %d annotations\n", s.Name, s.ID, s.PageCount, s.Count)
	}
	fmt.Println()

	// 실패한 내보내기 작업
	type FailedJob struct {
		ID         string
		DocumentID string
		Error      *string
	}
	var failed []FailedJob
	if err := db.Raw(`SELECT id, document_id, error FROM export_jobs WHERE status = 'FAILED' ORDER BY created_at DESC LIMIT 20`).Scan(&failed).Error; err != nil {
		log.Fatal("Failed to query export jobs:", err)
	}
	fmt.Printf("❌ Failed export jobs (latest %d):\n", len(failed))
	for _, j := range failed {
		msg := ""
		if j.Error != nil {
			msg = *j.Error
		}
		fmt.Printf("  - %s (doc %s): %s\n", j.ID, j.DocumentID, msg)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
