//go:build integration

package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/HUI135/gc-endoscopy-room-sub001/internal/model"
	"github.com/HUI135/gc-endoscopy-room-sub001/internal/repository"
	"github.com/HUI135/gc-endoscopy-room-sub001/pkg/database"
	pkgerrors "github.com/HUI135/gc-endoscopy-room-sub001/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup（PostgreSQL，走 SQL 迁移文件）
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=roster password=roster_password dbname=roster_test sslmode=disable TimeZone=Asia/Seoul"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	var sqlDB *sql.DB
	sqlDB, err = testDB.DB()
	if err == nil {
		err = database.RunMigrations(sqlDB, zap.NewNop())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// testMonth 每个测试使用独立月份，避免互相干扰
func testMonth(t *testing.T) string {
	t.Helper()
	n := time.Now().UnixNano()
	return fmt.Sprintf("%04d-%02d", 3000+int(n%900), 1+int(n/1000%12))
}

func cleanupMonth(month string) {
	testDB.Where("month = ?", month).Delete(&model.DayAssignment{})
	testDB.Where("month = ?", month).Delete(&model.SlotAssignment{})
	testDB.Where("period = ?", month).Delete(&model.FairnessCounter{})
}

// ═══════════════════════════════════════════════════════════
// Test: ReplaceMonth 事务
// ═══════════════════════════════════════════════════════════

func TestPG_ReplaceMonth_RollbackOnConflict(t *testing.T) {
	month := testMonth(t)
	defer cleanupMonth(month)

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	date := month + "-01"
	if err := repo.Slot.ReplaceMonth(ctx, month, []model.SlotAssignment{
		{Month: month, Date: date, SlotID: "08:30(1)_duty", Person: "Kim"},
	}); err != nil {
		t.Fatalf("首次写入失败: %v", err)
	}

	err := repo.Slot.ReplaceMonth(ctx, month, []model.SlotAssignment{
		{Month: month, Date: date, SlotID: "09:00(10)", Person: "Lee"},
		{Month: month, Date: date, SlotID: "09:00(10)", Person: "Park"},
	})
	if err == nil {
		t.Fatal("重复 (date, slot_id) 应失败")
	}

	rows, _ := repo.Slot.ListByMonth(ctx, month)
	if len(rows) != 1 || rows[0].Person != "Kim" {
		t.Errorf("失败的替换应整体回滚，实际 %+v", rows)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Optimistic Lock
// ═══════════════════════════════════════════════════════════

func TestPG_Fairness_OptimisticLock(t *testing.T) {
	month := testMonth(t)
	defer cleanupMonth(month)

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	if err := repo.Fairness.SavePeriod(ctx, month, []model.FairnessCounter{{Person: "Kim", Morning: 1}}); err != nil {
		t.Fatalf("首次保存失败: %v", err)
	}
	rows, _ := repo.Fairness.ListByPeriod(ctx, month)
	if len(rows) != 1 {
		t.Fatalf("期望 1 条，实际 %d", len(rows))
	}

	copy1 := []model.FairnessCounter{rows[0]}
	copy2 := []model.FairnessCounter{rows[0]}
	copy1[0].Morning = 2
	copy2[0].Morning = 3

	if err := repo.Fairness.SavePeriod(ctx, month, copy1); err != nil {
		t.Fatalf("第一次更新失败: %v", err)
	}
	if err := repo.Fairness.SavePeriod(ctx, month, copy2); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}
