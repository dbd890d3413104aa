package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"wisefido-wearable/internal/classifier"
	"wisefido-wearable/internal/config"
	"wisefido-wearable/internal/models"
	"wisefido-wearable/internal/repository"
	"wisefido-wearable/internal/service"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// 历史库检查工具：打印设备最新读数、最新报警和当前窗口分类，可选导出 XLSX
func main() {
	deviceID := flag.String("device", "", "device id (BLE address)")
	limit := flag.Int("n", 20, "number of rows")
	export := flag.String("export", "", "write an XLSX workbook to this path")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, dialect, err := service.OpenHistoryDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	logger := zap.NewNop()
	store := repository.NewSQLHistoryStore(db, dialect, logger)
	cls := classifier.NewClassifier(store, nil, clockwork.NewRealClock(), classifier.Config{
		Interval:             cfg.Wearable.Classifier.Interval,
		Window:               cfg.Wearable.Classifier.Window,
		RunningStepThreshold: cfg.Wearable.Classifier.RunningStepThreshold,
	}, nil, logger)
	q := service.NewQueryService(store, cls, nil, logger)

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}

	// 1. 最新报警
	printSection("1. Latest alerts")
	alerts, err := q.LatestAlerts(ctx, *limit)
	if err != nil {
		log.Fatalf("Failed to query alerts: %v", err)
	}
	fmt.Printf("%-8s %-20s %-8s %s\n", "id", "timestamp", "status", "message")
	for _, a := range alerts {
		fmt.Printf("%-8d %-20s %-8s %s\n", a.ID, a.Timestamp, a.Status, a.Message)
	}

	if *deviceID == "" {
		return
	}

	// 2. 设备最新读数
	printSection("2. Latest readings for " + *deviceID)
	readings, err := q.LatestReadings(ctx, *deviceID, *limit)
	if err != nil {
		log.Fatalf("Failed to query readings: %v", err)
	}
	fmt.Printf("%-28s %-10s %-6s %-10s %-8s\n", "timestamp", "heart_rate", "spo2", "step_count", "battery")
	for _, r := range readings {
		fmt.Printf("%-28s %-10s %-6s %-10s %-8s\n",
			models.FormatReadingTimestamp(r.Timestamp),
			getInt(r.HeartRate), getInt(r.SpO2), getInt(r.StepCount), getInt(r.BatteryLevel))
	}
	if len(readings) == 0 {
		fmt.Println("⚠️  No readings found for this device")
	}

	// 3. 当前窗口分类
	printSection("3. Classification")
	result, err := q.Classify(ctx, *deviceID)
	if err != nil {
		log.Fatalf("Failed to classify: %v", err)
	}
	fmt.Printf("window=%s samples=%d emotion=%s activity=%s\n",
		result.Window, result.SampleCount, result.Emotion, result.Activity)

	// 4. 导出
	if *export != "" {
		f, err := os.Create(*export)
		if err != nil {
			log.Fatalf("Failed to create %s: %v", *export, err)
		}
		defer f.Close()
		if err := q.ExportHistory(ctx, *deviceID, *limit, f); err != nil {
			log.Fatalf("Failed to export history: %v", err)
		}
		fmt.Printf("\nExported to %s\n", *export)
	}
}

func printSection(title string) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", 80))
}

func getInt(v *int) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%d", *v)
}
