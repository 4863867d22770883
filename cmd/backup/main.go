package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"dictation/internal/config"
	"dictation/internal/kvstore"
	"dictation/internal/repository"
	"dictation/internal/service"
)

func main() {
	// Define subcommands
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	resetCmd := flag.NewFlagSet("reset", flag.ExitOnError)

	// Export flags
	exportOutput := exportCmd.String("output", "", "Output file path (default: records_YYYYMMDD_HHMMSS.json)")

	// Import flags
	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Replace all existing records instead of merging (WARNING: destructive)")

	// Reset flags
	resetYes := resetCmd.Bool("yes", false, "Skip the confirmation prompt")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg := config.Load()

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		log.Fatalf("Failed to load sources: %v", err)
	}

	ctx := context.Background()

	store, closeStore, err := kvstore.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	// Create backup service
	backupService := service.NewBackupService(
		repository.NewRecordRepository(store, sources),
		repository.NewSelectionRepository(store),
		cfg.StoreBackend,
	)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, backupService, *importInput, *importClear)

	case "reset":
		resetCmd.Parse(os.Args[2:])
		handleReset(ctx, backupService, *resetYes)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string) {
	// Generate default filename if not provided
	if outputPath == "" {
		timestamp := time.Now().Format("20060102_150405")
		outputPath = fmt.Sprintf("records_%s.json", timestamp)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	log.Printf("Exporting records to: %s", outputPath)
	if err := backupService.Export(ctx, outputPath); err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	fileInfo, err := os.Stat(outputPath)
	if err == nil {
		log.Printf("Export complete! File size: %.2f KB", float64(fileInfo.Size())/1024)
	}
}

func handleImport(ctx context.Context, backupService *service.BackupService, inputPath string, clearData bool) {
	// Check if file exists
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatalf("Input file does not exist: %s", inputPath)
	}

	if clearData && !confirm("WARNING: This will replace all existing records. Type 'yes' to confirm: ") {
		log.Println("Import cancelled")
		return
	}

	log.Printf("Importing records from: %s", inputPath)
	if err := backupService.Import(ctx, inputPath, !clearData); err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Println("Import complete!")
}

func handleReset(ctx context.Context, backupService *service.BackupService, skipPrompt bool) {
	if !skipPrompt && !confirm("WARNING: This will delete every child's records. Type 'yes' to confirm: ") {
		log.Println("Reset cancelled")
		return
	}

	if err := backupService.Reset(ctx); err != nil {
		log.Fatalf("Reset failed: %v", err)
	}

	log.Println("All records deleted")
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	var confirmation string
	fmt.Scanln(&confirmation)
	return confirmation == "yes"
}

func printUsage() {
	fmt.Println("Dictation Record Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export records to JSON file")
	fmt.Println("  backup import [options]    Import records from JSON file")
	fmt.Println("  backup reset [options]     Delete all records")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: records_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Replace all records instead of merging (WARNING: destructive)")
	fmt.Println()
	fmt.Println("Reset Options:")
	fmt.Println("  -yes              Skip the confirmation prompt")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  STORE_BACKEND    Record store: sql, redis, or memory (default: sql)")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./dictation.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
	fmt.Println("  REDIS_URL        Redis URL (default: redis://localhost:6379/0)")
}
