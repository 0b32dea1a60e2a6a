package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"go-photo-culler/internal/analyzer"
	"go-photo-culler/internal/config"
	"go-photo-culler/internal/observer"
	"go-photo-culler/internal/orchestrator"
	"go-photo-culler/internal/storage"
	"go-photo-culler/internal/store"
	"go-photo-culler/pkg/classify"
	"go-photo-culler/pkg/models"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// progressPrinter writes a one-line progress update per settled chunk.
type progressPrinter struct{}

func (p *progressPrinter) OnEvent(ctx context.Context, event observer.BatchEvent) {
	if event.EventType != observer.ChunkSettled || event.Progress == nil {
		return
	}
	fmt.Printf("\rprocessed %d/%d (%d%%)",
		event.Progress.Processed, event.Progress.Total, event.Progress.Percentage)
}

func (p *progressPrinter) GetObserverName() string { return "progress_printer" }

func main() {
	dir := flag.String("dir", ".", "directory of images to cull")
	name := flag.String("name", "", "batch name (defaults to the directory name)")
	dbPath := flag.String("db", "culler.db", "path to the results database")
	threshold := flag.Float64("threshold", 0, "duplicate similarity threshold override")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	if err := run(*dir, *name, *dbPath, *threshold, log); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(dir, name, dbPath string, threshold float64, log *logrus.Logger) error {
	files, err := collectImages(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", dir)
	}
	if name == "" {
		name = filepath.Base(absOrSelf(dir))
	}

	tunables := config.DefaultTunables()
	if threshold > 0 {
		tunables.SimilarityThreshold = threshold
	}

	records, err := store.OpenSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer records.Close()

	publisher := observer.NewEventPublisher()
	publisher.Subscribe(&progressPrinter{})

	orch := orchestrator.New(orchestrator.Options{
		Source: storage.NewFileSource(tunables.MaxAnalysisDim),
		Extractor: analyzer.NewExtractor(analyzer.Options{
			SharpnessDivisor: tunables.SharpnessDivisor,
			ContrastDivisor:  tunables.ContrastDivisor,
		}),
		Classifier:          classify.NewClassifier(),
		Records:             records,
		Publisher:           publisher,
		Logger:              log,
		ChunkSize:           tunables.ChunkSize,
		SimilarityThreshold: tunables.SimilarityThreshold,
	})

	fmt.Printf("culling %d images from %s\n", len(files), dir)
	batch, err := orch.StartBatch(context.Background(), name, files)
	if err != nil {
		return err
	}
	fmt.Println()

	printSummary(batch)
	return nil
}

func collectImages(dir string) ([]models.BatchFile, error) {
	var files []models.BatchFile
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, models.BatchFile{
			Ref:  path,
			Name: d.Name(),
			Size: info.Size(),
		})
		return nil
	})
	return files, err
}

func printSummary(run *orchestrator.Run) {
	p := run.Progress()
	fmt.Printf("batch %d %s: %d processed, %d accepted, %d rejected, %d for review",
		run.ID, run.Status(), p.Processed, p.Accepted, p.Rejected, p.Review)
	if p.Errors > 0 {
		fmt.Printf(", %d errors", p.Errors)
	}
	fmt.Println()

	groups := run.Groups()
	if len(groups) == 0 {
		fmt.Println("no duplicate groups found")
		return
	}
	fmt.Printf("%d duplicate group(s):\n", len(groups))
	for i, g := range groups {
		fmt.Printf("  group %d (similarity %.2f%%):\n", i+1, g.Similarity)
		for _, m := range g.Members {
			marker := " "
			if m.ID == g.BestID {
				marker = "*"
			}
			fmt.Printf("   %s %s (score %.0f)\n", marker, m.Filename, m.Score)
		}
	}
}

func absOrSelf(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
