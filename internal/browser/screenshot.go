package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"go.uber.org/zap"
)

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// ScreenshotDebugger saves full-page captures of pages that failed to scrape.
type ScreenshotDebugger struct {
	outputDir string
	logger    *zap.Logger
	now       func() time.Time
}

func NewScreenshotDebugger(outputDir string, logger *zap.Logger) *ScreenshotDebugger {
	if outputDir == "" {
		outputDir = filepath.Join(".", "logs", "screenshots")
	}
	return &ScreenshotDebugger{
		outputDir: outputDir,
		logger:    logger,
		now:       time.Now,
	}
}

// Capture writes <name>_<timestamp>.png and returns its path. Pages that cannot capture
// themselves are skipped without error.
func (s *ScreenshotDebugger) Capture(page Page, name string) (string, error) {
	shooter, ok := page.(Screenshotter)
	if !ok {
		return "", nil
	}
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", fmt.Errorf("creating screenshot dir: %w", err)
	}

	timestamp := s.now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("%s_%s.png", unsafeName.ReplaceAllString(name, "-"), timestamp)
	path := filepath.Join(s.outputDir, filename)

	if err := shooter.Screenshot(path); err != nil {
		s.logger.Warn("failed to capture screenshot", zap.String("name", name), zap.Error(err))
		return "", err
	}
	s.logger.Info("screenshot saved", zap.String("path", path))
	return path, nil
}
