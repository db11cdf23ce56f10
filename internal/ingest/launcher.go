package ingest

import (
	"context"

	"go-actuarylist-ingest/internal/browser"
	"go-actuarylist-ingest/internal/config"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// Launcher starts the rendering session for one run.
type Launcher func(ctx context.Context, cfg *config.Config) (browser.Session, error)

// NewLauncher picks Chromium or the static renderer from cfg.Renderer. A cookies file that cannot
// be read is logged and ignored.
func NewLauncher(logger *zap.Logger) Launcher {
	return func(ctx context.Context, cfg *config.Config) (browser.Session, error) {
		if cfg.Renderer == config.RendererStatic {
			logger.Info("using static renderer")
			return browser.NewStaticSession(cfg.UserAgent, cfg.PaceDelay), nil
		}

		var cookies []playwright.OptionalCookie
		if cfg.CookiesPath != "" {
			loaded, err := browser.LoadCookies(cfg.CookiesPath)
			if err != nil {
				logger.Warn("could not load cookies, continuing without", zap.String("path", cfg.CookiesPath), zap.Error(err))
			} else {
				logger.Info("loaded cookies", zap.Int("count", len(loaded)))
				cookies = loaded
			}
		}

		logger.Info("launching chromium", zap.Bool("headless", cfg.Headless))
		pm, err := browser.NewPlaywright(ctx, browser.PlaywrightOptions{
			Headless:  cfg.Headless,
			UserAgent: cfg.UserAgent,
			Cookies:   cookies,
		})
		if err != nil {
			return nil, err
		}
		return pm, nil
	}
}
