// File: internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/okazakidev/adjutant/internal/config"
)

// ErrUnavailable signals that the managed browser session is not running, so
// screen capture and text injection cannot be served.
var ErrUnavailable = errors.New("browser session unavailable")

// Session is the managed headless-browser instance that acts as the
// assistant's screen. It backs three collaborators: Open navigates the
// session, Capture screenshots the current page for vision analysis, and
// Type injects text into the active element.
type Session struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	mu          sync.Mutex
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	started     bool
}

// NewSession creates an unstarted session.
func NewSession(cfg config.BrowserConfig, logger *zap.Logger) *Session {
	return &Session{
		cfg:    cfg,
		logger: logger.Named("browser"),
	}
}

// Start launches the browser process and verifies it is responsive with a
// blank-page navigation probe.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
	)
	for _, arg := range s.cfg.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	probeCtx, cancelProbe := context.WithTimeout(tabCtx, 30*time.Second)
	defer cancelProbe()
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		tabCancel()
		allocCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	s.allocCancel = allocCancel
	s.tabCtx = tabCtx
	s.tabCancel = tabCancel
	s.started = true
	s.logger.Info("Browser session launched and responsive")
	return nil
}

// Close tears the session down. Safe to call on an unstarted session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.tabCancel()
	s.allocCancel()
	s.started = false
	s.logger.Info("Browser session closed")
}

// Live reports whether the session is running.
func (s *Session) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Session) tab() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrUnavailable
	}
	return s.tabCtx, nil
}

// Open navigates the session tab to the given URL.
func (s *Session) Open(ctx context.Context, url string) error {
	tab, err := s.tab()
	if err != nil {
		return err
	}
	if err := chromedp.Run(tab, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %q failed: %w", url, err)
	}
	s.logger.Debug("Navigated session", zap.String("url", url))
	return nil
}

// Capture screenshots the current page as JPEG. Quality 70 balances vision
// tokens against clarity.
func (s *Session) Capture(ctx context.Context) ([]byte, error) {
	tab, err := s.tab()
	if err != nil {
		return nil, err
	}

	var buf []byte
	shot := chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatJpeg).
			WithQuality(70).
			Do(ctx)
		return err
	})
	if err := chromedp.Run(tab, shot); err != nil {
		return nil, fmt.Errorf("screen capture failed: %w", err)
	}
	return buf, nil
}

// Type sends the literal text to the currently focused element.
func (s *Session) Type(ctx context.Context, text string) error {
	tab, err := s.tab()
	if err != nil {
		return err
	}
	action := chromedp.SendKeys("document.activeElement", text, chromedp.ByJSPath)
	if err := chromedp.Run(tab, action); err != nil {
		return fmt.Errorf("text injection failed: %w", err)
	}
	return nil
}
