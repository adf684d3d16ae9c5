package imagegen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/sandevgo/muse/pkg/log"
)

// Element ids of the stock Fooocus Gradio UI.
const (
	promptSelector   = "#positive_prompt textarea"
	generateSelector = "#generate_button"
)

type BrowserConfig struct {
	URL       string
	OutputDir string
	Headless  bool
	Bin       string
}

// BrowserDriver renders by typing the prompt into the Fooocus web UI and
// waiting for the resulting file to land in the output directory. The browser
// is launched on first use and reused for later jobs.
type BrowserDriver struct {
	cfg BrowserConfig

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func NewBrowserDriver(cfg BrowserConfig) *BrowserDriver {
	return &BrowserDriver{cfg: cfg}
}

func (d *BrowserDriver) Generate(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	logger := log.FromCtx(ctx)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	browser, err := d.connect(ctx)
	if err != nil {
		return "", err
	}

	watcher, err := newOutputWatcher(d.cfg.OutputDir)
	if err != nil {
		return "", err
	}
	defer watcher.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: d.cfg.URL})
	if err != nil {
		return "", fmt.Errorf("open fooocus: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logger.Debug().Err(cerr).Msg("failed to close fooocus page")
		}
	}()

	if err := d.submit(page.Context(ctx), prompt); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", nil
		}
		return "", err
	}
	logger.Debug().Str("prompt", prompt).Msg("fooocus prompt submitted")

	return watcher.Next(ctx)
}

func (d *BrowserDriver) submit(page *rod.Page, prompt string) error {
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}

	input, err := page.Element(promptSelector)
	if err != nil {
		return fmt.Errorf("find prompt box: %w", err)
	}
	if err := input.SelectAllText(); err != nil {
		return fmt.Errorf("select prompt text: %w", err)
	}
	if err := input.Input(prompt); err != nil {
		return fmt.Errorf("type prompt: %w", err)
	}

	button, err := page.Element(generateSelector)
	if err != nil {
		return fmt.Errorf("find generate button: %w", err)
	}
	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click generate: %w", err)
	}
	return nil
}

func (d *BrowserDriver) connect(ctx context.Context) (*rod.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browser != nil {
		return d.browser, nil
	}

	l := launcher.New().Headless(d.cfg.Headless)
	if d.cfg.Bin != "" {
		l = l.Bin(d.cfg.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	// The browser outlives this job, so it must not inherit the job deadline.
	browser := rod.New().ControlURL(controlURL).Context(context.WithoutCancel(ctx))
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	log.FromCtx(ctx).Info().Bool("headless", d.cfg.Headless).Msg("browser connected")
	d.launcher = l
	d.browser = browser
	return browser, nil
}

func (d *BrowserDriver) Start(ctx context.Context) error {
	return nil
}

func (d *BrowserDriver) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if d.browser != nil {
		err = d.browser.Close()
		d.browser = nil
	}
	if d.launcher != nil {
		d.launcher.Kill()
		d.launcher = nil
	}
	return err
}
