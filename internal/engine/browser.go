package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ErrChromeNotFound 本机没有可用的 Chrome/Chromium
var ErrChromeNotFound = errors.New("chrome/chromium not found, please install Chrome browser")

// BrowserManager 共享的无头浏览器，首次使用时启动，所有浏览器引擎共用
type BrowserManager struct {
	mu          sync.Mutex
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancelFunc  context.CancelFunc
	initialized bool
	proxyURL    string
	headless    bool
	execPath    string
	logger      *logrus.Logger
}

// NewBrowserManager 创建浏览器管理器，不会立即启动浏览器
func NewBrowserManager(proxyURL string, headless bool, logger *logrus.Logger) *BrowserManager {
	if logger == nil {
		logger = discardLogger()
	}
	return &BrowserManager{proxyURL: proxyURL, headless: headless, logger: logger}
}

// findChromePath 查找 Chrome 可执行文件路径
func findChromePath() string {
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}

	var paths []string
	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "linux":
		paths = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}
	case "windows":
		paths = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			os.Getenv("LOCALAPPDATA") + `\Google\Chrome\Application\chrome.exe`,
		}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// start 启动浏览器，调用方持有 bm.mu
func (bm *BrowserManager) start() error {
	if bm.initialized {
		return nil
	}

	chromePath := findChromePath()
	if chromePath == "" {
		return ErrChromeNotFound
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.Flag("headless", bm.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),

		// 模拟真实浏览器
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("lang", "zh-CN,en-US"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(desktopUA),
	)
	if bm.proxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(bm.proxyURL))
		bm.logger.Infof("🌐 Browser using proxy: %s", bm.proxyURL)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(bm.logger.Debugf))

	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	bm.allocCancel, bm.browserCtx, bm.cancelFunc = allocCancel, browserCtx, cancel
	bm.execPath = chromePath
	bm.initialized = true
	bm.logger.Infof("✅ Browser initialized (headless=%v, path=%s)", bm.headless, chromePath)
	return nil
}

// NewTab 打开新的标签页，标签页随 ctx 结束而关闭
func (bm *BrowserManager) NewTab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if err := bm.start(); err != nil {
		return nil, nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(bm.browserCtx)
	stop := context.AfterFunc(ctx, tabCancel)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		return tabCtx, func() {
			stop()
			cancelDeadline()
			tabCancel()
		}, nil
	}
	return tabCtx, func() {
		stop()
		tabCancel()
	}, nil
}

// Close 关闭浏览器
func (bm *BrowserManager) Close() {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if !bm.initialized {
		return
	}
	bm.cancelFunc()
	bm.allocCancel()
	bm.initialized = false
	bm.logger.Infof("🔴 Browser closed")
}

// IsInitialized 检查是否已启动
func (bm *BrowserManager) IsInitialized() bool {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.initialized
}
