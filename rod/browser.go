package rod

import (
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultRecycleAfter is the number of rendered pages after which the
// browser process is replaced. Chrome's memory baseline grows over a long
// crawl even when every page is closed.
const DefaultRecycleAfter = 75

// browser owns a headless Chrome process and replaces it once it has served
// recycleAfter pages and no page is open. It is safe for concurrent use.
type browser struct {
	mu           sync.Mutex
	browser      *rod.Browser
	launcher     *launcher.Launcher
	served       int
	open         int
	recycleAfter int
	closed       bool
}

func newBrowser(recycleAfter int) (*browser, error) {
	b := &browser{recycleAfter: recycleAfter}
	if err := b.launch(); err != nil {
		return nil, err
	}
	return b, nil
}

// page opens a blank tab. The returned release func must be called once the
// tab is closed.
func (b *browser) page() (*rod.Page, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, nil, fmt.Errorf("browser is closed")
	}
	if b.recycleAfter > 0 && b.served >= b.recycleAfter && b.open == 0 {
		b.recycle()
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, nil, fmt.Errorf("opening page: %w", err)
	}
	b.served++
	b.open++

	var once sync.Once
	release := func() {
		once.Do(func() {
			b.mu.Lock()
			b.open--
			b.mu.Unlock()
		})
	}
	return page, release, nil
}

// pid returns the launcher process ID, or 0 once closed.
func (b *browser) pid() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.launcher == nil {
		return 0
	}
	return b.launcher.PID()
}

func (b *browser) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.shutdown()
}

func (b *browser) launch() error {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Leakless(true).
		Headless(true)

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	rb := rod.New().ControlURL(u)
	if err := rb.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connecting to browser: %w", err)
	}

	b.browser = rb
	b.launcher = l
	return nil
}

// shutdown must be called with mu held.
func (b *browser) shutdown() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher = nil
	}
	return err
}

// recycle keeps the old process when a replacement cannot be launched.
// Must be called with mu held.
func (b *browser) recycle() {
	oldBrowser, oldLauncher := b.browser, b.launcher
	if err := b.launch(); err != nil {
		b.browser, b.launcher = oldBrowser, oldLauncher
		return
	}
	_ = oldBrowser.Close()
	oldLauncher.Kill()
	b.served = 0
}
