package portal

import (
	"context"
	"fmt"
	"time"

	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/grades"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const (
	report_browser_launch      = "browser.launch"
	report_browser_login       = "browser.login"
	report_browser_fetch_table = "browser.fetch-table"
)

// alertWait is how long a login alert gets to show up after submitting.
const alertWait = time.Second * 3

// BrowserScraper drives a headless chrome for portals that only render the
// grade table with javascript. Every scrape uses a fresh browser.
type BrowserScraper struct {
	cfg     Config
	timeout time.Duration
	debug   debugDumper
	tel     telemetry.API
}

func NewBrowserScraper(cfg Config, clock chrono.TimeAPI, tel telemetry.API) *BrowserScraper {
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.NotEmptyStr(cfg.LoginUrl)
	assert.NotEmptyStr(cfg.GradeUrl)

	tel = telemetry.NewScopedAPI("portal", tel)
	return &BrowserScraper{
		cfg:     cfg,
		timeout: cfg.Timeout(),
		debug: debugDumper{
			dir:  cfg.DebugDir,
			time: clock,
			tel:  tel,
		},
		tel: tel,
	}
}

func (s *BrowserScraper) connect(ctx context.Context) (*rod.Browser, func(), error) {
	controlUrl := s.cfg.Browser.RemoteUrl
	cleanup := func() {}
	if controlUrl == "" {
		l := launcher.New().
			Context(ctx).
			Headless(s.cfg.Browser.headless()).
			Set("no-sandbox").
			Set("disable-dev-shm-usage").
			Set("disable-blink-features", "AutomationControlled").
			Set("window-size", "1920,1080")
		u, err := l.Launch()
		if err != nil {
			return nil, nil, fmt.Errorf("portal: launch browser: %w", err)
		}
		controlUrl = u
		cleanup = l.Cleanup
	}

	browser := rod.New().Context(ctx).ControlURL(controlUrl)
	err := browser.Connect()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("portal: connect browser: %w", err)
	}
	return browser, func() {
		_ = browser.Close()
		cleanup()
	}, nil
}

func (s *BrowserScraper) Scrape(ctx context.Context) (grades.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	browser, closeBrowser, err := s.connect(ctx)
	if err != nil {
		err = classify(ctx, "launch", err)
		s.tel.ReportBroken(report_browser_launch, err)
		return nil, err
	}
	defer closeBrowser()

	page, err := stealth.Page(browser)
	if err != nil {
		err = classify(ctx, "launch", fmt.Errorf("portal: open page: %w", err))
		s.tel.ReportBroken(report_browser_launch, err)
		return nil, err
	}
	page = page.Context(ctx)

	err = s.login(page)
	if err != nil {
		err = classify(ctx, "login", err)
		s.tel.ReportBroken(report_browser_login, err)
		s.debug.dump(err)
		return nil, err
	}

	snapshot, err := s.fetchTable(page)
	if err != nil {
		err = classify(ctx, "grades", err)
		s.tel.ReportBroken(report_browser_fetch_table, err)
		s.debug.dump(err)
		return nil, err
	}

	s.tel.ReportDebug("scraped grade table", len(snapshot))
	return snapshot, nil
}

// watchAlert accepts the next javascript dialog on page and sends its
// message, the portal reports rejected credentials with one.
func watchAlert(page *rod.Page) <-chan string {
	out := make(chan string, 1)
	wait, handle := page.HandleDialog()
	go func() {
		dialog := wait()
		if page.GetContext().Err() != nil {
			return
		}
		_ = handle(&proto.PageHandleJavaScriptDialog{Accept: true})
		out <- dialog.Message
	}()
	return out
}

func (s *BrowserScraper) login(page *rod.Page) error {
	err := page.Navigate(s.cfg.LoginUrl)
	if err != nil {
		return fmt.Errorf("portal: open login page: %w", err)
	}
	err = page.WaitLoad()
	if err != nil {
		return fmt.Errorf("portal: open login page: %w", err)
	}

	usernameInput, err := page.Element(usernameInputSelector)
	if err != nil {
		return s.structureFailure(page, "login", "username input not found", err)
	}
	err = usernameInput.Input(s.cfg.Username)
	if err != nil {
		return fmt.Errorf("portal: type username: %w", err)
	}
	passwordInput, err := page.Element(passwordInputSelector)
	if err != nil {
		return s.structureFailure(page, "login", "password input not found", err)
	}
	err = passwordInput.Input(s.cfg.Password)
	if err != nil {
		return fmt.Errorf("portal: type password: %w", err)
	}
	button, err := page.Element(loginButtonSelector)
	if err != nil {
		return s.structureFailure(page, "login", "login button not found", err)
	}

	alerts := watchAlert(page)
	err = button.Click(proto.InputMouseButtonLeft, 1)
	if err != nil {
		return fmt.Errorf("portal: submit login form: %w", err)
	}

	select {
	case message := <-alerts:
		return &AuthFailure{Message: message}
	case <-time.After(alertWait):
	case <-page.GetContext().Done():
		return page.GetContext().Err()
	}

	err = page.WaitLoad()
	if err != nil {
		return fmt.Errorf("portal: wait for login redirect: %w", err)
	}
	return nil
}

func (s *BrowserScraper) fetchTable(page *rod.Page) (grades.Snapshot, error) {
	err := page.Navigate(s.cfg.GradeUrl)
	if err != nil {
		return nil, fmt.Errorf("portal: open grade page: %w", err)
	}

	_, err = page.Element(GradeTableSelector)
	if err != nil {
		return nil, s.structureFailure(page, "grades", "grade table did not show up", err)
	}
	// let the table finish rendering
	err = page.WaitStable(time.Second)
	if err != nil {
		return nil, fmt.Errorf("portal: wait for grade table: %w", err)
	}

	source, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("portal: read grade page: %w", err)
	}
	return ParseGradeTable([]byte(source))
}

// structureFailure keeps whatever source the page has so it can be dumped.
func (s *BrowserScraper) structureFailure(page *rod.Page, name, reason string, cause error) error {
	var source []byte
	html, err := page.Context(context.Background()).Timeout(time.Second * 5).HTML()
	if err == nil {
		source = []byte(html)
	}
	return &PageStructureFailure{
		Page:   name,
		Reason: fmt.Sprintf("%s: %s", reason, cause.Error()),
		Source: source,
	}
}
