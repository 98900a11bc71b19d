package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/grades"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_http_login       = "http.login"
	report_http_fetch_table = "http.fetch-table"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// HTTPScraper logs in by posting the login form and reads the grade table
// from the server rendered grade page. Every scrape uses a fresh cookie jar.
type HTTPScraper struct {
	loginUrl *url.URL
	gradeUrl string
	username string
	password string
	timeout  time.Duration
	limiter  *rate.Limiter
	debug    debugDumper
	tel      telemetry.API
}

func NewHTTPScraper(cfg Config, clock chrono.TimeAPI, tel telemetry.API) (*HTTPScraper, error) {
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.NotEmptyStr(cfg.LoginUrl)
	assert.NotEmptyStr(cfg.GradeUrl)

	tel = telemetry.NewScopedAPI("portal", tel)

	loginUrl, err := url.Parse(cfg.LoginUrl)
	if err != nil {
		return nil, err
	}

	return &HTTPScraper{
		loginUrl: loginUrl,
		gradeUrl: cfg.GradeUrl,
		username: cfg.Username,
		password: cfg.Password,
		timeout:  cfg.Timeout(),
		// 2 requests max per second
		// max burst >= 2 just means that no requests will be dropped
		limiter: rate.NewLimiter(2, 2),
		debug: debugDumper{
			dir:  cfg.DebugDir,
			time: clock,
			tel:  tel,
		},
		tel: tel,
	}, nil
}

func (s *HTTPScraper) newSession() (*resty.Client, error) {
	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return s.limiter.Wait(req.Context())
	})
	telemetry.InstrumentResty(httpClient, s.tel)

	return httpClient, nil
}

func (s *HTTPScraper) Scrape(ctx context.Context) (grades.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session, err := s.newSession()
	if err != nil {
		s.tel.ReportBroken(report_http_login, err)
		return nil, classify(ctx, "login", err)
	}

	err = s.login(ctx, session)
	if err != nil {
		err = classify(ctx, "login", err)
		s.tel.ReportBroken(report_http_login, err)
		s.debug.dump(err)
		return nil, err
	}

	snapshot, err := s.fetchTable(ctx, session)
	if err != nil {
		err = classify(ctx, "grades", err)
		s.tel.ReportBroken(report_http_fetch_table, err)
		s.debug.dump(err)
		return nil, err
	}

	s.tel.ReportDebug("scraped grade table", len(snapshot))
	return snapshot, nil
}

func (s *HTTPScraper) login(ctx context.Context, session *resty.Client) error {
	res, err := session.R().
		SetContext(ctx).
		Get(s.loginUrl.String())
	if err != nil {
		return fmt.Errorf("portal: get login page: %w", err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("portal: get login page: %s", res.Status())
	}

	pageUrl := s.loginUrl
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		pageUrl = res.RawResponse.Request.URL
	}
	form, err := ParseLoginForm(res.Body(), pageUrl)
	if err != nil {
		return err
	}

	res, err = session.R().
		SetContext(ctx).
		SetHeader("referer", pageUrl.String()).
		SetFormDataFromValues(form.Values(s.username, s.password)).
		Post(form.Action)
	if err != nil {
		return fmt.Errorf("portal: submit login form: %w", err)
	}
	if res.StatusCode() == http.StatusUnauthorized || res.StatusCode() == http.StatusForbidden {
		return &AuthFailure{Message: res.Status()}
	}
	if !res.IsSuccess() {
		return fmt.Errorf("portal: submit login form: %s", res.Status())
	}

	return CheckLoginResponse(res.Body())
}

func (s *HTTPScraper) fetchTable(ctx context.Context, session *resty.Client) (grades.Snapshot, error) {
	res, err := session.R().
		SetContext(ctx).
		Get(s.gradeUrl)
	if err != nil {
		return nil, fmt.Errorf("portal: get grade page: %w", err)
	}
	if !res.IsSuccess() {
		return nil, &PageStructureFailure{
			Page:   "grades",
			Reason: fmt.Sprintf("grade page answered %s", res.Status()),
			Source: res.Body(),
		}
	}

	doc, err := parseDocument("grades", res.Body())
	if err != nil {
		return nil, err
	}
	if doc.Find(GradeTableSelector).Length() == 0 && hasLoginForm(doc) {
		return nil, &AuthFailure{Message: "session was not kept, grade page asked to log in again"}
	}

	return ParseGradeTable(res.Body())
}
