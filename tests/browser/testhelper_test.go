package browser_test

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"portal/internal/adapters/activities"
	"portal/internal/adapters/activities/activitiestest"
	web "portal/internal/adapters/http"
	"portal/internal/domain/message"
	"portal/internal/domain/session"
)

const (
	teacherEmail    = "chen@mergington.edu"
	teacherPassword = "TestPass123!"
	teacherName     = "Mrs. Chen"
)

// testApp holds the running portal, its fake activities API and Playwright handles.
type testApp struct {
	BaseURL string
	API     *activitiestest.Server
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
}

// newTestApp starts a portal with the full middleware stack in front of a fake API.
// Messages hide after hideAfter so tests need not wait the full five seconds.
func newTestApp(t *testing.T, hideAfter time.Duration) *testApp {
	t.Helper()

	api := activitiestest.New(t, activitiestest.DefaultSeed())
	api.AddTeacher(teacherEmail, teacherPassword, session.Teacher{Username: "chen", Name: teacherName})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	portal := web.New(web.Deps{
		API:      activities.New(api.URL, 5*time.Second),
		Messages: message.NewBoard(hideAfter),
		CSRFKey:  []byte("0123456789abcdef0123456789abcdef"),
		TrustedOrigins: []string{
			fmt.Sprintf("127.0.0.1:%d", port),
			fmt.Sprintf("localhost:%d", port),
		},
		RateLimit: 1000,
	})
	srv := &http.Server{Handler: portal}
	go func() {
		if err := srv.Serve(listener); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		portal.Close()
	})

	return &testApp{BaseURL: baseURL, API: api, Server: srv, PW: pw, Browser: browser}
}

// newContext creates an isolated browser profile (its own cookies).
func (a *testApp) newContext(t *testing.T) playwright.BrowserContext {
	t.Helper()
	ctx, err := a.Browser.NewContext()
	if err != nil {
		t.Fatalf("failed to create browser context: %v", err)
	}
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

// newPage opens a tab in bc.
func (a *testApp) newPage(t *testing.T, bc playwright.BrowserContext) playwright.Page {
	t.Helper()
	page, err := bc.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// open loads path and fails the test on error.
func (a *testApp) open(t *testing.T, page playwright.Page, path string) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + path); err != nil {
		t.Fatalf("failed to navigate to %s: %v", path, err)
	}
}

// login opens the overlay and signs in as the seeded teacher.
func (a *testApp) login(t *testing.T, page playwright.Page) {
	t.Helper()
	a.open(t, page, "/")
	if err := page.Locator("#auth-btn").Click(); err != nil {
		t.Fatalf("failed to open login overlay: %v", err)
	}
	if err := page.Locator("#teacher-email").Fill(teacherEmail); err != nil {
		t.Fatalf("failed to fill email: %v", err)
	}
	if err := page.Locator("#teacher-password").Fill(teacherPassword); err != nil {
		t.Fatalf("failed to fill password: %v", err)
	}
	if err := page.Locator("#login-form button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to submit login: %v", err)
	}
	if err := page.WaitForURL(a.BaseURL+"/", playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("login did not redirect home: %v", err)
	}
}

// text returns the inner text of the first element matching selector.
func text(t *testing.T, page playwright.Page, selector string) string {
	t.Helper()
	s, err := page.Locator(selector).First().InnerText()
	if err != nil {
		t.Fatalf("failed to read %s: %v", selector, err)
	}
	return s
}

// count returns how many elements match selector.
func count(t *testing.T, page playwright.Page, selector string) int {
	t.Helper()
	n, err := page.Locator(selector).Count()
	if err != nil {
		t.Fatalf("failed to count %s: %v", selector, err)
	}
	return n
}
