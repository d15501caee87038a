package web

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"portal/internal/adapters/activities"
	"portal/internal/adapters/activities/activitiestest"
	"portal/internal/adapters/http/middleware"
	"portal/internal/application/orchestrators"
	"portal/internal/domain/message"
	"portal/internal/domain/session"
)

var mrsChen = session.Teacher{Username: "chen", Name: "Mrs. Chen"}

// harness runs the portal routes behind the session and client middleware,
// without CSRF, against a fake activities API.
type harness struct {
	t      *testing.T
	api    *activitiestest.Server
	portal *Portal
	server *httptest.Server
	client *http.Client

	mu  sync.Mutex
	now time.Time
}

// heldTimer never fires; banners hide only when the test says so.
type heldTimer struct{}

// Stop implements message.Timer.
func (heldTimer) Stop() bool { return true }

func holdTimers(time.Duration, func()) message.Timer { return heldTimer{} }

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

// advance moves the banner clock forward.
func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

func newHarness(t *testing.T, seed map[string]activitiestest.Activity) *harness {
	t.Helper()
	api := activitiestest.New(t, seed)
	api.AddTeacher("chen@mergington.edu", "secret", mrsChen)

	h := &harness{t: t, api: api, client: newClient(t), now: time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)}
	h.portal = New(Deps{
		API:      activities.New(api.URL, 2*time.Second),
		Messages: message.NewBoardWithClock(message.DefaultHideAfter, holdTimers, h.clock),
		CSRFKey:  make([]byte, 32),
	})
	t.Cleanup(h.portal.Close)

	handler := middleware.Chain(h.portal.routes(),
		middleware.Auth(h.portal.sessions, h.portal.verify),
		middleware.ClientID,
	)
	h.server = httptest.NewServer(handler)
	t.Cleanup(h.server.Close)
	return h
}

// newClient keeps cookies and does not follow redirects.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (h *harness) get(path string) (int, string) {
	h.t.Helper()
	resp, err := h.client.Get(h.server.URL + path)
	if err != nil {
		h.t.Fatalf("GET %s: %v", path, err)
	}
	return readBody(h.t, resp)
}

func (h *harness) post(path string, form url.Values) (int, string) {
	h.t.Helper()
	resp, err := h.client.PostForm(h.server.URL+path, form)
	if err != nil {
		h.t.Fatalf("POST %s: %v", path, err)
	}
	return readBody(h.t, resp)
}

func (h *harness) login() {
	h.t.Helper()
	status, _ := h.post("/login", url.Values{"email": {"chen@mergington.edu"}, "password": {"secret"}})
	if status != http.StatusSeeOther {
		h.t.Fatalf("login status = %d, want 303", status)
	}
}

func (h *harness) tokenCookie() *http.Cookie {
	u, _ := url.Parse(h.server.URL)
	for _, c := range h.client.Jar.Cookies(u) {
		if c.Name == middleware.TokenCookieName {
			return c
		}
	}
	return nil
}

func readBody(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(b)
}

func TestIndex_AnonymousRendersCatalog(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())

	status, body := h.get("/")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if n := strings.Count(body, `class="activity-card"`); n != 3 {
		t.Errorf("cards = %d, want 3", n)
	}
	// Placeholder option plus one per activity.
	if n := strings.Count(body, "<option value="); n != 4 {
		t.Errorf("options = %d, want 4", n)
	}
	for _, want := range []string{
		"10 spots left", // Chess Club: 12 - 2
		"19 spots left", // Programming Class: 20 - 1
		"8 spots left",  // Art Studio: empty
		"No participants yet",
		"michael@mergington.edu",
		"<em>mixed media</em>",
		`<span id="auth-text">Login</span>`,
		`<section id="signup-container" class="hidden">`,
		`<section id="student-info">`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "delete-btn") {
		t.Error("anonymous page must not show delete buttons")
	}
}

func TestIndex_CardsSortedByName(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())

	_, body := h.get("/")
	art := strings.Index(body, "<h4>Art Studio</h4>")
	chess := strings.Index(body, "<h4>Chess Club</h4>")
	prog := strings.Index(body, "<h4>Programming Class</h4>")
	if art < 0 || !(art < chess && chess < prog) {
		t.Errorf("card order: art=%d chess=%d programming=%d, want ascending", art, chess, prog)
	}
}

func TestIndex_LoadFailure(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())
	h.api.FailNext("/activities", http.StatusInternalServerError)

	status, body := h.get("/")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if !strings.Contains(body, "Failed to load activities. Please try again later.") {
		t.Error("missing load failure text")
	}
	if strings.Contains(body, `class="activity-card"`) {
		t.Error("no cards expected after a failed load")
	}
}

func TestIndex_EscapesServerText(t *testing.T) {
	h := newHarness(t, map[string]activitiestest.Activity{
		"<script>alert(1)</script>": {
			Description:     "<img src=x onerror=alert(2)>",
			Schedule:        "<b>Mondays</b>",
			MaxParticipants: 5,
			Participants:    []string{"<i>sly</i>@mergington.edu"},
		},
	})

	_, body := h.get("/")
	for _, raw := range []string{"<script>alert(1)</script>", "<img src=x", "<b>Mondays</b>", "<i>sly</i>"} {
		if strings.Contains(body, raw) {
			t.Errorf("body contains unescaped %q", raw)
		}
	}
	if !strings.Contains(body, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Error("expected escaped activity name")
	}
}

func TestLoginPage_OpensOverlay(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())

	_, body := h.get("/login")
	if !strings.Contains(body, `<div id="login-modal" class="modal">`) {
		t.Error("login overlay should be visible on /login")
	}

	_, body = h.get("/")
	if !strings.Contains(body, `<div id="login-modal" class="modal hidden">`) {
		t.Error("login overlay should be hidden on /")
	}
}

func TestLogin_SuccessPersistsTokenAndShowsBanner(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())
	h.login()

	c := h.tokenCookie()
	if c == nil || c.Value != "token-1" {
		t.Fatalf("token cookie = %v, want token-1", c)
	}

	_, body := h.get("/")
	for _, want := range []string{
		"Mrs. Chen | Logout",
		"Successfully logged in!",
		`data-hide-after="5000"`,
		`<section id="signup-container">`,
		`<section id="student-info" class="hidden">`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	// One delete button per participant across all cards.
	if n := strings.Count(body, `class="delete-btn"`); n != 3 {
		t.Errorf("delete buttons = %d, want 3", n)
	}
	// Login already verified the token; no extra verify round trip.
	if n := h.api.Calls("GET /auth/verify"); n != 0 {
		t.Errorf("verify calls = %d, want 0", n)
	}
}

func TestLogin_RejectedShowsServerDetailInline(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())

	status, body := h.post("/login", url.Values{"email": {"chen@mergington.edu"}, "password": {"wrong"}})
	if status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", status)
	}
	if !strings.Contains(body, `<div id="login-message" class="error">Invalid email or password</div>`) {
		t.Error("missing inline server detail")
	}
	if !strings.Contains(body, `value="chen@mergington.edu"`) {
		t.Error("email should be kept in the login form")
	}
	if h.tokenCookie() != nil {
		t.Error("no token cookie expected after failed login")
	}
}

func TestLogin_ErrorWithoutDetailFallsBack(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())
	h.api.FailNext("/login", http.StatusInternalServerError)

	status, body := h.post("/login", url.Values{"email": {"chen@mergington.edu"}, "password": {"secret"}})
	if status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", status)
	}
	if !strings.Contains(body, ">"+orchestrators.TextLoginFailed+"</div>") {
		t.Error("missing fallback login text")
	}
}

func TestLogin_InvalidInputNeverCallsAPI(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())

	status, _ := h.post("/login", url.Values{"email": {"not-an-email"}, "password": {""}})
	if status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", status)
	}
	if n := h.api.Calls("POST /login"); n != 0 {
		t.Errorf("login calls = %d, want 0", n)
	}
}

func TestRestoreSession_VerifiesStoredTokenOnce(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())
	h.api.IssueToken("saved-token", mrsChen)
	u, _ := url.Parse(h.server.URL)
	h.client.Jar.SetCookies(u, []*http.Cookie{{Name: middleware.TokenCookieName, Value: "saved-token", Path: "/"}})

	for i := 0; i < 2; i++ {
		_, body := h.get("/")
		if !strings.Contains(body, "Mrs. Chen | Logout") {
			t.Fatalf("request %d: expected restored teacher session", i)
		}
	}
	if n := h.api.Calls("GET /auth/verify"); n != 1 {
		t.Errorf("verify calls = %d, want 1", n)
	}
}

func TestRestoreSession_RejectedTokenIsDiscarded(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())
	u, _ := url.Parse(h.server.URL)
	h.client.Jar.SetCookies(u, []*http.Cookie{{Name: middleware.TokenCookieName, Value: "stale", Path: "/"}})

	_, body := h.get("/")
	if !strings.Contains(body, `<span id="auth-text">Login</span>`) {
		t.Error("expected anonymous page")
	}
	if strings.Contains(body, "role=\"alert\"") || strings.Contains(body, `class="error"`) {
		t.Error("a discarded token must not surface any message")
	}
	if h.tokenCookie() != nil {
		t.Error("stale token cookie should be cleared")
	}
}

func TestSignup_RequiresTeacher(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())

	status, body := h.post("/signup", url.Values{"activity": {"Chess Club"}, "email": {"new@mergington.edu"}})
	if status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", status)
	}
	if !strings.Contains(body, `role="alert">`+orchestrators.AlertSignupRequiresTeacher+"</div>") {
		t.Error("missing blocking alert")
	}
	if n := h.api.Calls("POST /activities/Chess Club/signup"); n != 0 {
		t.Errorf("signup calls = %d, want 0", n)
	}
	if got := h.api.Participants("Chess Club"); len(got) != 2 {
		t.Errorf("participants = %v, want unchanged", got)
	}
}

func TestSignup_SuccessRedirectsWithBanner(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())
	h.login()

	status, _ := h.post("/signup", url.Values{"activity": {"Art Studio"}, "email": {"ava@mergington.edu"}})
	if status != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", status)
	}
	if got := h.api.Participants("Art Studio"); len(got) != 1 || got[0] != "ava@mergington.edu" {
		t.Errorf("participants = %v, want [ava@mergington.edu]", got)
	}

	_, body := h.get("/")
	if !strings.Contains(body, `class="success"`) || !strings.Contains(body, "Signed up ava@mergington.edu for Art Studio") {
		t.Error("missing success banner with server message")
	}
	if !strings.Contains(body, "7 spots left") {
		t.Error("expected refreshed availability for Art Studio")
	}
	if strings.Contains(body, `value="ava@mergington.edu" required`) {
		t.Error("signup form should be reset after success")
	}
}

func TestSignup_ServerDetailShownVerbatim(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())
	h.login()

	status, body := h.post("/signup", url.Values{"activity": {"Chess Club"}, "email": {"michael@mergington.edu"}})
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if !strings.Contains(body, `<div id="message" class="error" role="status" data-hide-after="5000">Student is already signed up</div>`) {
		t.Error("missing error banner with server detail")
	}
	if !strings.Contains(body, `value="michael@mergington.edu" required`) {
		t.Error("typed email should be kept after a failed signup")
	}
	if !strings.Contains(body, `<option value="Chess Club" selected>`) {
		t.Error("chosen activity should stay selected")
	}
}

// TestSignup_ErrorShownOnce keeps a failed signup's error off later page loads.
func TestSignup_ErrorShownOnce(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())
	h.login()

	_, body := h.post("/signup", url.Values{"activity": {"Chess Club"}, "email": {"michael@mergington.edu"}})
	if !strings.Contains(body, "Student is already signed up") {
		t.Fatal("failed signup page is missing the error")
	}
	if strings.Contains(body, "Successfully logged in!") {
		t.Error("the error should replace the earlier banner")
	}

	_, body = h.get("/")
	if strings.Contains(body, "Student is already signed up") || strings.Contains(body, "Successfully logged in!") {
		t.Error("reload repeated a message that was already shown")
	}
	if !strings.Contains(body, `<div id="message" class="hidden" role="status"></div>`) {
		t.Error("expected an empty message box after reload")
	}
}

func TestSignup_ErrorWithoutDetailFallsBack(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())
	h.login()
	h.api.FailNext("/activities/Chess Club/signup", http.StatusInternalServerError)

	status, body := h.post("/signup", url.Values{"activity": {"Chess Club"}, "email": {"new@mergington.edu"}})
	if status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", status)
	}
	if !strings.Contains(body, ">"+orchestrators.TextGenericServerError+"</div>") {
		t.Error("missing generic error text")
	}
}

func TestUnregister_RequiresTeacher(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())

	status, body := h.post("/activities/Chess%20Club/unregister", url.Values{"email": {"michael@mergington.edu"}})
	if status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", status)
	}
	if !strings.Contains(body, orchestrators.AlertUnregisterRequiresTeacher) {
		t.Error("missing blocking alert")
	}
	if n := h.api.Calls("DELETE /activities/Chess Club/unregister"); n != 0 {
		t.Errorf("unregister calls = %d, want 0", n)
	}
}

func TestUnregister_RemovesParticipant(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())
	h.login()

	status, _ := h.post("/activities/Chess%20Club/unregister", url.Values{"email": {"michael@mergington.edu"}})
	if status != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", status)
	}
	if got := h.api.Participants("Chess Club"); len(got) != 1 || got[0] != "daniel@mergington.edu" {
		t.Errorf("participants = %v, want [daniel@mergington.edu]", got)
	}

	_, body := h.get("/")
	if !strings.Contains(body, "Unregistered michael@mergington.edu from Chess Club") {
		t.Error("missing success banner")
	}
}

// TestUnregister_RemovesParticipantThatIsNotAnEmail removes whatever string
// the server listed, since the delete button is offered for every participant.
func TestUnregister_RemovesParticipantThatIsNotAnEmail(t *testing.T) {
	odd := []string{"jane.doe", "student@localhost", "Sam Lee <sam@mergington.edu>"}
	h := newHarness(t, map[string]activitiestest.Activity{
		"Chess Club": {MaxParticipants: 12, Participants: odd},
	})
	h.login()

	_, body := h.get("/")
	if n := strings.Count(body, `class="delete-btn"`); n != len(odd) {
		t.Fatalf("delete buttons = %d, want %d", n, len(odd))
	}

	for i, participant := range odd {
		status, _ := h.post("/activities/Chess%20Club/unregister", url.Values{"email": {participant}})
		if status != http.StatusSeeOther {
			t.Fatalf("%q: status = %d, want 303", participant, status)
		}
		if got := h.api.Participants("Chess Club"); len(got) != len(odd)-i-1 {
			t.Errorf("%q still listed: participants = %v", participant, got)
		}
		_, body := h.get("/")
		if !strings.Contains(body, "Unregistered") {
			t.Errorf("%q: missing success banner", participant)
		}
	}
	if n := h.api.Calls("DELETE /activities/Chess Club/unregister"); n != len(odd) {
		t.Errorf("unregister calls = %d, want %d", n, len(odd))
	}
}

func TestUnregister_ActionURLRoundTripsName(t *testing.T) {
	h := newHarness(t, map[string]activitiestest.Activity{
		"Drama/Theatre": {MaxParticipants: 4, Participants: []string{"liam@mergington.edu"}},
	})
	h.login()

	_, body := h.get("/")
	action := regexp.MustCompile(`action="(/activities/[^"]+/unregister)"`).FindStringSubmatch(body)
	if action == nil {
		t.Fatal("no unregister form found")
	}
	if action[1] != "/activities/Drama%2fTheatre/unregister" && action[1] != "/activities/Drama%2FTheatre/unregister" {
		t.Errorf("action = %q, want escaped slash", action[1])
	}
}

func TestLogout_ForgetsSession(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())
	h.login()
	if h.portal.sessions.Len() != 1 {
		t.Fatalf("cached sessions = %d, want 1", h.portal.sessions.Len())
	}

	status, _ := h.post("/logout", nil)
	if status != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", status)
	}
	if h.tokenCookie() != nil {
		t.Error("token cookie should be cleared")
	}
	if h.portal.sessions.Len() != 0 {
		t.Errorf("cached sessions = %d, want 0", h.portal.sessions.Len())
	}

	_, body := h.get("/")
	if !strings.Contains(body, `<span id="auth-text">Login</span>`) || strings.Contains(body, "delete-btn") {
		t.Error("expected anonymous page after logout")
	}
}

// TestBanner_HideDelayCountsDown renders only the time the banner has left.
func TestBanner_HideDelayCountsDown(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())
	h.login()

	h.advance(4 * time.Second)
	_, body := h.get("/")
	if !strings.Contains(body, `data-hide-after="1000">Successfully logged in!</div>`) {
		t.Error("banner should hide after the remaining 1000ms")
	}

	h.advance(2 * time.Second)
	_, body = h.get("/")
	if !strings.Contains(body, `data-hide-after="1">Successfully logged in!</div>`) {
		t.Error("an overdue banner should hide at once")
	}
}

func TestMessagesArePerClient(t *testing.T) {
	h := newHarness(t, activitiestest.DefaultSeed())
	h.login()

	other := newClient(t)
	resp, err := other.Get(h.server.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	_, body := readBody(t, resp)
	if strings.Contains(body, "Successfully logged in!") {
		t.Error("another browser must not see this client's banner")
	}
}
