package fixture

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev/bravebird/ui-verify/pkg/scenario"
)

var testDay = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T, opts Options) (*httptest.Server, *http.Client) {
	t.Helper()
	if opts.Today == nil {
		opts.Today = func() time.Time { return testDay }
	}
	srv := httptest.NewServer(New(opts))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return srv, &http.Client{Jar: jar}
}

func fetch(t *testing.T, client *http.Client, target string) (*http.Response, *goquery.Document) {
	t.Helper()
	resp, err := client.Get(target)
	require.NoError(t, err)
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return resp, doc
}

func login(t *testing.T, client *http.Client, base, email, password string) (*http.Response, *goquery.Document) {
	t.Helper()
	resp, err := client.PostForm(base+"/login", url.Values{"email": {email}, "password": {password}})
	require.NoError(t, err)
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return resp, doc
}

func TestLoginPage(t *testing.T) {
	srv, client := newTestApp(t, DefaultOptions())

	resp, doc := fetch(t, client, srv.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	email := doc.Find(`input[type="email"]`)
	assert.Equal(t, 1, email.Length())
	assert.Equal(t, "E-mail", email.AttrOr("placeholder", ""))
	assert.Equal(t, "Password", doc.Find(`input[type="password"]`).AttrOr("placeholder", ""))
	assert.Equal(t, "Login", strings.TrimSpace(doc.Find("button").Text()))
}

func TestProtectedPagesRedirect(t *testing.T) {
	srv, client := newTestApp(t, DefaultOptions())

	for _, path := range []string{"/dashboard", "/management", "/feeding", "/reports"} {
		resp, doc := fetch(t, client, srv.URL+path)
		assert.Equal(t, srv.URL+"/", resp.Request.URL.String(), path)
		assert.Equal(t, 1, doc.Find("form.login-form").Length(), path)
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantPath string
		wantCode int
	}{
		{"smoke credentials", "admin@school.edu", "password123", "/dashboard", http.StatusOK},
		{"admin credentials", "admin@example.com", "password", "/dashboard", http.StatusOK},
		{"wrong password", "admin@example.com", "nope", "/login", http.StatusUnauthorized},
		{"unknown user", "who@example.com", "password", "/login", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, client := newTestApp(t, DefaultOptions())

			resp, doc := login(t, client, srv.URL, tt.email, tt.password)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, tt.wantPath, resp.Request.URL.Path)

			if tt.wantCode != http.StatusOK {
				assert.Equal(t, "Invalid e-mail or password", doc.Find(".error").Text())
			}
		})
	}
}

func TestLoggedInLoginRedirects(t *testing.T) {
	srv, client := newTestApp(t, DefaultOptions())
	login(t, client, srv.URL, "admin@example.com", "password")

	resp, _ := fetch(t, client, srv.URL+"/")
	assert.Equal(t, "/dashboard", resp.Request.URL.Path)
}

func TestPages(t *testing.T) {
	opts := DefaultOptions()
	opts.Rows = 3
	srv, client := newTestApp(t, opts)
	login(t, client, srv.URL, "admin@school.edu", "password123")

	_, doc := fetch(t, client, srv.URL+"/dashboard")
	assert.Equal(t, 4, doc.Find(".stat-value").Length())
	assert.Equal(t, "3", doc.Find(".stat-value").Eq(2).Text())

	for _, path := range []string{"/management", "/feeding", "/reports"} {
		_, doc := fetch(t, client, srv.URL+path)
		assert.Equal(t, 3, doc.Find(".data-table tbody tr").Length(), path)
	}
}

func TestFeedingLayout(t *testing.T) {
	tests := []struct {
		name      string
		meal      string
		wantImage bool
		wantName  string
		wantStyle string
	}{
		{
			name:      "no meal",
			wantName:  scenario.FallbackMealText,
			wantStyle: "text-align: center; width: 100%;",
		},
		{
			name:      "meal scheduled",
			meal:      "Vegetable Pasta",
			wantImage: true,
			wantName:  "Vegetable Pasta",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Meal = tt.meal
			srv, client := newTestApp(t, opts)
			login(t, client, srv.URL, "admin@example.com", "password")

			_, doc := fetch(t, client, srv.URL+"/feeding")

			assert.Equal(t, tt.wantImage, doc.Find(".meal-right").Length() == 1)
			assert.Equal(t, tt.wantName, doc.Find("h3.meal-name").Text())
			assert.Equal(t, tt.wantStyle, doc.Find(".meal-left").AttrOr("style", ""))
			assert.Equal(t, "Lunch • Sunday • October 18, 2026", doc.Find(".meal-meta").Text())
		})
	}
}

func TestLogout(t *testing.T) {
	srv, client := newTestApp(t, DefaultOptions())
	login(t, client, srv.URL, "admin@example.com", "password")

	resp, err := client.PostForm(srv.URL+"/logout", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, _ = fetch(t, client, srv.URL+"/dashboard")
	assert.Equal(t, "/", resp.Request.URL.Path)
}
