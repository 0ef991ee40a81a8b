// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// GenreTable is the table name used by test databases.
const GenreTable = "music_table"

// NewGenreDB opens an in-memory SQLite database with an empty genre table.
func NewGenreDB(t *testing.T) *shared.Database {
	t.Helper()
	return NewGenreDBAt(t, ":memory:")
}

// NewGenreDBAt is [NewGenreDB] for any database URL, e.g. a file under t.TempDir().
func NewGenreDBAt(t *testing.T, rawURL string) *shared.Database {
	t.Helper()

	db, err := shared.NewDatabase(rawURL)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cols := make([]string, 0, len(models.Genres))
	for _, g := range models.Genres {
		cols = append(cols, g+" VARCHAR(50)")
	}
	schema := fmt.Sprintf("CREATE TABLE %s (id INTEGER PRIMARY KEY AUTOINCREMENT, %s)", GenreTable, strings.Join(cols, ", "))
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create genre table: %v", err)
	}

	return db
}

// InsertSongs adds one row per value with only the given genre column set.
func InsertSongs(t *testing.T, db *shared.Database, genre string, values ...string) {
	t.Helper()
	for _, v := range values {
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", GenreTable, genre)
		if _, err := db.Exec(query, v); err != nil {
			t.Fatalf("failed to insert %s=%s: %v", genre, v, err)
		}
	}
}

// RecordedCall is one request received by [FakeSpotify].
type RecordedCall struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	Body          []byte
}

// Form parses the recorded body as an urlencoded form.
func (c RecordedCall) Form() url.Values {
	v, _ := url.ParseQuery(string(c.Body))
	return v
}

// FakeSpotify is an httptest server standing in for both the accounts and the Web API hosts.
//
// Unregistered routes answer 404 with a Spotify-style error body.
type FakeSpotify struct {
	Server *httptest.Server

	mu     sync.Mutex
	calls  []RecordedCall
	routes map[string]http.HandlerFunc
}

// NewFakeSpotify starts a fake upstream that is closed when the test ends.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()

	f := &FakeSpotify{routes: map[string]http.HandlerFunc{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *FakeSpotify) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(strings.NewReader(string(body)))

	f.mu.Lock()
	f.calls = append(f.calls, RecordedCall{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.Query(),
		Authorization: r.Header.Get("Authorization"),
		Body:          body,
	})
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{"status": 404, "message": "Service not found"},
		})
		return
	}
	h(w, r)
}

// Handle registers h for an exact method and path.
func (f *FakeSpotify) Handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
}

// JSON registers a fixed JSON response for method and path.
func (f *FakeSpotify) JSON(method, path string, status int, body any) {
	f.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Status registers an empty response with the given status.
func (f *FakeSpotify) Status(method, path string, status int) {
	f.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
}

// Calls returns a copy of every recorded request.
func (f *FakeSpotify) Calls() []RecordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedCall(nil), f.calls...)
}

// CallsTo returns the recorded requests for one method and path.
func (f *FakeSpotify) CallsTo(method, path string) []RecordedCall {
	var out []RecordedCall
	for _, c := range f.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// TokenURL is the fake accounts token endpoint.
func (f *FakeSpotify) TokenURL() string { return f.Server.URL + "/api/token" }

// AuthURL is the fake accounts authorize endpoint.
func (f *FakeSpotify) AuthURL() string { return f.Server.URL + "/authorize" }

// APIBaseURL is the fake Web API root.
func (f *FakeSpotify) APIBaseURL() string { return f.Server.URL + "/v1" }

// Config returns a Spotify config pointing at the fake server.
func (f *FakeSpotify) Config() shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURI:  "http://127.0.0.1:5000/callback",
		AuthURL:      f.AuthURL(),
		TokenURL:     f.TokenURL(),
		APIBaseURL:   f.APIBaseURL(),
		Scopes:       []string{"user-read-private", "user-read-email"},
	}
}

// WriteJSON writes body as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// TokenJSON is a token endpoint success body.
func TokenJSON(access, refresh string, expiresIn int) map[string]any {
	body := map[string]any{
		"access_token": access,
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
	}
	if refresh != "" {
		body["refresh_token"] = refresh
	}
	return body
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}
