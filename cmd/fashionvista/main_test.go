package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func init() {
	color.NoColor = true
}

const shirtResponse = `{
	"image_url": "https://cdn.example.com/shirt.jpg",
	"colors": [{"hex": "#112233", "percentage": 0.625}, {"hex": "#eeeeee", "percentage": 0.375}],
	"predictions": {"pattern": {"predicted": "striped"}, "style": {"predicted": "casual"}}
}`

// --- helpers ---

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// --- analyze ---

func TestAnalyze_Human(t *testing.T) {
	srv := serve(t, http.StatusOK, shirtResponse)

	out, _, err := runCLI(t, "analyze", "https://cdn.example.com/shirt.jpg", "--endpoint", srv.URL)
	require.NoError(t, err)

	assert.Contains(t, out, "#112233")
	assert.Contains(t, out, "62.5%")
	assert.Contains(t, out, "striped")
	assert.Contains(t, out, "casual")
}

func TestAnalyze_JSON(t *testing.T) {
	srv := serve(t, http.StatusOK, shirtResponse)

	out, _, err := runCLI(t, "analyze", "https://cdn.example.com/shirt.jpg", "--endpoint", srv.URL, "-o", "json")
	require.NoError(t, err)

	var view struct {
		Phase    string `json:"phase"`
		Swatches []struct {
			Label string `json:"label"`
		} `json:"swatches"`
		Pattern string `json:"pattern"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "succeeded", view.Phase)
	require.Len(t, view.Swatches, 2)
	assert.Equal(t, "62.5%", view.Swatches[0].Label)
	assert.Equal(t, "striped", view.Pattern)
}

func TestAnalyze_YAML(t *testing.T) {
	srv := serve(t, http.StatusOK, shirtResponse)

	out, _, err := runCLI(t, "analyze", "u", "--endpoint", srv.URL, "-o", "yaml")
	require.NoError(t, err)

	var view map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.Equal(t, "casual", view["style"])
}

func TestAnalyze_TransportFailure(t *testing.T) {
	srv := serve(t, http.StatusBadGateway, `upstream down`)

	out, _, err := runCLI(t, "analyze", "u", "--endpoint", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport_error")
	assert.Contains(t, out, "ANALYSIS FAILED")
}

func TestAnalyze_MalformedResponse(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"image_url":"u","colors":[],"predictions":{"pattern":{"predicted":"plain"}}}`)

	_, _, err := runCLI(t, "analyze", "u", "--endpoint", srv.URL, "-o", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed_response")
}

func TestAnalyze_UnknownFormat(t *testing.T) {
	_, _, err := runCLI(t, "analyze", "u", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestAnalyze_RequiresURL(t *testing.T) {
	_, _, err := runCLI(t, "analyze")
	assert.Error(t, err)
}

// --- login / status / logout ---

func TestLoginStatusLogout(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"token":"opaque-token","message":"Welcome back"}`)
	creds := filepath.Join(t.TempDir(), "credentials.yaml")

	out, _, err := runCLI(t, "login", "--email", "a@b.co", "--password", "pw", "--login-url", srv.URL, "--credentials", creds)
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back")

	data, err := os.ReadFile(creds)
	require.NoError(t, err)
	var stored map[string]any
	require.NoError(t, yaml.Unmarshal(data, &stored))
	assert.Equal(t, "opaque-token", stored["jwt"])

	out, _, err = runCLI(t, "status", "--credentials", creds)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in")
	assert.Contains(t, out, "Credentials: "+creds)

	out, _, err = runCLI(t, "logout", "--credentials", creds)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.NoFileExists(t, creds)

	out, _, err = runCLI(t, "status", "--credentials", creds)
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestLogin_Rejected(t *testing.T) {
	srv := serve(t, http.StatusUnauthorized, `{"message":"Wrong password"}`)
	creds := filepath.Join(t.TempDir(), "credentials.yaml")

	_, _, err := runCLI(t, "login", "--email", "a@b.co", "--password", "bad", "--login-url", srv.URL, "--credentials", creds)
	require.Error(t, err)
	assert.Equal(t, "Wrong password", err.Error())
	assert.NoFileExists(t, creds)
}

func TestLogin_RequiresFlags(t *testing.T) {
	_, _, err := runCLI(t, "login", "--email", "a@b.co")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "fashionvista version dev\n", out)
}
