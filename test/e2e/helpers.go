//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/buscador/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	testAPIKey   = "e2e-api-key"
	testWebCX    = "cx-web"
	testLinkedIn = "cx-linkedin"
)

// FakeSearchAPI answers like the Custom Search JSON API from a fixed table
// keyed by the q parameter.
type FakeSearchAPI struct {
	Server *httptest.Server

	mu      sync.Mutex
	answers map[string]string
	queries []string
}

func NewFakeSearchAPI(answers map[string]string) *FakeSearchAPI {
	f := &FakeSearchAPI{answers: answers}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != testAPIKey {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":{"code":403,"message":"API key not valid"}}`)
			return
		}
		f.mu.Lock()
		f.queries = append(f.queries, q.Get("cx")+"|"+q.Get("q"))
		body, ok := f.answers[q.Get("q")]
		f.mu.Unlock()
		if !ok {
			body = `{}`
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	return f
}

func (f *FakeSearchAPI) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	SearchAPI  *FakeSearchAPI
	BinaryDir  string
	ServerURL  string
	HTTPClient *http.Client

	serverCmd *exec.Cmd
}

// SetupE2EEnv builds the binary and starts the fake search API. Containers
// are only started by StartServer.
func SetupE2EEnv(t *testing.T, answers map[string]string) *E2ETestEnv {
	env := &E2ETestEnv{
		T:          t,
		Ctx:        context.Background(),
		SearchAPI:  NewFakeSearchAPI(answers),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.buildBinary()
	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.serverCmd != nil && e.serverCmd.Process != nil {
		_ = e.serverCmd.Process.Signal(os.Interrupt)
		_ = e.serverCmd.Wait()
	}
	if e.SearchAPI != nil {
		e.SearchAPI.Server.Close()
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

func (e *E2ETestEnv) buildBinary() {
	tmpDir, err := os.MkdirTemp("", "buscador-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "buscador"), "./cmd/buscador")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build buscador: %v\n%s", err, out)
	}
}

func (e *E2ETestEnv) baseEnv() []string {
	return append(os.Environ(),
		"GOOGLE_API_KEY="+testAPIKey,
		"GOOGLE_SEARCH_ENGINE_ID_WEB="+testWebCX,
		"GOOGLE_SEARCH_ENGINE_ID_LINKEDIN="+testLinkedIn,
		"BUSCADOR_SEARCH_BASE_URL="+e.SearchAPI.Server.URL,
	)
}

// Run runs the buscador binary and returns stdout and stderr separately.
func (e *E2ETestEnv) Run(workDir string, args ...string) (string, string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "buscador"), args...)
	cmd.Dir = workDir
	cmd.Env = e.baseEnv()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// StartServer starts Postgres and RustFS, then runs buscador serve against
// them and waits for /health.
func (e *E2ETestEnv) StartServer() {
	e.PostgresC = testutil.NewPostgresContainer(e.Ctx, e.T)
	e.RustFSC = testutil.NewRustFSContainer(e.Ctx, e.T)
	e.Pool = testutil.NewTestPool(e.Ctx, e.T, e.PostgresC)

	port, err := getFreePort()
	if err != nil {
		e.T.Fatalf("failed to get free port: %v", err)
	}

	cmd := exec.Command(filepath.Join(e.BinaryDir, "buscador"), "serve", "--port", fmt.Sprint(port))
	cmd.Env = append(e.baseEnv(),
		"BUSCADOR_DATABASE_URL="+e.PostgresC.ConnectionString(),
		"BUSCADOR_S3_ENDPOINT="+e.RustFSC.Endpoint(),
		"BUSCADOR_S3_ACCESS_KEY_ID="+testutil.RustFSAccessKey,
		"BUSCADOR_S3_SECRET_ACCESS_KEY="+testutil.RustFSSecretKey,
		"BUSCADOR_S3_BUCKET=e2e-reports",
		"BUSCADOR_BATCH_WORKERS=4",
	)
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		e.T.Fatalf("failed to start server: %v", err)
	}
	e.serverCmd = cmd
	e.ServerURL = fmt.Sprintf("http://127.0.0.1:%d", port)

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := e.HTTPClient.Get(e.ServerURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	e.T.Fatalf("server did not become healthy")
}

// APIResponse represents a standard API response
type APIResponse struct {
	StatusCode int             `json:"-"`
	Header     http.Header     `json:"-"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	req, err := http.NewRequest(http.MethodGet, e.ServerURL+path, nil)
	if err != nil {
		return nil, err
	}
	return e.do(req)
}

// PostJSON performs a POST request with a JSON body
func (e *E2ETestEnv) PostJSON(path string, body interface{}) (*APIResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, e.ServerURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

// Upload posts content as the file field of a multipart form.
func (e *E2ETestEnv) Upload(path, filename, content string) (*APIResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, strings.NewReader(content)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, e.ServerURL+path, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

func (e *E2ETestEnv) do(req *http.Request) (*APIResponse, error) {
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := APIResponse{StatusCode: resp.StatusCode, Header: resp.Header}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return &apiResp, nil
}

// Download fetches a URL and returns the body.
func (e *E2ETestEnv) Download(url string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
