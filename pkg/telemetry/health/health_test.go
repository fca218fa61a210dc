package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/dyndict/pkg/config"
	"mercator-hq/dyndict/pkg/registry"
)

// fakeRegistry is a Registry with settable state.
type fakeRegistry struct {
	mu        sync.Mutex
	lifecycle registry.Lifecycle
	statuses  map[string]registry.Status
}

func (f *fakeRegistry) Lifecycle() registry.Lifecycle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lifecycle
}

func (f *fakeRegistry) Status(name string) registry.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[name]
}

func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{"default timeout", 0, DefaultCheckTimeout},
		{"negative timeout", -time.Second, DefaultCheckTimeout},
		{"custom timeout", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)
			if checker.checkTimeout != tt.expectedTimeout {
				t.Errorf("checkTimeout = %v, want %v", checker.checkTimeout, tt.expectedTimeout)
			}
			if checker.CheckCount() != 0 {
				t.Errorf("CheckCount() = %d, want 0", checker.CheckCount())
			}
		})
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	checker := New(time.Second)

	checker.RegisterCheck("registry", func(context.Context) error { return nil })
	checker.RegisterCheck("entries", func(context.Context) error { return nil })
	checker.RegisterCheck("registry", func(context.Context) error { return errors.New("replaced") })

	if got := checker.ListChecks(); len(got) != 2 || got[0] != "entries" || got[1] != "registry" {
		t.Errorf("ListChecks() = %v", got)
	}

	status := checker.CheckReadiness(context.Background())
	if status.Checks["registry"].Message != "replaced" {
		t.Errorf("registry check = %+v, want the replacement to run", status.Checks["registry"])
	}

	checker.UnregisterCheck("registry")
	if checker.CheckCount() != 1 {
		t.Errorf("CheckCount() = %d, want 1", checker.CheckCount())
	}
}

func TestCheckLiveness(t *testing.T) {
	status := New(0).CheckLiveness(context.Background())
	if status.Status != StatusOK || status.Timestamp.IsZero() {
		t.Errorf("CheckLiveness() = %+v", status)
	}
}

func TestCheckReadiness(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		status := New(time.Second).CheckReadiness(context.Background())
		if status.Status != StatusReady || len(status.Checks) != 0 {
			t.Errorf("CheckReadiness() = %+v", status)
		}
	})

	t.Run("all healthy", func(t *testing.T) {
		checker := New(time.Second)
		checker.RegisterCheck("a", func(context.Context) error { return nil })
		checker.RegisterCheck("b", func(context.Context) error { return nil })

		status := checker.CheckReadiness(context.Background())
		if status.Status != StatusReady {
			t.Errorf("Status = %q, want ready", status.Status)
		}
		for name, result := range status.Checks {
			if result.Status != StatusOK {
				t.Errorf("check %s = %+v", name, result)
			}
		}
	})

	t.Run("one unhealthy", func(t *testing.T) {
		checker := New(time.Second)
		checker.RegisterCheck("a", func(context.Context) error { return nil })
		checker.RegisterCheck("b", func(context.Context) error { return errors.New("broken") })

		status := checker.CheckReadiness(context.Background())
		if status.Status != StatusDegraded {
			t.Errorf("Status = %q, want degraded", status.Status)
		}
		if got := status.Checks["b"]; got.Status != StatusUnhealthy || got.Message != "broken" {
			t.Errorf("check b = %+v", got)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		checker := New(20 * time.Millisecond)
		release := make(chan struct{})
		defer close(release)
		checker.RegisterCheck("stuck", func(context.Context) error {
			<-release
			return nil
		})

		start := time.Now()
		status := checker.CheckReadiness(context.Background())
		if time.Since(start) > time.Second {
			t.Error("CheckReadiness() waited for a stuck check")
		}
		if got := status.Checks["stuck"]; got.Status != StatusUnhealthy || got.Message != ErrCheckTimeout.Error() {
			t.Errorf("stuck check = %+v", got)
		}
	})
}

func TestRegistryCheck(t *testing.T) {
	reg := &fakeRegistry{lifecycle: registry.LifecycleLive}
	check := RegistryCheck(reg)

	if err := check(context.Background()); err != nil {
		t.Errorf("live registry check error = %v", err)
	}

	reg.lifecycle = registry.LifecycleDraining
	err := check(context.Background())
	if err == nil || !strings.Contains(err.Error(), registry.LifecycleDraining.String()) {
		t.Errorf("draining registry check error = %v", err)
	}
}

func TestEntriesCheck(t *testing.T) {
	reg := &fakeRegistry{statuses: map[string]registry.Status{
		"stopwords": registry.StatusActive,
		"geoip":     registry.StatusFailed,
	}}
	expected := []string{"stopwords"}
	check := EntriesCheck(reg, func() []string { return expected })

	if err := check(context.Background()); err != nil {
		t.Errorf("check error = %v", err)
	}

	expected = []string{"stopwords", "geoip", "synonyms"}
	err := check(context.Background())
	if err == nil {
		t.Fatal("check error = nil with failed and missing entries")
	}
	for _, want := range []string{"geoip", "synonyms"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
	if strings.Contains(err.Error(), "stopwords") {
		t.Errorf("error %q mentions an active entry", err)
	}
}

func TestLivenessHandler(t *testing.T) {
	handler := New(0).LivenessHandler()

	tests := []struct {
		method   string
		wantCode int
		wantBody bool
	}{
		{http.MethodGet, http.StatusOK, true},
		{http.MethodHead, http.StatusOK, false},
		{http.MethodPost, http.StatusMethodNotAllowed, true},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(tt.method, "/health", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if (rec.Body.Len() > 0) != tt.wantBody {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}
}

func TestReadinessHandler(t *testing.T) {
	reg := &fakeRegistry{
		lifecycle: registry.LifecycleLive,
		statuses:  map[string]registry.Status{"stopwords": registry.StatusActive},
	}
	checker := New(time.Second)
	checker.RegisterCheck("registry", RegistryCheck(reg))
	handler := checker.ReadinessHandler()

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != StatusReady || status.Checks["registry"].Status != StatusOK {
		t.Errorf("status = %+v", status)
	}

	reg.mu.Lock()
	reg.lifecycle = registry.LifecycleTerminated
	reg.mu.Unlock()

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler(NewVersionInfo("1.2.3", "abc123", "2026-10-16"))(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("info = %+v", info)
	}
}

func TestRegister(t *testing.T) {
	cfg := &config.HealthConfig{LivenessPath: "/livez", ReadinessPath: "/readyz", VersionPath: "/versionz"}
	mux := http.NewServeMux()
	Register(mux, cfg, New(time.Second), NewVersionInfo("v", "c", "b"), 0)

	for _, path := range []string{"/livez", "/readyz", "/versionz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
}

func TestRateLimitedHandler(t *testing.T) {
	calls := 0
	handler := RateLimitedHandler(func(w http.ResponseWriter, r *http.Request) { calls++ }, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, rec.Code)
	}

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third status = %d, want 429", codes[2])
	}
}

func TestRateLimitedHandler_Disabled(t *testing.T) {
	calls := 0
	handler := RateLimitedHandler(func(w http.ResponseWriter, r *http.Request) { calls++ }, 0)
	for i := 0; i < 10; i++ {
		handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}
	if calls != 10 {
		t.Errorf("calls = %d, want 10", calls)
	}
}
