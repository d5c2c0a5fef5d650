package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KennethAtchon/Loctelli-sub005/api"
	"github.com/KennethAtchon/Loctelli-sub005/cron"
	"github.com/KennethAtchon/Loctelli-sub005/engine"
	"github.com/KennethAtchon/Loctelli-sub005/job"
	"github.com/KennethAtchon/Loctelli-sub005/store/memory"
	"github.com/KennethAtchon/Loctelli-sub005/task"
)

type fixture struct {
	eng    *engine.Engine
	store  *memory.Store
	server *httptest.Server
}

func setup(t *testing.T, opts ...api.Option) *fixture {
	t.Helper()

	reg, err := task.NewRegistry(append(task.Builtins(task.Deps{}),
		task.Method("leads", "rescore", func(context.Context, task.Args, task.Context) (any, error) { return nil, nil }),
	)...)
	require.NoError(t, err)

	s := memory.New()
	eng, err := engine.New(s,
		engine.WithTaskRegistry(reg),
		engine.WithProcessor(job.TypeBulkSend, job.ProcessorFunc(func(context.Context, json.RawMessage) (any, error) {
			return nil, nil
		})),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(api.New(eng, opts...).Handler())
	t.Cleanup(srv.Close)
	return &fixture{eng: eng, store: s, server: srv}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.server.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decodeJobID(t *testing.T, body []byte) string {
	t.Helper()
	var out api.EnqueueResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.JobID)
	return out.JobID
}

func TestEnqueueAndGetStatus(t *testing.T) {
	f := setup(t)

	resp, body := f.do(t, http.MethodPost, "/v1/jobs/notification-bulk-send", map[string]any{
		"payload": map[string]any{"recipients": []string{"+15550100"}, "message": "Hi"},
		"options": map[string]any{"maxAttempts": 2},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	jobID := decodeJobID(t, body)

	j, err := f.store.Get(context.Background(), job.TypeBulkSend, jobID)
	require.NoError(t, err)
	assert.Equal(t, 2, j.MaxAttempts)
	assert.JSONEq(t, `{"recipients":["+15550100"],"message":"Hi"}`, string(j.Payload))

	resp, body = f.do(t, http.MethodGet, "/v1/jobs/notification-bulk-send/"+jobID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view job.StatusView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, job.StatusPending, view.Status)
	assert.Equal(t, jobID, view.JobID)
}

func TestEnqueueErrors(t *testing.T) {
	f := setup(t)

	testCases := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"unknown type", "/v1/jobs/fax", map[string]any{"payload": map[string]any{}}, http.StatusBadRequest},
		{"unbound type", "/v1/jobs/data-export", map[string]any{"payload": map[string]any{}}, http.StatusBadRequest},
		{"missing payload", "/v1/jobs/notification-bulk-send", map[string]any{}, http.StatusBadRequest},
		{"malformed body", "/v1/jobs/notification-bulk-send", "{", http.StatusBadRequest},
		{
			"negative delay",
			"/v1/jobs/notification-bulk-send",
			map[string]any{"payload": map[string]any{}, "options": map[string]any{"delayMs": -1}},
			http.StatusBadRequest,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode, string(body))

			var errResp api.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestGetStatusNotFound(t *testing.T) {
	f := setup(t)

	resp, body := f.do(t, http.MethodGet, "/v1/jobs/notification-bulk-send/nonexistent-id", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"jobId":"nonexistent-id","type":"notification-bulk-send","status":"not_found","progress":0}`, string(body))
}

func TestGetStatusStoreFault(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.store.Close())

	resp, body := f.do(t, http.MethodGet, "/v1/jobs/notification-bulk-send/job_1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var view job.StatusView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, job.StatusError, view.Status)
	assert.NotEmpty(t, view.Error)
}

func TestGetStats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.eng.Enqueue(ctx, job.TypeBulkSend, map[string]string{})
	require.NoError(t, err)
	_, err = f.eng.Enqueue(ctx, job.TypeBulkSend, map[string]string{}, job.WithDelay(time.Hour))
	require.NoError(t, err)

	resp, body := f.do(t, http.MethodGet, "/v1/queues/notification-bulk-send/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats job.StatsView
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, int64(1), stats.Waiting)
	assert.Equal(t, int64(1), stats.Delayed)

	resp, _ = f.do(t, http.MethodGet, "/v1/queues/fax/stats", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExecuteTask(t *testing.T) {
	f := setup(t)

	resp, body := f.do(t, http.MethodPost, "/v1/tasks", map[string]any{
		"taskName":     "sum",
		"functionName": "calculateSum",
		"args":         []any{[]int{1, 2, 3}},
		"context":      map[string]any{"userId": "u1"},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	jobID := decodeJobID(t, body)

	j, err := f.store.Get(context.Background(), job.TypeGenericTask, jobID)
	require.NoError(t, err)
	var payload task.Payload
	require.NoError(t, json.Unmarshal(j.Payload, &payload))
	assert.Equal(t, "calculateSum", payload.FunctionName)
	assert.Equal(t, "u1", payload.Context.UserID)
	require.Len(t, payload.Args, 1)
	assert.JSONEq(t, `[1,2,3]`, string(payload.Args[0]))
}

func TestExecuteTaskUnregistered(t *testing.T) {
	f := setup(t)

	resp, body := f.do(t, http.MethodPost, "/v1/tasks", map[string]any{
		"taskName":     "x",
		"functionName": "launchRockets",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "calculateSum")

	resp, _ = f.do(t, http.MethodPost, "/v1/tasks", map[string]any{"taskName": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExecuteServiceMethod(t *testing.T) {
	f := setup(t)

	resp, body := f.do(t, http.MethodPost, "/v1/tasks/service", map[string]any{
		"taskName":   "rescore",
		"targetName": "leads",
		"methodName": "rescore",
		"args":       []any{"lead_1"},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	decodeJobID(t, body)

	resp, body = f.do(t, http.MethodPost, "/v1/tasks/service", map[string]any{
		"taskName":   "x",
		"targetName": "invoices",
		"methodName": "send",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "available targets: leads")

	stats, err := f.eng.GetStats(context.Background(), job.TypeGenericTask)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Waiting)
}

func TestHealth(t *testing.T) {
	f := setup(t)

	resp, _ := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, f.store.Close())
	resp, _ = f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

type stubScheduler struct {
	triggered []string
}

func (s *stubScheduler) Entries() []cron.EntryStatus {
	return []cron.EntryStatus{{Entry: cron.Entry{Name: "nightly", Schedule: "@daily", Type: job.TypeGenericTask}}}
}

func (s *stubScheduler) Trigger(_ context.Context, name string) (string, error) {
	if name != "nightly" {
		return "", fmt.Errorf("%w: %q", cron.ErrUnknownEntry, name)
	}
	s.triggered = append(s.triggered, name)
	return "job_cron", nil
}

func TestCronRoutes(t *testing.T) {
	sched := &stubScheduler{}
	f := setup(t, api.WithScheduler(sched))

	resp, body := f.do(t, http.MethodGet, "/v1/crons", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"name":"nightly"`)

	resp, body = f.do(t, http.MethodPost, "/v1/crons/nightly/trigger", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "job_cron", decodeJobID(t, body))
	assert.Equal(t, []string{"nightly"}, sched.triggered)

	resp, _ = f.do(t, http.MethodPost, "/v1/crons/weekly/trigger", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCronRoutesDisabledWithoutScheduler(t *testing.T) {
	f := setup(t)

	resp, _ := f.do(t, http.MethodGet, "/v1/crons", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusForStoreErrors(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.store.Close())

	resp, body := f.do(t, http.MethodPost, "/v1/jobs/notification-bulk-send", map[string]any{"payload": map[string]any{}})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, string(body))
}
