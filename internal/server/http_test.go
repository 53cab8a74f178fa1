package server

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"randomizer/internal/biz"
	"randomizer/internal/conf"
	"randomizer/internal/data"
	"randomizer/internal/service"
	"randomizer/pkg/random"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
)

func newTestHTTPServer(t *testing.T) *http.Server {
	t.Helper()
	d, cleanup, err := data.NewData(&conf.Data{}, log.DefaultLogger)
	if err != nil {
		t.Fatalf("NewData error: %v", err)
	}
	t.Cleanup(cleanup)
	events, cleanupEvents, err := data.NewEventPublisher(&conf.Data{}, log.DefaultLogger)
	if err != nil {
		t.Fatalf("NewEventPublisher error: %v", err)
	}
	t.Cleanup(cleanupEvents)

	uc, err := biz.NewStreamUsecase(
		&conf.Randomizer{RootSeed: "http root", MaxDraws: 100, MaxArrayLength: 10, CheckpointEvery: 1},
		data.NewStreamRepo(d, log.DefaultLogger),
		data.NewCheckpointRepo(d, log.DefaultLogger),
		events,
		log.DefaultLogger,
	)
	if err != nil {
		t.Fatalf("NewStreamUsecase error: %v", err)
	}
	svc := service.NewStreamService(uc, log.DefaultLogger)
	return NewHTTPServer(&conf.Server{}, svc, log.DefaultLogger)
}

func do(t *testing.T, srv *http.Server, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	out := make(map[string]interface{})
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode body %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func TestHTTP_StreamLifecycle(t *testing.T) {
	srv := newTestHTTPServer(t)

	code, body := do(t, srv, nethttp.MethodPost, "/v1/streams", `{"name":"dice","seed":"Example seed."}`)
	if code != nethttp.StatusOK {
		t.Fatalf("create status = %d, body = %v", code, body)
	}
	if body["name"] != "dice" || body["seed"] != "Example seed." {
		t.Fatalf("create body = %v", body)
	}

	code, body = do(t, srv, nethttp.MethodPost, "/v1/streams/dice/draws", `{"spec":{"kind":"integers","min":1,"max":6},"count":3}`)
	if code != nethttp.StatusOK {
		t.Fatalf("draw status = %d, body = %v", code, body)
	}
	values, ok := body["values"].([]interface{})
	if !ok || len(values) != 3 {
		t.Fatalf("draw values = %v", body["values"])
	}
	for _, v := range values {
		n := v.(float64)
		if n < 1 || n > 6 || n != float64(int(n)) {
			t.Fatalf("draw value %v outside [1, 6]", v)
		}
	}

	code, body = do(t, srv, nethttp.MethodGet, "/v1/streams/dice", "")
	if code != nethttp.StatusOK {
		t.Fatalf("get status = %d, body = %v", code, body)
	}
	if body["draws"] != float64(3) {
		t.Fatalf("get draws = %v, want 3", body["draws"])
	}

	code, body = do(t, srv, nethttp.MethodPost, "/v1/streams/dice/reset", "{}")
	if code != nethttp.StatusOK {
		t.Fatalf("reset status = %d, body = %v", code, body)
	}

	code, body = do(t, srv, nethttp.MethodPost, "/v1/draws", `{"requests":[{"stream":"dice","spec":{"kind":"booleans"},"count":2}]}`)
	if code != nethttp.StatusOK {
		t.Fatalf("batch status = %d, body = %v", code, body)
	}
	results, ok := body["results"].([]interface{})
	if !ok || len(results) != 1 {
		t.Fatalf("batch results = %v", body["results"])
	}
}

func TestHTTP_Errors(t *testing.T) {
	srv := newTestHTTPServer(t)
	if code, body := do(t, srv, nethttp.MethodPost, "/v1/streams", `{"name":"dice"}`); code != nethttp.StatusOK {
		t.Fatalf("create status = %d, body = %v", code, body)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantCode   int
		wantReason string
	}{
		{"missing stream", nethttp.MethodGet, "/v1/streams/missing", "", nethttp.StatusNotFound, biz.ReasonStreamNotFound},
		{"duplicate stream", nethttp.MethodPost, "/v1/streams", `{"name":"dice"}`, nethttp.StatusConflict, biz.ReasonStreamExists},
		{"invalid range", nethttp.MethodPost, "/v1/streams/dice/draws", `{"spec":{"kind":"numbers","min":5,"max":1}}`, nethttp.StatusBadRequest, random.ReasonInvalidRange},
		{"empty choices", nethttp.MethodPost, "/v1/streams/dice/draws", `{"spec":{"kind":"choices"}}`, nethttp.StatusBadRequest, random.ReasonEmptyCollection},
		{"too many draws", nethttp.MethodPost, "/v1/streams/dice/draws", `{"spec":{"kind":"seeds"},"count":1000}`, nethttp.StatusBadRequest, biz.ReasonTooManyDraws},
		{"nested arrays", nethttp.MethodPost, "/v1/streams/dice/draws", `{"spec":{"kind":"arrays","length":10,"item":{"kind":"arrays","length":10,"item":{"kind":"arrays","length":10,"item":{"kind":"seeds"}}}}}`, nethttp.StatusBadRequest, biz.ReasonTooManyDraws},
		{"null batch entry", nethttp.MethodPost, "/v1/draws", `{"requests":[null,{"stream":"dice","spec":{"kind":"seeds"}}]}`, nethttp.StatusBadRequest, biz.ReasonInvalidDrawSpec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, srv, tt.method, tt.path, tt.body)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d, body = %v", code, tt.wantCode, body)
			}
			if body["reason"] != tt.wantReason {
				t.Fatalf("reason = %v, want %s", body["reason"], tt.wantReason)
			}
		})
	}
}
