package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"lychee/internal/config"
	"lychee/internal/pkg/weather"
)

type stubTool struct {
	name   string
	result string
	args   string
}

func (t *stubTool) Info() *schema.ToolInfo {
	return &schema.ToolInfo{Name: t.name, Desc: "stub"}
}

func (t *stubTool) Execute(ctx context.Context, call Call) (string, error) {
	t.args = call.Arguments
	return t.result, nil
}

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry()
	echo := &stubTool{name: "echo", result: "pong"}
	reg.Register(echo)

	out, err := reg.Call(context.Background(), "call-1", "echo", `{"x":1}`, nil)
	if err != nil {
		t.Fatalf("Call returned error: %v", err)
	}
	if out != "pong" {
		t.Errorf("result = %q, want %q", out, "pong")
	}
	if echo.args != `{"x":1}` {
		t.Errorf("arguments = %q, want raw JSON passthrough", echo.args)
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Call(context.Background(), "call-1", "missing", "{}", nil); err == nil {
		t.Fatal("expected error for unregistered tool")
	}
}

func TestRegistryInfosOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubTool{name: "first"})
	reg.Register(&stubTool{name: "second"})
	reg.Register(&stubTool{name: "third"})

	infos := reg.Infos()
	if len(infos) != 3 {
		t.Fatalf("len(infos) = %d, want 3", len(infos))
	}
	for i, want := range []string{"first", "second", "third"} {
		if infos[i].Name != want {
			t.Errorf("infos[%d].Name = %q, want %q", i, infos[i].Name, want)
		}
	}
}

func TestWeatherToolMissingParams(t *testing.T) {
	tool := NewWeatherTool(nil)

	tests := []struct {
		name string
		args string
		want string
	}{
		{"missing latitude", `{"longitude":116.4}`, "latitude"},
		{"missing longitude", `{"latitude":39.9}`, "longitude"},
		{"invalid json", `{`, "invalid arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tool.Execute(context.Background(), Call{ID: "c1", Arguments: tt.args})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestWeatherToolFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("latitude"); !strings.HasPrefix(got, "39.9") {
			t.Errorf("latitude = %q", got)
		}
		w.Write([]byte(`{"latitude":39.9,"longitude":116.4,"timezone":"Asia/Shanghai","current":{"time":"2025-01-01T00:00","temperature_2m":3.5}}`))
	}))
	defer server.Close()

	tool := NewWeatherTool(weather.NewClient(&config.WeatherConfig{BaseURL: server.URL}))

	out, err := tool.Execute(context.Background(), Call{ID: "c1", Arguments: `{"latitude":39.9,"longitude":116.4}`})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !strings.Contains(out, `"temperature_2m":3.5`) {
		t.Errorf("result = %q, want forecast JSON", out)
	}
}
