package docparse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"lychee/internal/config"
)

// fakeReader 进程内阅读路径的测试替身
type fakeReader struct {
	called bool
	result string
}

func (r *fakeReader) ReadFile(ctx context.Context, fileURL, instruction string) (string, error) {
	r.called = true
	return r.result, nil
}

// newDocServer 返回响应 HEAD 探测的文档服务器
func newDocServer(size int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
	}))
}

// newExtractServer 记录命中端点的提取服务器
func newExtractServer(hitPath *string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hitPath = r.URL.Path
		fmt.Fprint(w, `{"response":"extracted text"}`)
	}))
}

func testConfig(baseURL string) *config.ExtractConfig {
	return &config.ExtractConfig{
		BaseURL:          baseURL,
		LargeEndpoint:    "/api/convert-large-pdf-to-text",
		TextEndpoint:     "/api/convert-pdf-to-text",
		MarkdownEndpoint: "/api/convert-pdf-to-markdown",
		LargeThreshold:   10 * 1000000,
		MediumThreshold:  3 * 1000000,
		SmallThreshold:   100,
		Timeout:          5 * time.Second,
	}
}

func TestExtractRouting(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		wantPath string
	}{
		{"large document", 10*1000000 + 1, "/api/convert-large-pdf-to-text"},
		{"exactly at large threshold", 10 * 1000000, "/api/convert-pdf-to-text"},
		{"medium document", 3*1000000 + 1, "/api/convert-pdf-to-text"},
		{"exactly at medium threshold", 3 * 1000000, "/api/convert-pdf-to-markdown"},
		{"small document", 5000, "/api/convert-pdf-to-markdown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docServer := newDocServer(tt.size)
			defer docServer.Close()

			var hitPath string
			extractServer := newExtractServer(&hitPath)
			defer extractServer.Close()

			reader := &fakeReader{}
			client := NewClient(testConfig(extractServer.URL), reader)

			text, err := client.Extract(context.Background(), []string{docServer.URL + "/doc.pdf"}, "summarize")
			if err != nil {
				t.Fatalf("Extract returned error: %v", err)
			}
			if text != "extracted text" {
				t.Errorf("text = %q, want %q", text, "extracted text")
			}
			if hitPath != tt.wantPath {
				t.Errorf("hit endpoint %q, want %q", hitPath, tt.wantPath)
			}
			if reader.called {
				t.Error("in-process reader should not be used for remote-routed sizes")
			}
		})
	}
}

func TestExtractTinyDocumentUsesReader(t *testing.T) {
	docServer := newDocServer(50)
	defer docServer.Close()

	var hitPath string
	extractServer := newExtractServer(&hitPath)
	defer extractServer.Close()

	reader := &fakeReader{result: "inline summary"}
	client := NewClient(testConfig(extractServer.URL), reader)

	text, err := client.Extract(context.Background(), []string{docServer.URL + "/tiny.pdf"}, "summarize")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if text != "inline summary" {
		t.Errorf("text = %q, want %q", text, "inline summary")
	}
	if !reader.called {
		t.Error("in-process reader should be used for tiny documents")
	}
	if hitPath != "" {
		t.Errorf("remote endpoint should not be called, hit %q", hitPath)
	}
}

func TestExtractAggregatesSizes(t *testing.T) {
	// 单个 2MB，两个合计超过中等阈值，应走转文本端点
	docServer := newDocServer(2 * 1000000)
	defer docServer.Close()

	var hitPath string
	extractServer := newExtractServer(&hitPath)
	defer extractServer.Close()

	client := NewClient(testConfig(extractServer.URL), &fakeReader{})

	urls := []string{docServer.URL + "/a.pdf", docServer.URL + "/b.pdf"}
	if _, err := client.Extract(context.Background(), urls, "summarize"); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if hitPath != "/api/convert-pdf-to-text" {
		t.Errorf("hit endpoint %q, want %q", hitPath, "/api/convert-pdf-to-text")
	}
}

func TestExtractMissingResponseField(t *testing.T) {
	docServer := newDocServer(5000)
	defer docServer.Close()

	extractServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer extractServer.Close()

	client := NewClient(testConfig(extractServer.URL), &fakeReader{})

	if _, err := client.Extract(context.Background(), []string{docServer.URL + "/doc.pdf"}, ""); err == nil {
		t.Fatal("expected error when response field is missing")
	}
}

func TestExtractProbeFailure(t *testing.T) {
	docServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer docServer.Close()

	var hitPath string
	extractServer := newExtractServer(&hitPath)
	defer extractServer.Close()

	client := NewClient(testConfig(extractServer.URL), &fakeReader{})

	if _, err := client.Extract(context.Background(), []string{docServer.URL + "/doc.pdf"}, ""); err == nil {
		t.Fatal("expected error when probe fails")
	}
	if hitPath != "" {
		t.Errorf("extraction should not run after probe failure, hit %q", hitPath)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	client := NewClient(testConfig("http://unused"), &fakeReader{})

	text, err := client.Extract(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}
