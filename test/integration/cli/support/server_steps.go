package support

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/pagescan/internal/config"
	"github.com/MeKo-Tech/pagescan/internal/ocr"
	"github.com/MeKo-Tech/pagescan/internal/pipeline"
	"github.com/MeKo-Tech/pagescan/internal/server"
)

// HTTPTestServerWrapper wraps an in-process API server.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
	Pool       *ocr.Pool
}

// cannedRecognizer returns the same text for every page.
type cannedRecognizer struct{ text string }

func (c cannedRecognizer) Recognize(context.Context, image.Image) (ocr.Text, error) {
	return ocr.NewText(c.text, []ocr.Word{{Text: c.text, Confidence: 0.9}}, ocr.LowConfidence), nil
}

func (testCtx *TestContext) startTestHTTPServer(mutate func(*server.Config)) error {
	testCtx.stopTestHTTPServer()
	cfg := server.Config{
		CORSOrigin:  "*",
		MaxUploadMB: 5,
		TimeoutSec:  10,
		Pipeline:    pipeline.DefaultConfig(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(srv.Handler()),
		TestServer: srv,
		Pool:       cfg.OCRPool,
	}
	return nil
}

func (testCtx *TestContext) stopTestHTTPServer() {
	w := testCtx.HTTPTestServer
	if w == nil {
		return
	}
	w.Server.Close()
	_ = w.TestServer.Close()
	if w.Pool != nil {
		_ = w.Pool.Close()
	}
	testCtx.HTTPTestServer = nil
}

func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.startTestHTTPServer(nil)
}

func (testCtx *TestContext) theServerIsRunningWithOCRReturning(text string) error {
	pool, err := ocr.NewPool(1, func() (ocr.Recognizer, error) { return cannedRecognizer{text: text}, nil })
	if err != nil {
		return err
	}
	return testCtx.startTestHTTPServer(func(c *server.Config) { c.OCRPool = pool })
}

func (testCtx *TestContext) theServerIsRunningWithARateLimitPerMinute(n int) error {
	return testCtx.startTestHTTPServer(func(c *server.Config) {
		c.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: n}
	})
}

func (testCtx *TestContext) baseURL() (string, error) {
	if testCtx.HTTPTestServer == nil {
		return "", errors.New("server is not running")
	}
	return testCtx.HTTPTestServer.Server.URL, nil
}

func (testCtx *TestContext) do(req *http.Request) error {
	resp, err := testCtx.HTTPTestServer.Server.Client().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iSendAGETRequestTo(path string) error {
	base, err := testCtx.baseURL()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, base+path, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) postImage(path, name string, fields map[string]string) error {
	base, err := testCtx.baseURL()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.path(name))
	if err != nil {
		return err
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", name)
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, base+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iPostTheImageTo(name, path string) error {
	return testCtx.postImage(path, name, nil)
}

func (testCtx *TestContext) iPostTheImageToWithField(name, path, field, value string) error {
	return testCtx.postImage(path, name, map[string]string{field: value})
}

func (testCtx *TestContext) iPostTheImageToTimes(name, path string, n int) error {
	for range n {
		if err := testCtx.postImage(path, name, nil); err != nil {
			return err
		}
	}
	return nil
}

// iSendAWebSocketRequest sends one request on /ws and records every reply
// until the request completes or fails.
func (testCtx *TestContext) iSendAWebSocketRequest(kind, name string) error {
	base, err := testCtx.baseURL()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(testCtx.path(name))
	if err != nil {
		return err
	}
	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	msg, err := json.Marshal(server.WebSocketRequest{
		Type:  kind,
		ID:    "scenario",
		Image: base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return err
	}

	var stages []string
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read reply: %w", err)
		}
		var reply server.WebSocketResponse
		if err := json.Unmarshal(raw, &reply); err != nil {
			return err
		}
		if reply.Status == "processing" {
			stages = append(stages, reply.Stage)
			continue
		}
		stages = append(stages, reply.Status)
		testCtx.LastHTTPResponse = string(raw)
		break
	}
	testCtx.LastOutput = strings.Join(stages, ",")
	return nil
}

func (testCtx *TestContext) theWebSocketStagesShouldBe(expected string) error {
	if testCtx.LastOutput != expected {
		return fmt.Errorf("stages were %q, want %q", testCtx.LastOutput, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("status %d, want %d\nBody: %s", testCtx.LastHTTPStatusCode, code, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseFieldShouldBe(path, expected string) error {
	var v any
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &v); err != nil {
		return fmt.Errorf("response is not JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	got, err := lookupJSON(v, path)
	if err != nil {
		return err
	}
	if s := fmt.Sprint(got); s != expected {
		return fmt.Errorf("response field %s is %s, want %s", path, s, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != expected {
		return fmt.Errorf("header %s is %q, want %q", name, got, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain %q\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

// RegisterServerSteps registers the HTTP API steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the pagescan server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^the pagescan server is running with OCR returning "([^"]*)"$`, testCtx.theServerIsRunningWithOCRReturning)
	sc.Step(`^the pagescan server is running with a limit of (\d+) requests? per minute$`,
		testCtx.theServerIsRunningWithARateLimitPerMinute)

	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	sc.Step(`^I POST the image "([^"]*)" to "([^"]*)"$`, testCtx.iPostTheImageTo)
	sc.Step(`^I POST the image "([^"]*)" to "([^"]*)" with "([^"]*)" set to "([^"]*)"$`, testCtx.iPostTheImageToWithField)
	sc.Step(`^I POST the image "([^"]*)" to "([^"]*)" (\d+) times$`, testCtx.iPostTheImageToTimes)
	sc.Step(`^I send a WebSocket "([^"]*)" request with the image "([^"]*)"$`, testCtx.iSendAWebSocketRequest)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the WebSocket stages should be "([^"]*)"$`, testCtx.theWebSocketStagesShouldBe)
}
