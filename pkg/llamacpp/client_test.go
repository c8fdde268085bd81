package llamacpp

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/resort-app/resort/pkg/processing"
	"github.com/resort-app/resort/pkg/types"
)

func createTestJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{R: 220, G: 225, B: 230, A: 255})
		}
	}
	data, err := processing.NewProcessor().EncodeForUpload(img, 0, 90)
	if err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return data
}

func chatServer(t *testing.T, content interface{}, seen *ChatCompletionRequest) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/chat/completions":
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Errorf("Bad request body: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"id":      "chatcmpl-1",
				"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}}},
			})
		case "/health":
			w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestAnalyze(t *testing.T) {
	var seen ChatCompletionRequest
	srv := chatServer(t, `{"class_name":"Glasflasche_Weiss","confidence":0.77}`, &seen)
	defer srv.Close()

	c, err := NewClient(srv.URL + "/")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	result, err := c.Analyze(context.Background(), createTestJPEG(t), nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !result.Success || result.Detections[0].ClassName != "Glasflasche_Weiss" {
		t.Errorf("Unexpected result %+v", result)
	}

	if len(seen.Messages) != 1 {
		t.Fatalf("Expected one message, got %d", len(seen.Messages))
	}
	parts, ok := seen.Messages[0].Content.([]interface{})
	if !ok || len(parts) != 2 {
		t.Fatalf("Expected text and image parts, got %#v", seen.Messages[0].Content)
	}
	imgURL := parts[1].(map[string]interface{})["image_url"].(map[string]interface{})["url"].(string)
	if !strings.HasPrefix(imgURL, "data:image/jpeg;base64,") {
		t.Errorf("Unexpected image URL prefix %.40s", imgURL)
	}
	if seen.ResponseFormat == nil || seen.ResponseFormat.Type != "json_object" {
		t.Errorf("Expected JSON response format, got %+v", seen.ResponseFormat)
	}
}

func TestAnalyzeContentParts(t *testing.T) {
	var seen ChatCompletionRequest
	content := []map[string]string{{"type": "text", "text": "```json\n{\"class_name\":\"none\",\"confidence\":0.9}\n```"}}
	srv := chatServer(t, content, &seen)
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	result, err := c.Analyze(context.Background(), createTestJPEG(t), nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Success || len(result.Detections) != 0 {
		t.Errorf("Expected no detection, got %+v", result)
	}
}

func TestAnalyzeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	_, err := c.Analyze(context.Background(), createTestJPEG(t), nil)
	if err == nil || !strings.Contains(err.Error(), "status 503") {
		t.Errorf("Expected status 503 error, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	var seen ChatCompletionRequest
	srv := chatServer(t, "", &seen)
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if status.Status != "ok" || !status.AnalysisReady {
		t.Errorf("Unexpected health %+v", status)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("localhost"); err == nil {
		t.Error("Expected error for URL without scheme")
	}
	c, err := NewClient("")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("Unexpected default URL %s", c.baseURL)
	}
}

func TestDefaultConfigROI(t *testing.T) {
	c, err := NewClient("")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.config.DefaultROI != types.DefaultROIMain {
		t.Errorf("Expected default ROI %+v, got %+v", types.DefaultROIMain, c.config.DefaultROI)
	}
}

func TestMessageText(t *testing.T) {
	if messageText("plain") != "plain" {
		t.Error("string content not returned")
	}
	parts := []interface{}{map[string]interface{}{"type": "image_url"}, map[string]interface{}{"type": "text", "text": "hi"}}
	if messageText(parts) != "hi" {
		t.Error("text part not found")
	}
	if messageText(42) != "" {
		t.Error("Expected empty text for unknown content")
	}
}
