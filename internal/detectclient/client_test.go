package detectclient

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/ai-detect/internal/admission"
	"github.com/example/ai-detect/internal/classifier"
)

func newStubService(t *testing.T, handler gin.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/api/detect", handler)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server, New(server.URL, server.Client(), zap.NewNop())
}

func testItem() admission.Item {
	return admission.Item{Name: "photo.jpg", Data: []byte("jpeg-bytes"), MediaType: "image/jpeg"}
}

func TestDetectNormalizesFakePrediction(t *testing.T) {
	_, client := newStubService(t, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"prediction": "Fake", "confidence": 0.93})
	})

	result, err := client.Detect(context.Background(), testItem())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result.IsReal {
		t.Fatal("expected synthetic verdict")
	}
	if math.Abs(result.Probabilities.Fake-0.93) > 1e-9 {
		t.Fatalf("expected fake probability 0.93, got %v", result.Probabilities.Fake)
	}
	if math.Abs(result.Probabilities.Real-0.07) > 1e-9 {
		t.Fatalf("expected real probability 0.07, got %v", result.Probabilities.Real)
	}
	if result.RiskLevel != classifier.RiskLow {
		t.Fatalf("expected low risk, got %s", result.RiskLevel)
	}
	if result.FileName != "photo.jpg" {
		t.Fatalf("unexpected file name: %s", result.FileName)
	}
	if result.ModelName != classifier.ModelName {
		t.Fatalf("unexpected model name: %s", result.ModelName)
	}
	if result.ProcessingTime < 0 {
		t.Fatalf("expected non-negative processing time, got %v", result.ProcessingTime)
	}
}

func TestDetectDerivedProbabilitiesSumToOne(t *testing.T) {
	cases := []struct {
		name string
		body gin.H
	}{
		{"real prediction", gin.H{"prediction": "real", "confidence": 0.72}},
		{"fake prediction", gin.H{"prediction": "fake", "confidence": 0.64}},
		{"no confidence", gin.H{"prediction": "Real"}},
		{"empty body", gin.H{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, client := newStubService(t, func(c *gin.Context) {
				c.JSON(http.StatusOK, tc.body)
			})

			result, err := client.Detect(context.Background(), testItem())
			if err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			sum := result.Probabilities.Real + result.Probabilities.Fake
			if math.Abs(sum-1) > 1e-9 {
				t.Fatalf("probabilities sum to %v, want 1", sum)
			}
		})
	}
}

func TestDetectDefaultsConfidenceToHalf(t *testing.T) {
	_, client := newStubService(t, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"prediction": "fake"})
	})

	result, err := client.Detect(context.Background(), testItem())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result.Confidence != 0.5 {
		t.Fatalf("expected default confidence 0.5, got %v", result.Confidence)
	}
	if result.RiskLevel != classifier.RiskHigh {
		t.Fatalf("expected high risk at default confidence, got %s", result.RiskLevel)
	}
}

func TestDetectFallsBackToRealProbabilityForConfidence(t *testing.T) {
	_, client := newStubService(t, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"prediction":    "Real",
			"probabilities": gin.H{"real": 0.88, "fake": 0.12},
		})
	})

	result, err := client.Detect(context.Background(), testItem())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if math.Abs(result.Confidence-0.88) > 1e-9 {
		t.Fatalf("expected confidence 0.88, got %v", result.Confidence)
	}
	if result.RiskLevel != classifier.RiskLow {
		t.Fatalf("expected low risk, got %s", result.RiskLevel)
	}
}

func TestDetectSendsMultipartImageField(t *testing.T) {
	var gotName string
	var gotBytes int64
	_, client := newStubService(t, func(c *gin.Context) {
		file, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no image"})
			return
		}
		gotName = file.Filename
		gotBytes = file.Size
		c.JSON(http.StatusOK, gin.H{"prediction": "real", "confidence": 0.9})
	})

	item := testItem()
	if _, err := client.Detect(context.Background(), item); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if gotName != item.Name {
		t.Fatalf("expected filename %s, got %s", item.Name, gotName)
	}
	if gotBytes != item.Size() {
		t.Fatalf("expected %d bytes, got %d", item.Size(), gotBytes)
	}
}

func TestDetectSurfacesRemoteServiceError(t *testing.T) {
	_, client := newStubService(t, func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Model not loaded. Please check the model path."})
	})

	_, err := client.Detect(context.Background(), testItem())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var remoteErr *RemoteServiceError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteServiceError, got %T: %v", err, err)
	}
	if remoteErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", remoteErr.StatusCode)
	}
	if remoteErr.Message != "Model not loaded. Please check the model path." {
		t.Fatalf("expected server message, got %q", remoteErr.Message)
	}
}

func TestDetectSurfacesTransportFailureAsRemoteServiceError(t *testing.T) {
	server, client := newStubService(t, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})
	server.Close()

	_, err := client.Detect(context.Background(), testItem())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var remoteErr *RemoteServiceError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteServiceError, got %T: %v", err, err)
	}
	if remoteErr.StatusCode != 0 {
		t.Fatalf("expected status 0 for transport failure, got %d", remoteErr.StatusCode)
	}
}

func TestDetectSurfacesMalformedResponse(t *testing.T) {
	_, client := newStubService(t, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte("not-json{"))
	})

	_, err := client.Detect(context.Background(), testItem())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var malformedErr *MalformedResponseError
	if !errors.As(err, &malformedErr) {
		t.Fatalf("expected MalformedResponseError, got %T: %v", err, err)
	}
}

func TestCheckHealthDecodesServicePayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"message":      "Deepfake Detection API is running",
			"model_loaded": true,
			"device":       "cpu",
		})
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	client := New(server.URL, server.Client(), zap.NewNop())
	health, err := client.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if health.Status != "ok" || !health.ModelLoaded || health.Device != "cpu" {
		t.Fatalf("unexpected health payload: %+v", health)
	}
}
