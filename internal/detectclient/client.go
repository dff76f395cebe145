// Package detectclient is the HTTP transport to the remote
// classification service. One request per Detect call, no retries.
package detectclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/ai-detect/internal/admission"
	"github.com/example/ai-detect/internal/classifier"
	"github.com/example/ai-detect/internal/logging"
)

const (
	detectPath = "/api/detect"
	healthPath = "/"
)

// Client talks to the classification endpoint over HTTP multipart.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// New constructs a detection client. httpClient may carry the caller's
// timeout policy; nil falls back to http.DefaultClient.
func New(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.Named("detectclient"),
		now:        time.Now,
	}
}

type detectProbabilities struct {
	Real *float64 `json:"real"`
	Fake *float64 `json:"fake"`
}

type detectResponse struct {
	Prediction    string               `json:"prediction"`
	Confidence    *float64             `json:"confidence"`
	Probabilities *detectProbabilities `json:"probabilities"`
	ClassID       *int                 `json:"class_id"`
	Error         string               `json:"error"`
}

// Detect submits one admitted item and normalizes the response into a
// canonical result. Exactly one outbound request per invocation.
func (c *Client) Detect(ctx context.Context, item admission.Item) (*classifier.Result, error) {
	opLogger := logging.WithOperation(c.logger, "detectclient.detect", item.Name)
	start := c.now()

	body, contentType, err := encodeMultipart(item)
	if err != nil {
		wrapped := logging.NewOperationError("detectclient.encode_multipart", item.Name, err)
		opLogger.Error("failed to encode request body", zap.Error(wrapped))
		return nil, wrapped
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+detectPath, body)
	if err != nil {
		wrapped := logging.NewOperationError("detectclient.build_request", item.Name, err)
		opLogger.Error("failed to build request", zap.Error(wrapped))
		return nil, wrapped
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError("detectclient.post_image", item.Name,
			&RemoteServiceError{Err: err})
		opLogger.Error("detection request failed", zap.Error(wrapped))
		return nil, wrapped
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remoteErr := &RemoteServiceError{StatusCode: resp.StatusCode, Message: remoteMessage(resp.Body)}
		wrapped := logging.NewOperationError("detectclient.post_image", item.Name, remoteErr)
		opLogger.Error("detection request rejected", zap.Error(wrapped), zap.Int("status", resp.StatusCode))
		return nil, wrapped
	}

	var decoded detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		wrapped := logging.NewOperationError("detectclient.decode_response", item.Name,
			&MalformedResponseError{Err: err})
		opLogger.Error("failed to decode detection response", zap.Error(wrapped))
		return nil, wrapped
	}

	result := normalize(decoded)
	result.ProcessingTime = c.now().Sub(start).Seconds()
	result.Timestamp = c.now().UTC()
	result.FileName = item.Name

	opLogger.Info("detection completed",
		zap.Bool("is_real", result.IsReal),
		zap.Float64("confidence", result.Confidence),
		zap.String("risk_level", string(result.RiskLevel)))
	return result, nil
}

// CheckHealth queries the service's self-description endpoint.
func (c *Client) CheckHealth(ctx context.Context) (*classifier.Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return nil, logging.NewOperationError("detectclient.build_request", "", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, logging.NewOperationError("detectclient.check_health", "",
			&RemoteServiceError{Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, logging.NewOperationError("detectclient.check_health", "",
			&RemoteServiceError{StatusCode: resp.StatusCode, Message: remoteMessage(resp.Body)})
	}

	var health classifier.Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, logging.NewOperationError("detectclient.check_health", "",
			&MalformedResponseError{Err: err})
	}
	return &health, nil
}

// normalize fills the gaps the remote service is allowed to leave.
// Derived probabilities assign confidence to the predicted class so the
// pair always sums to 1.
func normalize(resp detectResponse) *classifier.Result {
	isReal := strings.EqualFold(resp.Prediction, "real")

	var confidence float64
	switch {
	case resp.Confidence != nil:
		confidence = *resp.Confidence
	case resp.Probabilities != nil && resp.Probabilities.Real != nil:
		confidence = *resp.Probabilities.Real
	default:
		confidence = 0.5
	}

	probs := classifier.Probabilities{}
	if resp.Probabilities != nil && resp.Probabilities.Fake != nil {
		probs.Fake = *resp.Probabilities.Fake
	} else if isReal {
		probs.Fake = 1 - confidence
	} else {
		probs.Fake = confidence
	}
	if resp.Probabilities != nil && resp.Probabilities.Real != nil {
		probs.Real = *resp.Probabilities.Real
	} else if isReal {
		probs.Real = confidence
	} else {
		probs.Real = 1 - confidence
	}

	return &classifier.Result{
		IsReal:        isReal,
		Confidence:    confidence,
		Probabilities: probs,
		RiskLevel:     classifier.RiskFromConfidence(confidence),
		ModelName:     classifier.ModelName,
		Techniques:    classifier.Techniques(),
	}
}

func encodeMultipart(item admission.Item) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="`+escapeQuotes(item.Name)+`"`)
	if item.MediaType != "" {
		header.Set("Content-Type", item.MediaType)
	}

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(item.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// remoteMessage extracts the backend's {"error": "..."} payload when a
// non-2xx response carries one.
func remoteMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Error
}
