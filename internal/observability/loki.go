package observability

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// LokiConfig carries the Grafana Loki push endpoint and the labels stamped on every stream.
type LokiConfig struct {
	URL            string
	User           string
	APIKey         string
	AppName        string
	InstanceID     string
	InstanceRegion string
}

type LokiClient struct {
	http           *resty.Client
	enabled        bool
	appName        string
	instanceID     string
	instanceRegion string
}

// Loki Push API format
type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

var defaultClient *LokiClient

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// InitLoki enables asynchronous pushes when URL, user and key are all set.
func InitLoki(cfg LokiConfig) {
	c := &LokiClient{
		appName:        firstNonEmpty(cfg.AppName, "nciso-dev"),
		instanceID:     firstNonEmpty(cfg.InstanceID, "local"),
		instanceRegion: firstNonEmpty(cfg.InstanceRegion, "local"),
	}
	if cfg.URL == "" || cfg.User == "" || cfg.APIKey == "" {
		L().Info("Loki not configured, event push disabled")
		defaultClient = c
		return
	}

	c.http = resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(5*time.Second).
		SetBasicAuth(cfg.User, cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	c.enabled = true
	defaultClient = c
	L().Info("Loki client initialized", zap.String("url", cfg.URL))
}

func Push(labels map[string]string, data map[string]any) {
	if defaultClient == nil || !defaultClient.enabled {
		return
	}

	go defaultClient.push(labels, data)
}

func (c *LokiClient) push(labels map[string]string, data map[string]any) {
	if labels == nil {
		labels = make(map[string]string)
	}
	labels["app"] = c.appName
	labels["instance"] = c.instanceID
	labels["region"] = c.instanceRegion

	dataJSON, err := json.Marshal(data)
	if err != nil {
		L().Warn("loki: marshal event", zap.Error(err))
		return
	}

	req := lokiPushRequest{
		Streams: []lokiStream{{
			Stream: labels,
			Values: [][]string{{strconv.FormatInt(time.Now().UnixNano(), 10), string(dataJSON)}},
		}},
	}

	resp, err := c.http.R().SetBody(req).Post("/loki/api/v1/push")
	if err != nil {
		L().Warn("loki: push failed", zap.Error(err))
		return
	}
	if resp.IsError() {
		L().Warn("loki: unexpected status", zap.Int("status", resp.StatusCode()))
	}
}

// LogToolCall records one tool execution.
func LogToolCall(requestID, tenantID, userID, tool string, durationMs int64, status string, errMsg string) {
	level := "info"
	if status == "error" {
		level = "error"
	}

	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("tenant_id", tenantID),
		zap.String("user_id", userID),
		zap.String("tool", tool),
		zap.Int64("duration_ms", durationMs),
		zap.String("status", status),
	}
	if errMsg != "" {
		fields = append(fields, zap.String("error", errMsg))
	}
	L().Info("tool call", fields...)
	CountToolCall(tool, status)

	data := map[string]any{
		"request_id":  requestID,
		"tenant_id":   tenantID,
		"user_id":     userID,
		"tool":        tool,
		"duration_ms": durationMs,
		"status":      status,
	}
	if errMsg != "" {
		data["error"] = errMsg
	}
	Push(map[string]string{"type": "tool", "status": status, "level": level}, data)
}

// LogRequest records an HTTP request outcome.
func LogRequest(method, path string, statusCode int, durationMs int64) {
	Push(map[string]string{
		"type":   "request",
		"method": method,
		"level":  "info",
	}, map[string]any{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"duration_ms": durationMs,
	})
}

// LogError records an unexpected error with a short context label.
func LogError(context string, err error) {
	L().Error(context, zap.Error(err))
	Push(map[string]string{"type": "error", "level": "error"}, map[string]any{
		"context": context,
		"error":   err.Error(),
	})
}

// LogSecurityEvent records authentication and authorization failures.
func LogSecurityEvent(requestID, userID, event string, details map[string]any) {
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("user_id", userID),
		zap.String("event", event),
	}
	for k, v := range details {
		fields = append(fields, zap.Any(k, v))
	}
	L().Warn("security event", fields...)

	data := map[string]any{
		"request_id": requestID,
		"user_id":    userID,
		"event":      event,
	}
	for k, v := range details {
		data[k] = v
	}
	Push(map[string]string{"type": "security", "level": "warn"}, data)
}
