package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhada/appraisal-extractor/internal/common"
)

// Config for the LlamaParse client.
type Config struct {
	BaseURL      string // default https://api.cloud.llamaindex.ai
	APIKey       string
	PollInterval time.Duration // job polling cadence, default 2s
	Timeout      time.Duration // http client timeout per request
}

// LlamaParseClient implements TextExtractor against the hosted parse service.
// A parse is asynchronous: upload, poll the job, then fetch the markdown
// result.
type LlamaParseClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewLlamaParseClient(cfg Config, logger *slog.Logger) *LlamaParseClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloud.llamaindex.ai"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LlamaParseClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c *LlamaParseClient) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	reqID := uuid.New().String()
	start := time.Now()
	c.logger.Info("parse.extract.start",
		"req_id", reqID,
		"run_id", common.RunIDFromContext(ctx),
		"loan_key", common.LoanKeyFromContext(ctx),
		"filename", filename,
		"bytes", len(data),
	)

	jobID, err := c.upload(ctx, filename, data)
	if err != nil {
		c.logger.Error("parse.extract.upload_error", "req_id", reqID, "error", err)
		return "", err
	}

	if err := c.waitForJob(ctx, jobID); err != nil {
		c.logger.Error("parse.extract.job_error", "req_id", reqID, "job_id", jobID, "error", err)
		return "", err
	}

	text, err := c.fetchResult(ctx, jobID)
	if err != nil {
		c.logger.Error("parse.extract.result_error", "req_id", reqID, "job_id", jobID, "error", err)
		return "", err
	}

	c.logger.Info("parse.extract.ok",
		"req_id", reqID,
		"job_id", jobID,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func (c *LlamaParseClient) upload(ctx context.Context, filename string, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", common.Permanent("parse.upload", err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", common.Permanent("parse.upload", err)
	}
	_ = mw.WriteField("result_type", "markdown")
	_ = mw.WriteField("language", "en")
	if err := mw.Close(); err != nil {
		return "", common.Permanent("parse.upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/parsing/upload", &buf)
	if err != nil {
		return "", common.Permanent("parse.upload", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	raw, status, err := c.do(req)
	if err != nil {
		return "", classify("parse.upload", status, err)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.ID == "" {
		return "", common.Transient("parse.upload", fmt.Errorf("%w: malformed upload response", ErrServiceError))
	}
	return out.ID, nil
}

func (c *LlamaParseClient) waitForJob(ctx context.Context, jobID string) error {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.cfg.BaseURL+"/api/parsing/job/"+jobID, nil)
		if err != nil {
			return common.Permanent("parse.poll", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		raw, status, err := c.do(req)
		if err != nil {
			return classify("parse.poll", status, err)
		}
		var out struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return common.Transient("parse.poll", fmt.Errorf("%w: malformed job response", ErrServiceError))
		}
		switch strings.ToUpper(out.Status) {
		case "SUCCESS":
			return nil
		case "ERROR", "CANCELED":
			return common.Permanent("parse.poll", fmt.Errorf("%w: job %s ended %s", ErrUnsupportedFormat, jobID, out.Status))
		}

		select {
		case <-ctx.Done():
			return common.Transient("parse.poll", ctx.Err())
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

func (c *LlamaParseClient) fetchResult(ctx context.Context, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/api/parsing/job/"+jobID+"/result/markdown", nil)
	if err != nil {
		return "", common.Permanent("parse.result", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	raw, status, err := c.do(req)
	if err != nil {
		return "", classify("parse.result", status, err)
	}
	var out struct {
		Markdown string `json:"markdown"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", common.Transient("parse.result", fmt.Errorf("%w: malformed result response", ErrServiceError))
	}
	return out.Markdown, nil
}

// do executes the request and returns body + status. Non-2xx is an error.
func (c *LlamaParseClient) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, resp.StatusCode, nil
}

// classify maps an HTTP outcome onto the failure taxonomy: client-side input
// rejections are permanent, everything else (network, 5xx, 429) retries.
func classify(op string, status int, err error) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return common.Permanent(op, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err))
	}
	return common.Transient(op, fmt.Errorf("%w: %v", ErrServiceError, err))
}
