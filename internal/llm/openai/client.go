package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhada/appraisal-extractor/internal/common"
	"github.com/zhada/appraisal-extractor/internal/llm"
)

// ExtractStructured implements llm.StructuredExtractor using chat/completions
// with a JSON response format. The decoded payload comes back as an untyped
// map; the validator owns every assumption about its shape.
func (c *Client) ExtractStructured(ctx context.Context, req llm.ExtractRequest) (map[string]any, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"run_id", common.RunIDFromContext(ctx),
		"loan_key", common.LoanKeyFromContext(ctx),
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.Text),
		"filename", req.FilenameHint,
	)

	schema := llm.BuildAppraisalJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"max_tokens":      c.cfg.MaxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": llm.BuildUserPrompt(req)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, status, httpErr := llm.SendJSON(ctx, c.hc, endpoint, body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}, c.log)
	if httpErr != nil {
		err := classify(status, httpErr)
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "status", status, "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, raw, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return nil, raw, common.Transient("llm.extract", fmt.Errorf("%w: decode response: %v", llm.ErrServiceError, err))
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices", "req_id", rid)
		return nil, raw, common.Transient("llm.extract", fmt.Errorf("%w: no choices in response", llm.ErrServiceError))
	}

	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))
	payload, ok := llm.SalvageJSON(content)
	if !ok {
		c.log.Error("llm.extract.unparseable", "req_id", rid, "content_len", len(content))
		return nil, content, common.Transient("llm.extract", fmt.Errorf("%w: no JSON object in completion", llm.ErrServiceError))
	}

	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		c.log.Error("llm.extract.unmarshal_failed", "req_id", rid, "error", err)
		return nil, payload, common.Transient("llm.extract", fmt.Errorf("%w: unmarshal payload: %v", llm.ErrServiceError, err))
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"fields", len(m),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return m, payload, nil
}

// classify maps provider HTTP outcomes onto the failure taxonomy.
func classify(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return common.Transient("llm.extract", fmt.Errorf("%w: %v", llm.ErrRateLimited, err))
	case status >= 400 && status < 500 && status != http.StatusRequestTimeout:
		return common.Permanent("llm.extract", fmt.Errorf("%w: %v", llm.ErrInvalidInput, err))
	}
	return common.Transient("llm.extract", fmt.Errorf("%w: %v", llm.ErrServiceError, err))
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
