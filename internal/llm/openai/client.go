package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aurelia-jewels/po-extractor/internal/common"
	"github.com/aurelia-jewels/po-extractor/internal/llm"
)

var _ llm.TextService = (*Client)(nil)

// GenerateText implements llm.TextService via text-only chat/completions
// with a JSON response format.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.generate.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"prompt_len", len(prompt),
	)

	body := map[string]any{
		"model":                 c.cfg.Model,
		"temperature":           c.cfg.Temperature,
		"max_completion_tokens": c.cfg.MaxOutputTokens,
		"response_format":       map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}

	raw, err := c.postJSON(ctx, c.endpoint("/chat/completions"), body)
	if err != nil {
		c.logger.Error("llm.generate.http_error",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.logger.Info("llm.generate.ok",
		"req_id", rid, "response_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds())
	return content, nil
}

// GenerateWithFile implements llm.TextService via the responses API, pairing
// a previously uploaded document (input_file) with the prompt (input_text).
func (c *Client) GenerateWithFile(ctx context.Context, prompt, fileID string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.generate_file.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"file_id", fileID,
		"prompt_len", len(prompt),
	)

	body := map[string]any{
		"model":             c.cfg.Model,
		"temperature":       c.cfg.Temperature,
		"max_output_tokens": c.cfg.MaxOutputTokens,
		"text":              map[string]any{"format": map[string]any{"type": "json_object"}},
		"input": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "input_file", "file_id": fileID},
					{"type": "input_text", "text": prompt},
				},
			},
		},
	}

	raw, err := c.postJSON(ctx, c.endpoint("/responses"), body)
	if err != nil {
		c.logger.Error("llm.generate_file.http_error",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}

	var rr struct {
		Output []struct {
			Type    string `json:"type"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.Unmarshal(raw, &rr); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}

	var b strings.Builder
	for _, out := range rr.Output {
		for _, part := range out.Content {
			if part.Type == "output_text" {
				b.WriteString(part.Text)
			}
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", fmt.Errorf("no output_text in openai response")
	}

	c.logger.Info("llm.generate_file.ok",
		"req_id", rid, "response_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds())
	return content, nil
}

// UploadFile registers a transient document with the Files API
// (purpose user_data) and returns its id.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("purpose", "user_data"); err != nil {
		return "", fmt.Errorf("write purpose field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	raw, err := c.post(ctx, c.endpoint("/files"), writer.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}

	var f struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return "", fmt.Errorf("decode file upload response: %w", err)
	}
	if f.ID == "" {
		return "", fmt.Errorf("file upload response missing id")
	}

	c.logger.Info("llm.upload.ok", "file_id", f.ID, "filename", filename, "bytes", len(data))
	return f.ID, nil
}

// DeleteFile releases a previously uploaded document.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint("/files/"+fileID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("openai http error: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("llm.delete.body_close_error", "file_id", fileID, "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openai status %d: %s", resp.StatusCode, body)
	}
	c.logger.Info("llm.delete.ok", "file_id", fileID)
	return nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *Client) postJSON(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.post(ctx, url, "application/json", bytes.NewReader(b))
}

func (c *Client) post(ctx context.Context, url, contentType string, body io.Reader) ([]byte, error) {
	if c.cfg.APIKey == "" {
		return nil, common.NewAppError("CONFIG_ERROR", "openai api key missing", common.ErrConfiguration)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("llm.http.body_close_error", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, raw)
	}
	return raw, nil
}
