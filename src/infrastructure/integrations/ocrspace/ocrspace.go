// Package ocrspace is a client for OCR.space compatible image-to-text APIs.
package ocrspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"docchat/src/core/loader"
)

const DefaultURL = "https://api.ocr.space/parse/image"

type Client struct {
	url        string
	apiKey     string
	language   string
	httpClient *http.Client
}

type ParsedResult struct {
	ParsedText        string `json:"ParsedText"`
	FileParseExitCode int    `json:"FileParseExitCode"`
	ErrorMessage      string `json:"ErrorMessage"`
}

type Response struct {
	ParsedResults         []ParsedResult  `json:"ParsedResults"`
	OCRExitCode           int             `json:"OCRExitCode"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// Errors flattens ErrorMessage, which the API sends as a string or a list of strings
func (r *Response) Errors() string {
	if len(r.ErrorMessage) == 0 {
		return ""
	}
	var list []string
	if err := json.Unmarshal(r.ErrorMessage, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var single string
	if err := json.Unmarshal(r.ErrorMessage, &single); err == nil {
		return single
	}
	return string(r.ErrorMessage)
}

func NewClient(url, apiKey, language string, httpClient *http.Client) *Client {
	if url == "" {
		url = DefaultURL
	}
	if language == "" {
		language = "eng"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		url:        url,
		apiKey:     apiKey,
		language:   language,
		httpClient: httpClient,
	}
}

func (c *Client) Name() string {
	return "ocrspace"
}

// Recognize uploads the file and returns one page per parsed result
func (c *Client) Recognize(ctx context.Context, filename string, data []byte) ([]loader.Page, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := [][2]string{
		{"apikey", c.apiKey},
		{"language", c.language},
		{"isOverlayRequired", "false"},
		{"scale", "true"},
		{"OCREngine", "2"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f[0], err)
		}
	}

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write file content: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ocr api error: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.IsErroredOnProcessing {
		msg := result.Errors()
		if msg == "" {
			msg = fmt.Sprintf("exit code %d", result.OCRExitCode)
		}
		return nil, errors.New("ocr processing failed: " + msg)
	}

	pages := make([]loader.Page, 0, len(result.ParsedResults))
	for i, r := range result.ParsedResults {
		pages = append(pages, loader.Page{Number: i + 1, Text: r.ParsedText})
	}
	return pages, nil
}
