package unstructured

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	"docchat/src/core/loader"
)

const (
	StrategyFast    = "fast"
	StrategyOCROnly = "ocr_only"
	StrategyHiRes   = "hi_res"
)

// Service is a client for the Unstructured partition API
type Service struct {
	baseURL    string
	strategy   string
	httpClient *http.Client
}

type Element struct {
	Type      string   `json:"type"`
	Text      string   `json:"text"`
	ElementID string   `json:"element_id"`
	Metadata  Metadata `json:"metadata"`
}

type Metadata struct {
	Filename   string `json:"filename,omitempty"`
	Filetype   string `json:"filetype,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
}

// NewService creates a client; an empty strategy means ocr_only
func NewService(baseURL, strategy string, httpClient *http.Client) *Service {
	if strategy == "" {
		strategy = StrategyOCROnly
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Service{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		strategy:   strategy,
		httpClient: httpClient,
	}
}

func (s *Service) Name() string {
	return "unstructured"
}

// Partition sends the file to the partition endpoint and returns its elements
func (s *Service) Partition(ctx context.Context, filename string, content []byte) ([]Element, error) {
	var requestBody bytes.Buffer
	multipartWriter := multipart.NewWriter(&requestBody)

	fileWriter, err := multipartWriter.CreateFormFile("files", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err = io.Copy(fileWriter, bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to write file content: %w", err)
	}

	fields := map[string]string{
		"strategy":      s.strategy,
		"output_format": "application/json",
	}
	for k, v := range fields {
		if err := multipartWriter.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", k, err)
		}
	}
	if err := multipartWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/general/v0/general", &requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", multipartWriter.FormDataContentType())

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unstructured api error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var elements []Element
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return elements, nil
}

// Recognize implements loader.OCRProvider by grouping elements per page
func (s *Service) Recognize(ctx context.Context, filename string, data []byte) ([]loader.Page, error) {
	elements, err := s.Partition(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	byPage := make(map[int][]string)
	for _, e := range elements {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		page := e.Metadata.PageNumber
		if page == 0 {
			page = 1
		}
		byPage[page] = append(byPage[page], e.Text)
	}

	numbers := make([]int, 0, len(byPage))
	for n := range byPage {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	pages := make([]loader.Page, 0, len(numbers))
	for _, n := range numbers {
		pages = append(pages, loader.Page{Number: n, Text: strings.Join(byPage[n], "\n")})
	}
	return pages, nil
}
