package signer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

type remote struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
}

type signPayload struct {
	EmpCode          string `json:"emp_code"`
	Pin              string `json:"pin"`
	CertName         string `json:"cert_name"`
	Company          string `json:"company"`
	Title            string `json:"title,omitempty"`
	Name             string `json:"name,omitempty"`
	SignType         int    `json:"sign_type"`
	SignLocationType int    `json:"sign_location_type"`
	SearchPattern    string `json:"search_pattern,omitempty"`
	Page             int    `json:"page"`
	Document         string `json:"document"`
}

type signResult struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	Document string `json:"document"`
}

func (r *remote) Sign(ctx context.Context, req Request) error {
	input, err := os.ReadFile(req.InputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	body, err := json.Marshal(signPayload{
		EmpCode:          req.EmpCode,
		Pin:              req.Pin,
		CertName:         req.CertName,
		Company:          req.Company,
		Title:            req.Title,
		Name:             req.Name,
		SignType:         req.SignType,
		SignLocationType: req.SignLocationType,
		SearchPattern:    req.SearchPattern,
		Page:             req.Page,
		Document:         base64.StdEncoding.EncodeToString(input),
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call signing provider: %w", err)
	}
	defer resp.Body.Close()

	var result signResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if resp.StatusCode >= 300 {
			return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 || !result.Success {
		msg := result.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	signed, err := base64.StdEncoding.DecodeString(result.Document)
	if err != nil {
		return fmt.Errorf("decode signed document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}
	if err := os.WriteFile(req.OutputPath, signed, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	r.logger.Info("remote signature applied",
		"emp_code", req.EmpCode,
		"pattern", req.SearchPattern,
		"output", req.OutputPath,
	)
	return nil
}
