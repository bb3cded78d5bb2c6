// Package convert wraps the external format-conversion service that
// normalizes raw traceability documents before loading.
package convert

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Converter normalizes raw document content. Implementations surface
// conversion failures as *ConversionError so callers can read the
// upstream status.
type Converter interface {
	Convert(ctx context.Context, content []byte) ([]byte, error)
}

// ConversionError carries the upstream status of a failed conversion.
type ConversionError struct {
	StatusCode int
	Detail     string
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion failed with status %d: %s", e.StatusCode, e.Detail)
}

// Config holds configuration for the conversion service client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPConverter calls a remote conversion service over HTTP.
type HTTPConverter struct {
	client   *resty.Client
	endpoint string
}

// NewHTTPConverter creates a conversion service client.
// Parameters:
//   - cfg: conversion service configuration.
// Returns:
//   - *HTTPConverter: initialized client.
func NewHTTPConverter(cfg *Config) *HTTPConverter {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	client.SetTimeout(timeout)

	return &HTTPConverter{
		client:   client,
		endpoint: cfg.BaseURL + "/convert",
	}
}

// Convert posts the raw content and returns the normalized body.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - content: raw document bytes.
// Returns:
//   - []byte: normalized document content.
//   - error: *ConversionError on a non-success upstream response.
func (c *HTTPConverter) Convert(ctx context.Context, content []byte) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(content).
		Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call conversion service: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &ConversionError{
			StatusCode: resp.StatusCode(),
			Detail:     string(resp.Body()),
		}
	}

	return resp.Body(), nil
}
