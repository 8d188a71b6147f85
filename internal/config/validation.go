package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/scan-io-git/scanio-findings/internal/models"
)

const maxFindingsLimit = 10000

// ValidateConfig checks if the global configurations have valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	if err := ValidateEndpoint(&cfg.Endpoint); err != nil {
		return fmt.Errorf("YAML global config: endpoint directive is invalid: %w", err)
	}
	if err := ValidateFindings(&cfg.Findings); err != nil {
		return fmt.Errorf("YAML global config: findings directive is invalid: %w", err)
	}
	return nil
}

// ValidateHTTPConfig checks if the HTTP configurations have valid values.
func ValidateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig == nil {
		return fmt.Errorf("HTTP configuration is nil")
	}
	if httpConfig.RetryCount < 0 || httpConfig.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", httpConfig.RetryCount)
	}

	durations := map[string]time.Duration{
		"RetryMaxWaitTime": httpConfig.RetryMaxWaitTime,
		"RetryWaitTime":    httpConfig.RetryWaitTime,
		"Timeout":          httpConfig.Timeout,
	}
	for name, duration := range durations {
		if err := validateDuration(duration, name, 100*time.Second); err != nil {
			return err
		}
	}

	if err := validateProxy(&httpConfig.Proxy); err != nil {
		return err
	}

	return nil
}

// ValidateEndpoint checks the endpoint URL when one is set. An empty endpoint is
// valid: the tool then reports itself as not configured.
func ValidateEndpoint(endpoint *Endpoint) error {
	if endpoint == nil {
		return fmt.Errorf("endpoint configuration is nil")
	}
	if strings.TrimSpace(endpoint.URL) == "" {
		return nil
	}
	u, err := url.Parse(endpoint.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must start with http:// or https://: %q", endpoint.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host: %q", endpoint.URL)
	}
	return nil
}

// ValidateFindings checks the display filters.
func ValidateFindings(f *Findings) error {
	if f == nil {
		return fmt.Errorf("findings configuration is nil")
	}
	if f.MaxFindings < 1 || f.MaxFindings > maxFindingsLimit {
		return fmt.Errorf("max_findings must be between 1 and %d: %d", maxFindingsLimit, f.MaxFindings)
	}
	if f.Product < 0 {
		return fmt.Errorf("product must be a positive id: %d", f.Product)
	}
	for _, name := range f.EnabledSeverities {
		if _, err := models.ParseSeverity(name); err != nil {
			return err
		}
	}
	for _, name := range f.EnabledTriageStatuses {
		if _, err := models.ParseTriageStatus(name); err != nil {
			return err
		}
	}
	return nil
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %s: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%s duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

// validateProxy checks if the given Proxy settings are valid.
func validateProxy(proxy *Proxy) error {
	if proxy == nil {
		return fmt.Errorf("proxy configuration is nil")
	}

	if proxy.Host == "" || proxy.Port == 0 {
		return nil
	}

	if err := validateHost(&proxy.Host); err != nil {
		return err
	}

	return validatePort(proxy.Port)
}

// validateHost ensures the proxy host includes a scheme; adds "http" if missing.
func validateHost(host *string) error {
	if host == nil {
		return fmt.Errorf("host string pointer is nil")
	}

	if !strings.Contains(*host, "://") {
		*host = "http://" + *host
	}
	*host = strings.TrimRight(*host, "/")

	if _, err := url.Parse(*host); err != nil {
		return fmt.Errorf("invalid host URL: %w", err)
	}

	return nil
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}
