// Package httpx is the outbound HTTP client used by the provider adapters:
//   - one tuned, reusable transport with a fixed whole-request timeout
//   - JSON POST helpers that return the raw response body for provider specific decoding
//   - optional retry with exponential backoff + jitter (disabled unless configured)
//   - an error type carrying status, request id, retry-after and a limited body
//   - structured attempt logging through log/slog; headers are never logged
package httpx
