// Package httputil provides the HTTP plumbing used to fetch remote images.
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff, but only when the
// returned error is wrapped in [RetryableError]. Callers decide what counts
// as transient; [CheckStatus] applies the usual rule:
//
//   - network errors and 5xx responses are retryable
//   - 404 maps to [ErrNotFound]
//   - every other non-2xx status fails immediately
//
// # Client
//
// [NewHTTPClient] returns an [http.Client] with the timeout used for image
// downloads. The timeout bounds a single attempt, not the whole retry loop;
// cancel the context to bound that.
package httputil
