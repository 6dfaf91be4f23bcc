package httpx

import (
	"net/http"
	"time"
)

const defaultExternalHTTPTimeout = 20 * time.Second

var externalHTTPClient = &http.Client{
	Timeout: defaultExternalHTTPTimeout,
}

// ConfigureExternalHTTPClient sets the shared client's timeout and returns
// the value applied. Non-positive input keeps the default.
func ConfigureExternalHTTPClient(timeoutSeconds int) time.Duration {
	timeout := defaultExternalHTTPTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	externalHTTPClient.Timeout = timeout
	return timeout
}

// Client returns the shared client used for every outbound call.
func Client() *http.Client {
	return externalHTTPClient
}
