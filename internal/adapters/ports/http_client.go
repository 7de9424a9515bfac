package ports

import "net/http"

// HTTPClient is the part of *http.Client the gateway transport needs, so
// tests can stand in for the entry points
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
