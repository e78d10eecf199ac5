// Package upstream provides access to the external inventory report source.
//
// The source is slow and rate limited; callers are expected to wrap
// FetchRecords with the retry package using IsTransient as the classifier.
// Raw records carry heterogeneous, inconsistently named fields which the
// inventory transform normalizes.
package upstream

import "context"

// RawRecord is one row of the upstream report, field names unnormalized
type RawRecord map[string]any

// Source fetches raw inventory records from the external system
type Source interface {
	// FetchRecords retrieves the rows of the report identified by the
	// credentials' locator. Failures are classified: transient ones
	// (network, 5xx, 429) satisfy IsTransient, fatal ones do not.
	FetchRecords(ctx context.Context, creds Credentials) ([]RawRecord, error)
}

// Credentials carries what is needed to call the upstream source
type Credentials struct {
	// APIKey authenticates the request
	APIKey string `mapstructure:"api_key"`
	// ReportLocator identifies the inventory report to fetch
	ReportLocator string `mapstructure:"report_locator"`
}

// CredentialsProvider supplies upstream credentials on demand. Absence of
// usable credentials is a fatal, non-retryable condition.
type CredentialsProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials is a CredentialsProvider around fixed values
type StaticCredentials Credentials

// Credentials returns the fixed credentials, or a ConfigError when a
// required field is empty
func (s StaticCredentials) Credentials(ctx context.Context) (Credentials, error) {
	if s.APIKey == "" {
		return Credentials{}, ErrMissingCredential("api_key")
	}
	if s.ReportLocator == "" {
		return Credentials{}, ErrMissingCredential("report_locator")
	}
	return Credentials(s), nil
}
