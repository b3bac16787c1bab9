// Package errs defines the error taxonomy shared across the indexing
// pipeline and query builder. Each sentinel groups a family of failures so
// callers can branch with errors.Is/errors.As instead of matching strings.
package errs

import "errors"

var (
	// ErrInvalidMessage marks a submission-notification that was missing a
	// required key. The listener logs and drops these; they never reach
	// the indexer.
	ErrInvalidMessage = errors.New("invalid submission notification")

	// ErrInvalidConfig marks a registry or parser misconfiguration. Fails
	// startup when detected during registry load; fails the first use
	// otherwise.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrParse marks malformed submission JSON, an unparsable date, or a
	// bad regex. Recorded on the submission-level error flag; does not
	// abort the per-file loop.
	ErrParse = errors.New("parse error")

	// ErrFileParsing marks a single file or manifest that could not be
	// processed. Sets hasIndexingError and the loop continues.
	ErrFileParsing = errors.New("file parsing error")

	// ErrIndexWrite marks a failure to write or commit to an index. Aborts
	// the current indexOne call and leaves no half-committed state.
	ErrIndexWrite = errors.New("index write error")

	// ErrQueryBuild marks a query string that could not be parsed, or an
	// expansion failure severe enough to abort the build.
	ErrQueryBuild = errors.New("query build error")

	// ErrExpansionBudget marks a non-fatal over-budget expansion. The
	// caller degrades to the unexpanded query rather than failing.
	ErrExpansionBudget = errors.New("expansion term budget exceeded")
)

// ConfigError wraps ErrInvalidConfig with the offending field or parser
// name so startup failures are actionable.
type ConfigError struct {
	Subject string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return "invalid config for " + e.Subject + ": " + e.Err.Error()
	}
	return "invalid config for " + e.Subject
}

func (e *ConfigError) Unwrap() []error { return []error{ErrInvalidConfig, e.Err} }

// NewConfigError builds a ConfigError for the named subject (a descriptor
// name, parser identifier, or config key).
func NewConfigError(subject string, err error) *ConfigError {
	return &ConfigError{Subject: subject, Err: err}
}
