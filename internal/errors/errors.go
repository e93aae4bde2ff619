// Package errors provides a small error aggregation helper.
package errors

import "strings"

// ErrorList collects errors and reports them as one.
type ErrorList struct {
	errors []error
}

func (e *ErrorList) Add(err error) {
	if err != nil {
		e.errors = append(e.errors, err)
	}
}

func (e *ErrorList) Error() string {
	errStrings := make([]string, len(e.errors))
	for i, err := range e.errors {
		errStrings[i] = err.Error()
	}
	return strings.Join(errStrings, "; ")
}

func (e *ErrorList) HasErrors() bool {
	return len(e.errors) > 0
}

func (e *ErrorList) Unwrap() []error {
	return e.errors
}
