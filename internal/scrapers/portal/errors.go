package portal

import (
	"errors"
	"fmt"
)

// AuthFailure means the portal rejected the credentials or the session was
// not established after login.
type AuthFailure struct {
	// Message is the text the portal showed, if any.
	Message string
	Err     error
}

func (e *AuthFailure) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("portal: login failed: %s: %s", e.Message, e.Err.Error())
	case e.Message != "":
		return fmt.Sprintf("portal: login failed: %s", e.Message)
	case e.Err != nil:
		return fmt.Sprintf("portal: login failed: %s", e.Err.Error())
	}
	return "portal: login failed"
}

func (e *AuthFailure) Unwrap() error {
	return e.Err
}

// PageStructureFailure means a page did not have the shape the scraper
// expects, no snapshot is produced from it.
type PageStructureFailure struct {
	// Page is "login" or "grades".
	Page   string
	Reason string
	// Source is the raw page, kept so it can be dumped for debugging.
	Source []byte
	Err    error
}

func (e *PageStructureFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("portal: unexpected %s page structure: %s: %s", e.Page, e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("portal: unexpected %s page structure: %s", e.Page, e.Reason)
}

func (e *PageStructureFailure) Unwrap() error {
	return e.Err
}

// TimeoutFailure means the scrape did not finish before its deadline or was
// cancelled.
type TimeoutFailure struct {
	Stage string
	Err   error
}

func (e *TimeoutFailure) Error() string {
	return fmt.Sprintf("portal: timed out during %s: %s", e.Stage, e.Err.Error())
}

func (e *TimeoutFailure) Unwrap() error {
	return e.Err
}

func IsAuthFailure(err error) bool {
	var target *AuthFailure
	return errors.As(err, &target)
}

func IsPageStructureFailure(err error) bool {
	var target *PageStructureFailure
	return errors.As(err, &target)
}

func IsTimeoutFailure(err error) bool {
	var target *TimeoutFailure
	return errors.As(err, &target)
}
