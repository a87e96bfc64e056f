package controller

import (
	"errors"
	"fmt"
)

// ErrRootZoneNotFound is returned when no hosted zone matches the root domain.
var ErrRootZoneNotFound = errors.New("root zone not found")

// ConfigurationError is a misconfiguration that retrying will not fix.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// DiscoveryError means the accounts to reconcile could not be determined.
type DiscoveryError struct {
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovering accounts: %v", e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// CredentialError means a role could not be assumed.
type CredentialError struct {
	Role string
	Err  error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("assuming role %s: %v", e.Role, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// ProviderReadError is a failed zone or certificate read.
type ProviderReadError struct {
	Op  string
	Err error
}

func (e *ProviderReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderReadError) Unwrap() error { return e.Err }

// ApplyError is a failed root zone upsert.
type ApplyError struct {
	Type, Name string
	Err        error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("upserting %s %s: %v", e.Type, e.Name, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
