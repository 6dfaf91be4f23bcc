package domain

import "fmt"

// ConnectionError means an external source could not be reached.
type ConnectionError struct {
	Source string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Source, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ConfigurationError means an expected column or file is missing.
type ConfigurationError struct {
	What string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return "configuration: " + e.What
	}
	return fmt.Sprintf("configuration: %s: %v", e.What, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ParseError describes a value that could not be parsed. Callers fall back
// per value and never abort on it.
type ParseError struct {
	Column string
	Value  any
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s value %v: %v", e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DeliveryError means the notification endpoint rejected or never received
// the message.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver via %s: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
