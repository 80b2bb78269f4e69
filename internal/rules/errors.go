// Package rules implements the pure rule engine: precedence ordering,
// semantic validation of candidate mutations, and mutation application.
// Nothing in this package performs I/O or holds mutable state; every
// function takes a rule snapshot and returns fresh values.
package rules

import "fmt"

// Validation check identifiers, in the order the checks run.
const (
	CheckExistence    = "target-existence"
	CheckImmutability = "immutability"
	CheckTransmute    = "transmute-noop"
	CheckUniqueness   = "uniqueness"
	CheckText         = "empty-text"
)

// ValidationError identifies which semantic check a candidate mutation
// failed and the offending rule id. It is a local, recoverable failure:
// it fails the proposal carrying the mutation, never the game.
type ValidationError struct {
	Check  string
	RuleID int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rule validation failed [%s] on rule %d: %s", e.Check, e.RuleID, e.Reason)
}

func failCheck(check string, ruleID int, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Check: check, RuleID: ruleID, Reason: fmt.Sprintf(format, args...)}
}
