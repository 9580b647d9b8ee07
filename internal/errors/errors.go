package errors

import (
	"encoding/json"
	"fmt"
)

// ConflictErr is raised when business rule about uniqueness is violated
type ConflictErr struct {
	target  string
	message string
}

func (e *ConflictErr) Error() string {
	return e.message
}

// Target returns name of the field which caused conflict
func (e *ConflictErr) Target() string {
	return e.target
}

func (e *ConflictErr) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Target  string `json:"target"`
		Message string `json:"message"`
	}{Target: e.target, Message: e.message})
}

// NewConflictErr builds new ConflictErr
func NewConflictErr(target string, msg string) *ConflictErr {
	return &ConflictErr{
		target:  target,
		message: msg,
	}
}

// EntryNotFoundErr is raised when requested entry is missing in store
type EntryNotFoundErr struct {
	message string
}

func (e *EntryNotFoundErr) Error() string {
	return e.message
}

// NewEntryNotFoundErr builds new EntryNotFoundErr
func NewEntryNotFoundErr(msg string) *EntryNotFoundErr {
	return &EntryNotFoundErr{message: msg}
}

// StoreErr wraps any fault of persistence layer
type StoreErr struct {
	op  string
	err error
}

func (e *StoreErr) Error() string {
	return fmt.Sprintf("store failed on %s - %v", e.op, e.err)
}

func (e *StoreErr) Unwrap() error {
	return e.err
}

// Op returns store operation name
func (e *StoreErr) Op() string {
	return e.op
}

// NewStoreErr builds new StoreErr for operation op
func NewStoreErr(op string, err error) *StoreErr {
	return &StoreErr{op: op, err: err}
}

// InvalidEntryErr is raised when entry violates store constraints like required fields
type InvalidEntryErr struct {
	field   string
	message string
}

func (e *InvalidEntryErr) Error() string {
	return e.message
}

// Field returns name of invalid field
func (e *InvalidEntryErr) Field() string {
	return e.field
}

// NewInvalidEntryErr builds new InvalidEntryErr
func NewInvalidEntryErr(field string, msg string) *InvalidEntryErr {
	return &InvalidEntryErr{field: field, message: msg}
}
