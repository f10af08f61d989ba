package market

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotFound is returned by store lookups when no row matches.
	ErrNotFound = errors.New("not found")

	// ErrMalformedLog marks a log that cannot be decoded or lacks a required field.
	// It is a data integrity failure: the tick aborts and the window is not committed.
	ErrMalformedLog = errors.New("malformed log")

	// ErrTransient marks failures that are expected to go away on retry.
	ErrTransient = errors.New("transient failure")

	// ErrInvalidRange is returned when a block range has from > to.
	ErrInvalidRange = errors.New("invalid block range")

	// ErrCursorRegression is returned when a commit would lower the cursor.
	ErrCursorRegression = errors.New("cursor regression")
)

// MalformedLogError describes a log that failed decoding or field extraction.
type MalformedLogError struct {
	Event       EventName
	TxHash      common.Hash
	BlockNumber uint64
	Reason      string
	Err         error
}

func (e *MalformedLogError) Error() string {
	msg := fmt.Sprintf("%s: event %s in tx %s at block %d: %s",
		ErrMalformedLog, e.Event, e.TxHash.Hex(), e.BlockNumber, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *MalformedLogError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformedLog) hold for every MalformedLogError.
func (e *MalformedLogError) Is(target error) bool {
	return target == ErrMalformedLog
}

// NewMalformedLogError builds a MalformedLogError for the given entry.
func NewMalformedLogError(entry LogEntry, reason string, err error) *MalformedLogError {
	return &MalformedLogError{
		Event:       entry.EventName,
		TxHash:      entry.TxHash,
		BlockNumber: entry.BlockNumber,
		Reason:      reason,
		Err:         err,
	}
}

// Transient wraps err so that IsTransient reports true for it.
func Transient(err error) error {
	if err == nil || errors.Is(err, ErrTransient) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient reports whether err is worth retrying on the next tick.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsDataIntegrity reports whether err was caused by unexpected on-chain data.
func IsDataIntegrity(err error) bool {
	return errors.Is(err, ErrMalformedLog)
}
