package domain

import (
	"errors"
	"fmt"
)

// Categories. Every specific error below wraps exactly one of these so
// callers can match on the category with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrState             = errors.New("invalid state")
	ErrAuth              = errors.New("not authorized")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)

var (
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrInvalidEmail     = fmt.Errorf("%w: invalid email", ErrValidation)
	ErrEmptyTitle       = fmt.Errorf("%w: title is required", ErrValidation)
	ErrNoOptions        = fmt.Errorf("%w: at least one option is required", ErrValidation)
	ErrInvalidDate      = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrOptionOutOfRange = fmt.Errorf("%w: option index out of range", ErrValidation)
	ErrWagerTooSmall    = fmt.Errorf("%w: wager below minimum", ErrValidation)
	ErrSelfTransfer     = fmt.Errorf("%w: cannot transfer to yourself", ErrValidation)
	ErrMalformedCommand = fmt.Errorf("%w: malformed command", ErrValidation)

	ErrCausaNotOpen     = fmt.Errorf("%w: causa is not open", ErrState)
	ErrCausaClosed      = fmt.Errorf("%w: causa voting is closed", ErrState)
	ErrAlreadyVoted     = fmt.Errorf("%w: already voted on this causa", ErrState)
	ErrCommissioNotOpen = fmt.Errorf("%w: commissio is not open", ErrState)
	ErrCommissioExpired = fmt.Errorf("%w: commissio has expired", ErrState)
	ErrNotAssigned      = fmt.Errorf("%w: commissio is not assigned", ErrState)

	ErrNotCreator  = fmt.Errorf("%w: only the creator may do this", ErrAuth)
	ErrNotAssignee = fmt.Errorf("%w: only the assignee may do this", ErrAuth)

	ErrAccountNotFound   = fmt.Errorf("%w: account", ErrNotFound)
	ErrCausaNotFound     = fmt.Errorf("%w: causa", ErrNotFound)
	ErrCommissioNotFound = fmt.Errorf("%w: commissio", ErrNotFound)

	ErrVersionConflict   = errors.New("optimistic lock conflict")
	ErrDuplicateMessage  = errors.New("duplicate message")
	ErrMessageNotClaimed = errors.New("message already claimed")
)
