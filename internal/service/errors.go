package service

import (
	"fmt"
	"log"
)

// Error is a failure kind the API surface knows how to translate. Each
// operation documents the closed set of kinds it can return; anything else
// coming out of the store is logged and collapsed into ErrInternal.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%d:%s", e.Code, e.Message) }

var (
	// Account lifecycle.
	ErrDuplicateIdentity = &Error{40901, "username or email is already in use"}
	ErrBadCredentials    = &Error{40101, "incorrect username/email or password"}
	ErrEmailNotVerified  = &Error{40102, "email address has not been verified"}
	ErrAccountDisabled   = &Error{40103, "account has been disabled"}
	ErrInvalidToken      = &Error{40004, "link is invalid or has expired"}

	// Membership and permissions.
	ErrForbidden      = &Error{40301, "permission denied"}
	ErrAlreadyMember  = &Error{40902, "user is already a project member"}
	ErrMemberNotFound = &Error{40401, "user is not a project member"}
	ErrOwnerProtected = &Error{40003, "the project owner cannot be removed"}

	// Invitations.
	ErrDuplicatePending   = &Error{40903, "an invitation has already been sent to this email"}
	ErrInvitationNotFound = &Error{40404, "invitation not found or already processed"}
	ErrInvitationExpired  = &Error{41001, "invitation has expired"}
	ErrNoAccount          = &Error{40405, "no account exists for this email, register first"}

	// Lookups.
	ErrProjectNotFound   = &Error{40402, "project not found"}
	ErrUserNotFound      = &Error{40406, "user not found"}
	ErrKnowledgeNotFound = &Error{40403, "knowledge item not found"}

	// Anything unexpected from the store.
	ErrInternal = &Error{50001, "internal server error"}
)

// internal logs the underlying store error with context and returns the
// opaque kind. Callers never see driver errors.
func internal(op string, err error) error {
	log.Printf("%s: %v", op, err)
	return ErrInternal
}
