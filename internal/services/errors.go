package services

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrNotAMember         = errors.New("not a member of this conversation")
	ErrConversationExists = errors.New("conversation already exists")
	ErrUploadFailed       = errors.New("attachment upload failed")
)
