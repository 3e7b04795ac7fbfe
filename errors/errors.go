package errors

import "fmt"

// Sentinel errors returned by repositories and the runtime.
// Services translate them into error details for the caller.
var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrInvalidPayload       = fmt.Errorf("invalid event payload")
	ErrInvalidPasswordHash  = fmt.Errorf("invalid password hash format")
	ErrUserAlreadyExists    = fmt.Errorf("user already exists")
	ErrUserNotFound         = fmt.Errorf("user not found")
	ErrTokenGeneration      = fmt.Errorf("token generation failed")
	ErrChatNotFound         = fmt.Errorf("chat not found")
	ErrAlreadyChatMember    = fmt.Errorf("user is already a chat member")
	ErrInvalidCursor        = fmt.Errorf("invalid pagination cursor")
	ErrRefreshTokenUnknown  = fmt.Errorf("refresh token not found")
	ErrRefreshTokenNotOwned = fmt.Errorf("refresh token belongs to another user")
	ErrDuplicateHandler     = fmt.Errorf("handler already registered for request type")
	ErrPipelineSealed       = fmt.Errorf("pipeline is sealed")
	ErrMissingHandler       = fmt.Errorf("no handler registered for request type")
	ErrConnectionNotFound   = fmt.Errorf("connection not found")
	ErrConnectionGone       = fmt.Errorf("connection is gone")
	ErrSendQueueFull        = fmt.Errorf("connection send queue is full")
)
