package errors

// CatalogueVersion is bumped whenever a code is added or removed.
const CatalogueVersion = 1

// Code is a stable, client-facing error identifier.
type Code string

const (
	CodeRequiredField        Code = "REQUIRED_FIELD"
	CodeInvalidFormat        Code = "INVALID_FORMAT"
	CodeTooShort             Code = "TOO_SHORT"
	CodeTooLong              Code = "TOO_LONG"
	CodeInvalidValue         Code = "INVALID_VALUE"
	CodeWeakPassword         Code = "WEAK_PASSWORD"
	CodeUserNotFound         Code = "USER_NOT_FOUND"
	CodeUserAlreadyExists    Code = "USER_ALREADY_EXISTS"
	CodeInvalidCredentials   Code = "INVALID_CREDENTIALS"
	CodeRefreshTokenExpired  Code = "REFRESH_TOKEN_EXPIRED"
	CodeRefreshTokenInvalid  Code = "REFRESH_TOKEN_INVALID"
	CodeChatNotFound         Code = "CHAT_NOT_FOUND"
	CodeNotChatMember        Code = "NOT_CHAT_MEMBER"
	CodeAlreadyChatMember    Code = "ALREADY_CHAT_MEMBER"
	CodeConnectionNotFound   Code = "CONNECTION_NOT_FOUND"
	CodeRequestCancelled     Code = "REQUEST_CANCELLED"
	CodeHandlerNotRegistered Code = "HANDLER_NOT_REGISTERED"
	CodeInternal             Code = "INTERNAL_ERROR"
)

var catalogue = map[Code]struct{}{
	CodeRequiredField:        {},
	CodeInvalidFormat:        {},
	CodeTooShort:             {},
	CodeTooLong:              {},
	CodeInvalidValue:         {},
	CodeWeakPassword:         {},
	CodeUserNotFound:         {},
	CodeUserAlreadyExists:    {},
	CodeInvalidCredentials:   {},
	CodeRefreshTokenExpired:  {},
	CodeRefreshTokenInvalid:  {},
	CodeChatNotFound:         {},
	CodeNotChatMember:        {},
	CodeAlreadyChatMember:    {},
	CodeConnectionNotFound:   {},
	CodeRequestCancelled:     {},
	CodeHandlerNotRegistered: {},
	CodeInternal:             {},
}

// Valid reports whether c belongs to the catalogue.
func (c Code) Valid() bool {
	_, ok := catalogue[c]
	return ok
}

func (c Code) String() string { return string(c) }
