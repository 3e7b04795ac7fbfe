package services

import (
	"chat-relay/auth"
	"chat-relay/domain/account"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/pipeline"
	stderrors "errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Register binds every account and chat handler to p together with its validators.
// maxContentLength bounds the number of characters of a message text.
func Register(p *pipeline.Pipeline, v *validator.Validate, accounts *AccountService, chats *ChatService, maxContentLength int) error {
	if err := auth.RegisterPasswordRule(v); err != nil {
		return fmt.Errorf("password rule: %w", err)
	}

	return stderrors.Join(
		pipeline.Register(p, accounts.Register),
		pipeline.RegisterValidator(p, pipeline.StructValidator[account.RegisterAccount](v,
			pipeline.TagCode(auth.PasswordTag, errors.CodeWeakPassword),
			pipeline.Redact("password"),
		)),
		pipeline.Register(p, accounts.Login),
		pipeline.RegisterValidator(p, pipeline.StructValidator[account.Login](v, pipeline.Redact("password"))),
		pipeline.Register(p, accounts.Refresh),
		pipeline.RegisterValidator(p, pipeline.StructValidator[account.RefreshSession](v, pipeline.Redact("refreshToken"))),
		pipeline.Register(p, accounts.Logout),
		pipeline.RegisterValidator(p, pipeline.StructValidator[account.Logout](v, pipeline.Redact("refreshToken"))),

		pipeline.Register(p, chats.CreateChat),
		pipeline.RegisterValidator(p, pipeline.StructValidator[chat.CreateChat](v)),
		pipeline.RegisterValidator(p, notBlank(func(c chat.CreateChat) (string, string) { return "name", c.Name })),
		pipeline.Register(p, chats.AddMember),
		pipeline.RegisterValidator(p, pipeline.StructValidator[chat.AddMember](v)),
		pipeline.Register(p, chats.OpenChat),
		pipeline.RegisterValidator(p, pipeline.StructValidator[chat.OpenChat](v)),
		pipeline.Register(p, chats.CloseChat),
		pipeline.RegisterValidator(p, pipeline.StructValidator[chat.CloseChat](v)),
		pipeline.Register(p, chats.CreateMessage),
		pipeline.RegisterValidator(p, pipeline.StructValidator[chat.CreateMessage](v)),
		pipeline.RegisterValidator(p, notBlank(func(c chat.CreateMessage) (string, string) { return "text", c.Text })),
		pipeline.RegisterValidator(p, maxLength(maxContentLength, func(c chat.CreateMessage) (string, string) { return "text", c.Text })),
		pipeline.Register(p, chats.ListMessages),
		pipeline.RegisterValidator(p, pipeline.StructValidator[chat.ListMessages](v)),
	)
}

// notBlank rejects a field made of white space only. An empty field is
// left to the struct validator and its required rule.
func notBlank[Req any](field func(Req) (string, string)) pipeline.ValidatorFunc[Req] {
	return func(req Req) []errors.ErrorDetail {
		name, value := field(req)
		if value == "" || strings.TrimSpace(value) != "" {
			return nil
		}
		return []errors.ErrorDetail{errors.Field(errors.CodeInvalidValue, name, fmt.Sprintf("%s must not be blank", name), value)}
	}
}

func maxLength[Req any](limit int, field func(Req) (string, string)) pipeline.ValidatorFunc[Req] {
	return func(req Req) []errors.ErrorDetail {
		name, value := field(req)
		if limit <= 0 || utf8.RuneCountInString(value) <= limit {
			return nil
		}
		return []errors.ErrorDetail{
			errors.Field(errors.CodeTooLong, name, fmt.Sprintf("%s must contain at most %d characters", name, limit), value).
				WithMetadata("Max", limit),
		}
	}
}
