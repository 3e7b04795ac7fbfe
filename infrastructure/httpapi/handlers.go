package httpapi

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/account"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/pipeline"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// StatusClientClosedRequest is the non-standard status used when the caller gave up.
const StatusClientClosedRequest = 499

const maxBodyBytes = 1 << 20

type idResponse struct {
	ID any `json:"id"`
}

type createChatBody struct {
	Name      string      `json:"name"`
	MemberIDs []uuid.UUID `json:"memberIds"`
}

type addMemberBody struct {
	UserID uuid.UUID `json:"userId"`
}

type createMessageBody struct {
	Text     string      `json:"text"`
	Mentions []uuid.UUID `json:"mentions"`
}

type logoutBody struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *api) registerAccount(w http.ResponseWriter, r *http.Request) {
	var cmd account.RegisterAccount
	if !decode(w, r, &cmd) {
		return
	}
	result := pipeline.Send[uuid.UUID](r.Context(), a.pipeline, cmd)
	respond(w, result, http.StatusCreated, func(id uuid.UUID) any { return idResponse{ID: id} })
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var cmd account.Login
	if !decode(w, r, &cmd) {
		return
	}
	respond(w, pipeline.Send[domain.Session](r.Context(), a.pipeline, cmd), http.StatusOK, asIs[domain.Session])
}

func (a *api) refreshSession(w http.ResponseWriter, r *http.Request) {
	var cmd account.RefreshSession
	if !decode(w, r, &cmd) {
		return
	}
	respond(w, pipeline.Send[domain.Session](r.Context(), a.pipeline, cmd), http.StatusOK, asIs[domain.Session])
}

func (a *api) logout(w http.ResponseWriter, r *http.Request) {
	var body logoutBody
	if r.ContentLength != 0 && !decode(w, r, &body) {
		return
	}
	userID, _ := auth.UserIDFrom(r.Context())
	result := pipeline.Send[domain.Unit](r.Context(), a.pipeline, account.Logout{UserID: userID, RefreshToken: body.RefreshToken})
	respond(w, result, http.StatusNoContent, noBody)
}

func (a *api) createChat(w http.ResponseWriter, r *http.Request) {
	var body createChatBody
	if !decode(w, r, &body) {
		return
	}
	userID, _ := auth.UserIDFrom(r.Context())
	result := pipeline.Send[uuid.UUID](r.Context(), a.pipeline, chat.CreateChat{OwnerID: userID, Name: body.Name, MemberIDs: body.MemberIDs})
	respond(w, result, http.StatusCreated, func(id uuid.UUID) any { return idResponse{ID: id} })
}

func (a *api) addMember(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}
	var body addMemberBody
	if !decode(w, r, &body) {
		return
	}
	userID, _ := auth.UserIDFrom(r.Context())
	result := pipeline.Send[domain.Unit](r.Context(), a.pipeline, chat.AddMember{ChatID: chatID, ActorID: userID, UserID: body.UserID})
	respond(w, result, http.StatusNoContent, noBody)
}

func (a *api) createMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}
	var body createMessageBody
	if !decode(w, r, &body) {
		return
	}
	userID, _ := auth.UserIDFrom(r.Context())
	result := pipeline.Send[domain.MessageID](r.Context(), a.pipeline, chat.CreateMessage{
		ChatID:   chatID,
		SenderID: userID,
		Text:     body.Text,
		Mentions: body.Mentions,
	})
	respond(w, result, http.StatusCreated, func(id domain.MessageID) any { return idResponse{ID: id} })
}

func (a *api) listMessages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}
	query := parseListQuery(r)
	if query.err != nil {
		respond(w, domain.Fail[domain.MessagePage](*query.err), http.StatusOK, asIs[domain.MessagePage])
		return
	}
	userID, _ := auth.UserIDFrom(r.Context())
	result := pipeline.Send[domain.MessagePage](r.Context(), a.pipeline, chat.ListMessages{
		ChatID: chatID,
		UserID: userID,
		Cursor: query.cursor,
		Limit:  query.limit,
	})
	respond(w, result, http.StatusOK, asIs[domain.MessagePage])
}

type listQuery struct {
	cursor *string
	limit  int
	err    *errors.ErrorDetail
}

// parseListQuery reads the optional cursor and limit parameters.
func parseListQuery(r *http.Request) listQuery {
	var q listQuery
	values := r.URL.Query()
	if cursor := values.Get("cursor"); cursor != "" {
		q.cursor = &cursor
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			detail := errors.Field(errors.CodeInvalidFormat, "limit", "limit must be an integer", raw)
			q.err = &detail
			return q
		}
		q.limit = limit
	}
	return q
}

func chatIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "chatID")
	id, err := uuid.Parse(raw)
	if err != nil {
		fail(w, errors.Field(errors.CodeInvalidFormat, "chatId", "chatId must be a valid uuid", raw))
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		fail(w, errors.New(errors.CodeInvalidFormat, "request body is not valid JSON"))
		return false
	}
	return true
}

func fail(w http.ResponseWriter, details ...errors.ErrorDetail) {
	writeJSON(w, StatusFor(details[0].Code()), domain.Fail[domain.Unit](details...))
}

// respond writes the success body built by onOk, or the failure with the
// status of its first error.
func respond[T any](w http.ResponseWriter, result domain.Result[T], status int, onOk func(T) any) {
	result.Match(
		func(value T) {
			body := onOk(value)
			if body == nil {
				w.WriteHeader(status)
				return
			}
			writeJSON(w, status, body)
		},
		func(details []errors.ErrorDetail) {
			writeJSON(w, StatusFor(details[0].Code()), result)
		},
	)
}

func asIs[T any](v T) any { return v }

func noBody(domain.Unit) any { return nil }

// StatusFor maps an error code to the HTTP status of the response.
func StatusFor(code errors.Code) int {
	switch code {
	case errors.CodeRequiredField, errors.CodeInvalidFormat, errors.CodeTooShort,
		errors.CodeTooLong, errors.CodeInvalidValue, errors.CodeWeakPassword:
		return http.StatusBadRequest
	case errors.CodeInvalidCredentials, errors.CodeRefreshTokenExpired, errors.CodeRefreshTokenInvalid:
		return http.StatusUnauthorized
	case errors.CodeNotChatMember:
		return http.StatusForbidden
	case errors.CodeUserNotFound, errors.CodeChatNotFound, errors.CodeConnectionNotFound:
		return http.StatusNotFound
	case errors.CodeUserAlreadyExists, errors.CodeAlreadyChatMember:
		return http.StatusConflict
	case errors.CodeRequestCancelled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}
