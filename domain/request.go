package domain

// Request is implemented by every command and query. Resp is the type of the
// value carried by the Result the request produces.
type Request[Resp any] interface {
	response(Resp)
}

// Returns is embedded in request structs to bind them to their response type:
//
//	type CreateMessage struct {
//		domain.Returns[domain.MessageID]
//		ChatID uuid.UUID
//		Text   string
//	}
type Returns[Resp any] struct{}

func (Returns[Resp]) response(Resp) {}

// Unit is the response of requests that only report success or failure.
type Unit struct{}
