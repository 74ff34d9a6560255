package sse

import (
	"mime"
	"net/http"
)

// ContentType is the media type of a Server-Sent Events response.
const ContentType = "text/event-stream"

// IsEventStream reports whether resp declares a text/event-stream body.
// Media type parameters such as "; charset=utf-8" are ignored; a malformed
// header is not an event stream.
func IsEventStream(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	return isEventStreamType(resp.Header.Get("Content-Type"))
}

func isEventStreamType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == ContentType
}

// ToEventStream returns the event stream of resp, or nil with a nil error when
// resp is not an event stream. A response without a body yields a
// *ConversionError.
func ToEventStream(resp *http.Response) (*Stream[Event], error) {
	if !IsEventStream(resp) {
		return nil, nil
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, &ConversionError{Response: resp, Err: ErrNoBody}
	}

	return NewEventStream(resp.Body), nil
}

// RequireEventStream is like ToEventStream but fails with an
// *UnavailableError naming the observed content type when resp is not an
// event stream.
func RequireEventStream(resp *http.Response) (*Stream[Event], error) {
	if !IsEventStream(resp) {
		return nil, unavailable(resp)
	}
	return ToEventStream(resp)
}

// ToJSONEventStream returns the JSON event stream of resp, or nil with a nil
// error when resp is not an event stream.
func ToJSONEventStream[T any](resp *http.Response, detector TerminateDetector) (*Stream[JSONEvent[T]], error) {
	events, err := ToEventStream(resp)
	if err != nil || events == nil {
		return nil, err
	}
	return DecodeJSON[T](events, detector), nil
}

// RequireJSONEventStream is like ToJSONEventStream but fails with an
// *UnavailableError when resp is not an event stream.
func RequireJSONEventStream[T any](resp *http.Response, detector TerminateDetector) (*Stream[JSONEvent[T]], error) {
	events, err := RequireEventStream(resp)
	if err != nil {
		return nil, err
	}
	return DecodeJSON[T](events, detector), nil
}

func unavailable(resp *http.Response) error {
	if resp == nil {
		return &UnavailableError{}
	}
	return &UnavailableError{ContentType: resp.Header.Get("Content-Type")}
}
