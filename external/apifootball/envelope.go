package apifootball

import (
	"fmt"
	"strings"

	sonic "github.com/bytedance/sonic"
)

// Envelope is the JSON object wrapping every API-Football response.
// Unknown fields are tolerated for forward compatibility.
type Envelope struct {
	Get        string         `json:"get"`
	Parameters map[string]any `json:"parameters"`
	Errors     ErrorField     `json:"errors"`
	Results    int            `json:"results"`
	Paging     Paging         `json:"paging"`

	// Response items stay undecoded so the transformers can decode each
	// entry into their own shapes.
	Response ResponseField `json:"response"`
}

// ResponseField tolerates both response shapes the API emits: the usual array
// of items and the single object of /teams/statistics, which arrives as a
// one-element list.
type ResponseField []RawItem

func (f *ResponseField) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*f = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []RawItem
		if err := sonic.UnmarshalString(trimmed, &list); err != nil {
			return fmt.Errorf("decode envelope response list: %w", err)
		}
		*f = list
		return nil
	}
	item := make(RawItem, len(trimmed))
	copy(item, trimmed)
	*f = ResponseField{item}
	return nil
}

// RawItem is one undecoded entry of the envelope's response array.
type RawItem []byte

func (m *RawItem) UnmarshalJSON(data []byte) error {
	*m = append((*m)[:0], data...)
	return nil
}

func (m RawItem) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return m, nil
}

type Paging struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// ErrorField tolerates both shapes the API emits: an empty array on success
// and an object of code->message on failure.
type ErrorField struct {
	items map[string]string
}

func (f *ErrorField) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" || trimmed == "[]" || trimmed == "{}" {
		f.items = nil
		return nil
	}

	if strings.HasPrefix(trimmed, "{") {
		var object map[string]any
		if err := sonic.UnmarshalString(trimmed, &object); err != nil {
			return fmt.Errorf("decode envelope errors object: %w", err)
		}
		items := make(map[string]string, len(object))
		for key, value := range object {
			items[key] = fmt.Sprintf("%v", value)
		}
		f.items = items
		return nil
	}

	var list []any
	if err := sonic.UnmarshalString(trimmed, &list); err != nil {
		return fmt.Errorf("decode envelope errors list: %w", err)
	}
	if len(list) == 0 {
		f.items = nil
		return nil
	}
	items := make(map[string]string, len(list))
	for i, value := range list {
		items[fmt.Sprintf("error_%d", i)] = fmt.Sprintf("%v", value)
	}
	f.items = items
	return nil
}

func (f ErrorField) MarshalJSON() ([]byte, error) {
	if len(f.items) == 0 {
		return []byte("[]"), nil
	}
	return sonic.Marshal(f.items)
}

// Map returns the normalized code->message view; nil when the call carried
// no errors.
func (f ErrorField) Map() map[string]string {
	return f.items
}

func (f ErrorField) IsEmpty() bool {
	return len(f.items) == 0
}

// RateLimited reports the in-envelope throttle signal the API emits even on
// HTTP 200. Call sites must check this before consuming Response.
func (e *Envelope) RateLimited() bool {
	if e == nil {
		return false
	}
	for key := range e.Errors.Map() {
		if strings.EqualFold(key, "rateLimit") || strings.EqualFold(key, "requests") {
			return true
		}
	}
	return false
}

// Err converts envelope-level errors into a client error, or nil.
func (e *Envelope) Err() error {
	if e == nil || e.Errors.IsEmpty() {
		return nil
	}
	if e.RateLimited() {
		return fmt.Errorf("%w: %v", ErrRateLimited, e.Errors.Map())
	}
	return fmt.Errorf("%w: envelope errors: %v", ErrUnexpectedStatus, e.Errors.Map())
}
