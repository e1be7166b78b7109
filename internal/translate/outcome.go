package translate

import "fmt"

// Kind enumerates the closed set of translation results.
type Kind int

const (
	KindSuccess Kind = iota
	KindEmpty
	KindRateLimited
	KindAuthFailed
	KindAPIError
	KindUnknownError
	KindUnsupportedLanguage
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindEmpty:
		return "empty"
	case KindRateLimited:
		return "rate_limited"
	case KindAuthFailed:
		return "auth_failed"
	case KindAPIError:
		return "api_error"
	case KindUnknownError:
		return "unknown_error"
	case KindUnsupportedLanguage:
		return "unsupported_language"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the result of one translation request. Text is set only for
// KindSuccess; Detail carries the backend message for error kinds and the
// rejected code for KindUnsupportedLanguage.
type Outcome struct {
	Kind   Kind
	Text   string
	Detail string
}

// Success wraps translated text.
func Success(text string) Outcome { return Outcome{Kind: KindSuccess, Text: text} }

// Empty reports a backend success with nothing usable in it.
func Empty() Outcome { return Outcome{Kind: KindEmpty} }

// RateLimited reports that the backend throttled the request.
func RateLimited() Outcome { return Outcome{Kind: KindRateLimited} }

// AuthFailed reports rejected backend credentials.
func AuthFailed() Outcome { return Outcome{Kind: KindAuthFailed} }

// APIFailure reports an error the backend described itself.
func APIFailure(detail string) Outcome { return Outcome{Kind: KindAPIError, Detail: detail} }

// UnknownFailure reports any other fault.
func UnknownFailure(detail string) Outcome { return Outcome{Kind: KindUnknownError, Detail: detail} }

// Unsupported reports a target code missing from the registry.
func Unsupported(code string) Outcome { return Outcome{Kind: KindUnsupportedLanguage, Detail: code} }

// OK reports whether the outcome carries a translation.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// Message is the user-facing notice for a non-success outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case KindSuccess:
		return o.Text
	case KindEmpty:
		return "⚠️ The translation result was empty. Please try again later."
	case KindRateLimited:
		return "Translation API rate limit reached. Please try again later."
	case KindAuthFailed:
		return "⚠️ **Error**: Authentication failed with the translation service. Please contact the bot administrator."
	case KindAPIError:
		return fmt.Sprintf("A translation API error occurred: %s", o.Detail)
	case KindUnsupportedLanguage:
		return fmt.Sprintf("Unsupported language code: %s", o.Detail)
	default:
		return fmt.Sprintf("An error occurred during translation: %s", o.Detail)
	}
}
