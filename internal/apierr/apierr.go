// Package apierr defines the outbound response envelope, the error code
// taxonomy, and the static en/fa message table used by the HTTP boundary.
// The core classifies failures; only this layer localizes them.
package apierr

import (
	"encoding/json"
	"net/http"

	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
)

// Error codes surfaced in the failure envelope.
const (
	CodeInvalidPayload   = "INVALID_PAYLOAD"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeAIRequestFailed  = "AI_REQUEST_FAILED"
	CodeAIEmptyResponse  = "AI_EMPTY_RESPONSE"
	CodeInternalError    = "INTERNAL_ERROR"
)

// Envelope is the external-facing response shape. Output mirrors
// Data.OutputMD for older clients that expect a bare output string.
type Envelope struct {
	OK     bool       `json:"ok"`
	Data   *Data      `json:"data"`
	Error  *ErrorBody `json:"error"`
	Output string     `json:"output,omitempty"`
}

type Data struct {
	OutputMD string         `json:"output_md"`
	Meta     map[string]any `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// messages is the static localization table. Unknown codes fall back to the
// generic internal-error text in the requested language.
var messages = map[string]map[models.Lang]string{
	CodeInvalidPayload: {
		models.LangEN: "The request body could not be understood.",
		models.LangFA: "بدنه درخواست قابل پردازش نیست.",
	},
	CodeValidationFailed: {
		models.LangEN: "Required request content is missing.",
		models.LangFA: "محتوای الزامی درخواست وارد نشده است.",
	},
	CodeRateLimited: {
		models.LangEN: "Daily request limit reached. Please try again tomorrow.",
		models.LangFA: "به محدودیت روزانه درخواست رسیده‌اید. لطفاً فردا دوباره تلاش کنید.",
	},
	CodeAIRequestFailed: {
		models.LangEN: "The AI servers could not be reached. Please try again later.",
		models.LangFA: "سرورهای هوش مصنوعی در دسترس نیستند. لطفاً بعداً دوباره تلاش کنید.",
	},
	CodeAIEmptyResponse: {
		models.LangEN: "The AI returned an empty or malformed answer. Please rephrase your request.",
		models.LangFA: "پاسخ هوش مصنوعی خالی یا نامعتبر بود. لطفاً درخواست خود را بازنویسی کنید.",
	},
	CodeInternalError: {
		models.LangEN: "An internal error occurred.",
		models.LangFA: "خطای داخلی رخ داده است.",
	},
}

// Message returns the localized text for a code, falling back to the
// generic internal-error message for unknown codes.
func Message(code string, lang models.Lang) string {
	if lang != models.LangFA {
		lang = models.LangEN
	}
	if byLang, ok := messages[code]; ok {
		return byLang[lang]
	}
	return messages[CodeInternalError][lang]
}

// WriteSuccess writes the success envelope.
func WriteSuccess(w http.ResponseWriter, outputMD string, meta map[string]any) {
	writeJSON(w, http.StatusOK, Envelope{
		OK:     true,
		Data:   &Data{OutputMD: outputMD, Meta: meta},
		Output: outputMD,
	})
}

// WriteFailure writes a localized failure envelope.
func WriteFailure(w http.ResponseWriter, status int, code string, lang models.Lang, details string) {
	writeJSON(w, status, Envelope{
		OK: false,
		Error: &ErrorBody{
			Code:    code,
			Message: Message(code, lang),
			Details: details,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
