// Package bind decodes and validates request payloads for handlers
package bind

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	perr "timeline/internal/platform/errors"
	"timeline/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FieldLevel aliases validator.FieldLevel
type FieldLevel = validator.FieldLevel

// ValidatorSvc holds a singleton validator and translator
type ValidatorSvc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *ValidatorSvc
)

// Get returns the validator singleton, initializing on first use.
// Messages use json tag names and english translations
func Get() *ValidatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		registerTag(v, trans, "min", "{0} must be at least {1}", shortParam)
		registerTag(v, trans, "max", "{0} must be at most {1}", shortParam)

		_ = v.RegisterValidation("notblank", notBlank)
		registerTag(v, trans, "notblank", "{0} must not be blank", fieldOnly)

		_ = v.RegisterValidation("audio_mime", audioMIME)
		registerTag(v, trans, "audio_mime", "{0} must be an audio/* content type", fieldOnly)

		vSvc = &ValidatorSvc{Validator: v, Translator: trans}
	})
	return vSvc
}

// RegisterValidation registers a custom tag on the singleton
func RegisterValidation(tag string, fn validator.Func) error {
	return Get().Validator.RegisterValidation(tag, fn)
}

// Struct validates v and maps failures to an ErrorCodeValidation error carrying the first field
func Struct(v any) error {
	err := Get().Validator.Struct(v)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		logger.Get().Error().Err(inv).Msg("validator internal error")
		return perr.Internalf("validation error")
	}
	field, msg := ValidationFieldAndMessage(err)
	return perr.WithField(perr.New(perr.ErrorCodeValidation, msg), field)
}

// JSONOptions controls parsing behavior
type JSONOptions struct {
	MaxBytes        int64 // default 1MB
	DisallowUnknown bool  // default true
}

func defaultJSONOptions() JSONOptions {
	return JSONOptions{MaxBytes: 1 << 20, DisallowUnknown: true}
}

// ParseJSON decodes one JSON value into T, validates it, and maps failures to project errors
func ParseJSON[T any](r *http.Request, opts ...JSONOptions) (T, error) {
	var zero T
	o := defaultJSONOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	body := r.Body
	if body == nil {
		body = http.NoBody
	}
	defer func() {
		if err := body.Close(); err != nil {
			logger.Get().Error().Err(err).Msg("failed to close request body")
		}
	}()
	if o.MaxBytes > 0 {
		body = http.MaxBytesReader(nil, body, o.MaxBytes)
	}

	dec := json.NewDecoder(body)
	if o.DisallowUnknown {
		dec.DisallowUnknownFields()
	}

	var dst T
	if err := dec.Decode(&dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return zero, perr.JSONErrf("empty body")
		case errors.As(err, &tooBig):
			return zero, perr.Newf(perr.ErrorCodeTooLarge, "body exceeds %d bytes", tooBig.Limit)
		default:
			return zero, perr.JSONErrf("invalid JSON: %v", err)
		}
	}
	if dec.More() {
		return zero, perr.JSONErrf("unexpected trailing data")
	}
	if err := Struct(dst); err != nil {
		return zero, err
	}
	return dst, nil
}

// ValidationFieldAndMessage returns the first field and translated message.
// It accepts raw validator errors as well as the errors Struct returns
func ValidationFieldAndMessage(err error) (field, message string) {
	if err == nil {
		return "", ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), verrs[0].Translate(Get().Translator)
	}
	if e, ok := perr.As(err); ok && e.Code() == perr.ErrorCodeValidation {
		return e.Field(), e.Error()
	}
	return "", err.Error()
}

func notBlank(fl FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func audioMIME(fl FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || strings.HasPrefix(strings.ToLower(s), "audio/")
}

type translateFn func(ut.Translator, validator.FieldError) string

func shortParam(t ut.Translator, fe validator.FieldError) string {
	msg, _ := t.T(fe.Tag(), fe.Field(), fe.Param())
	return msg
}

func fieldOnly(t ut.Translator, fe validator.FieldError) string {
	msg, _ := t.T(fe.Tag(), fe.Field())
	return msg
}

func registerTag(v *validator.Validate, trans ut.Translator, tag, text string, fn translateFn) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		validator.TranslationFunc(fn),
	)
}
