package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const maxBodyBytes = 1 << 20

// fieldError is a client error tied to one request field.
type fieldError struct {
	Field   string
	Message string
}

func (e *fieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

type validatorSvc struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *validatorSvc
)

func validation() *validatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		// prefer json tag names in messages
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		vSvc = &validatorSvc{validate: v, translator: trans}
	})
	return vSvc
}

// decodeSearch reads the body once: into the typed request, and into a raw
// map to pick up the open-ended include_<source> flags.
func decodeSearch(body io.Reader) (searchRequest, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return searchRequest{}, &fieldError{Message: fmt.Sprintf("read body: %v", err)}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return searchRequest{}, &fieldError{Message: "empty body"}
	}

	var req searchRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return searchRequest{}, &fieldError{Field: typeErr.Field, Message: "has the wrong type"}
		}
		return searchRequest{}, &fieldError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return searchRequest{}, &fieldError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	for key, val := range fields {
		name, ok := strings.CutPrefix(key, includePrefix)
		if !ok {
			continue
		}
		var on bool
		if err := json.Unmarshal(val, &on); err != nil {
			return searchRequest{}, &fieldError{Field: key, Message: "must be a boolean"}
		}
		if req.Include == nil {
			req.Include = map[string]bool{}
		}
		req.Include[strings.ToLower(name)] = on
	}

	if err := validation().validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return searchRequest{}, &fieldError{Field: fe.Field(), Message: fe.Translate(validation().translator)}
		}
		return searchRequest{}, &fieldError{Message: err.Error()}
	}
	return req, nil
}
