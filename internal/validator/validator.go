package validator

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	ptBR "github.com/go-playground/locales/pt_BR"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	ptBRTranslations "github.com/go-playground/validator/v10/translations/pt_BR"
)

// trans is the Portuguese translator attached to Gin's binding engine.
var trans ut.Translator

var (
	standaloneOnce  sync.Once
	standalone      *govalidator.Validate
	standaloneTrans ut.Translator
)

// Setup registers the validator with Portuguese translations on Gin's binding engine.
// Call once during application startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		trans = configure(v)
	}
}

// configure wires JSON field names and pt_BR messages into v.
func configure(v *govalidator.Validate) ut.Translator {
	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	locale := ptBR.New()
	uni := ut.New(locale, locale)
	t, _ := uni.GetTranslator("pt_BR")
	_ = ptBRTranslations.RegisterDefaultTranslations(v, t)

	// The default pt_BR set has no message for datetime.
	_ = v.RegisterTranslation("datetime", t,
		func(ut ut.Translator) error {
			return ut.Add("datetime", "{0} deve ser uma data válida (AAAA-MM-DD)", true)
		},
		func(ut ut.Translator, fe govalidator.FieldError) string {
			msg, _ := ut.T("datetime", fe.Field())
			return msg
		},
	)
	return t
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	return translate(err, trans)
}

func translate(err error, t ut.Translator) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if t == nil {
				fields[fe.Field()] = fe.Error()
				continue
			}
			fields[fe.Field()] = fe.Translate(t)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// Struct validates v against its `binding` tags outside of a request, the
// same rules the API applies. Used by the dashboard form and the spreadsheet
// importer. Returns nil when v is valid.
func Struct(v interface{}) map[string]string {
	standaloneOnce.Do(func() {
		standalone = govalidator.New()
		standalone.SetTagName("binding")
		standaloneTrans = configure(standalone)
	})
	if err := standalone.Struct(v); err != nil {
		return translate(err, standaloneTrans)
	}
	return nil
}

// Summary flattens a field error map into one line, ordered by field name.
func Summary(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fields[k])
	}
	return strings.Join(msgs, "; ")
}
