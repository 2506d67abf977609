package validation

import (
	"fmt"
	"mime/multipart"
	"reflect"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

// Errors maps a form field name to its human-readable messages.
type Errors map[string][]string

// MaxImageSize is the upload ceiling for cover images.
const MaxImageSize = 5 << 20 // 5 MiB

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report errors under the form field name, not the Go field name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

type RegisterInput struct {
	Name            string `form:"name" validate:"required,max=50"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=Password"`
}

type LoginInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8"`
}

type PostInput struct {
	Title   string `form:"title" validate:"required,max=255"`
	Content string `form:"content" validate:"required,max=100000"`
}

// Struct validates any of the input structs above and returns field-keyed
// messages. An empty map means the input passed.
func Struct(input interface{}) Errors {
	errs := Errors{}

	err := validate.Struct(input)
	if err == nil {
		return errs
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["form"] = append(errs["form"], "invalid input")
		return errs
	}

	for _, fe := range verrs {
		field := fe.Field()
		errs[field] = append(errs[field], message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "eqfield":
		return "passwords do not match"
	default:
		return "invalid value"
	}
}

// Image checks an uploaded cover image: size ceiling and an image/* MIME
// type sniffed from the content, not the filename.
func Image(fh *multipart.FileHeader) []string {
	var msgs []string

	if fh.Size > MaxImageSize {
		msgs = append(msgs, fmt.Sprintf("image must be at most %d MB", MaxImageSize>>20))
	}

	f, err := fh.Open()
	if err != nil {
		return append(msgs, "could not read uploaded file")
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return append(msgs, "could not read uploaded file")
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		msgs = append(msgs, "file must be an image")
	}

	return msgs
}
