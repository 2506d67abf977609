package validation

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("topImage", name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	w.Close()

	r := multipart.NewReader(body, w.Boundary())
	form, err := r.ReadForm(32 << 20)
	if err != nil {
		t.Fatal(err)
	}
	return form.File["topImage"][0]
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func TestRegisterInput_Valid(t *testing.T) {
	errs := Struct(RegisterInput{
		Name:            "Testuser",
		Email:           "test@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
	})

	assert.Empty(t, errs)
}

func TestRegisterInput_PasswordMismatch(t *testing.T) {
	errs := Struct(RegisterInput{
		Name:            "Testuser",
		Email:           "test@example.com",
		Password:        "password123",
		ConfirmPassword: "password456",
	})

	assert.Contains(t, errs, "confirmPassword")
	assert.NotContains(t, errs, "password")
}

func TestRegisterInput_MissingFields(t *testing.T) {
	errs := Struct(RegisterInput{})

	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
	assert.Contains(t, errs, "confirmPassword")
}

func TestRegisterInput_BadEmail(t *testing.T) {
	errs := Struct(RegisterInput{
		Name:            "Testuser",
		Email:           "not-an-email",
		Password:        "password123",
		ConfirmPassword: "password123",
	})

	assert.Contains(t, errs, "email")
}

func TestLoginInput_ShortPassword(t *testing.T) {
	errs := Struct(LoginInput{Email: "test@example.com", Password: "short"})

	assert.Contains(t, errs, "password")
}

func TestPostInput(t *testing.T) {
	assert.Empty(t, Struct(PostInput{Title: "A title", Content: "Some content"}))

	errs := Struct(PostInput{})
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "content")

	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	errs = Struct(PostInput{Title: string(long), Content: "ok"})
	assert.Contains(t, errs, "title")
}

func TestImage_AcceptsPNG(t *testing.T) {
	fh := makeFileHeader(t, "cover.png", pngBytes)

	assert.Empty(t, Image(fh))
}

func TestImage_RejectsNonImage(t *testing.T) {
	fh := makeFileHeader(t, "cover.png", []byte("just some text, not an image"))

	msgs := Image(fh)
	assert.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0], "image")
}

func TestImage_RejectsOversized(t *testing.T) {
	big := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, MaxImageSize)...)
	fh := makeFileHeader(t, "huge.png", big)

	msgs := Image(fh)
	assert.NotEmpty(t, msgs)
}
