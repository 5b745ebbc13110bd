package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupStruct struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Fullname string `json:"fullname" validate:"notblank"`
	Password string `json:"password" validate:"required,password"`
}

func validSignup() signupStruct {
	return signupStruct{
		Username: "chai_aur_code",
		Email:    "hitesh@example.com",
		Fullname: "Hitesh C",
		Password: "Secret123",
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(validSignup()))
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	s := validSignup()
	s.Email = "not-an-email"

	fields := fieldsOf(t, Validate(s))
	assert.Equal(t, "must be a valid email address", fields["email"])
}

func TestValidate_NotBlank(t *testing.T) {
	s := validSignup()
	s.Fullname = "   "

	fields := fieldsOf(t, Validate(s))
	assert.Equal(t, "is required", fields["fullname"])
}

func TestValidate_Username(t *testing.T) {
	for _, bad := range []string{"ab", "has space", "semi;colon", strings.Repeat("a", 31)} {
		s := validSignup()
		s.Username = bad
		fields := fieldsOf(t, Validate(s))
		assert.Contains(t, fields, "username", bad)
	}
}

func TestValidate_Password(t *testing.T) {
	s := validSignup()
	s.Password = "alllowercase1"

	fields := fieldsOf(t, Validate(s))
	assert.Contains(t, fields["password"], "upper case")
}

func TestIsStrongPassword(t *testing.T) {
	assert.True(t, IsStrongPassword("Secret123"))
	assert.False(t, IsStrongPassword("Sh0rt"))
	assert.False(t, IsStrongPassword("NODIGITSHERE"))
	assert.False(t, IsStrongPassword("nouppercase1"))
	assert.False(t, IsStrongPassword("A1"+strings.Repeat("a", 71)))
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(signupStruct{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'username'")
	assert.Contains(t, err.Error(), "is required")
}

type loginStruct struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
}

func TestValidate_RequiredWithout(t *testing.T) {
	assert.NoError(t, Validate(loginStruct{Email: "a@b.com"}))
	assert.NoError(t, Validate(loginStruct{Username: "alice"}))

	fields := fieldsOf(t, Validate(loginStruct{}))
	assert.Contains(t, fields["username"], "is required when")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"username":"alice","email":"alice@example.com","fullname":"Alice","password":"Secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	var s signupStruct
	require.NoError(t, DecodeAndValidate(rec, req, &s))
	assert.Equal(t, "alice", s.Username)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))
	rec := httptest.NewRecorder()

	var s signupStruct
	err := DecodeAndValidate(rec, req, &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON body")
}

func TestDecodeAndValidate_BodyTooLarge(t *testing.T) {
	huge := `{"username":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge))
	rec := httptest.NewRecorder()

	var s signupStruct
	assert.Error(t, DecodeAndValidate(rec, req, &s))
}
