package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codeRequest struct {
	Code string `validate:"required,permcode"`
	Role string `validate:"omitempty,slug"`
}

func newValidator(t *testing.T) *validator.Validate {
	v := validator.New()
	require.NoError(t, Register(v))
	return v
}

func TestPermCode(t *testing.T) {
	v := newValidator(t)
	for _, ok := range []string{"user", "user:list", "audit_log:export", "a1:b2"} {
		assert.NoError(t, v.Struct(codeRequest{Code: ok}), ok)
	}
	for _, bad := range []string{"User", "user:", ":list", "user:list:extra", "user list", "1user"} {
		assert.Error(t, v.Struct(codeRequest{Code: bad}), bad)
	}
}

func TestSlug(t *testing.T) {
	v := newValidator(t)
	assert.NoError(t, v.Struct(codeRequest{Code: "x", Role: "super_admin"}))
	assert.Error(t, v.Struct(codeRequest{Code: "x", Role: "super-admin"}))
	assert.Error(t, v.Struct(codeRequest{Code: "x", Role: "Admin"}))
}

func TestDescribe(t *testing.T) {
	v := newValidator(t)
	err := v.Struct(codeRequest{Role: "Bad"})
	require.Error(t, err)
	assert.Equal(t, "code: is required; role: must be lowercase letters, digits and underscores", Describe(err))
}

func TestToSnake(t *testing.T) {
	assert.Equal(t, "department_id", toSnake("DepartmentID"))
	assert.Equal(t, "old_password", toSnake("OldPassword"))
	assert.Equal(t, "code", toSnake("Code"))
}
