package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEVMAddress(t *testing.T) {
	assert.NoError(t, ValidateEVMAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"))
	assert.NoError(t, ValidateEVMAddress("f39Fd6e51aad88F6F4ce6aB8827279cffFb92266"))

	assert.Error(t, ValidateEVMAddress(""))
	assert.Error(t, ValidateEVMAddress("0x1234"))
	assert.Error(t, ValidateEVMAddress("0xZZZZd6e51aad88F6F4ce6aB8827279cffFb92266"))
}

func TestValidatePrincipal(t *testing.T) {
	assert.NoError(t, ValidatePrincipal("ryjl3-tyaaa-aaaaa-aaaba-cai"))
	assert.NoError(t, ValidatePrincipal("aaaaa-aa"))

	assert.Error(t, ValidatePrincipal(""))
	assert.Error(t, ValidatePrincipal("UPPER-CASE"))
	assert.Error(t, ValidatePrincipal("nodashes"))
	assert.Error(t, ValidatePrincipal(strings.Repeat("aaaaa-", 11)+"aaaaa"))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("jane@example.com"))

	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("jane"))
	assert.Error(t, ValidateEmail("@example.com"))
	assert.Error(t, ValidateEmail("jane@"))
}
