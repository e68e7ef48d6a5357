package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexconsultoria/checkout/pkg/validator"
)

func TestApply(t *testing.T) {
	t.Run("collects all failures", func(t *testing.T) {
		err := validator.Apply(
			validator.Required("email", ""),
			validator.Required("phone", "  "),
			validator.Required("full_name", "Maria Souza"),
		)
		require.Error(t, err)

		errs := validator.Extract(err)
		require.Len(t, errs, 2)
		assert.True(t, errs.Has("email"))
		assert.True(t, errs.Has("phone"))
		assert.False(t, errs.Has("full_name"))
		assert.ElementsMatch(t, []string{"email", "phone"}, errs.Fields())
	})

	t.Run("nil on success", func(t *testing.T) {
		assert.NoError(t, validator.Apply(validator.Required("email", "a@b.co")))
	})
}

func TestValidEmail(t *testing.T) {
	cases := []struct {
		value string
		valid bool
	}{
		{"maria@example.com", true},
		{"maria.souza+tag@sub.example.com.br", true},
		{"", false},
		{"not-an-email", false},
		{"maria@localhost", false},
		{"maria@.example.com", false},
	}
	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			err := validator.Apply(validator.ValidEmail("email", tc.value))
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidPhone(t *testing.T) {
	cases := []struct {
		value string
		valid bool
	}{
		{"+5511987654321", true},
		{"11 98765-4321", true},
		{"(11) 98765-4321", true},
		{"", false},
		{"12345", false},
		{"phone", false},
	}
	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			err := validator.Apply(validator.ValidPhone("phone", tc.value))
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidTaxID(t *testing.T) {
	cases := []struct {
		name  string
		value string
		valid bool
	}{
		{"valid cpf with punctuation", "529.982.247-25", true},
		{"valid cpf digits only", "52998224725", true},
		{"valid cnpj with punctuation", "11.222.333/0001-81", true},
		{"valid cnpj digits only", "11222333000181", true},
		{"cpf bad check digit", "529.982.247-26", false},
		{"cnpj bad check digit", "11.222.333/0001-82", false},
		{"repeated digits cpf", "111.111.111-11", false},
		{"repeated digits cnpj", "11.111.111/1111-11", false},
		{"wrong length", "1234567", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Apply(validator.ValidTaxID("tax_id", tc.value))
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidCPFAndCNPJ(t *testing.T) {
	assert.NoError(t, validator.Apply(validator.ValidCPF("cpf", "529.982.247-25")))
	assert.Error(t, validator.Apply(validator.ValidCPF("cpf", "11.222.333/0001-81")))
	assert.NoError(t, validator.Apply(validator.ValidCNPJ("cnpj", "11.222.333/0001-81")))
	assert.Error(t, validator.Apply(validator.ValidCNPJ("cnpj", "529.982.247-25")))
}
