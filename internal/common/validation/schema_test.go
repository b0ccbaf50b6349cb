package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument_WelcomeLedger(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		valid bool
	}{
		{"empty object", `{}`, true},
		{"welcomed members", `{"1356909813241741412": true, "42": true}`, true},
		{"false flag", `{"42": false}`, false},
		{"string flag", `{"42": "yes"}`, false},
		{"array document", `["42"]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateDocument(WelcomeLedgerSchema, []byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid, result.Error())
			if !tt.valid {
				assert.NotEmpty(t, result.Errors)
			}
		})
	}
}

func TestValidateDocument_MalformedJSON(t *testing.T) {
	_, err := ValidateDocument(WelcomeLedgerSchema, []byte(`{"42": tru`))
	assert.Error(t, err)
}
