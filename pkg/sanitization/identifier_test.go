package sanitization

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogicalIdSanitizer(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "GraceVPC", want: "GraceVPC"},
		{input: "public-subnet-1", want: "public_subnet_1"},
		{input: "1st subnet", want: "st_subnet"},
		{input: "audits/{datasetId}/verify", want: "audits_datasetId_verify"},
		{input: "a.b..c", want: "a_b_c"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, LogicalIdSanitizer.Apply(tt.input))
		})
	}
}

func TestEnvVarKeySanitizer(t *testing.T) {
	assert.Equal(t, "LEDGER_BUCKET_NAME", EnvVarKeySanitizer.Apply("LEDGER-BUCKET NAME"))
	assert.Equal(t, "DB_SECRET_ARN", EnvVarKeySanitizer.Apply("9DB_SECRET_ARN!"))
}
