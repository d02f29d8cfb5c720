package awsclient

import (
	"fmt"
	"os"
)

// EnvVar is the name of an environment variable set on the function by its stack.
type EnvVar string

const (
	LedgerBucketEnv EnvVar = "LEDGER_BUCKET_NAME"
	DBSecretArnEnv  EnvVar = "DB_SECRET_ARN"
	DBEndpointEnv   EnvVar = "DB_ENDPOINT"
)

// GetOr returns the variable's value, or defaultValue if it is unset or empty.
func (e EnvVar) GetOr(defaultValue string) string {
	if v := os.Getenv(string(e)); v != "" {
		return v
	}
	return defaultValue
}

// Required returns the variable's value, or an error if it is unset or empty.
func (e EnvVar) Required() (string, error) {
	v := os.Getenv(string(e))
	if v == "" {
		return "", fmt.Errorf("environment variable %s is not set", string(e))
	}
	return v, nil
}
