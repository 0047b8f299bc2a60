package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "an***@example.se", RedactEmail("anna.svensson@example.se"))
	assert.Equal(t, "***@example.se", RedactEmail("ab@example.se"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}

func TestRedactOrgNumber(t *testing.T) {
	assert.Equal(t, "kund 55*********", RedactOrgNumber("kund 556677-8899"))
	assert.Equal(t, "19***********", RedactOrgNumber("19900101-1234"))
	assert.Equal(t, "ingen träff", RedactOrgNumber("ingen träff"))
}
