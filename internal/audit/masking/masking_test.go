package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "cus_****7890", MaskSecret("cus_1234567890"))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "", MaskSecret("  "))
}

func TestMaskFields(t *testing.T) {
	out := MaskFields(map[string]any{
		"stripe_customer_id": "cus_1234567890",
		"role":               "admin",
		"nested": map[string]any{
			"verification_code": "abcdef123456",
		},
	}, "stripe_customer_id", "verification_code")

	assert.Equal(t, "cus_****7890", out["stripe_customer_id"])
	assert.Equal(t, "admin", out["role"])
	assert.Equal(t, "****3456", out["nested"].(map[string]any)["verification_code"])
}
