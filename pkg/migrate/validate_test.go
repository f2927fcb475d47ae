package migrate

import "testing"

func TestValidateDirAcceptsBundledMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("bundled migrations should validate: %v", err)
	}
}
