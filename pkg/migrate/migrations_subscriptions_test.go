package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSubscriptionsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_subscriptions.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no subscriptions migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS subscriptions",
		"id text PRIMARY KEY",
		"status subscription_status NOT NULL",
		"cancel_at_period_end boolean NOT NULL DEFAULT false",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Fatalf("subscriptions migration missing %q", check)
		}
	}
}

func TestLinkMigrationEnforcesOnePlanPerOrganization(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_organizations_subscriptions.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no link-table migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS organizations_subscriptions",
		"FOREIGN KEY (organization_id) REFERENCES organizations(id) ON DELETE CASCADE",
		"FOREIGN KEY (subscription_id) REFERENCES subscriptions(id) ON DELETE CASCADE",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_org_subscription_org",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Fatalf("link migration missing %q", check)
		}
	}
}
