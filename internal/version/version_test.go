package version

import "testing"

func TestStrings(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()

	Version, Commit = "1.2.3", "abc1234"

	if got := String(); got != "1.2.3 (abc1234)" {
		t.Errorf("String() = %q", got)
	}
	if got := UserAgent(); got != "realtime-client/1.2.3" {
		t.Errorf("UserAgent() = %q", got)
	}
}
