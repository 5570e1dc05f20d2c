// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

var allIds = []Id{
	ConfigLoadFailedId,
	PackageNotFoundId,
	PackageParseErrorId,
	PackageEvalFailedId,
	PackageConflictId,
	MissingExplicitId,
	PermissionDeniedId,
	UnsupportedPackageId,
	InvalidIndexId,
	MaliciousPackageId,
	RemoteUnsupportedId,
	ExtensionNotFulfilledId,
}

func TestId_Constants(t *testing.T) {
	seen := make(map[Id]bool)
	for _, id := range allIds {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	if ConfigLoadFailedId != 1 {
		t.Errorf("ConfigLoadFailedId = %d, want 1", ConfigLoadFailedId)
	}
}

func TestIssue_Links(t *testing.T) {
	issue := Get(ConfigLoadFailedId)
	if issue == nil {
		t.Fatal("Get(ConfigLoadFailedId) returned nil")
	}

	links := issue.ExtLinks()
	if len(links) == 0 {
		t.Fatal("ExtLinks() should not be empty")
	}
	original := links[0]
	links[0] = "modified"
	if issue.ExtLinks()[0] != original {
		t.Error("ExtLinks() should return a clone")
	}

	if issue.DocLinks() != nil {
		t.Error("DocLinks() should be nil when none are set")
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{PackageNotFoundId, false, "Package not found"},
		{PackageParseErrorId, false, "Failed to parse package"},
		{PackageEvalFailedId, false, "evaluation failed"},
		{PackageConflictId, false, "Conflicting packages"},
		{MissingExplicitId, false, "Explicit dependency"},
		{PermissionDeniedId, false, "Permission denied"},
		{UnsupportedPackageId, false, "Package not supported"},
		{InvalidIndexId, false, "Invalid repository index"},
		{MaliciousPackageId, false, "malicious"},
		{RemoteUnsupportedId, false, "Remote package"},
		{ExtensionNotFulfilledId, false, "Extended package not installed"},
		{Id(9999), true, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			issue := Get(tt.id)

			if tt.wantNil {
				if issue != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}

			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if issue.Id() != tt.id {
				t.Errorf("Id() = %d, want %d", issue.Id(), tt.id)
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain '%s'", tt.id, tt.contains)
			}
		})
	}
}

func TestValues(t *testing.T) {
	issues := Values()
	if len(issues) != len(allIds) {
		t.Errorf("Values() returned %d issues, want %d", len(issues), len(allIds))
	}
	for _, issue := range issues {
		if issue.Id() == 0 {
			t.Error("found issue with ID 0")
		}
		if issue.MarkdownMsg() == "" {
			t.Errorf("Issue %d has empty MarkdownMsg", issue.Id())
		}
	}
}

func TestIssue_Render(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	withLinks := &Issue{
		id:       Id(9999),
		mdMsg:    "# Test Issue\n\nThis is a test.",
		docLinks: []HttpLink{"https://docs.example.com"},
		extLinks: []HttpLink{"https://external.example.com"},
	}
	rendered, err := withLinks.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if !strings.Contains(rendered, "See also") || !strings.Contains(rendered, "<https://external.example.com>") {
		t.Errorf("Render() with links = %q", rendered)
	}

	noLinks := &Issue{id: Id(9998), mdMsg: "# Test Issue\n\nNo links here."}
	rendered, err = noLinks.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if strings.Contains(rendered, "See also") {
		t.Error("Render() without links should not contain 'See also'")
	}

	for _, issue := range Values() {
		rendered, err := issue.Render("")
		if err != nil {
			t.Errorf("Issue %d failed to render: %v", issue.Id(), err)
		}
		if rendered == "" {
			t.Errorf("Issue %d rendered to empty string", issue.Id())
		}
	}
}
