package reconcile

import (
	"reflect"
	"testing"

	"github.com/MyStarInYourSky/zthost/config"
	"github.com/MyStarInYourSky/zthost/sdk"
)

func TestDesiredMemberNoChanges(t *testing.T) {
	current := &sdk.Member{
		Name:   "web-01",
		Hidden: false,
		Config: map[string]interface{}{
			"authorized": true,
			"ipAssignments": []interface{}{
				"10.147.17.5",
			},
		},
	}
	decl := config.NetworkDeclaration{
		Config: map[string]interface{}{
			"authorized": true,
		},
	}

	_, changed, err := desiredMember(current, decl)
	if err != nil {
		t.Fatalf("desiredMember() error = %v", err)
	}
	if changed {
		t.Error("matching declaration should report no change")
	}
}

func TestDesiredMemberOverlaysDeclaredKeys(t *testing.T) {
	current := &sdk.Member{
		Config: map[string]interface{}{
			"authorized":   false,
			"activeBridge": true,
		},
	}
	decl := config.NetworkDeclaration{
		Config: map[string]interface{}{
			"authorized": true,
		},
	}

	desired, changed, err := desiredMember(current, decl)
	if err != nil {
		t.Fatalf("desiredMember() error = %v", err)
	}
	if !changed {
		t.Fatal("differing declared key should report a change")
	}
	if desired.Config["authorized"] != true {
		t.Errorf("authorized = %v, want true", desired.Config["authorized"])
	}
	// Keys the declaration does not mention stay as fetched.
	if desired.Config["activeBridge"] != true {
		t.Errorf("activeBridge = %v, want true", desired.Config["activeBridge"])
	}
}

func TestDesiredMemberNormalizesNumbers(t *testing.T) {
	// The control plane returns JSON numbers as float64; the declaration
	// carries YAML integers. They must compare equal.
	current := &sdk.Member{
		Config: map[string]interface{}{
			"capabilities": []interface{}{float64(1), float64(2)},
		},
	}
	decl := config.NetworkDeclaration{
		Config: map[string]interface{}{
			"capabilities": []interface{}{1, 2},
		},
	}

	_, changed, err := desiredMember(current, decl)
	if err != nil {
		t.Fatalf("desiredMember() error = %v", err)
	}
	if changed {
		t.Error("integer-declared values must not diff against wire float64s")
	}
}

func TestDesiredMemberNameAndDescription(t *testing.T) {
	tests := []struct {
		name        string
		current     sdk.Member
		decl        config.NetworkDeclaration
		wantChanged bool
		wantName    string
	}{
		{
			name:        "declared name replaces fetched name",
			current:     sdk.Member{Name: "old"},
			decl:        config.NetworkDeclaration{Name: "new"},
			wantChanged: true,
			wantName:    "new",
		},
		{
			name:        "empty declared name preserves fetched name",
			current:     sdk.Member{Name: "set-in-ui"},
			decl:        config.NetworkDeclaration{},
			wantChanged: false,
			wantName:    "set-in-ui",
		},
		{
			name:        "empty declared description preserves fetched description",
			current:     sdk.Member{Description: "set-in-ui"},
			decl:        config.NetworkDeclaration{},
			wantChanged: false,
			wantName:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desired, changed, err := desiredMember(&tt.current, tt.decl)
			if err != nil {
				t.Fatalf("desiredMember() error = %v", err)
			}
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if desired.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", desired.Name, tt.wantName)
			}
		})
	}
}

func TestDesiredMemberHiddenAlwaysEnforced(t *testing.T) {
	current := &sdk.Member{Hidden: true}
	decl := config.NetworkDeclaration{}

	desired, changed, err := desiredMember(current, decl)
	if err != nil {
		t.Fatalf("desiredMember() error = %v", err)
	}
	if !changed {
		t.Fatal("hidden member with default declaration should report a change")
	}
	if desired.Hidden {
		t.Error("Hidden should be forced to the declared default false")
	}
}

func TestNormalizeConfig(t *testing.T) {
	got, err := normalizeConfig(map[string]interface{}{
		"port":  9993,
		"flags": []interface{}{1, "a"},
	})
	if err != nil {
		t.Fatalf("normalizeConfig() error = %v", err)
	}

	want := map[string]interface{}{
		"port":  float64(9993),
		"flags": []interface{}{float64(1), "a"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("normalizeConfig() = %v, want %v", got, want)
	}

	empty, err := normalizeConfig(nil)
	if err != nil {
		t.Fatalf("normalizeConfig(nil) error = %v", err)
	}
	if empty != nil {
		t.Errorf("normalizeConfig(nil) = %v, want nil", empty)
	}
}
