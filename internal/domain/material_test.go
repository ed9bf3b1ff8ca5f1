package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateMaterialTag(t *testing.T) {
	tests := []struct {
		tag     string
		wantErr bool
	}{
		{"fuel", false},
		{strings.Repeat("a", MaxMaterialTagLength), false},
		{strings.Repeat("a", MaxMaterialTagLength+1), true},
		{"", false},
		{strings.Repeat("é", 14), false},
		{strings.Repeat("é", MaxMaterialTagLength), false},
		{strings.Repeat("é", MaxMaterialTagLength+1), true},
	}

	for _, tt := range tests {
		err := ValidateMaterialTag(tt.tag)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateMaterialTag(%q) error = %v, wantErr %v", tt.tag, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrTagTooLong) {
			t.Errorf("ValidateMaterialTag(%q) error = %v, want ErrTagTooLong", tt.tag, err)
		}
	}
}

func TestIsGraveyardTag(t *testing.T) {
	for _, tag := range []string{"graveyard", "Graveyard", "GRAVEYARD"} {
		if !IsGraveyardTag(tag) {
			t.Errorf("IsGraveyardTag(%q) = false", tag)
		}
	}
	for _, tag := range []string{"grave", "graveyard_mat", ""} {
		if IsGraveyardTag(tag) {
			t.Errorf("IsGraveyardTag(%q) = true", tag)
		}
	}
}

func TestMaterialFromEntityName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"blanket@3", "blanket"},
		{"firstwall", "firstwall"},
		{"a@b@c", "a"},
		{"@x", ""},
	}
	for _, tt := range tests {
		if got := MaterialFromEntityName(tt.name); got != tt.want {
			t.Errorf("MaterialFromEntityName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestGroupNames(t *testing.T) {
	if got := MaterialGroup("fuel"); got != "mat:fuel" {
		t.Errorf("MaterialGroup() = %q", got)
	}
	if got := ComplementGroup("air"); got != "mat:air_comp" {
		t.Errorf("ComplementGroup() = %q", got)
	}
}
