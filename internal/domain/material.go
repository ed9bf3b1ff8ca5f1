package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxMaterialTagLength is the longest material tag the DAGMC group format
// can hold.
const MaxMaterialTagLength = 27

// GraveyardTag is the material tag of the synthesized graveyard shell
const GraveyardTag = "Graveyard"

// VolumeMaterial links a set of volumes to the material tag they received.
// The list of these is the provenance record of a run.
type VolumeMaterial struct {
	Volumes     []int  `json:"volumes"`
	MaterialTag string `json:"material_tag"`
}

// ValidateMaterialTag rejects tags that do not fit the kernel's group format
func ValidateMaterialTag(tag string) error {
	if n := utf8.RuneCountInString(tag); n > MaxMaterialTagLength {
		return fmt.Errorf("%w: %q has %d characters, material tags must be at most %d",
			ErrTagTooLong, tag, n, MaxMaterialTagLength)
	}
	return nil
}

// IsGraveyardTag reports whether tag names the graveyard, ignoring case
func IsGraveyardTag(tag string) bool {
	return strings.EqualFold(tag, "graveyard")
}

// MaterialGroup returns the kernel group name that carries a material tag
func MaterialGroup(tag string) string {
	return "mat:" + tag
}

// ComplementGroup returns the group name that assigns tag to the implicit
// complement.
func ComplementGroup(tag string) string {
	return "mat:" + tag + "_comp"
}

// MaterialFromEntityName derives a material tag from a kernel entity name.
// CAD exports name volumes "<part>@<suffix>"; the part name is the tag.
func MaterialFromEntityName(name string) string {
	if i := strings.Index(name, "@"); i >= 0 {
		return name[:i]
	}
	return name
}
