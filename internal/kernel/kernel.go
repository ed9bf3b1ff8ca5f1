package kernel

import (
	"context"
	"strconv"
	"strings"
)

// DefaultCubitPath is where Coreform Cubit installs its Python binding
const DefaultCubitPath = "/opt/Coreform-Cubit-2021.5/bin/"

// Entity types understood by ParseList and EntityName
const (
	EntityVolume  = "volume"
	EntitySurface = "surface"
	EntityVertex  = "vertex"
)

// Session is one live kernel session. Volume and surface ids it returns are
// only meaningful within the session.
type Session interface {
	// Cmd executes a kernel command
	Cmd(ctx context.Context, command string) error

	// ParseList resolves an entity list, e.g. ("volume", "all") or
	// ("surface", "in volume 3 4")
	ParseList(ctx context.Context, entityType, filter string) ([]int, error)

	// EntityName returns the name the kernel holds for an entity
	EntityName(ctx context.Context, entityType string, id int) (string, error)

	// IsPlanar reports whether a surface is planar
	IsPlanar(ctx context.Context, surfaceID int) (bool, error)

	// Close ends the session
	Close() error
}

// Opener creates a session. Callers open lazily so that argument
// validation can fail before any kernel interaction.
type Opener func(ctx context.Context) (Session, error)

// FormatIDs renders ids the way the kernel command language lists them
func FormatIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, " ")
}

// FormatFloat renders a number without trailing zeros or exponent noise
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
