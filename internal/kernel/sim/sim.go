// Package sim is an in-memory stand-in for the geometry kernel.
//
// It understands the command strings built by package kernel, tracks
// volumes, surfaces and groups the way the real kernel reports them, and
// writes placeholder files for exports. Tests use it to assert on the exact
// command sequence; the CLI uses it for dry runs.
package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"cadtoh5m/internal/kernel"
)

type volume struct {
	id         int
	name       string
	surfaces   []int
	fused      bool
	brick      float64
	shell      *Shell
	transforms []string
	sizing     []string
	meshed     bool
}

type surface struct {
	id       int
	planar   bool
	vertices int
	visible  bool
}

// VolumeInfo is a read-only view of a simulated volume
type VolumeInfo struct {
	ID         int
	Name       string
	Surfaces   []int
	Brick      float64
	Shell      *Shell
	Transforms []string
	Sizing     []string
	Meshed     bool
}

// Kernel is a simulated kernel session
type Kernel struct {
	mu sync.Mutex

	parts       map[string]Part
	nextVolume  int
	nextSurface int
	volumes     map[int]*volume
	surfaces    map[int]*surface
	groups      map[string][]string
	settings    map[string]string
	commands    []string
	failOn      []string
	resets      int
	opens       int
	closed      bool
	mergeTol    float64
	merges      int
	imprints    int
	keepTarget  bool
}

// New creates an empty simulated kernel
func New() *Kernel {
	k := &Kernel{parts: make(map[string]Part)}
	k.clear()
	return k
}

func (k *Kernel) clear() {
	k.nextVolume = 1
	k.nextSurface = 1
	k.volumes = make(map[int]*volume)
	k.surfaces = make(map[int]*surface)
	k.groups = make(map[string][]string)
	k.settings = make(map[string]string)
	k.mergeTol = 0
}

// AddPart registers what importing a file with the given base name produces.
// Files without a registered part import as a single box named after the
// file stem.
func (k *Kernel) AddPart(baseName string, p Part) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.parts[baseName] = p
	return k
}

// FailOn makes every command containing substr fail
func (k *Kernel) FailOn(substr string) *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.failOn = append(k.failOn, substr)
	return k
}

// KeepSubtractTarget makes subtract reuse the target's volume id for the
// result instead of allocating a new one
func (k *Kernel) KeepSubtractTarget() *Kernel {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keepTarget = true
	return k
}

// Opener returns a kernel.Opener that hands out this session
func (k *Kernel) Opener() kernel.Opener {
	return func(ctx context.Context) (kernel.Session, error) {
		k.mu.Lock()
		defer k.mu.Unlock()
		k.opens++
		k.closed = false
		return k, nil
	}
}

// Commands returns every command issued so far, including failed ones
func (k *Kernel) Commands() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.commands...)
}

// Opens counts how often the Opener was used
func (k *Kernel) Opens() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.opens
}

// Resets counts reset commands
func (k *Kernel) Resets() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.resets
}

// Closed reports whether the session was closed
func (k *Kernel) Closed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.closed
}

// Group returns the members of a group as "volume N" / "surface N"
func (k *Kernel) Group(name string) []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.groups[name]...)
}

// Groups returns the names of all groups, sorted
func (k *Kernel) Groups() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	names := make([]string, 0, len(k.groups))
	for name := range k.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Setting returns the value of a "set <name> on|off" command
func (k *Kernel) Setting(name string) string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.settings[name]
}

// MergeTolerance returns the last merge tolerance set
func (k *Kernel) MergeTolerance() float64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.mergeTol
}

// Volumes returns the live volume ids, ascending
func (k *Kernel) Volumes() []int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.volumeIDs()
}

// Volume returns a view of one volume
func (k *Kernel) Volume(id int) (VolumeInfo, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.volumes[id]
	if !ok {
		return VolumeInfo{}, false
	}
	return VolumeInfo{
		ID:         v.id,
		Name:       v.name,
		Surfaces:   append([]int(nil), v.surfaces...),
		Brick:      v.brick,
		Shell:      v.shell,
		Transforms: append([]string(nil), v.transforms...),
		Sizing:     append([]string(nil), v.sizing...),
		Meshed:     v.meshed,
	}, true
}

// SurfaceVisible reports whether a surface was made visible
func (k *Kernel) SurfaceVisible(id int) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.surfaces[id]
	return ok && s.visible
}

// ReplaceSurface swaps a surface of a volume for a new one with a fresh id,
// the way a merge renumbers faces. It returns the new id.
func (k *Kernel) ReplaceSurface(volumeID, surfaceID int, s Surface) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.volumes[volumeID]
	if !ok {
		return 0, fmt.Errorf("volume %d does not exist", volumeID)
	}
	for i, id := range v.surfaces {
		if id == surfaceID {
			delete(k.surfaces, id)
			newID := k.addSurface(s)
			v.surfaces[i] = newID
			return newID, nil
		}
	}
	return 0, fmt.Errorf("surface %d is not in volume %d", surfaceID, volumeID)
}

// Cmd implements kernel.Session
func (k *Kernel) Cmd(ctx context.Context, command string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return errors.New("session closed")
	}
	k.commands = append(k.commands, command)

	for _, substr := range k.failOn {
		if strings.Contains(command, substr) {
			return fmt.Errorf("simulated failure: %q", command)
		}
	}

	for _, h := range handlers {
		if m := h.re.FindStringSubmatch(command); m != nil {
			return h.fn(k, m)
		}
	}
	return fmt.Errorf("unknown command: %q", command)
}

// ParseList implements kernel.Session
func (k *Kernel) ParseList(ctx context.Context, entityType, filter string) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	filter = strings.TrimSpace(filter)
	switch {
	case entityType == kernel.EntityVolume && filter == "all":
		return k.volumeIDs(), nil

	case entityType == kernel.EntitySurface && filter == "all":
		ids := make([]int, 0, len(k.surfaces))
		for id := range k.surfaces {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		return ids, nil

	case entityType == kernel.EntitySurface && strings.HasPrefix(filter, "in volume "):
		vols, err := parseIDs(strings.TrimPrefix(filter, "in volume "))
		if err != nil {
			return nil, err
		}
		var ids []int
		for _, vid := range vols {
			v, ok := k.volumes[vid]
			if !ok {
				continue
			}
			ids = append(ids, v.surfaces...)
		}
		sort.Ints(ids)
		return ids, nil

	case entityType == kernel.EntityVertex && strings.HasPrefix(filter, "in surface "):
		sid, err := strconv.Atoi(strings.TrimPrefix(filter, "in surface "))
		if err != nil {
			return nil, err
		}
		s, ok := k.surfaces[sid]
		if !ok {
			return nil, nil
		}
		ids := make([]int, s.vertices)
		for i := range ids {
			ids[i] = sid*100 + i + 1
		}
		return ids, nil
	}
	return nil, fmt.Errorf("unsupported list %s %q", entityType, filter)
}

// EntityName implements kernel.Session
func (k *Kernel) EntityName(ctx context.Context, entityType string, id int) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch entityType {
	case kernel.EntityVolume:
		v, ok := k.volumes[id]
		if !ok {
			return "", fmt.Errorf("volume %d does not exist", id)
		}
		return v.name, nil
	case kernel.EntitySurface:
		if _, ok := k.surfaces[id]; !ok {
			return "", fmt.Errorf("surface %d does not exist", id)
		}
		return fmt.Sprintf("Surface %d", id), nil
	}
	return "", fmt.Errorf("unsupported entity type %q", entityType)
}

// IsPlanar implements kernel.Session
func (k *Kernel) IsPlanar(ctx context.Context, surfaceID int) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.surfaces[surfaceID]
	if !ok {
		return false, fmt.Errorf("surface %d does not exist", surfaceID)
	}
	return s.planar, nil
}

// Close implements kernel.Session
func (k *Kernel) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
	return nil
}

func (k *Kernel) volumeIDs() []int {
	ids := make([]int, 0, len(k.volumes))
	for id := range k.volumes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (k *Kernel) addSurface(s Surface) int {
	id := k.nextSurface
	k.nextSurface++
	k.surfaces[id] = &surface{id: id, planar: s.Planar, vertices: s.Vertices}
	return id
}

func (k *Kernel) addVolume(spec Volume) *volume {
	v := &volume{id: k.nextVolume, name: spec.Name}
	k.nextVolume++
	if v.name == "" {
		v.name = fmt.Sprintf("Volume %d", v.id)
	}
	for _, s := range spec.Surfaces {
		v.surfaces = append(v.surfaces, k.addSurface(s))
	}
	k.volumes[v.id] = v
	return v
}

func (k *Kernel) lookup(ids []int) ([]*volume, error) {
	out := make([]*volume, 0, len(ids))
	for _, id := range ids {
		v, ok := k.volumes[id]
		if !ok {
			return nil, fmt.Errorf("volume %d does not exist", id)
		}
		out = append(out, v)
	}
	return out, nil
}

func (k *Kernel) selectVolumes(list string) ([]*volume, error) {
	if strings.TrimSpace(list) == "all" {
		return k.lookup(k.volumeIDs())
	}
	ids, err := parseIDs(list)
	if err != nil {
		return nil, err
	}
	return k.lookup(ids)
}

func (k *Kernel) addToGroup(name, member string) {
	for _, m := range k.groups[name] {
		if m == member {
			return
		}
	}
	k.groups[name] = append(k.groups[name], member)
}

func (k *Kernel) writeExport(path, kind string, extra map[string]any) error {
	doc := map[string]any{
		"kind":    kind,
		"volumes": k.volumeIDs(),
		"groups":  k.groups,
	}
	for key, value := range extra {
		doc[key] = value
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("export %s: %w", filepath.Base(path), err)
	}
	return nil
}

type handler struct {
	re *regexp.Regexp
	fn func(k *Kernel, m []string) error
}

func noop(*Kernel, []string) error { return nil }

// handlers are tried in order; specific patterns precede the generic
// "volume <ids> <directive>" one.
var handlers = []handler{
	{regexp.MustCompile(`^import (step|acis) "([^"]+)" separate_bodies no_surfaces no_curves no_vertices$`), (*Kernel).doImport},
	{regexp.MustCompile(`^healer autoheal vol all$`), noop},
	{regexp.MustCompile(`^separate body all$`), noop},
	{regexp.MustCompile(`^validate vol all$`), noop},
	{regexp.MustCompile(`^imprint body all$`), func(k *Kernel, _ []string) error { k.imprints++; return nil }},
	{regexp.MustCompile(`^merge vol all group_results$`), func(k *Kernel, _ []string) error { k.merges++; return nil }},
	{regexp.MustCompile(`^merge tolerance (\S+)$`), (*Kernel).doMergeTolerance},
	{regexp.MustCompile(`^set (\w+) (on|off)$`), func(k *Kernel, m []string) error { k.settings[m[1]] = m[2]; return nil }},
	{regexp.MustCompile(`^reset$`), func(k *Kernel, _ []string) error { k.resets++; k.clear(); return nil }},
	{regexp.MustCompile(`^unite vol ([\d ]+) with vol ([\d ]+)$`), (*Kernel).doUnite},
	{regexp.MustCompile(`^group "([^"]+)" add (volume|vol|surf|surface) ([\d ]+)$`), (*Kernel).doGroup},
	{regexp.MustCompile(`^surface (\d+) visibility on$`), (*Kernel).doVisible},
	{regexp.MustCompile(`^volume ([\d ]+) scale (\S+)$`), (*Kernel).doScale},
	{regexp.MustCompile(`^volume ([\d ]+) move (\S+ \S+ \S+)$`), (*Kernel).doMove},
	{regexp.MustCompile(`^rotate volume ([\d ]+) angle (\S+) about origin (\S+ \S+ \S+) direction (\S+ \S+ \S+)$`), (*Kernel).doRotate},
	{regexp.MustCompile(`^create brick x (\S+)$`), (*Kernel).doBrick},
	{regexp.MustCompile(`^subtract vol (\d+) from vol (\d+)$`), (*Kernel).doSubtract},
	{regexp.MustCompile(`^export dagmc "([^"]+)" faceting_tolerance (\S+)( make_watertight)?$`), (*Kernel).doExportDAGMC},
	{regexp.MustCompile(`^export mesh "([^"]+)" overwrite$`), func(k *Kernel, m []string) error { return k.writeExport(m[1], "exodus", nil) }},
	{regexp.MustCompile(`^save as "([^"]+)" overwrite$`), func(k *Kernel, m []string) error { return k.writeExport(m[1], "cub", nil) }},
	{regexp.MustCompile(`^Trimesher volume gradation (\S+)$`), func(k *Kernel, m []string) error { k.settings["trimesher_gradation"] = m[1]; return nil }},
	{regexp.MustCompile(`^mesh volume (\d+)$`), (*Kernel).doMesh},
	{regexp.MustCompile(`^volume (all|[\d ]+?) (\D.*)$`), (*Kernel).doSizing},
}

func (k *Kernel) doImport(m []string) error {
	path := m[2]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file %s could not be read", path)
	}
	base := filepath.Base(path)
	part, ok := k.parts[base]
	if !ok {
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		part = Part{Volumes: []Volume{Box(stem)}}
	}
	for _, spec := range part.Volumes {
		v := k.addVolume(spec)
		v.fused = part.Fused
	}
	return nil
}

func (k *Kernel) doMergeTolerance(m []string) error {
	tol, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return fmt.Errorf("bad merge tolerance %q", m[1])
	}
	k.mergeTol = tol
	return nil
}

func (k *Kernel) doUnite(m []string) error {
	ids, err := parseIDs(m[1])
	if err != nil {
		return err
	}
	vols, err := k.lookup(ids)
	if err != nil {
		return err
	}
	if len(vols) < 2 {
		return nil
	}
	for _, v := range vols {
		if !v.fused {
			// disjoint bodies stay separate lumps
			return nil
		}
	}

	united := &volume{id: k.nextVolume, name: vols[0].name, fused: true}
	k.nextVolume++
	for _, v := range vols {
		united.surfaces = append(united.surfaces, v.surfaces...)
		delete(k.volumes, v.id)
	}
	k.volumes[united.id] = united
	return nil
}

func (k *Kernel) doGroup(m []string) error {
	ids, err := parseIDs(m[3])
	if err != nil {
		return err
	}
	switch m[2] {
	case "volume", "vol":
		if _, err := k.lookup(ids); err != nil {
			return err
		}
		for _, id := range ids {
			k.addToGroup(m[1], fmt.Sprintf("volume %d", id))
		}
	default:
		for _, id := range ids {
			if _, ok := k.surfaces[id]; !ok {
				return fmt.Errorf("surface %d does not exist", id)
			}
			k.addToGroup(m[1], fmt.Sprintf("surface %d", id))
		}
	}
	return nil
}

func (k *Kernel) doVisible(m []string) error {
	id, _ := strconv.Atoi(m[1])
	s, ok := k.surfaces[id]
	if !ok {
		return fmt.Errorf("surface %d does not exist", id)
	}
	s.visible = true
	return nil
}

func (k *Kernel) transform(list, desc string) error {
	vols, err := k.selectVolumes(list)
	if err != nil {
		return err
	}
	for _, v := range vols {
		v.transforms = append(v.transforms, desc)
	}
	return nil
}

func (k *Kernel) doScale(m []string) error {
	return k.transform(m[1], "scale "+m[2])
}

func (k *Kernel) doMove(m []string) error {
	return k.transform(m[1], "move "+m[2])
}

func (k *Kernel) doRotate(m []string) error {
	return k.transform(m[1], fmt.Sprintf("rotate %s about %s direction %s", m[2], m[3], m[4]))
}

func (k *Kernel) doBrick(m []string) error {
	side, err := strconv.ParseFloat(m[1], 64)
	if err != nil || side <= 0 {
		return fmt.Errorf("bad brick size %q", m[1])
	}
	v := k.addVolume(Box(""))
	v.brick = side
	return nil
}

func (k *Kernel) doSubtract(m []string) error {
	toolID, _ := strconv.Atoi(m[1])
	targetID, _ := strconv.Atoi(m[2])
	vols, err := k.lookup([]int{toolID, targetID})
	if err != nil {
		return err
	}
	tool, target := vols[0], vols[1]
	if tool.brick >= target.brick {
		return fmt.Errorf("subtract of volume %d leaves nothing of volume %d", toolID, targetID)
	}

	for _, v := range vols {
		for _, sid := range v.surfaces {
			delete(k.surfaces, sid)
		}
		delete(k.volumes, v.id)
	}

	shell := Volume{}
	for i := 0; i < 12; i++ {
		shell.Surfaces = append(shell.Surfaces, Surface{Planar: true, Vertices: 4})
	}
	v := k.addVolume(shell)
	v.shell = &Shell{Inner: tool.brick, Outer: target.brick}
	if k.keepTarget {
		delete(k.volumes, v.id)
		k.nextVolume--
		v.id = target.id
		v.name = fmt.Sprintf("Volume %d", v.id)
		k.volumes[v.id] = v
	}
	return nil
}

func (k *Kernel) doExportDAGMC(m []string) error {
	tol, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return fmt.Errorf("bad faceting tolerance %q", m[2])
	}
	return k.writeExport(m[1], "dagmc", map[string]any{
		"faceting_tolerance": tol,
		"make_watertight":    m[3] != "",
		"attributes":         k.settings["attribute"] == "on",
	})
}

func (k *Kernel) doMesh(m []string) error {
	id, _ := strconv.Atoi(m[1])
	vols, err := k.lookup([]int{id})
	if err != nil {
		return err
	}
	vols[0].meshed = true
	return nil
}

func (k *Kernel) doSizing(m []string) error {
	vols, err := k.selectVolumes(m[1])
	if err != nil {
		return err
	}
	for _, v := range vols {
		v.sizing = append(v.sizing, m[2])
	}
	return nil
}

func parseIDs(list string) ([]int, error) {
	fields := strings.Fields(list)
	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad id %q", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
