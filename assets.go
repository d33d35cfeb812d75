package main

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

// ErrUnknownTheme is returned for a theme name that is not registered
var ErrUnknownTheme = errors.New("unknown theme")

// Theme selects the templates, level timing and attacks of one environment
type Theme struct {
	Name           string
	TemplateNames  []string
	SurvivalTime   float64 // seconds until the portal opens
	Attacks        bool
	SpecialEventAt float64 // seconds into the level, 0 = none
	SpecialAttack  AttackType
	Next           string
}

// Themes is the registry of playable environments, cycled through Next
var Themes = map[string]Theme{
	"pillarScape": {
		Name:          "pillarScape",
		TemplateNames: []string{"area1", "area2", "area3"},
		SurvivalTime:  50,
		Next:          "redApex",
	},
	"redApex": {
		Name:          "redApex",
		TemplateNames: []string{"area1001"},
		SurvivalTime:  50,
		Next:          "voidEye",
	},
	"voidEye": {
		Name:           "voidEye",
		TemplateNames:  []string{"area1", "area2", "area3"},
		SurvivalTime:   75,
		Attacks:        true,
		SpecialEventAt: 33.5,
		SpecialAttack:  AttackCrosses,
		Next:           "pillarScape",
	},
}

// LookupTheme returns a registered theme
func LookupTheme(name string) (Theme, error) {
	t, ok := Themes[name]
	if !ok {
		return Theme{}, fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	return t, nil
}

// AttacksFor returns the attack rotation of a theme, nil if it has none
func AttacksFor(t Theme) []AttackDef {
	if !t.Attacks {
		return nil
	}
	if t.SpecialAttack != "" {
		return VoidEyeAttacks()
	}
	return DefaultAttacks()
}

// AssetProvider supplies track geometry and the vehicle hierarchy
type AssetProvider interface {
	Templates(names []string) ([]*Mesh, error)
	Vehicle() *Model
}

// Procedural chunk dimensions
const (
	ProceduralChunkWidth  = 200.0
	ProceduralChunkLength = 400.0
	floorY                = -20.0
	pillarSize            = 10.0
	pillarHeight          = 90.0
)

// ProceduralAssets builds pillar fields in place of authored models.
// Template "areaN" holds 2+3·(N mod 1000) pillars over a floor slab; the
// layout is seeded from the name so every build of a template is identical.
type ProceduralAssets struct {
	log         zerolog.Logger
	ChunkWidth  float64
	ChunkLength float64
}

// NewProceduralAssets creates a provider with the default chunk size
func NewProceduralAssets(log zerolog.Logger) *ProceduralAssets {
	return &ProceduralAssets{
		log:         log.With().Str("component", "assets").Logger(),
		ChunkWidth:  ProceduralChunkWidth,
		ChunkLength: ProceduralChunkLength,
	}
}

// Templates builds one mesh per recognised name. Unknown names are logged
// and skipped; ErrNoTemplates is returned if nothing could be built.
func (p *ProceduralAssets) Templates(names []string) ([]*Mesh, error) {
	var out []*Mesh
	for _, name := range names {
		tier, ok := templateTier(name)
		if !ok {
			p.log.Warn().Str("template", name).Msg("missing template, skipped")
			continue
		}
		out = append(out, p.buildArea(name, tier))
	}
	if len(out) == 0 {
		return nil, ErrNoTemplates
	}
	return out, nil
}

func templateTier(name string) (int, bool) {
	if !strings.HasPrefix(name, "area") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, "area"))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n % 1000, true
}

func (p *ProceduralAssets) buildArea(name string, tier int) *Mesh {
	w, l := p.ChunkWidth, p.ChunkLength
	h := fnv.New64a()
	h.Write([]byte(name))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	tris := append([]Triangle(nil), BoxMesh("floor", mgl64.Vec3{0, floorY, 0}, mgl64.Vec3{w, 2, l}).Triangles...)
	count := 2 + 3*tier
	for i := 0; i < count; i++ {
		x := (rng.Float64() - 0.5) * (w - pillarSize)
		z := (rng.Float64() - 0.5) * (l - pillarSize)
		height := pillarHeight * (0.6 + 0.4*rng.Float64())
		c := mgl64.Vec3{x, floorY + height/2, z}
		tris = append(tris, BoxMesh("pillar", c, mgl64.Vec3{pillarSize, height, pillarSize}).Triangles...)
	}
	return NewMesh(name, tris)
}

// Vehicle returns a hull with a separate, slightly smaller collider part
func (p *ProceduralAssets) Vehicle() *Model {
	return &Model{
		Name: "ship",
		Parts: []*SubMesh{
			NewSubMesh("ship_hull", BoxMesh("ship_hull", mgl64.Vec3{}, mgl64.Vec3{6, 2, 10}), mgl64.Ident4()),
			NewSubMesh("ship_collider", BoxMesh("ship_collider", mgl64.Vec3{}, mgl64.Vec3{4, 1.5, 8}), mgl64.Ident4()),
		},
	}
}
