package odontogram

// Condition, Surface and Material are open string codes. Codes written by other
// clients that are missing from the catalogs below are carried through unchanged.
type (
	Condition string
	Surface   string
	Material  string
)

const (
	ConditionHealthy    Condition = "healthy"
	ConditionCaries     Condition = "caries"
	ConditionFilled     Condition = "filled"
	ConditionCrown      Condition = "crown"
	ConditionImplant    Condition = "implant"
	ConditionMissing    Condition = "missing"
	ConditionExtraction Condition = "extraction"
	ConditionRootCanal  Condition = "root_canal"
	ConditionFracture   Condition = "fracture"
	ConditionUnerupted  Condition = "unerupted"
)

const (
	SurfaceOcclusal   Surface = "occlusal"
	SurfaceMesial     Surface = "mesial"
	SurfaceDistal     Surface = "distal"
	SurfaceVestibular Surface = "vestibular"
	SurfaceLingual    Surface = "lingual"
	SurfacePalatal    Surface = "palatal"
)

const (
	MaterialNone         Material = "none"
	MaterialAmalgam      Material = "amalgam"
	MaterialComposite    Material = "composite"
	MaterialCeramic      Material = "ceramic"
	MaterialGold         Material = "gold"
	MaterialGlassIonomer Material = "glass_ionomer"
	MaterialTemporary    Material = "temporary"
)

// UnknownColor is used for condition codes missing from the catalog.
const UnknownColor = "#9E9E9E"

// ConditionInfo is one entry of the condition catalog.
type ConditionInfo struct {
	Code  Condition `json:"code"`
	Label string    `json:"label"`
	Color string    `json:"color"`
}

// SurfaceInfo is one entry of the surface catalog.
type SurfaceInfo struct {
	Code  Surface `json:"code"`
	Label string  `json:"label"`
}

// MaterialInfo is one entry of the material catalog.
type MaterialInfo struct {
	Code  Material `json:"code"`
	Label string   `json:"label"`
}

var conditions = []ConditionInfo{
	{ConditionHealthy, "Healthy", "#FFFFFF"},
	{ConditionCaries, "Caries", "#E53935"},
	{ConditionFilled, "Filled", "#1E88E5"},
	{ConditionCrown, "Crown", "#FDD835"},
	{ConditionImplant, "Implant", "#8E24AA"},
	{ConditionMissing, "Missing", "#424242"},
	{ConditionExtraction, "Extraction indicated", "#FB8C00"},
	{ConditionRootCanal, "Root canal", "#00897B"},
	{ConditionFracture, "Fracture", "#6D4C41"},
	{ConditionUnerupted, "Unerupted", "#B0BEC5"},
}

var surfaces = []SurfaceInfo{
	{SurfaceOcclusal, "Occlusal"},
	{SurfaceMesial, "Mesial"},
	{SurfaceDistal, "Distal"},
	{SurfaceVestibular, "Vestibular / buccal"},
	{SurfaceLingual, "Lingual"},
	{SurfacePalatal, "Palatal"},
}

var materials = []MaterialInfo{
	{MaterialNone, "None"},
	{MaterialAmalgam, "Amalgam"},
	{MaterialComposite, "Composite resin"},
	{MaterialCeramic, "Ceramic"},
	{MaterialGold, "Gold"},
	{MaterialGlassIonomer, "Glass ionomer"},
	{MaterialTemporary, "Temporary"},
}

var (
	conditionIndex = make(map[Condition]ConditionInfo, len(conditions))
	surfaceIndex   = make(map[Surface]SurfaceInfo, len(surfaces))
	materialIndex  = make(map[Material]MaterialInfo, len(materials))
)

func init() {
	for _, c := range conditions {
		conditionIndex[c.Code] = c
	}
	for _, s := range surfaces {
		surfaceIndex[s.Code] = s
	}
	for _, m := range materials {
		materialIndex[m.Code] = m
	}
}

// Conditions returns the ordered condition catalog.
func Conditions() []ConditionInfo { return append([]ConditionInfo(nil), conditions...) }

// Surfaces returns the ordered surface catalog.
func Surfaces() []SurfaceInfo { return append([]SurfaceInfo(nil), surfaces...) }

// Materials returns the ordered material catalog, "none" first.
func Materials() []MaterialInfo { return append([]MaterialInfo(nil), materials...) }

func (c Condition) Known() bool {
	_, ok := conditionIndex[c]
	return ok
}

// Label returns the display label, or the raw code when unknown.
func (c Condition) Label() string {
	if info, ok := conditionIndex[c]; ok {
		return info.Label
	}
	return string(c)
}

// Color returns the display color, or UnknownColor when unknown.
func (c Condition) Color() string {
	if info, ok := conditionIndex[c]; ok {
		return info.Color
	}
	return UnknownColor
}

func (s Surface) Known() bool {
	_, ok := surfaceIndex[s]
	return ok
}

func (s Surface) Label() string {
	if info, ok := surfaceIndex[s]; ok {
		return info.Label
	}
	return string(s)
}

func (m Material) Known() bool {
	_, ok := materialIndex[m]
	return ok
}

func (m Material) Label() string {
	if info, ok := materialIndex[m]; ok {
		return info.Label
	}
	return string(m)
}
