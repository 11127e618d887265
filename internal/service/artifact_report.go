package service

import (
	"fmt"
	"math"
	"strings"

	"heri-science-api/pkg/models"
)

// civilizationProfile is the reference data quoted in artifact reports
type civilizationProfile struct {
	Period          string
	Characteristics string
	Materials       string
}

var civilizations = map[string]civilizationProfile{
	"Egyptian": {
		Period:          "3100-332 BCE",
		Characteristics: "Hieroglyphics, pyramids, sphinxes, gold artifacts",
		Materials:       "Limestone, granite, gold, papyrus",
	},
	"Greek": {
		Period:          "800-146 BCE",
		Characteristics: "Marble sculptures, pottery, columns",
		Materials:       "Marble, bronze, terracotta, gold",
	},
	"Roman": {
		Period:          "753 BCE-476 CE",
		Characteristics: "Aqueducts, colosseum, mosaics, busts",
		Materials:       "Marble, concrete, bronze, gold",
	},
	"Mesopotamian": {
		Period:          "3500-539 BCE",
		Characteristics: "Cuneiform tablets, cylinder seals, ziggurats, reliefs",
		Materials:       "Clay, bronze, lapis lazuli, gold",
	},
	"Chinese": {
		Period:          "2070 BCE-220 CE",
		Characteristics: "Bronze ritual vessels, jade carvings, lacquerware, porcelain",
		Materials:       "Bronze, jade, silk, lacquer",
	},
}

var unknownCivilization = civilizationProfile{
	Period:          "Historical Period",
	Characteristics: "Handcrafted form, surface wear, period decoration",
	Materials:       "Stone, metal, ceramic",
}

// Artifact types a report can name
const (
	TypePottery   = "Pottery"
	TypeSculpture = "Sculpture"
	TypeCoin      = "Coin"
	TypeJewelry   = "Jewelry"
	TypeTool      = "Tool"
	TypeWeapon    = "Weapon"
)

const (
	maxReportConfidence = 0.95
	sharpEdgeDensity    = 0.15
	vividColorfulness   = 0.35
)

// BuildArtifactReport derives a report from an inspection. The same
// inspection always yields the same report.
func BuildArtifactReport(ins models.Inspection) models.ArtifactReport {
	civ := strings.TrimSpace(strings.TrimPrefix(ins.Culture.DetectedCulture, "Ancient "))
	profile, ok := civilizations[civ]
	if !ok {
		profile = unknownCivilization
		if civ == "" || civ == "Artifact" {
			civ = "Ancient Civilization"
		}
	}

	report := models.ArtifactReport{
		Civilization:      civ,
		Period:            profile.Period,
		ArtifactType:      classifyArtifact(ins),
		Materials:         profile.Materials,
		Characteristics:   profile.Characteristics,
		Confidence:        reportConfidence(ins),
		PreservationState: preservationState(ins.Analysis.DamageScore),
	}
	report.FullReport = FullReport(report)
	return report
}

// classifyArtifact guesses the object type from its silhouette and surface
func classifyArtifact(ins models.Inspection) string {
	ar := ins.AspectRatio
	switch {
	case ar > 0 && ar < 0.7:
		return TypeSculpture
	case ar > 1.5 && ins.EdgeDensity > sharpEdgeDensity:
		return TypeWeapon
	case ar > 1.5:
		return TypeTool
	case ar >= 0.9 && ar <= 1.1 && ins.Colorfulness > vividColorfulness:
		return TypeJewelry
	case ar >= 0.9 && ar <= 1.1:
		return TypeCoin
	default:
		return TypePottery
	}
}

func preservationState(damage float64) string {
	switch {
	case damage <= 40:
		return "Excellent"
	case damage <= 70:
		return "Good"
	default:
		return "Fair"
	}
}

func reportConfidence(ins models.Inspection) float64 {
	c := ins.Culture.Confidence
	if !ins.Analysis.IsFaded {
		c += 0.1
	}
	if !ins.Analysis.IsNoisy {
		c += 0.05
	}
	c = math.Min(c, maxReportConfidence)
	return math.Round(c*100) / 100
}

// FullReport renders a report as markdown
func FullReport(r models.ArtifactReport) string {
	return fmt.Sprintf(`**Artifact Analysis Report**

Civilization: %s
Period: %s
Type: %s
Materials: %s
Condition: %s
Confidence: %d%%`,
		r.Civilization, r.Period, r.ArtifactType, r.Materials, r.PreservationState,
		int(math.Round(r.Confidence*100)))
}
