package pipeline

import (
	_ "embed"
	"fmt"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/calibrateai/accuracy/calibrate"
	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

// stableNames is the closed set of preset names the catalogue must expose.
var stableNames = []string{"fast", "balanced", "accurate", "coding", "research"}

type presetDoc struct {
	Stages     []string `yaml:"stages"`
	Candidates struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	} `yaml:"candidates"`
	Calibration struct {
		HighThreshold float64 `yaml:"high_threshold"`
		LowThreshold  float64 `yaml:"low_threshold"`
	} `yaml:"calibration"`
}

// Preset is one fully-specified named configuration: its stage list,
// candidate band, and calibration thresholds.
type Preset struct {
	Name          string
	Config        accuracytype.PipelineConfig
	MinCandidates int
	MaxCandidates int
}

// PresetCatalogue holds the stable named presets, loaded once from the
// embedded YAML document.
type PresetCatalogue struct {
	presets map[string]Preset
}

// NewPresetCatalogue parses the embedded preset document. Every preset it
// yields has passed PipelineConfig validation (:generation present).
func NewPresetCatalogue() (*PresetCatalogue, error) {
	var docs map[string]presetDoc
	if err := yaml.Unmarshal(presetsYAML, &docs); err != nil {
		return nil, fmt.Errorf("pipeline: parsing embedded presets: %w", err)
	}

	catalogue := &PresetCatalogue{presets: make(map[string]Preset, len(stableNames))}
	for _, name := range stableNames {
		doc, ok := docs[name]
		if !ok {
			return nil, fmt.Errorf("pipeline: embedded presets missing required preset %q", name)
		}
		preset, err := presetFromDoc(name, doc)
		if err != nil {
			return nil, err
		}
		catalogue.presets[name] = preset
	}
	return catalogue, nil
}

func presetFromDoc(name string, doc presetDoc) (Preset, error) {
	stages := make([]accuracytype.StageName, 0, len(doc.Stages))
	for _, s := range doc.Stages {
		stages = append(stages, accuracytype.StageName(s))
	}
	cfg := accuracytype.PipelineConfig{
		Stages: stages,
		SubConfigs: map[accuracytype.StageName]interface{}{
			accuracytype.StageCalibration: CalibrationSubConfig{
				Gate: calibrate.Gate{
					HighThreshold: doc.Calibration.HighThreshold,
					LowThreshold:  doc.Calibration.LowThreshold,
				},
			},
		},
	}
	if !cfg.HasStage(accuracytype.StageGeneration) {
		return Preset{}, fmt.Errorf("pipeline: preset %q missing required :generation stage", name)
	}
	return Preset{
		Name:          name,
		Config:        cfg,
		MinCandidates: doc.Candidates.Min,
		MaxCandidates: doc.Candidates.Max,
	}, nil
}

// Get returns the named preset. The bool is false for unknown names.
func (c *PresetCatalogue) Get(name string) (Preset, bool) {
	p, ok := c.presets[name]
	return p, ok
}

// Names lists the stable preset names in catalogue order.
func (c *PresetCatalogue) Names() []string {
	out := make([]string, len(stableNames))
	copy(out, stableNames)
	return out
}

// Customize replaces whole sub-config sections of preset with the ones
// present in overrides; sections absent from overrides are left as-is.
// Per spec this is a replace, not a deep merge.
func Customize(preset Preset, overrides map[accuracytype.StageName]interface{}) Preset {
	merged := make(map[accuracytype.StageName]interface{}, len(preset.Config.SubConfigs)+len(overrides))
	for k, v := range preset.Config.SubConfigs {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	preset.Config.SubConfigs = merged
	return preset
}
