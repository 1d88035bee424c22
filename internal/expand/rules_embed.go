package expand

import (
	"embed"

	"gopkg.in/yaml.v3"
)

//go:embed data/abbreviations.yaml
var abbreviationsYAML []byte

//go:embed data/states.yaml
var statesYAML []byte

// _embedDummy keeps the embed import referenced
var _embedDummy = embed.FS{}

// RulesConfig holds the alias tables loaded from the embedded YAML
type RulesConfig struct {
	StreetTypes     map[string]string `yaml:"street_types"`
	Directionals    map[string]string `yaml:"directionals"`
	UnitDesignators map[string]string `yaml:"unit_designators"`
	NameWords       map[string]string `yaml:"name_words"`
	GenericWords    map[string]string `yaml:"generic_words"`
}

// StatesConfig holds the state and province lookups loaded from the embedded YAML
type StatesConfig struct {
	States      map[string]string `yaml:"states"`
	Territories map[string]string `yaml:"territories"`
	Provinces   map[string]string `yaml:"provinces"`
}

// LoadRulesConfig loads the abbreviation tables from the embedded YAML file
func LoadRulesConfig() (*RulesConfig, error) {
	config := &RulesConfig{}
	if err := yaml.Unmarshal(abbreviationsYAML, config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadStatesConfig loads the state tables from the embedded YAML file
func LoadStatesConfig() (*StatesConfig, error) {
	config := &StatesConfig{}
	if err := yaml.Unmarshal(statesYAML, config); err != nil {
		return nil, err
	}
	return config, nil
}
