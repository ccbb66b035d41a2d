package models

import "strings"

const (
	ConfigTypeYAML    ConfigType = "yaml"
	ConfigTypeJSON    ConfigType = "json"
	ConfigTypeJSONNET ConfigType = "jsonnet"
	// ConfigTypeNoConfig (an empty string) is used to indicate that there is no manifest file present.
	ConfigTypeNoConfig ConfigType = ""
	// ConfigTypeInvalid is used to record that an invalid manifest was found, e.g. if the manifest is too long.
	ConfigTypeInvalid ConfigType = "invalid"
	// ConfigTypeUnknown indicates that a manifest file of an unknown type was found.
	ConfigTypeUnknown ConfigType = "unknown"
)

// ConfigType identifies the syntax a manifest file is written in.
type ConfigType string

func (s ConfigType) Valid() bool {
	return string(s) != ""
}

func (s ConfigType) String() string {
	return string(s)
}

func (s *ConfigType) Scan(src interface{}) error {
	if src == nil {
		*s = ConfigTypeNoConfig
		return nil
	}
	t := src.(string)
	switch strings.ToLower(t) {
	case string(ConfigTypeYAML):
		*s = ConfigTypeYAML
	case string(ConfigTypeJSON):
		*s = ConfigTypeJSON
	case string(ConfigTypeJSONNET):
		*s = ConfigTypeJSONNET
	case string(ConfigTypeNoConfig):
		*s = ConfigTypeNoConfig
	case string(ConfigTypeInvalid):
		*s = ConfigTypeInvalid
	default:
		*s = ConfigTypeUnknown
	}
	return nil
}
