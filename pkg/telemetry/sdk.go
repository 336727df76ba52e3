package telemetry

// Version of the parcel module, reported in envelope headers
const Version = "0.4.0"

// SdkName is the default producer name
const SdkName = "parcel.go"

// SdkVersion describes the producer of an envelope
type SdkVersion struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Version string `json:"version" yaml:"version" toml:"version"`
}

// DefaultSdk describes this module
func DefaultSdk() SdkVersion {
	return SdkVersion{Name: SdkName, Version: Version}
}
