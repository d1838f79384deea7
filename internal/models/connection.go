package models

// Provider identifies the flavour of S3-compatible endpoint a connection
// points at. The flavour selects the gateway implementation and
// provider-specific tuning (path-style addressing, delete batch limits).
type Provider string

const (
	ProviderAWS          Provider = "aws"
	ProviderMinio        Provider = "minio"
	ProviderCloudflareR2 Provider = "r2"
	ProviderOther        Provider = "other"
)

// Connection is a saved endpoint profile. The secret key is never written
// to disk by this program; it is resolved at load time from the
// BAUL_SECRET_<ID> environment variable (credential-at-rest storage is the
// platform keychain's job, not ours).
type Connection struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Provider     Provider `yaml:"provider"`
	Endpoint     string   `yaml:"endpoint"`
	Region       string   `yaml:"region"`
	AccessKey    string   `yaml:"access_key"`
	SecretKey    string   `yaml:"-"`
	UsePathStyle bool     `yaml:"use_path_style"`
}
