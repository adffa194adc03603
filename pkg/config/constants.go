package config

// EnvPrefix is passed to envconfig; variable names are spelled out in struct
// tags so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "SWIFTDROP_DB_DSN"
	EnvDBHost = "SWIFTDROP_DB_HOST"
	EnvDBUser = "SWIFTDROP_DB_USER"
	EnvDBName = "SWIFTDROP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
