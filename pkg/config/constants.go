package config

// EnvPrefix is passed to envconfig; variables are named explicitly per field.
const EnvPrefix = "decorly"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "DECORLY_DB_DSN"
	EnvDBHost = "DECORLY_DB_HOST"
	EnvDBUser = "DECORLY_DB_USER"
	EnvDBName = "DECORLY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
