package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "FURIMA"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "FURIMA_APP_ENV"
	EnvDBDSN  = "FURIMA_DB_DSN"
	EnvDBHost = "FURIMA_DB_HOST"
	EnvDBUser = "FURIMA_DB_USER"
	EnvDBName = "FURIMA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
