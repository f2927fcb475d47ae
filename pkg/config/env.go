package config

const (
	EnvPrefix = "launchbase"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "LAUNCHBASE_DB_DSN"
	EnvDBHost = "LAUNCHBASE_DB_HOST"
	EnvDBUser = "LAUNCHBASE_DB_USER"
	EnvDBName = "LAUNCHBASE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
