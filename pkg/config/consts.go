package config

// EnvPrefix namespaces every environment variable the backend reads.
const EnvPrefix = "caribcell"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "CARIBCELL_DB_DSN"
	EnvDBHost = "CARIBCELL_DB_HOST"
	EnvDBUser = "CARIBCELL_DB_USER"
	EnvDBName = "CARIBCELL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
