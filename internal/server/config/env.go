package config

import "os"

// Environment variables read by parseEnv.
const (
	EnvSecretKey     = "JWT_SECRET"
	EnvDatabaseDSN   = "DATABASE_DSN"
	EnvMongoURI      = "MONGODB_URI"
	EnvMongoDatabase = "MONGODB_DB"
)

// parseEnv overlays values from the environment. Unset or empty variables
// leave the current value alone.
func parseEnv(config *Config) {
	for name, dst := range map[string]*string{
		EnvSecretKey:     &config.SecretKey,
		EnvDatabaseDSN:   &config.DatabaseDSN,
		EnvMongoURI:      &config.MongoURI,
		EnvMongoDatabase: &config.MongoDatabase,
	} {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
}
