package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-g string     gRPC health bind address (e.g., ":50051")
//	-b string     store backend: postgres, mongo or memory
//	-d string     PostgreSQL DSN
//	-m string     MongoDB URI
//	-n string     MongoDB database name
//	-s string     JWT HMAC secret key
//	-t duration   session validity (e.g., "168h")
//	-k int        bcrypt cost
//	-x            mark session cookies Secure
//	-l duration   user lookup timeout
//	-v string     log level
//
// Flags not listed above are filtered out with flagx so the JSON layer's
// -c/-config does not trip this FlagSet.
func parseFlags(config *Config) {
	args := flagx.FilterArgsWithBools(os.Args[1:],
		[]string{"-a", "-g", "-b", "-d", "-m", "-n", "-s", "-t", "-k", "-l", "-v"},
		[]string{"-x"},
	)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to serve HTTP")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to serve gRPC health")
	fs.StringVar(&config.StoreBackend, "b", config.StoreBackend, "store backend (postgres|mongo|memory)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.MongoURI, "m", config.MongoURI, "MongoDB URI")
	fs.StringVar(&config.MongoDatabase, "n", config.MongoDatabase, "MongoDB database")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.TokenValidityDuration, "t", config.TokenValidityDuration, "session validity duration")
	fs.IntVar(&config.BcryptCost, "k", config.BcryptCost, "bcrypt cost")
	fs.BoolVar(&config.CookieSecure, "x", config.CookieSecure, "secure session cookie")
	fs.DurationVar(&config.LookupTimeout, "l", config.LookupTimeout, "user lookup timeout")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
