package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/voicepay/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-k string   store driver (sqlite, postgres, badger, memory)
//	-d string   SQLite file or PostgreSQL DSN
//	-r float    similarity threshold
//	-w int      voiceprint extraction workers
//	-m string   analyzer provider (gemini, openai, fake)
//	-s string   JWT HMAC secret key
//	-t int      session token validity, minutes
//	-l string   log level
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Only these flags are kept from args (flagx.FilterArgs) so other loaders
// can share the same argument list. The token validity is given in minutes
// and only replaces the current value when -t is present.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-k", "-d", "-r", "-w", "-m", "-s", "-t", "-l", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.StoreDriver, "k", config.StoreDriver, "store driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.Float64Var(&config.SimilarityThreshold, "r", config.SimilarityThreshold, "similarity threshold")
	fs.IntVar(&config.ExtractionWorkers, "w", config.ExtractionWorkers, "voiceprint extraction workers")
	fs.StringVar(&config.AnalyzerProvider, "m", config.AnalyzerProvider, "analyzer provider")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionTokenValidityDuration := fs.Int("t", int(config.SessionTokenValidityDuration.Minutes()), "session_token_validity_duration (in minutes)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTokenValidityDuration = time.Duration(*sessionTokenValidityDuration) * time.Minute
		}
	})
}
