package cmd

import (
	"os"

	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"github.com/wkalt/outline/service"
	"github.com/wkalt/outline/util/log"
)

var (
	serverConfigPath       string
	serverPort             int
	serverLogLevel         string
	serverLogFormat        string
	serverDatabaseDriver   string
	serverDSN              string
	serverAllowedOrigins   []string
	serverVerifyInvariants bool
	serverCacheSize        int

	// Directory snapshot options
	serverSnapshotDir string

	// S3 snapshot options
	serverS3Endpoint  string
	serverS3AccessKey string
	serverS3SecretKey string
	serverS3Bucket    string
	serverS3UseTLS    bool
	serverS3Region    string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the outline server",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := serverConfig(cmd)
		if err != nil {
			return err
		}
		level, err := log.ParseLevel(conf.LogLevel)
		if err != nil {
			return err
		}
		if err := log.Setup(os.Stderr, level, conf.LogFormat); err != nil {
			return err
		}
		opts, err := conf.Options()
		if err != nil {
			return err
		}
		return service.NewOutlineService().Start(cmd.Context(), opts...)
	},
}

// serverConfig loads the config file, if any, and applies the flags the user
// set on top of it.
func serverConfig(cmd *cobra.Command) (*service.Config, error) {
	conf := service.DefaultConfig()
	if serverConfigPath != "" {
		var err error
		conf, err = service.LoadConfig(serverConfigPath)
		if err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("port") {
		conf.Port = serverPort
	}
	if flags.Changed("log-level") {
		conf.LogLevel = serverLogLevel
	}
	if flags.Changed("log-format") {
		conf.LogFormat = serverLogFormat
	}
	if flags.Changed("database-driver") {
		conf.Database.Driver = serverDatabaseDriver
	}
	if flags.Changed("dsn") {
		conf.Database.DSN = serverDSN
	}
	if flags.Changed("allowed-origins") {
		conf.AllowedOrigins = serverAllowedOrigins
	}
	if flags.Changed("verify-invariants") {
		conf.VerifyInvariants = serverVerifyInvariants
	}
	if flags.Changed("cache-size") {
		conf.CacheSize = serverCacheSize
	}
	if flags.Changed("shared-key") {
		conf.SharedKey = sharedKey
	}
	if flags.Changed("snapshot-dir") {
		conf.Snapshots.Dir = serverSnapshotDir
	}
	if serverS3Endpoint != "" || serverS3Bucket != "" {
		s3 := &service.S3Config{
			Endpoint:    serverS3Endpoint,
			AccessKeyID: serverS3AccessKey,
			SecretKey:   serverS3SecretKey,
			Bucket:      serverS3Bucket,
			Region:      serverS3Region,
			TLS:         serverS3UseTLS,
		}
		if s3.AccessKeyID == "" && s3.SecretKey == "" {
			creds, err := credentials.NewEnvMinio().Get()
			if err == nil {
				s3.AccessKeyID, s3.SecretKey = creds.AccessKeyID, creds.SecretAccessKey
			}
		}
		conf.Snapshots.S3 = s3
	}
	return conf, nil
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.PersistentFlags().StringVarP(&serverConfigPath, "config", "", "", "YAML config file")
	serverCmd.PersistentFlags().IntVarP(&serverPort, "port", "p", 8089, "Port to listen on")
	serverCmd.PersistentFlags().StringVarP(&serverLogLevel, "log-level", "l", "info", "Log level")
	serverCmd.PersistentFlags().StringVarP(&serverLogFormat, "log-format", "", "text", "Log format (text or json)")
	serverCmd.PersistentFlags().StringVarP(&serverDatabaseDriver, "database-driver", "", "sqlite3", "Database driver (sqlite3 or postgres)")
	serverCmd.PersistentFlags().StringVarP(&serverDSN, "dsn", "", "", "Database connection string")
	serverCmd.PersistentFlags().StringSliceVarP(&serverAllowedOrigins, "allowed-origins", "o", []string{}, "Allowed origins")
	serverCmd.PersistentFlags().BoolVarP(&serverVerifyInvariants, "verify-invariants", "", false, "Validate each book after every mutation")

	serverCmd.PersistentFlags().IntVarP(&serverCacheSize, "cache-size", "c", 0, "Number of book listings to cache (single-writer deployments only)")

	serverCmd.PersistentFlags().StringVarP(&serverSnapshotDir, "snapshot-dir", "d", "", "Snapshot directory (for directory storage)")

	serverCmd.PersistentFlags().StringVar(&serverS3Endpoint, "s3-endpoint", "", "S3 endpoint (for S3 snapshots)")
	serverCmd.PersistentFlags().StringVar(&serverS3AccessKey, "s3-access-key-id", "", "S3 access key ID (for S3 snapshots)")
	serverCmd.PersistentFlags().StringVar(&serverS3SecretKey, "s3-secret-key", "", "S3 secret key (for S3 snapshots)")
	serverCmd.PersistentFlags().StringVar(&serverS3Bucket, "s3-bucket", "", "S3 bucket (for S3 snapshots)")
	serverCmd.PersistentFlags().BoolVarP(&serverS3UseTLS, "s3-tls", "t", false, "Use TLS (for S3 snapshots)")
	serverCmd.PersistentFlags().StringVar(&serverS3Region, "s3-region", "", "S3 region")
}
