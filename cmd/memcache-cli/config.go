package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pior/memcache-classic"
	"github.com/pior/memcache-classic/codec"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var client *memcache.Client

func setupClientFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("servers", "localhost:11211", "Comma-separated server list, each as host:port[:weight] or unix:/path")
	flags.Duration("timeout", memcache.DefaultTimeout, "Dial and round-trip timeout")
	flags.Duration("dead-retry", memcache.DefaultDeadRetry, "How long a failed server is skipped")
	flags.Int("min-compress-len", 0, "Compress values longer than this many bytes (0 disables)")
	flags.String("serializer", "gob", "Serializer for structured values: gob or json")
	flags.String("compressor", "zlib", "Compressor: zlib or zstd")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
}

// initConfig loads env files and maps MEMCACHE_* variables onto the flags.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("memcache")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func setupClient(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	config, servers, err := clientConfig()
	if err != nil {
		return err
	}

	client, err = memcache.NewClient(servers, config)
	return err
}

func clientConfig() (memcache.Config, []memcache.Server, error) {
	servers, err := memcache.ParseServers(strings.Split(viper.GetString("servers"), ",")...)
	if err != nil {
		return memcache.Config{}, nil, err
	}

	protocol, err := codec.ParseProtocol(viper.GetString("serializer"))
	if err != nil {
		return memcache.Config{}, nil, err
	}

	compressor, err := codec.ParseCompressor(viper.GetString("compressor"))
	if err != nil {
		return memcache.Config{}, nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return memcache.Config{}, nil, fmt.Errorf("invalid log level: %w", err)
	}

	return memcache.Config{
		Timeout:            viper.GetDuration("timeout"),
		DeadRetry:          viper.GetDuration("dead-retry"),
		MinCompressLen:     viper.GetInt("min-compress-len"),
		SerializerProtocol: protocol,
		Compressor:         compressor,
		Logger:             slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}, servers, nil
}

func commandOptions(cmd *cobra.Command) []memcache.Option {
	var opts []memcache.Option
	if ttl, _ := cmd.Flags().GetDuration("ttl"); ttl > 0 {
		opts = append(opts, memcache.WithTTL(ttl))
	}
	if noReply, _ := cmd.Flags().GetBool("noreply"); noReply {
		opts = append(opts, memcache.WithNoReply())
	}
	return opts
}

func durationFlag(cmd *cobra.Command, name string) time.Duration {
	d, _ := cmd.Flags().GetDuration(name)
	return d
}
