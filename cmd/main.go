package main

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	desc = "Per-client XOR obfuscation of media payloads for remote pipelines"
)

// Injected when compiling
var (
	appVersion = "Unknown"
	appCommit  = "Unknown"
	appDate    = "Unknown"
)

var rootCmd = &cobra.Command{
	Use:     "ramnodes",
	Long:    fmt.Sprintf("%s\n\nVersion:\t%s\nBuildDate:\t%s\nCommitHash:\t%s", desc, appVersion, appDate, appCommit),
	Example: "./ramnodes server --config /etc/ramnodes/server.json",
	Version: fmt.Sprintf("%s %s %s", appVersion, appDate, appCommit),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// log config
		logrus.SetOutput(os.Stderr)
		if lvl, err := logrus.ParseLevel(viper.GetString("log-level")); err == nil {
			logrus.SetLevel(lvl)
		} else {
			logrus.SetLevel(logrus.InfoLevel)
		}

		if strings.ToLower(viper.GetString("log-format")) == "json" {
			logrus.SetFormatter(&logrus.JSONFormatter{
				TimestampFormat: viper.GetString("log-timestamp"),
			})
		} else {
			logrus.SetFormatter(&nested.Formatter{
				FieldsOrder: []string{
					"version", "url",
					"config", "file", "cert", "key",
					"addr", "src", "client", "node",
					"status", "duration", "clients",
					"msg", "error",
				},
				TimestampFormat: viper.GetString("log-timestamp"),
			})
		}

		// ip mask config
		v4m := viper.GetUint("log-ipv4-mask")
		if v4m > 0 && v4m < 32 {
			defaultIPMasker.IPv4Mask = net.CIDRMask(int(v4m), 32)
		}
		v6m := viper.GetUint("log-ipv6-mask")
		if v6m > 0 && v6m < 128 {
			defaultIPMasker.IPv6Mask = net.CIDRMask(int(v6m), 128)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		serverCmd.Run(cmd, args)
	},
}

var serverCmd = &cobra.Command{
	Use:     "server",
	Short:   "Serve the key exchange endpoint",
	Example: "./ramnodes server --config /etc/ramnodes/server.json",
	Run: func(cmd *cobra.Command, args []string) {
		sc, err := loadServerConfig(viper.GetString("config"))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"file":  viper.GetString("config"),
				"error": err,
			}).Fatal("Failed to parse server configuration")
		}
		server(sc)
	},
}

func init() {
	// disable cmd sorting
	cobra.EnableCommandSorting = false

	// add global flags
	rootCmd.PersistentFlags().StringP("config", "c", "./config.json", "config file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level")
	rootCmd.PersistentFlags().String("log-timestamp", time.RFC3339, "log timestamp format")
	rootCmd.PersistentFlags().String("log-format", "txt", "log output format (txt/json)")
	rootCmd.PersistentFlags().Uint("log-ipv4-mask", 0, "mask IPv4 addresses in log using a CIDR mask")
	rootCmd.PersistentFlags().Uint("log-ipv6-mask", 0, "mask IPv6 addresses in log using a CIDR mask")

	// add to root cmd
	rootCmd.AddCommand(serverCmd, getKeyCmd, sealCmd, openCmd, nodesCmd)

	// bind flag
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-timestamp", rootCmd.PersistentFlags().Lookup("log-timestamp"))
	_ = viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("log-ipv4-mask", rootCmd.PersistentFlags().Lookup("log-ipv4-mask"))
	_ = viper.BindPFlag("log-ipv6-mask", rootCmd.PersistentFlags().Lookup("log-ipv6-mask"))

	// bind env
	_ = viper.BindEnv("config", "RAMNODES_CONFIG")
	_ = viper.BindEnv("log-level", "RAMNODES_LOG_LEVEL", "LOGGING_LEVEL")
	_ = viper.BindEnv("log-timestamp", "RAMNODES_LOG_TIMESTAMP", "LOGGING_TIMESTAMP_FORMAT")
	_ = viper.BindEnv("log-format", "RAMNODES_LOG_FORMAT", "LOGGING_FORMATTER")
	_ = viper.BindEnv("log-ipv4-mask", "RAMNODES_LOG_IPV4_MASK", "LOGGING_IPV4_MASK")
	_ = viper.BindEnv("log-ipv6-mask", "RAMNODES_LOG_IPV6_MASK", "LOGGING_IPV6_MASK")
	viper.AutomaticEnv()
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
