package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ramnodes/ramnodes/pkg/adapters"
	"github.com/ramnodes/ramnodes/pkg/codec"
	"github.com/ramnodes/ramnodes/pkg/envelope"
	"github.com/ramnodes/ramnodes/pkg/keyexchange"
	"github.com/ramnodes/ramnodes/pkg/keyring"
	"github.com/ramnodes/ramnodes/pkg/node"
)

var getKeyCmd = &cobra.Command{
	Use:     "get-key",
	Short:   "Request a session key from a running server",
	Example: "./ramnodes get-key --server http://127.0.0.1:8189 --client-id browser-1",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("timeout"))
		defer cancel()
		c := keyexchange.NewClient(viper.GetString("server"), &http.Client{})
		key, err := c.GetKey(ctx, viper.GetString("client-id"))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"url":    viper.GetString("server"),
				"client": viper.GetString("client-id"),
				"error":  err,
			}).Fatal("Failed to get session key")
		}
		fmt.Println(hex.EncodeToString(key))
	},
}

var sealCmd = &cobra.Command{
	Use:     "seal",
	Short:   "Obfuscate a payload with a session key and print its envelope",
	Example: "./ramnodes seal --key $KEY --in photo.png > photo.txt",
	Run: func(cmd *cobra.Command, args []string) {
		key, in := keyAndInput()
		env, err := envelope.Seal(in, key)
		if err != nil {
			logrus.WithField("error", err).Fatal("Failed to seal payload")
		}
		if err := writeOutput(viper.GetString("out"), []byte(env+"\n")); err != nil {
			logrus.WithField("error", err).Fatal("Failed to write output")
		}
	},
}

var openCmd = &cobra.Command{
	Use:     "open",
	Short:   "Recover a payload from an envelope and a session key",
	Example: "./ramnodes open --key $KEY --in photo.txt --out photo.png",
	Run: func(cmd *cobra.Command, args []string) {
		key, in := keyAndInput()
		plain, err := envelope.Open(string(bytes.TrimSpace(in)), key)
		if err != nil {
			logrus.WithField("error", err).Fatal("Failed to open envelope")
		}
		if err := writeOutput(viper.GetString("out"), plain); err != nil {
			logrus.WithField("error", err).Fatal("Failed to write output")
		}
	},
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Print the schemas of the payload adapters",
	Run: func(cmd *cobra.Command, args []string) {
		schemas, err := nodeSchemas()
		if err != nil {
			logrus.WithField("error", err).Fatal("Failed to build nodes")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(schemas); err != nil {
			logrus.WithField("error", err).Fatal("Failed to print schemas")
		}
	},
}

func keyAndInput() ([]byte, []byte) {
	key, err := parseKey(viper.GetString("key"))
	if err != nil {
		logrus.WithField("error", err).Fatal("Invalid session key")
	}
	in, err := readInput(viper.GetString("in"))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"file":  viper.GetString("in"),
			"error": err,
		}).Fatal("Failed to read input")
	}
	return key, in
}

func nodeSchemas() ([]node.Schema, error) {
	keys, err := keyring.New(keyring.Options{})
	if err != nil {
		return nil, err
	}
	c, err := codec.New("", 0)
	if err != nil {
		return nil, err
	}
	nodes := node.NewRegistry(nil)
	if err := nodes.Register(adapters.Nodes(keys, c)...); err != nil {
		return nil, err
	}
	return nodes.Schemas(), nil
}

func init() {
	getKeyCmd.Flags().String("server", "http://"+DefaultListen, "server base URL")
	getKeyCmd.Flags().String("client-id", "", "client identifier")
	getKeyCmd.Flags().Duration("timeout", 10*time.Second, "request timeout")
	for _, c := range []*cobra.Command{sealCmd, openCmd} {
		c.Flags().String("key", "", "session key (hex)")
		c.Flags().String("in", "-", "input file")
		c.Flags().String("out", "-", "output file")
	}
	// Flags are bound per command, viper keys are shared between them.
	for _, c := range []*cobra.Command{getKeyCmd, sealCmd, openCmd} {
		cmd := c
		cmd.PreRun = func(*cobra.Command, []string) {
			_ = viper.BindPFlags(cmd.Flags())
		}
	}
	_ = viper.BindEnv("server", "RAMNODES_SERVER")
	_ = viper.BindEnv("client-id", "RAMNODES_CLIENT_ID")
	_ = viper.BindEnv("key", "RAMNODES_KEY")
}
