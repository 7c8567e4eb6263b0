// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"flag"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix = "greetervm"

	configFileKey    = "config-file"
	httpAddressKey   = "http-address"
	genesisFileKey   = "genesis-file"
	vmConfigFileKey  = "vm-config-file"
	blockIntervalKey = "block-interval"
	logLevelKey      = "log-level"
	versionKey       = "version"
)

func buildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("greetervm", flag.ContinueOnError)

	fs.String(configFileKey, "", "Optional config file (json, yaml or toml) setting any of these flags")
	fs.String(httpAddressKey, "127.0.0.1:9650", "Address the JSON-RPC and metrics server listens on")
	fs.String(genesisFileKey, "", "Genesis file (json or yaml). Uses a local development genesis when empty")
	fs.String(vmConfigFileKey, "", "VM config file (json). Uses the defaults when empty")
	fs.Duration(blockIntervalKey, time.Second, "Interval between block building attempts")
	fs.String(logLevelKey, "info", "Log level: crit, error, warn, info or debug")
	fs.Bool(versionKey, false, "If true, prints version and quit")

	return fs
}

// getViper returns the viper environment for the node binary
func getViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := buildFlagSet()
	pflag.CommandLine.AddGoFlagSet(fs)
	pflag.Parse()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	if configFile := v.GetString(configFileKey); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}
