package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v2"

	col "github.com/bitcoinfees/feecast/collect"
	"github.com/bitcoinfees/feecast/collect/corerpc"
	"github.com/bitcoinfees/feecast/forecast"
)

const (
	defaultConfigFileName = "config.yml"
	configFileEnv         = "FEECAST_CONFIG"
	dataDirEnv            = "FEECAST_DATADIR"
)

var (
	defaultFeeCastConfig = FeeCastConfig{
		Collect: col.Config{
			PollPeriod: 10,
		},
		WindowBlocks:    forecast.DefaultWindowBlocks,
		WindowMaxTarget: forecast.DefaultWindowBlocks,
		BlockLogBlocks:  2016, // About two weeks
	}
	defaultConfig = config{
		FeeCastConfig: defaultFeeCastConfig,
		BitcoinRPC: corerpc.Config{
			Host:    "localhost",
			Port:    "8332",
			Timeout: 30,
		},
		AppRPC: AppRPCConfig{
			Host: "localhost",
			Port: "8350",
		},
		DataDir: AppDataDir("feecast", false),
	}
	defaultConfigFile  = filepath.Join(defaultConfig.DataDir, defaultConfigFileName)
	defaultLogFileName = "feecast.log"
)

type config struct {
	FeeCastConfig `yaml:",inline"`
	BitcoinRPC    corerpc.Config `yaml:"bitcoinrpc" json:"bitcoinrpc"`
	AppRPC        AppRPCConfig   `yaml:"apprpc" json:"apprpc"`
	DataDir       string         `yaml:"datadir" json:"datadir"`
	LogFile       string         `yaml:"logfile" json:"logfile"`
}

type AppRPCConfig struct {
	Host string `json:"host" yaml:"host"`
	Port string `json:"port" yaml:"port"`
}

// loadConfig loads the config. The input arguments specify the path to the
// config file / data directory.
// They can also be specified through env variables (configFileEnv / dataDirEnv),
// with lower precedence.
// If not specified, they are set to default values.
func loadConfig(configFile, dataDir string) (config, error) {
	cfg := defaultConfig

	if configFile == "" {
		configFile = os.Getenv(configFileEnv)
	}
	if dataDir == "" {
		dataDir = os.Getenv(dataDirEnv)
	}

	if configFile != "" {
		// Config file was specified explicitly, so return an error if it
		// couldn't be read.
		if c, err := ioutil.ReadFile(configFile); err != nil {
			return cfg, err
		} else if err := yaml.Unmarshal(c, &cfg); err != nil {
			return cfg, err
		}
	} else {
		// Check the default config file location. No error if it couldn't be
		// read, but error if the yaml could not be unmarshaled.
		if dataDir == "" {
			configFile = defaultConfigFile
		} else {
			configFile = filepath.Join(dataDir, defaultConfigFileName)
		}
		if c, err := ioutil.ReadFile(configFile); err == nil {
			if err := yaml.Unmarshal(c, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	// dataDir specified by env or input argument takes precedence
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, defaultLogFileName)
	}

	// Create the datadir if not exists
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// AppDataDir returns an operating-system-conventional data directory for
// the application with the given name.
func AppDataDir(appName string, roaming bool) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if roaming || appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData != "" {
			return filepath.Join(appData, strings.Title(appName))
		}
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", strings.Title(appName))
	}
	return filepath.Join(home, "."+appName)
}
