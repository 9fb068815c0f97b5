package config

import "github.com/kelseyhightower/envconfig"

type Config struct {
	ListenAddress  string `json:"listenAddress"`
	Scope          string `json:"scope"`
	InactivityDays int    `json:"inactivityDays"`
	MockDataDir    string `json:"mockDataDir"`
	LogDebug       bool   `json:"logDebug"`
	Github         struct {
		Token        string `json:"token"`
		Enterprise   string `json:"enterprise"`
		Organization string `json:"organization"`
		Team         string `json:"team"`
	} `json:"github"`
}

const appConfPrefix = "CMV"

func Load() (Config, error) {
	var conf Config
	err := envconfig.Process(appConfPrefix, &conf)

	if conf.ListenAddress == "" {
		conf.ListenAddress = ":8080"
	}
	if conf.Scope == "" {
		conf.Scope = "organization"
	}
	if conf.InactivityDays == 0 {
		conf.InactivityDays = 30
	}

	return conf, err
}
