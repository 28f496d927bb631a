package infra

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		AppVersion string `yaml:"app_version"`
	} `yaml:"app"`
	MongoDB struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongodb"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	RabbitMQ struct {
		URL string `yaml:"url"`
	} `yaml:"rabbitmq"`
	LINE struct {
		Enabled       bool   `yaml:"enabled"`
		ChannelSecret string `yaml:"channel_secret"`
		ChannelToken  string `yaml:"channel_token"`
	} `yaml:"line"`
	Payment struct {
		CardNumber string `yaml:"card_number"`
		CardHolder string `yaml:"card_holder"`
	} `yaml:"payment"`
	Business struct {
		// Orders placed between night_start_hour and night_end_hour
		// (inclusive) are flagged as preorders.
		NightStartHour int `yaml:"night_start_hour"`
		NightEndHour   int `yaml:"night_end_hour"`
	} `yaml:"business"`
}

var AppConfig Config

func LoadConfig() error {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yml"
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(&AppConfig)
	if err != nil {
		return err
	}
	return nil
}
