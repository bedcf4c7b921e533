package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	OneMap struct {
		BaseURL           string        `mapstructure:"baseURL"`
		Token             string        `mapstructure:"token"`
		PlanningAreaYear  string        `mapstructure:"planningAreaYear"`
		CacheTTL          time.Duration `mapstructure:"cacheTTL"`
		GreenThemes       []string      `mapstructure:"greenThemes"`
		CommercialThemes  []string      `mapstructure:"commercialThemes"`
		ResidentialThemes []string      `mapstructure:"residentialThemes"`
	} `mapstructure:"onemap"`
	DataGov struct {
		BaseURL string `mapstructure:"baseURL"`
	} `mapstructure:"datagov"`
	Gemini struct {
		Model              string        `mapstructure:"model"`
		AssessmentCacheTTL time.Duration `mapstructure:"assessmentCacheTTL"`
	} `mapstructure:"gemini"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
