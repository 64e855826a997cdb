package setup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/NethermindEth/holiday-dalle/pkg/studio/art"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/holiday"
	"github.com/NethermindEth/holiday-dalle/pkg/studio/library"
)

// Config is the raw configuration as read from the environment and an
// optional config file. The OpenAI key is deliberately optional here: a
// missing or malformed key is reported when a generation is attempted.
type Config struct {
	OpenAiApiKey     string `mapstructure:"openai_api_key"`
	OpenAiBaseUrl    string `mapstructure:"openai_base_url" validate:"omitempty,url"`
	OpenAiChatModel  string `mapstructure:"openai_chat_model" validate:"required"`
	OpenAiImageModel string `mapstructure:"openai_image_model" validate:"required"`
	PicturesDir      string `mapstructure:"pictures_dir"`
	BaseSaveFolder   string `mapstructure:"base_save_folder" validate:"required,excludesall=/\\,ne=.,ne=.."`
	DefaultHoliday   string `mapstructure:"default_holiday" validate:"required,holiday"`
	ApiIpPort        string `mapstructure:"api_ip_port" validate:"omitempty,hostname_port"`
	PinataJwtKey     string `mapstructure:"pinata_jwt_key"`
	LogLevel         string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

var configKeys = map[string]string{
	"openai_api_key":     EnvOpenAiApiKey,
	"openai_base_url":    EnvOpenAiBaseUrl,
	"openai_chat_model":  EnvOpenAiChatModel,
	"openai_image_model": EnvOpenAiImageModel,
	"pictures_dir":       EnvPicturesDir,
	"base_save_folder":   EnvBaseSaveFolder,
	"default_holiday":    EnvDefaultHoliday,
	"api_ip_port":        EnvApiIpPort,
	"pinata_jwt_key":     EnvPinataJwtKey,
	"log_level":          EnvLogLevel,
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("holiday", func(fl validator.FieldLevel) bool {
		_, err := holiday.Parse(fl.Field().String())
		return err == nil
	})
	return v
}

// NewConfigFromEnv reads the configuration from the environment. When
// configFile is set, its values are used for anything the environment does
// not provide.
func NewConfigFromEnv(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("openai_chat_model", art.DefaultChatModel)
	v.SetDefault("openai_image_model", art.DefaultImageModel)
	v.SetDefault("base_save_folder", library.DefaultBaseFolder)
	v.SetDefault("default_holiday", holiday.Christmas.String())
	v.SetDefault("log_level", "info")

	for key, env := range configKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.LogLevel = strings.ToLower(config.LogLevel)

	err := config.Validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		env := configKeys[fieldKey(fe.StructField())]
		msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", env, fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldKey(structField string) string {
	for key := range configKeys {
		if strings.EqualFold(strings.ReplaceAll(key, "_", ""), structField) {
			return key
		}
	}
	return structField
}
