package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Booking    BookingConfig
	Schedule   ScheduleConfig
	SMTP       SMTPConfig
	LogPretty  bool   `mapstructure:"log_pretty"`
	MetricsNS  string `mapstructure:"metrics_namespace"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// BookingConfig carries the scheduling business rules. Lead times are
// asymmetric on purpose: a doctor withdrawing capacity is not held to
// the patient's notice period.
type BookingConfig struct {
	AutoConfirm       bool          `mapstructure:"auto_confirm"`
	BookingLead       time.Duration `mapstructure:"booking_lead"`
	PatientCancelLead time.Duration `mapstructure:"patient_cancel_lead"`
	DoctorCancelLead  time.Duration `mapstructure:"doctor_cancel_lead"`
	MaxRangeDays      int           `mapstructure:"max_range_days"`
}

type ScheduleConfig struct {
	DayStart    string        `mapstructure:"day_start"`
	DayEnd      string        `mapstructure:"day_end"`
	SlotMinutes time.Duration `mapstructure:"slot_minutes"`
	WeekStart   string        `mapstructure:"week_start"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout_seconds", 30)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("booking.auto_confirm", false)
	viper.SetDefault("booking.booking_lead", 2*time.Hour)
	viper.SetDefault("booking.patient_cancel_lead", time.Hour)
	viper.SetDefault("booking.doctor_cancel_lead", time.Duration(0))
	viper.SetDefault("booking.max_range_days", 31)
	viper.SetDefault("schedule.day_start", "09:00")
	viper.SetDefault("schedule.day_end", "17:00")
	viper.SetDefault("schedule.slot_minutes", 30*time.Minute)
	viper.SetDefault("schedule.week_start", "monday")
	viper.SetDefault("metrics_namespace", "appointments")
}
