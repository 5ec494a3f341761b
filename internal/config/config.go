// internal/config/config.go

// Package config reads the INI configuration file described by the SETUP,
// LOGGING, DATABASE, ESRI, and MAIL sections. Every key in every section is
// required and non-empty; a missing or empty key aborts startup with a
// descriptive apperr.ConfigError before the logger is initialized.
package config

import (
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"essg/internal/apperr"
)

// Config holds all application configuration, one struct field group per
// INI section.
type Config struct {
	Setup    SetupConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	ESRI     ESRIConfig
	Mail     MailConfig
	Ops      OpsConfig
	NATS     NATSConfig
}

// OpsConfig controls the optional liveness/readiness HTTP surface. Unlike
// the sections above, OPS is not required: a missing section disables the
// surface rather than aborting startup, since it is operational
// convenience rather than detection-critical.
type OpsConfig struct {
	Enabled bool
	Host    string
	Port    int
}

// NATSConfig controls optional publication of trigger/alert lifecycle
// events. Like OPS, a missing section disables it rather than failing
// startup.
type NATSConfig struct {
	Enabled        bool
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// SetupConfig holds the STA/LTA detection parameters.
type SetupConfig struct {
	BinLength          time.Duration
	LTALength          time.Duration
	STALength          time.Duration
	M                  float64
	B                  float64
	DetectionThreshold float64
	TriggerReset       time.Duration
	BinLoadDelay       time.Duration
	MaxWords           int
	FilterTerms        []string
}

// LoggingConfig holds logging destination and verbosity.
type LoggingConfig struct {
	Level string
	File  string
}

// DatabaseConfig holds relational store connection parameters.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// ESRIConfig holds the geocoding provider's OAuth2 client credentials and
// endpoints.
type ESRIConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	GeocodeURL   string
	ReverseURL   string
}

// MailConfig holds alert-dispatch parameters.
type MailConfig struct {
	From          string
	SubjectTag    string
	DetectionList []string
	Dispatcher    string // path to the mail subprocess
}

// Load reads and validates the INI file at path.
func Load(path string) (Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return Config{}, &apperr.ConfigError{Section: "", Key: "", Reason: "cannot read config file: " + err.Error()}
	}

	var cfg Config
	var cerr error

	cfg.Setup, cerr = loadSetup(f)
	if cerr != nil {
		return Config{}, cerr
	}

	cfg.Logging, cerr = loadLogging(f)
	if cerr != nil {
		return Config{}, cerr
	}

	cfg.Database, cerr = loadDatabase(f)
	if cerr != nil {
		return Config{}, cerr
	}

	cfg.ESRI, cerr = loadESRI(f)
	if cerr != nil {
		return Config{}, cerr
	}

	cfg.Mail, cerr = loadMail(f)
	if cerr != nil {
		return Config{}, cerr
	}

	cfg.Ops = loadOps(f)
	cfg.NATS = loadNATS(f)

	if cfg.Setup.STALength <= 0 || cfg.Setup.LTALength <= cfg.Setup.STALength {
		return Config{}, &apperr.ConfigError{Section: "SETUP", Reason: "lta_length must be greater than sta_length, and sta_length must be positive"}
	}
	if cfg.Setup.BinLength <= 0 {
		return Config{}, &apperr.ConfigError{Section: "SETUP", Key: "bin_length", Reason: "must be positive"}
	}
	if cfg.Setup.STALength%cfg.Setup.BinLength != 0 || cfg.Setup.LTALength%cfg.Setup.BinLength != 0 {
		return Config{}, &apperr.ConfigError{Section: "SETUP", Reason: "sta_length and lta_length must be multiples of bin_length"}
	}

	return cfg, nil
}

func requiredString(f *ini.File, section, key string) (string, error) {
	sec, err := f.GetSection(section)
	if err != nil {
		return "", &apperr.ConfigError{Section: section, Reason: "section missing"}
	}
	if !sec.HasKey(key) {
		return "", &apperr.ConfigError{Section: section, Key: key, Reason: "missing"}
	}
	v := strings.TrimSpace(sec.Key(key).String())
	if v == "" {
		return "", &apperr.ConfigError{Section: section, Key: key, Reason: "empty"}
	}
	return v, nil
}

func requiredInt(f *ini.File, section, key string) (int, error) {
	s, err := requiredString(f, section, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &apperr.ConfigError{Section: section, Key: key, Reason: "not an integer: " + err.Error()}
	}
	return n, nil
}

func requiredFloat(f *ini.File, section, key string) (float64, error) {
	s, err := requiredString(f, section, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &apperr.ConfigError{Section: section, Key: key, Reason: "not a number: " + err.Error()}
	}
	return n, nil
}

func requiredSeconds(f *ini.File, section, key string) (time.Duration, error) {
	n, err := requiredInt(f, section, key)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func requiredList(f *ini.File, section, key, sep string) ([]string, error) {
	s, err := requiredString(f, section, key)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func loadSetup(f *ini.File) (SetupConfig, error) {
	var c SetupConfig
	var err error

	if c.BinLength, err = requiredSeconds(f, "SETUP", "bin_length"); err != nil {
		return c, err
	}
	if c.LTALength, err = requiredSeconds(f, "SETUP", "lta_length"); err != nil {
		return c, err
	}
	if c.STALength, err = requiredSeconds(f, "SETUP", "sta_length"); err != nil {
		return c, err
	}
	if c.M, err = requiredFloat(f, "SETUP", "m"); err != nil {
		return c, err
	}
	if c.B, err = requiredFloat(f, "SETUP", "b"); err != nil {
		return c, err
	}
	if c.DetectionThreshold, err = requiredFloat(f, "SETUP", "detection_threshold"); err != nil {
		return c, err
	}
	if c.TriggerReset, err = requiredSeconds(f, "SETUP", "trigger_reset"); err != nil {
		return c, err
	}
	if c.BinLoadDelay, err = requiredSeconds(f, "SETUP", "bin_load_delay"); err != nil {
		return c, err
	}
	if c.MaxWords, err = requiredInt(f, "SETUP", "max_words"); err != nil {
		return c, err
	}
	if c.FilterTerms, err = requiredList(f, "SETUP", "filter_terms", "|"); err != nil {
		return c, err
	}

	return c, nil
}

func loadLogging(f *ini.File) (LoggingConfig, error) {
	var c LoggingConfig
	var err error

	if c.Level, err = requiredString(f, "LOGGING", "level"); err != nil {
		return c, err
	}
	if c.File, err = requiredString(f, "LOGGING", "file"); err != nil {
		return c, err
	}

	return c, nil
}

func loadDatabase(f *ini.File) (DatabaseConfig, error) {
	var c DatabaseConfig
	var err error

	if c.Host, err = requiredString(f, "DATABASE", "host"); err != nil {
		return c, err
	}
	if c.Port, err = requiredInt(f, "DATABASE", "port"); err != nil {
		return c, err
	}
	if c.User, err = requiredString(f, "DATABASE", "user"); err != nil {
		return c, err
	}
	if c.Password, err = requiredString(f, "DATABASE", "password"); err != nil {
		return c, err
	}
	if c.Database, err = requiredString(f, "DATABASE", "database"); err != nil {
		return c, err
	}
	if c.SSLMode, err = requiredString(f, "DATABASE", "ssl_mode"); err != nil {
		return c, err
	}
	if c.MaxOpenConns, err = requiredInt(f, "DATABASE", "max_open_conns"); err != nil {
		return c, err
	}
	if c.MaxIdleConns, err = requiredInt(f, "DATABASE", "max_idle_conns"); err != nil {
		return c, err
	}
	lifetime, err := requiredSeconds(f, "DATABASE", "max_lifetime")
	if err != nil {
		return c, err
	}
	c.MaxLifetime = lifetime

	return c, nil
}

func loadESRI(f *ini.File) (ESRIConfig, error) {
	var c ESRIConfig
	var err error

	if c.ClientID, err = requiredString(f, "ESRI", "client_id"); err != nil {
		return c, err
	}
	if c.ClientSecret, err = requiredString(f, "ESRI", "client_secret"); err != nil {
		return c, err
	}
	if c.TokenURL, err = requiredString(f, "ESRI", "token_url"); err != nil {
		return c, err
	}
	if c.GeocodeURL, err = requiredString(f, "ESRI", "geocode_url"); err != nil {
		return c, err
	}
	if c.ReverseURL, err = requiredString(f, "ESRI", "reverse_url"); err != nil {
		return c, err
	}

	return c, nil
}

func loadMail(f *ini.File) (MailConfig, error) {
	var c MailConfig
	var err error

	if c.From, err = requiredString(f, "MAIL", "from"); err != nil {
		return c, err
	}
	if c.SubjectTag, err = requiredString(f, "MAIL", "subject_tag"); err != nil {
		return c, err
	}
	if c.DetectionList, err = requiredList(f, "MAIL", "detection_list", ","); err != nil {
		return c, err
	}
	if c.Dispatcher, err = requiredString(f, "MAIL", "dispatcher"); err != nil {
		return c, err
	}

	return c, nil
}

// loadOps reads the optional OPS section. Absence disables the surface
// rather than failing config load.
func loadOps(f *ini.File) OpsConfig {
	sec, err := f.GetSection("OPS")
	if err != nil {
		return OpsConfig{Enabled: false}
	}
	return OpsConfig{
		Enabled: true,
		Host:    sec.Key("host").MustString("0.0.0.0"),
		Port:    sec.Key("port").MustInt(8080),
	}
}

// loadNATS reads the optional NATS section. Absence disables event
// publication rather than failing config load.
func loadNATS(f *ini.File) NATSConfig {
	sec, err := f.GetSection("NATS")
	if err != nil {
		return NATSConfig{Enabled: false}
	}
	return NATSConfig{
		Enabled:        true,
		URL:            sec.Key("url").MustString("nats://127.0.0.1:4222"),
		MaxReconnects:  sec.Key("max_reconnects").MustInt(10),
		ReconnectWait:  time.Duration(sec.Key("reconnect_wait_seconds").MustInt(2)) * time.Second,
		ConnectTimeout: time.Duration(sec.Key("connect_timeout_seconds").MustInt(5)) * time.Second,
	}
}
