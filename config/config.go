package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	MySQL struct {
		// DSN left empty runs the service on the in-memory store.
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
	Worker struct {
		Addr string `yaml:"addr"`
		// JobTimeout bounds a single clip or stitch job; a job that
		// exceeds it is forced to failed so batches always settle.
		JobTimeout time.Duration `yaml:"job_timeout"`
	} `yaml:"worker"`
	MinIO struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"minio"`
}

var AppConfig *Config

func InitConfig() {
	path := os.Getenv("REELFORGE_CONFIG")
	if path == "" {
		path = "config/config.yaml"
	}
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()
	AppConfig = &Config{}
	if err := yaml.NewDecoder(f).Decode(AppConfig); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}
	if AppConfig.Worker.JobTimeout <= 0 {
		AppConfig.Worker.JobTimeout = 20 * time.Minute
	}
}
