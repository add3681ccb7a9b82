package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "TIFFIN_"

type Application struct {
	Server   Server   `koanf:"server"`
	Storage  Storage  `koanf:"storage"`
	Sqlite   Sqlite   `koanf:"sqlite"`
	Database Database `koanf:"db"`
	Lock     Lock     `koanf:"lock"`
	Export   Export   `koanf:"export"`
	Google   Google   `koanf:"google"`
}

type Server struct {
	Port int `koanf:"port"`
}

type StorageBackend string

const (
	StorageSqlite   StorageBackend = "sqlite"
	StoragePostgres StorageBackend = "postgres"
	StorageMemory   StorageBackend = "memory"
)

type Storage struct {
	Backend StorageBackend `koanf:"backend"`
}

type Sqlite struct {
	Path string `koanf:"path"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type LockBackend string

const (
	LockLocal LockBackend = "local"
	LockRedis LockBackend = "redis"
)

type Lock struct {
	Backend       LockBackend   `koanf:"backend"`
	RedisAddr     string        `koanf:"redisaddr"`
	RedisPassword string        `koanf:"redispassword"`
	RedisDB       int           `koanf:"redisdb"`
	TTL           time.Duration `koanf:"ttl"`
}

type ExportSink string

const (
	SinkFile  ExportSink = "file"
	SinkDrive ExportSink = "drive"
)

type Export struct {
	Sink          ExportSink `koanf:"sink"`
	Dir           string     `koanf:"dir"`
	DriveFolderId string     `koanf:"drivefolderid"`
}

type Google struct {
	ClientId     string `koanf:"clientid"`
	ClientSecret string `koanf:"clientsecret"`
	TokenFile    string `koanf:"tokenfile"`
}

func Defaults() Application {
	return Application{
		Server: Server{
			Port: 8181,
		},
		Storage: Storage{
			Backend: StorageSqlite,
		},
		Sqlite: Sqlite{
			Path: "./data/tiffin.db",
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "tiffin",
			Pass:   "",
			Name:   "tiffin",
			Schema: "tiffin",
		},
		Lock: Lock{
			Backend:   LockLocal,
			RedisAddr: "localhost:6379",
			TTL:       10 * time.Second,
		},
		Export: Export{
			Sink: SinkFile,
			Dir:  "./exports",
		},
		Google: Google{
			TokenFile: "./data/google_token.json",
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
