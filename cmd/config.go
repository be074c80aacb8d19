package main

import "time"

type Config struct {
	ConnectionBufferSize      int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	IndexBufferSize           int           `env:"INDEX_BUFFER_SIZE,required=true"`
	ModerationCharReplacement rune          `env:"MODERATION_CHARACTER_REPLACEMENT,required=true"`
	HistoryLimit              *int          `env:"HISTORY_LIMIT"`
	RestartInterval           time.Duration `env:"RESTART_INTERVAL,required=true"`
	MetricsInterval           time.Duration `env:"METRICS_INTERVAL,required=true"`
	BadgerFilepath            string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath             string        `env:"BLUGE_FILEPATH,required=true"`
	SQLiteFilepath            string        `env:"SQLITE_FILEPATH,required=true"`
	LogLevel                  string        `env:"LOG_LEVEL,required=true"`
	Host                      string        `env:"HOST,default=localhost"`
	Port                      int           `env:"PORT,default=8080"`
}
