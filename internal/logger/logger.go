package logger

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger instance
var Log = zap.NewNop()

// SugaredLog is a sugared logger for printf-style logging in CLI tools
var SugaredLog = Log.Sugar()

// Initialize sets up the structured logger with file rotation
// logLevel: "debug", "info", "warn", "error" (default: "info")
// logFile: path to log file (default: "server.log"); "-" disables the file core
func Initialize(logLevel string, logFile string) error {
	if logFile == "" {
		logFile = "server.log"
	}

	if logLevel == "" {
		logLevel = "info"
	}

	level := parseLogLevel(logLevel)

	consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	consoleCore := zapcore.NewCore(
		consoleEncoder,
		zapcore.AddSync(os.Stdout),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if logFile != "-" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		})

		jsonEncoderConfig := zap.NewProductionEncoderConfig()
		jsonEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(jsonEncoderConfig),
			fileWriter,
			level,
		))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	SugaredLog = Log.Sugar()

	Log.Info("Logger initialized",
		zap.String("level", logLevel),
		zap.String("file", logFile),
	)

	return nil
}

// InitializeNop installs a logger that discards everything. Used by tests.
func InitializeNop() {
	Log = zap.NewNop()
	SugaredLog = Log.Sugar()
}

// Close flushes the logger before shutdown
func Close() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}

func parseLogLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// WarnWithFields logs a warning message, optionally with an error
func WarnWithFields(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Log.Warn(msg, fields...)
}

// ErrorWithFields logs an error message, optionally with an error
func ErrorWithFields(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Log.Error(msg, fields...)
}

// FatalWithFields logs a fatal error and exits
func FatalWithFields(msg string, err error) {
	if err != nil {
		Log.Fatal(msg, zap.Error(err))
	} else {
		Log.Fatal(msg)
	}
}

func WithRequestID(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

func WithUserID(userID string) zap.Field {
	return zap.String("user_id", userID)
}

func WithPostID(postID string) zap.Field {
	return zap.String("post_id", postID)
}

func WithConversationID(conversationID string) zap.Field {
	return zap.String("conversation_id", conversationID)
}

func WithIP(ip string) zap.Field {
	return zap.String("ip", ip)
}

func WithStatus(status int) zap.Field {
	return zap.Int("status", status)
}

func WithDuration(duration time.Duration) zap.Field {
	return zap.Duration("duration", duration)
}
