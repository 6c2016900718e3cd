package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Log  *zap.Logger
	Once sync.Once
)

// InitLogger 初始化全局日志记录器
// 控制台输出便于人工查看，文件输出为 JSON 并按大小轮转
func InitLogger(logDir string, debug bool) {
	Once.Do(func() {
		if logDir == "" {
			logDir = "logs"
		}
		if err := os.MkdirAll(logDir, 0755); err != nil {
			panic(err)
		}

		consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
		consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		consoleEncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		consoleCore := zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleEncoderConfig),
			zapcore.AddSync(os.Stdout),
			getLogLevel(debug),
		)

		fileEncoderConfig := zap.NewProductionEncoderConfig()
		fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		fileWriteSyncer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(logDir, "tvbridge.json"),
			MaxSize:    10, // MB
			MaxBackups: 30,
			MaxAge:     30, // 天
			Compress:   true,
		})
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEncoderConfig),
			fileWriteSyncer,
			zapcore.InfoLevel,
		)

		Log = zap.New(zapcore.NewTee(consoleCore, fileCore), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
		zap.ReplaceGlobals(Log)
	})
}

func getLogLevel(debug bool) zapcore.LevelEnabler {
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// NewModuleLogger 获取带 module 字段的 logger
// 未初始化时返回 Nop logger（测试场景下不写文件）
func NewModuleLogger(moduleName string) *zap.Logger {
	if Log == nil {
		return zap.NewNop().With(zap.String("module", moduleName))
	}
	return Log.With(zap.String("module", moduleName))
}

// Sync 刷新缓冲的日志
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

func Info(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Info(msg, fields...)
	}
}

func Error(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Error(msg, fields...)
	}
}

func Warn(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Warn(msg, fields...)
	}
}
