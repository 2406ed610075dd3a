package util

import (
	"io"
	"log"
	"os"
)

var (
	DebugMode  = false
	debugLog   = log.New(os.Stdout, "[DEBUG] ", log.LstdFlags)
	infoLog    = log.New(os.Stdout, "[INFO] ", log.LstdFlags)
	successLog = log.New(os.Stdout, "[OK] ", log.LstdFlags)
	warnLog    = log.New(os.Stdout, "[WARN] ", log.LstdFlags)
	errorLog   = log.New(os.Stderr, "[ERROR] ", log.LstdFlags)
)

// SetOutput 同时输出到控制台和 extra（如日志文件）
func SetOutput(extra io.Writer) {
	out := io.MultiWriter(os.Stdout, extra)
	debugLog.SetOutput(out)
	infoLog.SetOutput(out)
	successLog.SetOutput(out)
	warnLog.SetOutput(out)
	errorLog.SetOutput(io.MultiWriter(os.Stderr, extra))
}

func Debug(format string, v ...interface{}) {
	if DebugMode {
		debugLog.Printf(format, v...)
	}
}

func Info(format string, v ...interface{}) {
	infoLog.Printf(format, v...)
}

// Success 步骤已完成或已满足
func Success(format string, v ...interface{}) {
	successLog.Printf(format, v...)
}

func Warn(format string, v ...interface{}) {
	warnLog.Printf(format, v...)
}

func Error(format string, v ...interface{}) {
	errorLog.Printf(format, v...)
}
