package startup

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"videolab/internal/logging"

	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration
type Config struct {
	Port            int
	MetricsPort     string
	MetricsEnabled  bool
	ScratchDir      string
	StaticDir       string
	LogStaticFiles  bool
	LogHealthChecks bool
}

// LoadConfig loads and validates configuration from command-line arguments
// and environment variables. args excludes the program name.
func LoadConfig(args []string, defaultScratchDir string) (*Config, error) {
	// A .env file next to the binary seeds the environment; absence is fine.
	if err := godotenv.Load(); err == nil {
		logging.Debug("Loaded environment from .env")
	}

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	port, err := ResolvePort(args)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Port:            port,
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		ScratchDir:      getEnv("SCRATCH_DIR", defaultScratchDir),
		StaticDir:       getEnv("STATIC_DIR", "./static"),
		LogStaticFiles:  getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),
	}

	logging.Info("  PORT:              %d", config.Port)
	logging.Info("  METRICS_PORT:      %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:   %v", config.MetricsEnabled)
	logging.Info("  SCRATCH_DIR:       %s", config.ScratchDir)
	logging.Info("  STATIC_DIR:        %s", config.StaticDir)
	logging.Info("  LOG_STATIC_FILES:  %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS: %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:         %s", logging.GetLevel())
	logging.Info("")

	return config, nil
}

// LogScratchInit logs scratch directory initialization
func LogScratchInit(path string) {
	logging.Info("------------------------------------------------------------")
	logging.Info("SCRATCH DIRECTORY")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Scratch directory ready: %s", path)
	logging.Info("")
}

// LogTranscoderInit logs the outcome of the FFmpeg availability probe
func LogTranscoderInit(ffmpegAvailable, ffprobeAvailable bool) {
	logging.Info("------------------------------------------------------------")
	logging.Info("TRANSCODER INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if ffmpegAvailable {
		logging.Info("  [OK] FFmpeg is available")
	} else {
		logging.Warn("  FFmpeg not found; conversion and clip requests will fail")
	}

	if ffprobeAvailable {
		logging.Info("  [OK] FFprobe is available")
	} else {
		logging.Warn("  FFprobe not found; media probing disabled")
	}
	logging.Info("")
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            int
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:  %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application: http://0.0.0.0:%d", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:     http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:     DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs the start of a shutdown step
func LogShutdownStep(step string) {
	logging.Info("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
 _    ___     __           __        __
| |  / (_)___/ /__  ____  / /   ____ _/ /_
| | / / / __  / _ \/ __ \/ /   / __ '/ __ \
| |/ / / /_/ /  __/ /_/ / /___/ /_/ / /_/ /
|___/_/\__,_/\___/\____/_____/\__,_/_.___/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))
	logging.Info("")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
