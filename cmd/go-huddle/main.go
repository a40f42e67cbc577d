package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/tartampluch/go-huddle/internal/config"
	"github.com/tartampluch/go-huddle/internal/directory"
	"github.com/tartampluch/go-huddle/internal/engine"
	"github.com/tartampluch/go-huddle/internal/locale"
	"github.com/tartampluch/go-huddle/internal/planner"
	"github.com/tartampluch/go-huddle/internal/remote"
	"github.com/tartampluch/go-huddle/internal/server"
	"github.com/zalando/go-keyring"
)

// main is the application entry point.
// os.Exit() does not run defers, so runMain returns an exit code first.
func main() {
	os.Exit(runMain())
}

type options struct {
	configPath string
	setToken   bool
	once       bool
}

func runMain() int {
	// -------------------------------------------------------------------------
	// 1. CLI Argument Parsing
	// -------------------------------------------------------------------------
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	var opts options
	flag.StringVar(&opts.configPath, config.FlagConfig, "", config.FlagDescConfig)
	flag.BoolVar(&opts.setToken, config.FlagSetToken, false, config.FlagDescSetToken)
	flag.BoolVar(&opts.once, config.FlagOnce, false, config.FlagDescOnce)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	logCloser := setupLogging(*debugMode)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close()
		}()
	}

	// -------------------------------------------------------------------------
	// 3. Context & Signal Handling
	// -------------------------------------------------------------------------
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	// -------------------------------------------------------------------------
	// 4. Application Logic
	// -------------------------------------------------------------------------
	if err := run(ctx, opts); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run loads settings, wires dependencies and serves until ctx is cancelled.
func run(ctx context.Context, opts options) error {
	settings, err := loadSettings(opts.configPath)
	if err != nil {
		return err
	}

	if opts.setToken {
		return storeToken(settings.API.User, os.Stdin)
	}

	if err := settings.Validate(); err != nil {
		return err
	}
	settings.API.Token = resolveToken(settings)

	profiles := engine.Profiles{}
	if settings.ProfilesPath != "" {
		if profiles, err = directory.LoadProfilesFile(ctx, settings.ProfilesPath); err != nil {
			return err
		}
	}

	palette, err := engine.PaletteFromSettings(settings.Palette)
	if err != nil {
		return err
	}

	tr, err := locale.New(settings.Language)
	if err != nil {
		return err
	}

	client, err := remote.NewClient(settings.API.URL, settings.API.Token)
	if err != nil {
		return err
	}

	srv := server.NewCalendarServer(settings.Addr(), nil, settings.AllowedOrigins)
	srv.Language = settings.Language

	p := planner.New(client, planner.Options{
		EventID:    settings.API.EventID,
		UserID:     settings.API.User,
		Profiles:   profiles,
		Palette:    palette,
		WeekStart:  weekStart(settings.WeekStart),
		Location:   time.Local,
		Clock:      engine.RealClock{},
		Translator: tr,
		Language:   settings.Language,
		Publisher:  srv,
	})
	srv.Planner = p

	if opts.once {
		if err := p.Sync(ctx); err != nil {
			return err
		}
		return printSnapshot(os.Stdout, p.Snapshot())
	}

	// The server and the refresh schedule stop together: whichever returns
	// first cancels the other.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)
	go func() {
		errs <- srv.Start(ctx)
	}()
	go func() {
		errs <- p.Start(ctx, settings.RefreshCron)
	}()

	first := <-errs
	cancel()
	second := <-errs
	return errors.Join(first, second)
}

func loadSettings(path string) (*config.Settings, error) {
	if path == "" {
		p, err := config.DefaultSettingsPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	s, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	s.ApplyEnv(config.EnvFileName)
	return s, nil
}

// storeToken reads one line from r and saves it in the OS keyring.
func storeToken(user string, r io.Reader) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: %w", config.ErrTokenRead, err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return errors.New(config.ErrTokenRead)
	}
	if err := keyring.Set(config.KeyringService, user, token); err != nil {
		return fmt.Errorf("%s: %w", config.ErrTokenStore, err)
	}
	slog.Info(config.MsgTokenStored,
		config.LogKeyComponent, config.CompMain,
		config.LogKeyUser, user,
	)
	return nil
}

// resolveToken prefers the keyring; the environment token is the fallback.
func resolveToken(s *config.Settings) string {
	token, err := keyring.Get(config.KeyringService, s.API.User)
	if err == nil && token != "" {
		return token
	}
	if s.API.Token == "" {
		slog.Warn(config.MsgTokenMissing,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyUser, s.API.User,
		)
	}
	return s.API.Token
}

func weekStart(name string) time.Weekday {
	if name == config.WeekStartSunday {
		return time.Sunday
	}
	return time.Monday
}

func printSnapshot(w io.Writer, snap planner.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// printVersion outputs the build information to stdout.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger.
// Logs go to stderr, so -once output on stdout stays machine-readable,
// and to a file in the user cache directory.
func setupLogging(debugMode bool) io.Closer {
	writers := []io.Writer{os.Stderr}
	var logFile *os.File

	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
