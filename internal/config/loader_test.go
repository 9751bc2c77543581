package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/squad/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SQUAD_ADDR", ":8080")
			_ = os.Setenv("SQUAD_STORAGE", "SQLite")
			_ = os.Setenv("SQUAD_SQLITE_PATH", "/tmp/roster.db")
			_ = os.Setenv("SQUAD_MAX_GROUP_SIZE", "8")
			_ = os.Setenv("SQUAD_REFINEMENT_FACTOR", "4")
			_ = os.Setenv("SQUAD_RANDOM_SEED", "42")
			_ = os.Setenv("SQUAD_LOG_FORMAT", "JSON")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Storage, convey.ShouldEqual, config.StorageSQLite)
				convey.So(cfg.SQLitePath, convey.ShouldEqual, "/tmp/roster.db")
				convey.So(cfg.MaxGroupSize, convey.ShouldEqual, 8)
				convey.So(cfg.RefinementFactor, convey.ShouldEqual, 4)
				convey.So(cfg.RandomSeed, convey.ShouldEqual, 42)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# roster service
addr: ":9090"
log_level: debug
roster_path: "roster.json"
max_group_size: 5
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SQUAD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should merge the file with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.RosterPath, convey.ShouldEqual, "roster.json")
				convey.So(cfg.MaxGroupSize, convey.ShouldEqual, 5)
				convey.So(cfg.RefinementFactor, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nmax_group_size: 5\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SQUAD_CONFIG", tmpFile)
			_ = os.Setenv("SQUAD_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxGroupSize, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile("addr: [unterminated")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SQUAD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SQUAD_CONFIG", "/non/existent/squad.yaml")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SQUAD_MAX_GROUP_SIZE", "many")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When loading config with an unknown storage backend", func() {
			_ = os.Setenv("SQUAD_STORAGE", "redis")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			_, err := config.Load(cctx)

			convey.Convey("Then it should return the context error", func() {
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	envVars := []string{
		"SQUAD_CONFIG",
		"SQUAD_ADDR",
		"SQUAD_LOG_LEVEL",
		"SQUAD_LOG_FORMAT",
		"SQUAD_STORAGE",
		"SQUAD_SQLITE_PATH",
		"SQUAD_ROSTER_PATH",
		"SQUAD_MAX_GROUP_SIZE",
		"SQUAD_REFINEMENT_FACTOR",
		"SQUAD_RANDOM_SEED",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "squad-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
