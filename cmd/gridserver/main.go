package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/gnemet/gridview"
	"github.com/gnemet/gridview/database/cursorpool"
	"github.com/gnemet/gridview/database/sqlsource"
)

type Config struct {
	Application struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		Lang    string `yaml:"lang"`
	} `yaml:"application"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database []struct {
		Name     string `yaml:"name"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
		Schema   string `yaml:"schema"`
		Default  bool   `yaml:"default"`
	} `yaml:"database"`
	CursorPool struct {
		MaxConnections int    `yaml:"max_connections"`
		IdleTimeout    string `yaml:"idle_timeout"`
		AbsTimeout     string `yaml:"abs_timeout"`
	} `yaml:"cursorpool"`
	Grids []struct {
		Config      string `yaml:"config"` // grid config file, json or yaml
		Table       string `yaml:"table"`
		Mode        string `yaml:"mode"` // connectless or refcursor
		DefaultSort string `yaml:"default_sort"`
	} `yaml:"grids"`
}

const (
	ModeConnectless = "connectless"
	ModeRefCursor   = "refcursor"
)

func loadConfig(path string) (*Config, error) {
	_ = godotenv.Load() // Ignore error as it might not exist in prod

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand env vars in YAML
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d == 0 {
		return def
	}
	return d
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	var dbCfg struct {
		Host, Port, User, Password, Database, Schema string
	}
	for _, d := range cfg.Database {
		if d.Default {
			dbCfg = struct{ Host, Port, User, Password, Database, Schema string }{
				d.Host, d.Port, d.User, d.Password, d.Database, d.Schema,
			}
			break
		}
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable search_path=%s,public",
		dbCfg.Host, dbCfg.Port, dbCfg.User, dbCfg.Password, dbCfg.Database, dbCfg.Schema)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	maxConns := cfg.CursorPool.MaxConnections
	if maxConns == 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns * 2)

	pool := cursorpool.NewPool(db, maxConns,
		durationOr(cfg.CursorPool.IdleTimeout, 5*time.Minute),
		durationOr(cfg.CursorPool.AbsTimeout, time.Hour),
		logger)
	defer pool.Close()

	lang := language.English
	if cfg.Application.Lang != "" {
		if tag, err := language.Parse(cfg.Application.Lang); err == nil {
			lang = tag
		}
	}
	base, _ := lang.Base()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	for _, g := range cfg.Grids {
		gridCfg, err := gridview.LoadConfig(g.Config)
		if err != nil {
			slog.Error("Failed to load grid config", "config", g.Config, "error", err)
			os.Exit(1)
		}

		src := sqlsource.New(db, g.Table, gridview.PrepareColumns(gridCfg.Columns, gridview.LangLabels(base.String())))
		src.GridPath = gridCfg.Path
		if g.DefaultSort != "" {
			src.DefaultSort, _ = gridview.ParseSortParam(g.DefaultSort)
		}
		if g.Mode == ModeRefCursor {
			src.Pool = pool
		}

		h := gridview.NewHandler(gridCfg.Path, src, gridCfg.PageSize)
		h.Logger = logger
		e.Match([]string{"GET", "POST"}, gridCfg.Path, echo.WrapHandler(h))
		slog.Info("Grid mounted", "path", gridCfg.Path, "table", g.Table, "mode", g.Mode)
	}

	slog.Info("Server starting", "app", cfg.Application.Name, "version", cfg.Application.Version, "port", cfg.Server.Port)
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
