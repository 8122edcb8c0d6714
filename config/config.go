package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bridge y sus comandos.
type Config struct {
	Risk     RiskConfig     `yaml:"risk"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Paths    PathsConfig    `yaml:"paths"`
	API      APIConfig      `yaml:"api"`
	Telegram TelegramConfig `yaml:"telegram"`
	Log      LogConfig      `yaml:"log"`
}

// RiskConfig contiene los parámetros de riesgo del sizing y las guards.
// Nunca viven como globals: se inyectan en los constructores.
type RiskConfig struct {
	MinBet          float64 `yaml:"min_bet"`           // piso por trade en USD
	MaxBet          float64 `yaml:"max_bet"`           // techo por trade en USD
	KellyFraction   float64 `yaml:"kelly_fraction"`    // fracción conservadora del Kelly completo
	MaxExposurePct  float64 `yaml:"max_exposure_pct"`  // % máximo del portfolio desplegado
	MaxCategoryPct  float64 `yaml:"max_category_pct"`  // % máximo en una sola categoría
	MaxProposalsDay int     `yaml:"max_proposals_day"` // cap de propuestas por día UTC
	ProposalTTLMins int     `yaml:"proposal_ttl_mins"` // expiración de propuestas enviadas
	BlockedTTLHours int     `yaml:"blocked_ttl_hours"` // supresión de alertas repetidas
	StartingBalance float64 `yaml:"starting_balance"`  // balance virtual inicial del ledger
}

// TrackerConfig controla el scan de mercados del tracker.
type TrackerConfig struct {
	WhaleMinSizeUSD   float64 `yaml:"whale_min_size_usd"`
	MinLiquidityUSD   float64 `yaml:"min_liquidity_usd"`
	Tier1Divergence   float64 `yaml:"tier1_divergence"`
	Tier2Divergence   float64 `yaml:"tier2_divergence"`
	ResolutionMinDays int     `yaml:"resolution_min_days"`
	ResolutionMaxDays int     `yaml:"resolution_max_days"`
	MarketsTarget     int     `yaml:"markets_target"`
	PageSize          int     `yaml:"page_size"`
}

// PathsConfig controla dónde se persisten los datos.
type PathsConfig struct {
	SignalsFile string `yaml:"signals_file"`
	LedgerFile  string `yaml:"ledger_file"`
	TestLedger  string `yaml:"test_ledger_file"` // usado cuando BOT_ENV=e2e_test
	PendingFile string `yaml:"pending_file"`
	ArchiveDSN  string `yaml:"archive_dsn"` // sqlite del histórico de runs, o ":memory:"
}

// APIConfig contiene los base URLs de las APIs de Polymarket.
type APIConfig struct {
	GammaBase string `yaml:"gamma_base"`
	DataBase  string `yaml:"data_base"`
}

// TelegramConfig contiene las credenciales del canal de notificación.
// Token y chat ID vienen del entorno (.env) para no commitearlos.
type TelegramConfig struct {
	BotToken string `yaml:"-"`
	ChatID   int64  `yaml:"-"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// SentTTL devuelve la expiración de propuestas enviadas como time.Duration.
func (c *Config) SentTTL() time.Duration {
	return time.Duration(c.Risk.ProposalTTLMins) * time.Minute
}

// BlockedTTL devuelve la ventana de supresión de mercados bloqueados.
func (c *Config) BlockedTTL() time.Duration {
	return time.Duration(c.Risk.BlockedTTLHours) * time.Hour
}

// LedgerPath devuelve la ruta del ledger según el entorno: BOT_ENV=e2e_test
// redirige a un ledger de pruebas y deja el de producción intacto.
func (c *Config) LedgerPath() string {
	if os.Getenv("BOT_ENV") == "e2e_test" {
		return c.Paths.TestLedger
	}
	return c.Paths.LedgerFile
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		var id int64
		if _, err := fmt.Sscanf(v, "%d", &id); err == nil {
			cfg.Telegram.ChatID = id
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Los defaults replican el deployment de referencia.
func setDefaults(cfg *Config) {
	if cfg.Risk.MinBet <= 0 {
		cfg.Risk.MinBet = 3.00
	}
	if cfg.Risk.MaxBet <= 0 {
		cfg.Risk.MaxBet = 10.00
	}
	if cfg.Risk.KellyFraction <= 0 {
		cfg.Risk.KellyFraction = 0.25
	}
	if cfg.Risk.MaxExposurePct <= 0 {
		cfg.Risk.MaxExposurePct = 0.40
	}
	if cfg.Risk.MaxCategoryPct <= 0 {
		cfg.Risk.MaxCategoryPct = 0.40
	}
	if cfg.Risk.MaxProposalsDay <= 0 {
		cfg.Risk.MaxProposalsDay = 5
	}
	if cfg.Risk.ProposalTTLMins <= 0 {
		cfg.Risk.ProposalTTLMins = 30
	}
	if cfg.Risk.BlockedTTLHours <= 0 {
		cfg.Risk.BlockedTTLHours = 48
	}
	if cfg.Risk.StartingBalance <= 0 {
		cfg.Risk.StartingBalance = 66.00
	}

	if cfg.Tracker.WhaleMinSizeUSD <= 0 {
		cfg.Tracker.WhaleMinSizeUSD = 500
	}
	if cfg.Tracker.MinLiquidityUSD <= 0 {
		cfg.Tracker.MinLiquidityUSD = 5000
	}
	if cfg.Tracker.Tier1Divergence <= 0 {
		cfg.Tracker.Tier1Divergence = 0.15
	}
	if cfg.Tracker.Tier2Divergence <= 0 {
		cfg.Tracker.Tier2Divergence = 0.08
	}
	if cfg.Tracker.ResolutionMinDays <= 0 {
		cfg.Tracker.ResolutionMinDays = 3
	}
	if cfg.Tracker.ResolutionMaxDays <= 0 {
		cfg.Tracker.ResolutionMaxDays = 7
	}
	if cfg.Tracker.MarketsTarget <= 0 {
		cfg.Tracker.MarketsTarget = 500
	}
	if cfg.Tracker.PageSize <= 0 {
		cfg.Tracker.PageSize = 100
	}

	if cfg.Paths.SignalsFile == "" {
		cfg.Paths.SignalsFile = "data/whale_signals.json"
	}
	if cfg.Paths.LedgerFile == "" {
		cfg.Paths.LedgerFile = "data/ledger.json"
	}
	if cfg.Paths.TestLedger == "" {
		cfg.Paths.TestLedger = "data/test_ledger.json"
	}
	if cfg.Paths.PendingFile == "" {
		cfg.Paths.PendingFile = "data/pending_proposals.json"
	}
	if cfg.Paths.ArchiveDSN == "" {
		cfg.Paths.ArchiveDSN = "data/bridge_history.db"
	}

	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
