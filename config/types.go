package config

import "time"

type AppConfig struct {
	DBDriver      string              `yaml:"db_driver" env:"UGEL_DB_DRIVER" env-default:"sqlite"`
	DBURL         string              `yaml:"db_url" env:"UGEL_DB_URL"`
	DBPath        string              `yaml:"db_path" env:"UGEL_DB_PATH" env-default:"data/ugel.db"`
	ListenAddr    string              `yaml:"listen_addr" env:"UGEL_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	SessionTTL    time.Duration       `yaml:"session_ttl" env:"UGEL_SESSION_TTL" env-default:"3h"`
	AppEnv        string              `yaml:"app_env" env:"UGEL_APP_ENV" env-default:"development"`
	LogLevel      string              `yaml:"log_level" env:"UGEL_LOG_LEVEL" env-default:"info"`
	Pepper        string              `yaml:"pepper" env:"UGEL_PEPPER"`
	Admin         AdminConfig         `yaml:"admin"`
	Uploads       UploadsConfig       `yaml:"uploads"`
	Security      SecurityConfig      `yaml:"security"`
	Mantenimiento MantenimientoConfig `yaml:"mantenimiento"`
}

// AdminConfig describes the built-in administrator account. It never
// lives in the usuarios table.
type AdminConfig struct {
	Correo string `yaml:"correo" env:"UGEL_ADMIN_CORREO" env-default:"admin@gmail.com"`
	Clave  string `yaml:"clave" env:"UGEL_ADMIN_CLAVE" env-default:"priuge450"`
}

type UploadsConfig struct {
	Dir      string `yaml:"dir" env:"UGEL_UPLOADS_DIR" env-default:"static/uploads"`
	MaxBytes int64  `yaml:"max_bytes" env:"UGEL_UPLOADS_MAX_BYTES" env-default:"10485760"`
}

type SecurityConfig struct {
	LoginMaxIntentos int           `yaml:"login_max_intentos" env:"UGEL_LOGIN_MAX_INTENTOS" env-default:"3"`
	LoginBloqueoTTL  time.Duration `yaml:"login_bloqueo_ttl" env:"UGEL_LOGIN_BLOQUEO_TTL" env-default:"15m"`
	TrustedProxies   []string      `yaml:"trusted_proxies" env:"UGEL_TRUSTED_PROXIES" env-separator:","`
}

type MantenimientoConfig struct {
	Enabled                bool   `yaml:"enabled" env:"UGEL_MANTENIMIENTO_ENABLED" env-default:"true"`
	SesionesCron           string `yaml:"sesiones_cron" env:"UGEL_MANTENIMIENTO_SESIONES_CRON" env-default:"@every 1h"`
	AuditoriaCron          string `yaml:"auditoria_cron" env:"UGEL_MANTENIMIENTO_AUDITORIA_CRON" env-default:"@daily"`
	AuditoriaRetencionDias int    `yaml:"auditoria_retencion_dias" env:"UGEL_MANTENIMIENTO_AUDITORIA_RETENCION_DIAS" env-default:"90"`
}

const maxUserSessionTTL = 12 * time.Hour

func (c *AppConfig) EffectiveSessionTTL() time.Duration {
	ttl := 3 * time.Hour
	if c != nil && c.SessionTTL > 0 {
		ttl = c.SessionTTL
	}
	if ttl > maxUserSessionTTL {
		return maxUserSessionTTL
	}
	return ttl
}
