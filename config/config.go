package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port int
	}
	Site struct {
		BaseURL          string
		Locales          []string
		DefaultLocale    string
		ExcludedPrefixes []string
	}
	Pages struct {
		Root             string
		Markers          []string
		ExcludedSegments []string
		Watch            bool
	}
	Content struct {
		APIURL     string
		APIToken   string
		Timeout    string
		StaticFile string
	}
	Cache struct {
		Driver     string
		Path       string
		StaticTTL  string
		DynamicTTL string
		MergedTTL  string
	}
	Build struct {
		Interval string
		Output   string
	}
	Database struct {
		Driver string
		URL    string
	}
	Audit struct {
		UserAgent   string
		Parallelism int
		Timeout     string
	}
	Log struct {
		Level string
		Dir   string
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("site.baseurl", "https://dacars.ro")
	v.SetDefault("site.locales", []string{"ro", "en", "it", "es", "fr", "de"})
	v.SetDefault("site.defaultlocale", "ro")
	v.SetDefault("site.excludedprefixes", []string{"/admin", "/api", "/_next"})

	v.SetDefault("pages.root", "app")
	v.SetDefault("pages.markers", []string{"page.tsx", "page.ts", "page.jsx", "page.js", "page.mdx"})
	v.SetDefault("pages.excludedsegments", []string{"api", "admin"})
	v.SetDefault("pages.watch", true)

	v.SetDefault("content.apiurl", "")
	v.SetDefault("content.apitoken", "")
	v.SetDefault("content.timeout", "10s")
	v.SetDefault("content.staticfile", "")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.path", "./data/cache")
	v.SetDefault("cache.staticttl", "1h")
	v.SetDefault("cache.dynamicttl", "15m")
	v.SetDefault("cache.mergedttl", "15m")

	v.SetDefault("build.interval", "0")
	v.SetDefault("build.output", "public/sitemap.xml")

	v.SetDefault("database.driver", "")
	v.SetDefault("database.url", "")

	v.SetDefault("audit.useragent", "DaCars Sitemap Auditor/1.0")
	v.SetDefault("audit.parallelism", 4)
	v.SetDefault("audit.timeout", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "")
}

// LoadConfig reads path, or config.yaml from . or ./config when path is
// empty. A missing default file is not an error; SITEMAPD_* environment
// variables override both.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SITEMAPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func (c *Config) ContentTimeout() time.Duration {
	return parseDuration(c.Content.Timeout, 10*time.Second)
}

func (c *Config) StaticTTL() time.Duration {
	return parseDuration(c.Cache.StaticTTL, time.Hour)
}

func (c *Config) DynamicTTL() time.Duration {
	return parseDuration(c.Cache.DynamicTTL, 15*time.Minute)
}

func (c *Config) MergedTTL() time.Duration {
	return parseDuration(c.Cache.MergedTTL, 15*time.Minute)
}

// BuildInterval is zero when periodic rebuilds are disabled.
func (c *Config) BuildInterval() time.Duration {
	return parseDuration(c.Build.Interval, 0)
}

func (c *Config) AuditTimeout() time.Duration {
	return parseDuration(c.Audit.Timeout, 15*time.Second)
}
